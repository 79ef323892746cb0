// Package hashpool dispatches bcrypt hashing and comparison onto a bounded
// pool of worker goroutines so that CPU-bound password hashing never blocks
// a WebSocket read pump or an HTTP handler goroutine.
package hashpool

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is shared by every credential hashed through the pool: PINs,
// passwords, and setup codes all use the same cost factor.
const Cost = bcrypt.DefaultCost

type hashJob struct {
	plaintext string
	result    chan hashResult
}

type hashResult struct {
	hash string
	err  error
}

type compareJob struct {
	hash, plaintext string
	result          chan error
}

// Pool runs a fixed number of worker goroutines that perform bcrypt work.
// Callers submit through Hash/Compare and block on the returned error, but
// the blocking happens on a channel, not on CPU-bound work in their own
// goroutine.
type Pool struct {
	hashJobs    chan hashJob
	compareJobs chan compareJob
	done        chan struct{}
}

// New starts a pool with the given number of workers.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		hashJobs:    make(chan hashJob),
		compareJobs: make(chan compareJob),
		done:        make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.done:
			return
		case job := <-p.hashJobs:
			hash, err := bcrypt.GenerateFromPassword([]byte(job.plaintext), Cost)
			job.result <- hashResult{hash: string(hash), err: err}
		case job := <-p.compareJobs:
			err := bcrypt.CompareHashAndPassword([]byte(job.hash), []byte(job.plaintext))
			job.result <- err
		}
	}
}

// Hash hashes plaintext on a worker goroutine and returns the encoded hash.
func (p *Pool) Hash(ctx context.Context, plaintext string) (string, error) {
	job := hashJob{plaintext: plaintext, result: make(chan hashResult, 1)}
	select {
	case p.hashJobs <- job:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-job.result:
		if res.err != nil {
			return "", fmt.Errorf("hashing: %w", res.err)
		}
		return res.hash, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Compare reports whether plaintext matches hash. A nil error means match;
// bcrypt.ErrMismatchedHashAndPassword (or any other error) means no match.
func (p *Pool) Compare(ctx context.Context, hash, plaintext string) error {
	job := compareJob{hash: hash, plaintext: plaintext, result: make(chan error, 1)}
	select {
	case p.compareJobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-job.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops all workers. Safe to call once.
func (p *Pool) Close() {
	close(p.done)
}
