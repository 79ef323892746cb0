package hashpool

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	p := New(2)
	defer p.Close()

	ctx := context.Background()
	hash, err := p.Hash(ctx, "5678")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if err := p.Compare(ctx, hash, "5678"); err != nil {
		t.Fatalf("Compare matching plaintext: %v", err)
	}

	err = p.Compare(ctx, hash, "0000")
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Fatalf("Compare mismatched plaintext: got %v", err)
	}
}

func TestHashConcurrent(t *testing.T) {
	p := New(4)
	defer p.Close()

	ctx := context.Background()
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := p.Hash(ctx, "password")
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent Hash: %v", err)
		}
	}
}
