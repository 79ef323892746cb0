// Package session issues and validates the cookie-bound session created by
// a successful login.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"audix/internal/db"
)

const (
	CookieName = "audix_user_sid"

	defaultTTL  = 7 * 24 * time.Hour
	rememberTTL = 30 * 24 * time.Hour
)

type Service struct {
	sessions *db.SessionRepository
	secure   bool
}

// New builds a session service. secure controls the cookie's Secure
// attribute and should be true whenever NODE_ENV (or equivalent) is
// production.
func New(sessions *db.SessionRepository, secure bool) *Service {
	return &Service{sessions: sessions, secure: secure}
}

// Create issues a new session for flatID and writes the Set-Cookie header.
// remember extends the cookie (and server-side expiry) from 7 to 30 days.
func (s *Service) Create(w http.ResponseWriter, flatID string, remember bool) error {
	sid := uuid.New().String()

	ttl := defaultTTL
	if remember {
		ttl = rememberTTL
	}
	expiresAt := time.Now().Add(ttl)

	if err := s.sessions.Create(sid, flatID, expiresAt); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
	}
	if remember {
		cookie.Expires = expiresAt
		cookie.MaxAge = int(rememberTTL.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// Resolve returns the flat_id bound to the request's session cookie, or
// ErrNoSession if absent/invalid/expired.
func (s *Service) Resolve(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSession
	}

	sess, err := s.sessions.FindValid(cookie.Value)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("resolving session: %w", err)
	}
	return sess.FlatID, nil
}

// Destroy deletes the server-side session record and clears the cookie.
func (s *Service) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
		MaxAge:   -1,
	})
}

var ErrNoSession = errors.New("no valid session")
