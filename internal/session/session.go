package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when an operation needs a token and none is stored.
var ErrNoSession = errors.New("no active session")

// Session is the single-slot holder of the bearer token. The in-memory value
// mirrors the store: it is loaded once by Open and every write goes through
// the store first.
type Session struct {
	mu    sync.RWMutex
	store Store
	token string
}

// Open reads the persisted token from store.
func Open(store Store) (*Session, error) {
	if store == nil {
		store = NewMemoryStore("")
	}

	token, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	return &Session{
		store: store,
		token: strings.TrimSpace(token),
	}, nil
}

// Token returns a snapshot of the current token. Empty means unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken persists token and makes it current. An empty token clears the session.
func (s *Session) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(token); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.token = token

	return nil
}

// Clear drops the token. The in-memory value is dropped even when the store
// fails to delete, so an expired token is never sent again by this process.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if err := s.store.Delete(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	return nil
}

// Claims describes what can be read from a JWT-shaped token without verifying it.
type Claims struct {
	Subject   string    `json:"subject" yaml:"subject"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitempty" yaml:"issued_at,omitempty"`
}

// Expired reports whether the token carried an expiry that is before now.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the current token as an unverified JWT. The client never
// relies on this; it is informational for the operator.
func (s *Session) Claims() (*Claims, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNoSession
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}

	claims := &Claims{}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := parsed.Claims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	return claims, nil
}
