// Package session persists the opaque session token issued by the analysis
// service so it survives process restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const (
	// StorageKey is the fixed key the token is stored under.
	StorageKey = "medai_session_id"
	// HeaderName carries the token on requests and responses.
	HeaderName = "X-Session-Id"
)

// Store is the durable storage capability injected into a Session. Load
// returns "" with a nil error when nothing is stored under key.
type Store interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
}

// Session is the explicit session context handed to the HTTP client.
type Session struct {
	store  Store
	key    string
	logger *slog.Logger

	mu     sync.Mutex
	cached string
	loaded bool
}

type Option func(*Session)

// WithKey overrides StorageKey.
func WithKey(key string) Option {
	return func(s *Session) {
		if k := strings.TrimSpace(key); k != "" {
			s.key = k
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Session backed by store.
func New(store Store, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, errors.New("session: store must not be nil")
	}
	s := &Session{
		store:  store,
		key:    StorageKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Token returns the stored token, reading through to the store on every call
// so that tokens written by another process are picked up.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.store.Load(ctx, s.key)
	if err != nil {
		if s.loaded {
			s.logger.Warn("session: load failed, using cached token", "err", err)
			return s.cached, nil
		}
		return "", fmt.Errorf("session: load token: %w", err)
	}
	s.cached = tok
	s.loaded = true
	return tok, nil
}

// Observe records a token seen on a response. Empty tokens and tokens equal to
// the stored value are ignored. It reports whether the store was written.
func (s *Session) Observe(ctx context.Context, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		current, err := s.store.Load(ctx, s.key)
		if err != nil {
			return false, fmt.Errorf("session: load token: %w", err)
		}
		s.cached = current
		s.loaded = true
	}
	if token == s.cached {
		return false, nil
	}
	if err := s.store.Save(ctx, s.key, token); err != nil {
		return false, fmt.Errorf("session: save token: %w", err)
	}
	s.cached = token
	return true, nil
}
