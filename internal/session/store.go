package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

const defaultResetTimeout = 5 * time.Second

// Issuer hands out fresh session identifiers. The backend client satisfies it.
type Issuer interface {
	NewSession(ctx context.Context) (string, error)
}

// ResetResult describes the identifier produced by Store.Reset.
type ResetResult struct {
	ID string
	// Local is true when the backend could not be reached and the id was
	// generated on this machine.
	Local bool
}

// Store owns the durable conversation identifier.
type Store struct {
	kv           KV
	issuer       Issuer
	key          string
	resetTimeout time.Duration
	newID        func() string
	logger       *logging.Logger

	mu      sync.Mutex
	current string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKeyPrefix namespaces the persisted key.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.key = keyFor(prefix, "session_id")
	}
}

// WithResetTimeout bounds the backend call made by Reset.
func WithResetTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.resetTimeout = d
		}
	}
}

// WithIDGenerator replaces the local identifier generator.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *logging.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore builds a session store. issuer may be nil, in which case Reset
// always generates locally.
func NewStore(kv KV, issuer Issuer, opts ...StoreOption) *Store {
	if kv == nil {
		panic("session: kv cannot be nil")
	}
	s := &Store{
		kv:           kv,
		issuer:       issuer,
		key:          keyFor("assistant", "session_id"),
		resetTimeout: defaultResetTimeout,
		newID:        uuid.NewString,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current identifier, creating and persisting one when none
// exists yet. It never returns an empty string.
func (s *Store) Get(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" {
		return s.current
	}

	id, err := s.kv.Get(ctx, s.key)
	switch {
	case err == nil && strings.TrimSpace(id) != "":
		s.current = id
		return id
	case err != nil && !errors.Is(err, ErrNotFound):
		s.logger.Warn("session: failed to read persisted id", "error", err)
	}

	s.current = s.generate()
	s.persist(ctx, s.current)
	return s.current
}

// Adopt replaces the identifier with one supplied by the backend. Empty ids
// are ignored.
func (s *Store) Adopt(ctx context.Context, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.current {
		return
	}
	s.current = id
	s.persist(ctx, id)
}

// Reset requests a fresh identifier from the backend and falls back to a
// locally generated one when that fails. It never fails.
func (s *Store) Reset(ctx context.Context) ResetResult {
	result := ResetResult{}
	if s.issuer != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.resetTimeout)
		id, err := s.issuer.NewSession(callCtx)
		cancel()
		if err != nil {
			s.logger.Warn("session: backend reset failed, generating locally", "error", err)
		} else {
			result.ID = strings.TrimSpace(id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if result.ID == "" {
		result.ID = s.generate()
		result.Local = true
	}
	s.current = result.ID
	s.persist(ctx, result.ID)
	return result
}

func (s *Store) generate() string {
	if id := strings.TrimSpace(s.newID()); id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Store) persist(ctx context.Context, id string) {
	if err := s.kv.Set(ctx, s.key, id); err != nil {
		s.logger.Warn("session: failed to persist id", "error", err)
	}
}

func keyFor(prefix, name string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}
