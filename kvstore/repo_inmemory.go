package kvstore

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/friend-links/internal/errors"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// InMemoryStore is a thread-safe in-memory implementation of Store
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	closed  bool
	stop    chan struct{}
}

type MemoryOption func(*InMemoryStore)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// WithSweepInterval starts a background goroutine that drops expired entries.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(s *InMemoryStore) {
		if interval <= 0 {
			return
		}
		s.stop = make(chan struct{})
		go s.sweep(interval)
	}
}

// NewInMemoryStore creates a new in-memory key-value store
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return apperrors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", apperrors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", apperrors.ErrStoreClosed
	}
	return s.lookup(key)
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return apperrors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}
	delete(s.entries, key)
	return nil
}

func (s *InMemoryStore) Take(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", apperrors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", apperrors.ErrStoreClosed
	}
	value, err := s.lookup(key)
	delete(s.entries, key)
	return value, err
}

// Update holds the store lock while fn runs, so fn must not call back into s.
func (s *InMemoryStore) Update(_ context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	if key == "" {
		return apperrors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}

	current, err := s.lookup(key)
	next, err := fn(current, err == nil)
	if err != nil {
		return err
	}

	entry := memoryEntry{value: next}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *InMemoryStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}
	return nil
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stop != nil {
		close(s.stop)
	}
	return nil
}

// Len returns the number of live entries.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, e := range s.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// lookup must be called with mu held.
func (s *InMemoryStore) lookup(key string) (string, error) {
	entry, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if entry.expired(s.now()) {
		delete(s.entries, key)
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (s *InMemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for k, e := range s.entries {
				if e.expired(now) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
