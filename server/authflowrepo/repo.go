// Package authflowrepo stores the one-time state values that bind an OAuth
// authorization redirect to its callback.
package authflowrepo

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/friend-links/kvstore"
)

const (
	// DefaultTTL is how long a state value stays usable.
	DefaultTTL = 300 * time.Second

	keyPrefix     = "auth_state:"
	sentinelValue = "valid"
	stateBytes    = 32
)

type Repo interface {
	// Create generates a fresh state value and stores it.
	Create(ctx context.Context) (string, error)

	// Consume reports whether state was present and removes it. A consumed
	// state is never reported present again.
	Consume(ctx context.Context, state string) (bool, error)
}

// StoreRepo keeps states in a kvstore.Store under auth_state:<state>.
type StoreRepo struct {
	store    kvstore.Store
	ttl      time.Duration
	generate func() (string, error)
}

var _ Repo = (*StoreRepo)(nil)

// NewStoreRepo creates a state repo. A non-positive ttl selects DefaultTTL.
func NewStoreRepo(store kvstore.Store, ttl time.Duration) *StoreRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StoreRepo{
		store:    store,
		ttl:      ttl,
		generate: GenerateState,
	}
}

func (r *StoreRepo) Create(ctx context.Context) (string, error) {
	state, err := r.generate()
	if err != nil {
		return "", fmt.Errorf("[authflowrepo Create] failed to generate state: %w", err)
	}
	if err := r.store.Put(ctx, Key(state), sentinelValue, r.ttl); err != nil {
		return "", fmt.Errorf("[authflowrepo Create] failed to store state: %w", err)
	}
	return state, nil
}

func (r *StoreRepo) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	value, err := r.store.Take(ctx, Key(state))
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("[authflowrepo Consume] failed to read state: %w", err)
	}
	return value == sentinelValue, nil
}

// Key returns the store key for a state value.
func Key(state string) string {
	return keyPrefix + state
}

// GenerateState returns 256 bits of randomness, base64url encoded.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
