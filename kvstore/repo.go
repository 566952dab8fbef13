// Package kvstore provides the key-value capability used for one-time OAuth
// state and link storage. Values are strings and every entry may carry a TTL.
package kvstore

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/friend-links/internal/errors"
)

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound = apperrors.ErrNotFound
	// ErrConflict is returned when Update keeps losing races for a key.
	ErrConflict = apperrors.ErrConflict
)

// UpdateFunc maps the current value of a key to its replacement. found is
// false when the key is absent or expired. A returned error aborts the update
// and is passed back to the caller unchanged. It may be called more than once.
type UpdateFunc func(current string, found bool) (string, error)

type Store interface {
	// Put stores value under key. A zero ttl keeps the entry until deleted.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Take atomically returns and removes the value for key, or ErrNotFound.
	Take(ctx context.Context, key string) (string, error)

	// Update runs a read-modify-write on key that no concurrent writer can
	// interleave with. The new value is stored with ttl as in Put.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error

	Ping(ctx context.Context) error
	Close() error
}
