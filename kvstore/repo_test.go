package kvstore_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/friend-links/kvstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// storeFixture builds a store plus a function that moves its clock forward.
type storeFixture struct {
	name    string
	store   kvstore.Store
	advance func(time.Duration)
}

func fixtures(t *testing.T) []storeFixture {
	t.Helper()

	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mem := kvstore.NewInMemoryStore(kvstore.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rs := kvstore.NewRedisStoreFromClient(client, "test:")
	t.Cleanup(func() { _ = rs.Close() })

	return []storeFixture{
		{
			name:  "memory",
			store: mem,
			advance: func(d time.Duration) {
				mu.Lock()
				now = now.Add(d)
				mu.Unlock()
			},
		},
		{
			name:    "redis",
			store:   rs,
			advance: mr.FastForward,
		},
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Put(ctx, "a", "1", 0))

			v, err := f.store.Get(ctx, "a")
			require.NoError(t, err)
			require.Equal(t, "1", v)

			require.NoError(t, f.store.Delete(ctx, "a"))
			_, err = f.store.Get(ctx, "a")
			require.ErrorIs(t, err, kvstore.ErrNotFound)

			// Deleting again is fine
			require.NoError(t, f.store.Delete(ctx, "a"))
		})
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Put(ctx, "state", "valid", 300*time.Second))

			f.advance(299 * time.Second)
			v, err := f.store.Get(ctx, "state")
			require.NoError(t, err)
			require.Equal(t, "valid", v)

			f.advance(2 * time.Second)
			_, err = f.store.Get(ctx, "state")
			require.ErrorIs(t, err, kvstore.ErrNotFound)
		})
	}
}

func TestStore_TakeIsOneTime(t *testing.T) {
	ctx := context.Background()
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Put(ctx, "k", "v", time.Minute))

			v, err := f.store.Take(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, "v", v)

			_, err = f.store.Take(ctx, "k")
			require.ErrorIs(t, err, kvstore.ErrNotFound)
			_, err = f.store.Get(ctx, "k")
			require.ErrorIs(t, err, kvstore.ErrNotFound)
		})
	}
}

func TestStore_ConcurrentTakeSingleWinner(t *testing.T) {
	ctx := context.Background()
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Put(ctx, "race", "v", time.Minute))

			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := f.store.Take(ctx, "race"); err == nil {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}
			wg.Wait()
			require.Equal(t, int32(1), wins)
		})
	}
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			err := f.store.Update(ctx, "doc", 0, func(current string, found bool) (string, error) {
				require.False(t, found)
				require.Empty(t, current)
				return "first", nil
			})
			require.NoError(t, err)

			err = f.store.Update(ctx, "doc", 0, func(current string, found bool) (string, error) {
				require.True(t, found)
				require.Equal(t, "first", current)
				return current + ",second", nil
			})
			require.NoError(t, err)

			v, err := f.store.Get(ctx, "doc")
			require.NoError(t, err)
			require.Equal(t, "first,second", v)

			// An error from fn leaves the value untouched
			errRejected := errors.New("rejected")
			err = f.store.Update(ctx, "doc", 0, func(string, bool) (string, error) {
				return "", errRejected
			})
			require.ErrorIs(t, err, errRejected)
			v, err = f.store.Get(ctx, "doc")
			require.NoError(t, err)
			require.Equal(t, "first,second", v)

			require.Error(t, f.store.Update(ctx, "", 0, func(string, bool) (string, error) { return "", nil }))
		})
	}
}

func TestStore_UpdateExpiredIsAbsent(t *testing.T) {
	ctx := context.Background()
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Put(ctx, "doc", "old", time.Second))
			f.advance(2 * time.Second)

			err := f.store.Update(ctx, "doc", time.Minute, func(current string, found bool) (string, error) {
				require.False(t, found)
				return "new", nil
			})
			require.NoError(t, err)

			f.advance(30 * time.Second)
			v, err := f.store.Get(ctx, "doc")
			require.NoError(t, err)
			require.Equal(t, "new", v)

			f.advance(time.Minute)
			_, err = f.store.Get(ctx, "doc")
			require.ErrorIs(t, err, kvstore.ErrNotFound)
		})
	}
}

func TestStore_ConcurrentUpdateNoLostWrites(t *testing.T) {
	ctx := context.Background()
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			const writers = 10
			increment := func(current string, found bool) (string, error) {
				n := 0
				if found {
					var err error
					if n, err = strconv.Atoi(current); err != nil {
						return "", err
					}
				}
				return strconv.Itoa(n + 1), nil
			}

			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- f.store.Update(ctx, "counter", 0, increment)
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			v, err := f.store.Get(ctx, "counter")
			require.NoError(t, err)
			require.Equal(t, strconv.Itoa(writers), v)
		})
	}
}

func TestStore_EmptyKey(t *testing.T) {
	ctx := context.Background()
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			require.Error(t, f.store.Put(ctx, "", "v", 0))
			_, err := f.store.Get(ctx, "")
			require.Error(t, err)
			_, err = f.store.Take(ctx, "")
			require.Error(t, err)
			require.Error(t, f.store.Delete(ctx, ""))
		})
	}
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rs := kvstore.NewRedisStoreFromClient(client, "links:")
	defer rs.Close()

	require.NoError(t, rs.Put(context.Background(), "auth_state:abc", "valid", time.Minute))
	require.True(t, mr.Exists("links:auth_state:abc"))
	mr.CheckGet(t, "links:auth_state:abc", "valid")
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	rs, err := kvstore.NewRedisStore(context.Background(), kvstore.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, rs.Ping(context.Background()))
	require.NoError(t, rs.Close())

	rs, err = kvstore.NewRedisStore(context.Background(), kvstore.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	require.NoError(t, rs.Close())

	_, err = kvstore.NewRedisStore(context.Background(), kvstore.RedisConfig{URL: "://bad"})
	require.Error(t, err)
}

func TestInMemoryStore_Close(t *testing.T) {
	s := kvstore.NewInMemoryStore(kvstore.WithSweepInterval(time.Millisecond))
	require.NoError(t, s.Put(context.Background(), "a", "b", 0))
	require.Equal(t, 1, s.Len())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Error(t, s.Ping(context.Background()))
	require.Error(t, s.Put(context.Background(), "a", "b", 0))
}

func TestInMemoryStore_SweepRemovesExpired(t *testing.T) {
	s := kvstore.NewInMemoryStore(kvstore.WithSweepInterval(5 * time.Millisecond))
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), "short", "v", time.Millisecond))
	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}
