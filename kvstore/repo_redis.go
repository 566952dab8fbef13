package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/friend-links/internal/errors"
	"github.com/redis/go-redis/v9"
)

// maxUpdateAttempts bounds optimistic retries in Update. Each failed attempt
// means another writer committed, so contention has to be heavy to run out.
const maxUpdateAttempts = 50

// RedisConfig holds connection settings for RedisStore
type RedisConfig struct {
	// URL overrides Addr/Password/DB when set, e.g. redis://:pass@host:6379/0
	URL       string
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore implements Store on top of Redis
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts := &redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = &redis.UniversalOptions{
			Addrs:     []string{opt.Addr},
			Username:  opt.Username,
			Password:  opt.Password,
			DB:        opt.DB,
			TLSConfig: opt.TLSConfig,
		}
	}

	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (rs *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return apperrors.ErrEmptyKey
	}
	if ttl < 0 {
		ttl = 0
	}
	return rs.client.Set(ctx, rs.keyPrefix+key, value, ttl).Err()
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", apperrors.ErrEmptyKey
	}
	val, err := rs.client.Get(ctx, rs.keyPrefix+key).Result()
	return val, translate(err)
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return apperrors.ErrEmptyKey
	}
	return rs.client.Del(ctx, rs.keyPrefix+key).Err()
}

// Take uses GETDEL so two concurrent callers can never both observe the value.
func (rs *RedisStore) Take(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", apperrors.ErrEmptyKey
	}
	val, err := rs.client.GetDel(ctx, rs.keyPrefix+key).Result()
	return val, translate(err)
}

// Update watches the key and commits fn's result in MULTI/EXEC, retrying when
// another client modifies the key in between.
func (rs *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	if key == "" {
		return apperrors.ErrEmptyKey
	}
	if ttl < 0 {
		ttl = 0
	}
	fullKey := rs.keyPrefix + key

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, fullKey).Result()
		found := true
		if errors.Is(err, redis.Nil) {
			found = false
		} else if err != nil {
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, next, ttl)
			return nil
		})
		return err
	}

	for range maxUpdateAttempts {
		err := rs.client.Watch(ctx, txf, fullKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update %q: %w", key, ErrConflict)
}

func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func translate(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}
