package config

import "strings"

const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetRedisURL() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Store struct {
	Driver         string `env:"STORE_DRIVER" envDefault:"memory"`
	RedisURL       string `env:"REDIS_URL"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"friend-links:"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreDriver() string {
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	if driver == "" {
		return StoreDriverMemory
	}
	return driver
}

func (s Store) GetRedisURL() string {
	return s.RedisURL
}

func (s Store) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Store) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Store) GetRedisDB() int {
	return s.RedisDB
}

func (s Store) GetRedisKeyPrefix() string {
	return s.RedisKeyPrefix
}
