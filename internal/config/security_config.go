package config

import "time"

type SecurityConfig interface {
	GetJWTSecret() string
	GetSessionTokenTTL() time.Duration
	GetAdminLogin() string
}

type Security struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`
	AdminLogin      string        `env:"ADMIN_LOGIN"`
}

var _ SecurityConfig = Security{}

func (s Security) GetJWTSecret() string {
	return s.JWTSecret
}

func (s Security) GetSessionTokenTTL() time.Duration {
	return s.SessionTokenTTL
}

// GetAdminLogin returns the GitHub login granted moderation rights.
func (s Security) GetAdminLogin() string {
	return s.AdminLogin
}
