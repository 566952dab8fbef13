package config

import "time"

type OAuthConfig interface {
	GetGitHubClientID() string
	GetGitHubClientSecret() string
	GetGitHubScopes() []string
	GetGitHubExchangeTimeout() time.Duration
	GetGitHubUserTimeout() time.Duration
	GetAuthStateTTL() time.Duration
}

type OAuth struct {
	GitHubClientID        string        `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret    string        `env:"GITHUB_CLIENT_SECRET"`
	GitHubScopes          []string      `env:"GITHUB_SCOPES" envSeparator:"," envDefault:"read:user,user:email"`
	GitHubExchangeTimeout time.Duration `env:"GITHUB_EXCHANGE_TIMEOUT" envDefault:"30s"`
	GitHubUserTimeout     time.Duration `env:"GITHUB_USER_TIMEOUT" envDefault:"10s"`
	AuthStateTTL          time.Duration `env:"AUTH_STATE_TTL" envDefault:"5m"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetGitHubClientID() string {
	return o.GitHubClientID
}

func (o OAuth) GetGitHubClientSecret() string {
	return o.GitHubClientSecret
}

func (o OAuth) GetGitHubScopes() []string {
	return o.GitHubScopes
}

func (o OAuth) GetGitHubExchangeTimeout() time.Duration {
	return o.GitHubExchangeTimeout
}

func (o OAuth) GetGitHubUserTimeout() time.Duration {
	return o.GitHubUserTimeout
}

func (o OAuth) GetAuthStateTTL() time.Duration {
	return o.AuthStateTTL
}
