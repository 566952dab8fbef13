package config

import (
	"strings"
)

type EnvVars struct {
	Port          string `env:"PORT" envDefault:"8080"`
	AppName       string `env:"APP_NAME" envDefault:"Friend Links"`
	Env           string `env:"ENV" envDefault:"DEV"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, always prefixed with ':'.
func (e EnvVars) GetPort() string {
	port := strings.TrimSpace(e.Port)
	if port == "" {
		port = "8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetPublicBaseURL returns the externally visible origin (e.g. "https://links.example.com").
// When empty, the origin is derived from each request.
func (e EnvVars) GetPublicBaseURL() string {
	return strings.TrimRight(e.PublicBaseURL, "/")
}
