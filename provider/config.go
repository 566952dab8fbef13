// Package provider talks to GitHub on behalf of the login flow: it builds the
// authorization URL, exchanges codes for access tokens and fetches the
// authenticated user's identity.
package provider

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	DefaultUserInfoURL     = "https://api.github.com/user"
	DefaultUserAgent       = "friend-links/1.0"
	DefaultIdentityTimeout = 10 * time.Second
	DefaultExchangeTimeout = 30 * time.Second
)

// DefaultScopes are requested when Config.Scopes is empty.
var DefaultScopes = []string{"read:user", "user:email"}

// HTTPClient is the outbound capability used for every provider call.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string

	// Endpoint holds the authorize and token URLs. Zero means github.Endpoint.
	Endpoint oauth2.Endpoint

	UserInfoURL     string
	UserAgent       string
	IdentityTimeout time.Duration
	ExchangeTimeout time.Duration

	HTTPClient HTTPClient
}

// Configured reports whether client credentials are present.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c Config) withDefaults() Config {
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	if c.Endpoint.AuthURL == "" {
		c.Endpoint.AuthURL = github.Endpoint.AuthURL
	}
	if c.Endpoint.TokenURL == "" {
		c.Endpoint.TokenURL = github.Endpoint.TokenURL
	}
	if c.UserInfoURL == "" {
		c.UserInfoURL = DefaultUserInfoURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.IdentityTimeout <= 0 {
		c.IdentityTimeout = DefaultIdentityTimeout
	}
	if c.ExchangeTimeout <= 0 {
		c.ExchangeTimeout = DefaultExchangeTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}
