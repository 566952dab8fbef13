// Package auth drives the GitHub login: it starts the authorization redirect,
// completes the callback into a session token and verifies bearer tokens on
// protected requests.
package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/friend-links/provider"
	"github.com/jrsteele09/friend-links/server/authflowrepo"
	"github.com/jrsteele09/friend-links/token"
)

const (
	CallbackPath = "/api/auth/callback"
	bearerPrefix = "Bearer "
)

// OAuthProvider is the subset of the GitHub client the flow needs.
type OAuthProvider interface {
	Configured() bool
	AuthorizationURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code string) (*provider.ExchangeResult, error)
	FetchIdentity(ctx context.Context, accessToken string) (*provider.Identity, error)
}

// TokenCodec issues and verifies session tokens.
type TokenCodec interface {
	Issue(claims token.Claims) (string, error)
	Verify(raw string) (*token.Claims, bool)
}

// Flow is the login state machine:
// Idle -> AuthorizationRequested -> CallbackPending -> Authenticated, or a
// FlowError from any step.
type Flow struct {
	states     authflowrepo.Repo
	provider   OAuthProvider
	codec      TokenCodec
	adminLogin string
}

type FlowOption func(*Flow)

// WithAdminLogin names the GitHub login that IsAdmin accepts.
func WithAdminLogin(login string) FlowOption {
	return func(f *Flow) {
		f.adminLogin = strings.TrimSpace(login)
	}
}

func NewFlow(states authflowrepo.Repo, p OAuthProvider, codec TokenCodec, opts ...FlowOption) *Flow {
	f := &Flow{
		states:   states,
		provider: p,
		codec:    codec,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start stores a new state and returns the GitHub authorization URL whose
// callback points back at origin.
func (f *Flow) Start(ctx context.Context, origin string) (string, error) {
	state, err := f.states.Create(ctx)
	if err != nil {
		return "", failed(StateStoreFailure, err)
	}
	return f.provider.AuthorizationURL(RedirectURI(origin), state), nil
}

// Callback completes a login and returns <origin>/?token=<jwt>. The state is
// consumed before any outbound call, so it cannot be replayed even when a
// later step fails.
func (f *Flow) Callback(ctx context.Context, origin string, params CallbackParams) (string, error) {
	if params.Error != "" {
		return "", failed(ProviderDenied, &ProviderDeniedError{Code: params.Error})
	}
	if params.Code == "" || params.State == "" {
		return "", failed(MissingParameters, ErrMissingParameters)
	}

	ok, err := f.states.Consume(ctx, params.State)
	if err != nil {
		return "", failed(StateStoreFailure, err)
	}
	if !ok {
		return "", failed(InvalidOrExpiredState, ErrInvalidState)
	}

	if !f.provider.Configured() {
		return "", failed(NotConfigured, ErrNotConfigured)
	}

	exchanged, err := f.provider.ExchangeCode(ctx, params.Code)
	if err != nil {
		return "", failed(TokenExchangeFailed, err)
	}

	identity, err := f.provider.FetchIdentity(ctx, exchanged.AccessToken)
	if err != nil {
		var idErr *provider.IdentityError
		if errors.As(err, &idErr) && idErr.Kind == provider.IdentityInvalidData {
			return "", failed(InvalidIdentityData, err)
		}
		return "", failed(IdentityFetchFailed, err)
	}

	signed, err := f.codec.Issue(token.Claims{
		ID:        identity.ID,
		Login:     identity.Login,
		Name:      identity.Name,
		Email:     identity.Email,
		AvatarURL: identity.AvatarURL,
	})
	if err != nil {
		return "", failed(TokenIssuanceFailure, err)
	}
	return TokenRedirect(origin, signed), nil
}

// Verify returns the session claims of a request carrying a valid
// "Authorization: Bearer <token>" header.
func (f *Flow) Verify(r *http.Request) (*token.Claims, bool) {
	if r == nil {
		return nil, false
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, false
	}
	return f.codec.Verify(header[len(bearerPrefix):])
}

// IsAdmin reports whether claims belong to the configured admin login.
func (f *Flow) IsAdmin(claims *token.Claims) bool {
	if claims == nil || f.adminLogin == "" {
		return false
	}
	return strings.EqualFold(claims.Login, f.adminLogin)
}

// RedirectURI returns the callback URL registered for origin.
func RedirectURI(origin string) string {
	return strings.TrimRight(origin, "/") + CallbackPath
}

// TokenRedirect returns the application root for origin with the token
// attached as a query parameter.
func TokenRedirect(origin, signed string) string {
	return strings.TrimRight(origin, "/") + "/?" + url.Values{"token": {signed}}.Encode()
}
