package auth

import (
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/friend-links/internal/errors"
	"github.com/jrsteele09/friend-links/provider"
)

// Kind tags the terminal failure of a login attempt.
type Kind string

const (
	ProviderDenied        Kind = "ProviderDenied"
	MissingParameters     Kind = "MissingParameters"
	InvalidOrExpiredState Kind = "InvalidOrExpiredState"
	StateStoreFailure     Kind = "StateStoreFailure"
	NotConfigured         Kind = "NotConfigured"
	TokenExchangeFailed   Kind = "TokenExchangeFailed"
	IdentityFetchFailed   Kind = "IdentityFetchFailed"
	InvalidIdentityData   Kind = "InvalidIdentityData"
	TokenIssuanceFailure  Kind = "TokenIssuanceFailure"
)

var (
	ErrMissingParameters = errors.New("missing code or state parameter")
	ErrInvalidState      = errors.New("invalid or expired state")
	ErrNotConfigured     = fmt.Errorf("oauth client credentials %w", apperrors.ErrNotConfigured)
)

// ProviderDeniedError carries the error query parameter sent back by GitHub.
type ProviderDeniedError struct {
	Code string
}

func (e *ProviderDeniedError) Error() string {
	return "provider denied authorization: " + e.Code
}

// FlowError is the only error type returned by Flow. Err holds the cause,
// which is a *provider.ExchangeError or *provider.IdentityError for the
// upstream kinds.
type FlowError struct {
	Kind Kind
	Err  error
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// SubKind returns the provider failure kind for upstream failures, or "".
func (e *FlowError) SubKind() string {
	var exErr *provider.ExchangeError
	if errors.As(e.Err, &exErr) {
		return string(exErr.Kind)
	}
	var idErr *provider.IdentityError
	if errors.As(e.Err, &idErr) {
		return string(idErr.Kind)
	}
	return ""
}

func failed(kind Kind, err error) *FlowError {
	return &FlowError{Kind: kind, Err: err}
}
