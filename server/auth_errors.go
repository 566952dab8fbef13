package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/friend-links/auth"
	"github.com/jrsteele09/friend-links/provider"
)

const msgAuthFailed = "Authentication failed"

// flowErrorResponse maps a login failure to the status and message shown to
// the browser.
func flowErrorResponse(err error) (int, string) {
	var flowErr *auth.FlowError
	if !errors.As(err, &flowErr) {
		return http.StatusInternalServerError, msgAuthFailed
	}

	switch flowErr.Kind {
	case auth.ProviderDenied:
		var denied *auth.ProviderDeniedError
		if errors.As(flowErr, &denied) {
			return http.StatusBadRequest, "GitHub OAuth error: " + denied.Code
		}
		return http.StatusBadRequest, "GitHub OAuth error"
	case auth.MissingParameters:
		return http.StatusBadRequest, "Missing code or state parameter"
	case auth.InvalidOrExpiredState:
		return http.StatusBadRequest, "Invalid or expired state"
	case auth.StateStoreFailure:
		return http.StatusInternalServerError, msgAuthFailed
	case auth.NotConfigured:
		return http.StatusInternalServerError, "GitHub OAuth not configured"
	case auth.TokenExchangeFailed:
		return exchangeErrorResponse(flowErr)
	case auth.IdentityFetchFailed:
		return identityErrorResponse(flowErr)
	case auth.InvalidIdentityData:
		return http.StatusInternalServerError, "Failed to parse GitHub user data"
	case auth.TokenIssuanceFailure:
		return http.StatusInternalServerError, "Failed to issue session token"
	}
	return http.StatusInternalServerError, msgAuthFailed
}

func exchangeErrorResponse(err error) (int, string) {
	var exErr *provider.ExchangeError
	if !errors.As(err, &exErr) {
		return http.StatusInternalServerError, msgAuthFailed
	}
	switch exErr.Kind {
	case provider.ExchangeHTTPError:
		return http.StatusBadRequest, fmt.Sprintf("GitHub token request failed: %d", exErr.StatusCode)
	case provider.ExchangeProviderError:
		return http.StatusBadRequest, "Token exchange error: " + exErr.Code
	case provider.ExchangeNoToken:
		return http.StatusBadRequest, "Failed to get access token from GitHub"
	case provider.ExchangeParseError:
		return http.StatusInternalServerError, "Failed to parse GitHub token response"
	}
	return http.StatusInternalServerError, "GitHub token request failed"
}

func identityErrorResponse(err error) (int, string) {
	var idErr *provider.IdentityError
	if !errors.As(err, &idErr) {
		return http.StatusInternalServerError, msgAuthFailed
	}
	switch idErr.Kind {
	case provider.IdentityUnauthorized:
		return http.StatusUnauthorized, "GitHub access token is invalid or expired"
	case provider.IdentityForbidden:
		return http.StatusForbidden, "GitHub API rate limit exceeded or access forbidden"
	case provider.IdentityNotFound:
		return http.StatusNotFound, "GitHub user not found"
	case provider.IdentityOther:
		if idErr.StatusCode == 0 {
			return http.StatusInternalServerError, "GitHub API request failed"
		}
		return http.StatusBadRequest, fmt.Sprintf("GitHub API error: %d %s", idErr.StatusCode, idErr.Status)
	case provider.IdentityTimeout:
		return http.StatusInternalServerError, "GitHub API request timed out"
	case provider.IdentityParseError, provider.IdentityInvalidData:
		return http.StatusInternalServerError, "Failed to parse GitHub user data"
	}
	return http.StatusInternalServerError, msgAuthFailed
}
