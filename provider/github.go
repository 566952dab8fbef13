package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 1 << 20

// ExchangeResult is the normalized token response. Form and JSON bodies
// produce the same value.
type ExchangeResult struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type GitHub struct {
	config Config
	oauth  *oauth2.Config
}

func NewGitHub(cfg Config) *GitHub {
	cfg = cfg.withDefaults()
	return &GitHub{
		config: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.Endpoint,
			Scopes:       cfg.Scopes,
		},
	}
}

// Configured reports whether client credentials are present.
func (g *GitHub) Configured() bool {
	return g.config.Configured()
}

// AuthorizationURL returns the URL the browser is redirected to.
func (g *GitHub) AuthorizationURL(redirectURI, state string) string {
	c := *g.oauth
	c.RedirectURL = redirectURI
	return c.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for an access token.
func (g *GitHub) ExchangeCode(ctx context.Context, code string) (*ExchangeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.ExchangeTimeout)
	defer cancel()

	form := url.Values{
		"client_id":     {g.config.ClientID},
		"client_secret": {g.config.ClientSecret},
		"code":          {code},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeTransportError, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.config.UserAgent)

	resp, err := g.config.HTTPClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeTransportError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &ExchangeError{Kind: ExchangeHTTPError, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeTransportError, Err: err}
	}

	result, err := ParseTokenResponse(string(body))
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeParseError, Err: err}
	}
	if result.Error != "" {
		return nil, &ExchangeError{
			Kind:        ExchangeProviderError,
			Code:        result.Error,
			Description: result.ErrorDescription,
		}
	}
	if result.AccessToken == "" {
		return nil, &ExchangeError{Kind: ExchangeNoToken}
	}
	return result, nil
}

// ParseTokenResponse decodes a token endpoint body. A body containing
// "access_token=" is read as URL-encoded form, anything else as JSON.
func ParseTokenResponse(body string) (*ExchangeResult, error) {
	if strings.Contains(body, "access_token=") {
		values, err := url.ParseQuery(strings.TrimSpace(body))
		if err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		return &ExchangeResult{
			AccessToken:      values.Get("access_token"),
			TokenType:        values.Get("token_type"),
			Scope:            values.Get("scope"),
			Error:            values.Get("error"),
			ErrorDescription: values.Get("error_description"),
		}, nil
	}

	var result ExchangeResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("invalid json body: %w", err)
	}
	return &result, nil
}

// FetchIdentity loads the user that owns accessToken.
func (g *GitHub) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.IdentityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.UserInfoURL, nil)
	if err != nil {
		return nil, &IdentityError{Kind: IdentityOther, Err: err}
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", g.config.UserAgent)

	resp, err := g.config.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &IdentityError{Kind: IdentityTimeout, Err: err}
		}
		return nil, &IdentityError{Kind: IdentityOther, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, statusError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &IdentityError{Kind: IdentityTimeout, Err: err}
		}
		return nil, &IdentityError{Kind: IdentityParseError, Err: err}
	}
	return ParseIdentity(body)
}

func statusError(code int) *IdentityError {
	e := &IdentityError{StatusCode: code, Status: http.StatusText(code)}
	switch code {
	case http.StatusUnauthorized:
		e.Kind = IdentityUnauthorized
	case http.StatusForbidden:
		e.Kind = IdentityForbidden
	case http.StatusNotFound:
		e.Kind = IdentityNotFound
	default:
		e.Kind = IdentityOther
	}
	return e
}
