package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/friend-links/auth"
	"github.com/jrsteele09/friend-links/internal/config"
	"github.com/jrsteele09/friend-links/kvstore"
	"github.com/jrsteele09/friend-links/links"
	"github.com/jrsteele09/friend-links/provider"
	"github.com/jrsteele09/friend-links/server"
	"github.com/jrsteele09/friend-links/server/authflowrepo"
	"github.com/jrsteele09/friend-links/token"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testOrigin = "https://links.example.com"
	testSecret = "server-test-secret"
	adminLogin = "octocat"
)

type testFixture struct {
	github       *httptest.Server
	tokenStatus  int
	tokenBody    string
	userStatus   int
	userBody     string
	tokenDelay   time.Duration
	userDelay    time.Duration
	exchangeHits int

	store  *kvstore.InMemoryStore
	codec  *token.Codec
	server *server.Server
}

func newFixture(t *testing.T, env map[string]string) *testFixture {
	t.Helper()
	f := &testFixture{
		tokenStatus: http.StatusOK,
		tokenBody:   "access_token=gho_test&scope=read%3Auser&token_type=bearer",
		userStatus:  http.StatusOK,
		userBody:    `{"id":583231,"login":"octocat","name":"The Octocat","email":"octo@github.com"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.exchangeHits++
		if !stall(r, f.tokenDelay) {
			return
		}
		w.WriteHeader(f.tokenStatus)
		_, _ = io.WriteString(w, f.tokenBody)
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if !stall(r, f.userDelay) {
			return
		}
		w.WriteHeader(f.userStatus)
		_, _ = io.WriteString(w, f.userBody)
	})
	f.github = httptest.NewServer(mux)
	t.Cleanup(f.github.Close)

	vars := map[string]string{
		"ENV":                  "TEST",
		"PUBLIC_BASE_URL":      testOrigin,
		"GITHUB_CLIENT_ID":     "client-id",
		"GITHUB_CLIENT_SECRET": "client-secret",
		"JWT_SECRET":           testSecret,
		"ADMIN_LOGIN":          adminLogin,
	}
	for k, v := range env {
		vars[k] = v
	}
	cfg, err := config.NewFromMap(vars)
	require.NoError(t, err)

	f.store = kvstore.NewInMemoryStore()
	f.codec = token.NewCodec(token.NewHMACSigner(cfg.GetJWTSecret()))
	gh := provider.NewGitHub(provider.Config{
		ClientID:     cfg.GetGitHubClientID(),
		ClientSecret: cfg.GetGitHubClientSecret(),
		Scopes:       cfg.GetGitHubScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.github.URL + "/login/oauth/authorize",
			TokenURL: f.github.URL + "/login/oauth/access_token",
		},
		UserInfoURL:     f.github.URL + "/user",
		HTTPClient:      f.github.Client(),
		IdentityTimeout: cfg.GetGitHubUserTimeout(),
		ExchangeTimeout: cfg.GetGitHubExchangeTimeout(),
	})
	flow := auth.NewFlow(authflowrepo.NewStoreRepo(f.store, cfg.GetAuthStateTTL()), gh, f.codec, auth.WithAdminLogin(cfg.GetAdminLogin()))

	f.server = server.New(cfg, server.Services{
		Flow:  flow,
		Links: links.NewService(f.store),
		Store: f.store,
	})
	return f
}

// stall holds a fake GitHub response for d, giving up early when the client
// goes away. It reports whether the handler should still respond.
func stall(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-r.Context().Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (f *testFixture) do(t *testing.T, method, target, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, r)
	return w
}

func (f *testFixture) startLogin(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodGet, server.RouteAuthGitHub, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	u, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return u.Query().Get("state")
}

func (f *testFixture) issue(t *testing.T, login string) string {
	t.Helper()
	signed, err := f.codec.Issue(token.Claims{ID: "1", Login: login, Name: login})
	require.NoError(t, err)
	return signed
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Contains(t, w.Header().Get("Content-Type"), "application/json")
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, server.RouteAuthGitHub, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	authURL, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, testOrigin+"/api/auth/callback", authURL.Query().Get("redirect_uri"))
	require.Equal(t, "read:user user:email", authURL.Query().Get("scope"))
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	w = f.do(t, http.MethodGet, server.RouteAuthCallback+"?code=abc&state="+url.QueryEscape(state), "", "")
	require.Equal(t, http.StatusFound, w.Code)
	back, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "links.example.com", back.Host)
	require.Equal(t, "/", back.Path)
	sessionToken := back.Query().Get("token")
	require.NotEmpty(t, sessionToken)

	w = f.do(t, http.MethodGet, server.RouteAuthMe, sessionToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.Equal(t, "583231", me["id"])
	require.Equal(t, "octocat", me["login"])
	require.Equal(t, "octo@github.com", me["email"])
	require.Nil(t, me["avatar_url"])
	require.Equal(t, true, me["is_admin"])

	// Replay of the same callback is rejected without contacting GitHub.
	w = f.do(t, http.MethodGet, server.RouteAuthCallback+"?code=abc&state="+url.QueryEscape(state), "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid or expired state", errorMessage(t, w))
	require.Equal(t, 1, f.exchangeHits)
}

func TestCallbackFailures(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		tokenStatus int
		tokenBody   string
		tokenDelay  time.Duration
		userStatus  int
		userBody    string
		userDelay   time.Duration
		status      int
		message     string
	}{
		{name: "not configured", env: map[string]string{"GITHUB_CLIENT_SECRET": ""}, status: 500, message: "GitHub OAuth not configured"},
		{name: "token http error", tokenStatus: 502, status: 400, message: "GitHub token request failed: 502"},
		{name: "token provider error", tokenBody: `{"error":"bad_verification_code"}`, status: 400, message: "Token exchange error: bad_verification_code"},
		{name: "no access token", tokenBody: `{"scope":""}`, status: 400, message: "Failed to get access token from GitHub"},
		{name: "token parse error", tokenBody: `<html>`, status: 500, message: "Failed to parse GitHub token response"},
		{name: "token request timeout", env: map[string]string{"GITHUB_EXCHANGE_TIMEOUT": "50ms"}, tokenDelay: 2 * time.Second, status: 500, message: "GitHub token request failed"},
		{name: "identity unauthorized", userStatus: 401, status: 401, message: "GitHub access token is invalid or expired"},
		{name: "identity forbidden", userStatus: 403, status: 403, message: "GitHub API rate limit exceeded or access forbidden"},
		{name: "identity not found", userStatus: 404, status: 404, message: "GitHub user not found"},
		{name: "identity other", userStatus: 503, status: 400, message: "GitHub API error: 503 Service Unavailable"},
		{name: "identity parse error", userBody: `not-json`, status: 500, message: "Failed to parse GitHub user data"},
		{name: "identity missing id", userBody: `{"login":"octocat"}`, status: 500, message: "Failed to parse GitHub user data"},
		{name: "identity empty body", userBody: "  ", status: 500, message: "Failed to parse GitHub user data"},
		{name: "identity timeout", env: map[string]string{"GITHUB_USER_TIMEOUT": "50ms"}, userDelay: 2 * time.Second, status: 500, message: "GitHub API request timed out"},
		{name: "signing secret missing", env: map[string]string{"JWT_SECRET": ""}, status: 500, message: "Failed to issue session token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.env)
			if tt.tokenStatus != 0 {
				f.tokenStatus = tt.tokenStatus
			}
			if tt.tokenBody != "" {
				f.tokenBody = tt.tokenBody
			}
			if tt.userStatus != 0 {
				f.userStatus = tt.userStatus
			}
			if tt.userBody != "" {
				f.userBody = tt.userBody
			}
			f.tokenDelay = tt.tokenDelay
			f.userDelay = tt.userDelay
			state := f.startLogin(t)

			w := f.do(t, http.MethodGet, server.RouteAuthCallback+"?code=abc&state="+url.QueryEscape(state), "", "")
			require.Equal(t, tt.status, w.Code)
			require.Equal(t, tt.message, errorMessage(t, w))
			require.Empty(t, w.Header().Get("Location"))
			require.Equal(t, 0, f.store.Len(), "state must be consumed")
		})
	}
}

func TestCallbackEarlyFailures(t *testing.T) {
	f := newFixture(t, nil)

	tests := map[string]struct {
		query   string
		message string
	}{
		"provider denied": {"?error=access_denied", "GitHub OAuth error: access_denied"},
		"missing code":    {"?state=abc", "Missing code or state parameter"},
		"missing state":   {"?code=abc", "Missing code or state parameter"},
		"unknown state":   {"?code=abc&state=forged", "Invalid or expired state"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, server.RouteAuthCallback+tt.query, "", "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, tt.message, errorMessage(t, w))
		})
	}
	require.Zero(t, f.exchangeHits)
}

func TestOriginFromRequest(t *testing.T) {
	f := newFixture(t, map[string]string{"PUBLIC_BASE_URL": ""})

	r := httptest.NewRequest(http.MethodGet, server.RouteAuthGitHub, nil)
	r.Host = "friends.example.org"
	r.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, r)

	require.Equal(t, http.StatusFound, w.Code)
	u, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "https://friends.example.org/api/auth/callback", u.Query().Get("redirect_uri"))
}

func TestMe_RequiresValidToken(t *testing.T) {
	f := newFixture(t, nil)

	for name, bearer := range map[string]string{
		"missing": "",
		"garbage": "garbage",
		"other key": func() string {
			other := token.NewCodec(token.NewHMACSigner("other"))
			s, err := other.Issue(token.Claims{ID: "1", Login: "octocat"})
			require.NoError(t, err)
			return s
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, server.RouteAuthMe, bearer, "")
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.Equal(t, "Authentication required", errorMessage(t, w))
		})
	}

	w := f.do(t, http.MethodGet, server.RouteAuthMe, f.issue(t, "hubot"), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"is_admin":false`)
}

func TestLinks(t *testing.T) {
	f := newFixture(t, nil)
	user := f.issue(t, "hubot")
	admin := f.issue(t, "OctoCat")

	w := f.do(t, http.MethodPost, server.RouteSubmitLink, "", `{"name":"Hubot","url":"https://hubot.example.com"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, server.RouteSubmitLink, user, `{"name":"","url":"https://hubot.example.com"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, server.RouteSubmitLink, user, `{"name":"Hubot","url":"https://hubot.example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created links.Link
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, links.StatusPending, created.Status)
	require.Equal(t, "hubot", created.SubmittedBy)

	w = f.do(t, http.MethodPost, server.RouteSubmitLink, user, `{"name":"Hubot","url":"https://hubot.example.com"}`)
	require.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodGet, server.RouteLinks, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	w = f.do(t, http.MethodGet, server.RouteLinks+"?status=pending", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(t, http.MethodGet, server.RouteLinks+"?status=pending", user, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(t, http.MethodGet, server.RouteLinks+"?status=bogus", admin, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, server.RouteLinks+"?status=pending", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	var pending []links.Link
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)

	linkPath := "/api/links/" + created.ID
	w = f.do(t, http.MethodPut, linkPath, user, `{"action":"approve"}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, linkPath, admin, `{"action":"archive"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/links/missing", admin, `{"action":"approve"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, linkPath, admin, `{"action":"approve"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, server.RouteLinksJSON, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var approved []links.Link
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &approved))
	require.Len(t, approved, 1)
	require.Equal(t, created.ID, approved[0].ID)

	w = f.do(t, http.MethodPut, linkPath, admin, `{"action":"delete"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	t.Run("wildcard preflight", func(t *testing.T) {
		f := newFixture(t, nil)
		r := httptest.NewRequest(http.MethodOptions, server.RouteSubmitLink, nil)
		r.Header.Set("Origin", "https://blog.example.net")
		w := httptest.NewRecorder()
		f.server.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		require.Equal(t, "Content-Type, Authorization, X-Requested-With", w.Header().Get("Access-Control-Allow-Headers"))
		require.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
		require.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("listed origin", func(t *testing.T) {
		f := newFixture(t, map[string]string{"CORS_ALLOWED_ORIGINS": "https://blog.example.net"})

		r := httptest.NewRequest(http.MethodGet, server.RouteLinks, nil)
		r.Header.Set("Origin", "https://blog.example.net")
		w := httptest.NewRecorder()
		f.server.ServeHTTP(w, r)
		require.Equal(t, "https://blog.example.net", w.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

		r = httptest.NewRequest(http.MethodGet, server.RouteLinks, nil)
		r.Header.Set("Origin", "https://evil.example.com")
		w = httptest.NewRecorder()
		f.server.ServeHTTP(w, r)
		require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRoutes(t *testing.T) {
	f := newFixture(t, nil)

	routes := f.server.Routes()
	require.Equal(t, []string{
		"GET /api/auth/github",
		"GET /api/auth/callback",
		"GET /api/auth/me",
		"POST /api/submit",
		"GET /api/links",
		"GET /json",
		"PUT /api/links/{id}",
		"GET /healthz",
		"OPTIONS /",
		"/",
	}, routes)

	routes[0] = "changed"
	require.Equal(t, "GET /api/auth/github", f.server.Routes()[0])
}

func TestHealthAndNotFound(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, server.RouteHealth, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Not Found", errorMessage(t, w))
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	require.NoError(t, f.store.Close())
	w = f.do(t, http.MethodGet, server.RouteHealth, "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
