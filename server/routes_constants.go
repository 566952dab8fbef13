package server

const (
	// Auth routes
	RouteAuthGitHub   = "/api/auth/github"
	RouteAuthCallback = "/api/auth/callback"
	RouteAuthMe       = "/api/auth/me"

	// Link routes
	RouteSubmitLink = "/api/submit"
	RouteLinks      = "/api/links"
	RouteLinksJSON  = "/json"
	RouteLink       = "/api/links/{id}"

	RouteHealth = "/healthz"

	contentTypeJSON = "application/json; charset=utf-8"
)
