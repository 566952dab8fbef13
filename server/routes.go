package server

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("GET "+RouteAuthGitHub, ChainMiddleware(s.AuthorizeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))

	// LINKS
	s.RegisterRouteHandler("POST "+RouteSubmitLink, ChainMiddleware(s.SubmitLinkHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteLinks, ChainMiddleware(s.ListLinksHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteLinksJSON, ChainMiddleware(s.ListLinksHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("PUT "+RouteLink, ChainMiddleware(s.ManageLinkHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.LoggingMiddleware, s.RecoverMiddleware))

	// CORS preflight for every path, then JSON 404 for anything unmatched
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))
}
