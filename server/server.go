package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/friend-links/auth"
	"github.com/jrsteele09/friend-links/internal/config"
	"github.com/jrsteele09/friend-links/kvstore"
	"github.com/jrsteele09/friend-links/links"
	"github.com/rs/zerolog/log"
)

// Services holds the dependencies the HTTP handlers call into.
type Services struct {
	Flow  *auth.Flow
	Links *links.Service
	Store kvstore.Store
}

type Server struct {
	env      string // Environment (e.g. "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	services Services
}

func New(config config.Config, services Services) *Server {
	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		services: services,
	}
	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Routes returns the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}

// origin returns the externally visible scheme://host used for redirects.
// PUBLIC_BASE_URL wins over anything derived from the request.
func (s *Server) origin(r *http.Request) string {
	if base := s.config.GetPublicBaseURL(); base != "" {
		return base
	}
	return getScheme(r) + "://" + r.Host
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
