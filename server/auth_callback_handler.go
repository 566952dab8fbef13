package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/friend-links/auth"
	"github.com/jrsteele09/friend-links/token"
	"github.com/rs/zerolog/log"
)

// AuthorizeHandler starts a login by redirecting to GitHub.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect, err := s.services.Flow.Start(r.Context(), s.origin(r))
		if err != nil {
			log.Ctx(r.Context()).Err(err).Msg("failed to start github login")
			status, msg := flowErrorResponse(err)
			writeJSONError(w, msg, status)
			return
		}
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

// OAuthCallbackHandler completes a login and redirects to the application
// root with the session token.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := auth.CallbackParamsFromQuery(r.URL.Query())

		redirect, err := s.services.Flow.Callback(r.Context(), s.origin(r), params)
		if err != nil {
			event := log.Ctx(r.Context()).Warn().Err(err)
			var flowErr *auth.FlowError
			if errors.As(err, &flowErr) {
				event = event.Str("kind", string(flowErr.Kind)).Str("sub_kind", flowErr.SubKind())
			}
			event.Msg("github callback failed")

			status, msg := flowErrorResponse(err)
			writeJSONError(w, msg, status)
			return
		}
		log.Ctx(r.Context()).Info().Msg("github login succeeded")
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

type meResponse struct {
	*token.Claims
	IsAdmin bool `json:"is_admin"`
}

// MeHandler returns the caller's verified session claims.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, msgAuthRequired, http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, meResponse{Claims: claims, IsAdmin: s.services.Flow.IsAdmin(claims)})
	}
}
