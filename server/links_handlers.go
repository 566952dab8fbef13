package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/jrsteele09/friend-links/internal/errors"
	"github.com/jrsteele09/friend-links/links"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 16 << 10

// SubmitLinkHandler stores a pending link for the authenticated caller.
func (s *Server) SubmitLinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, msgAuthRequired, http.StatusUnauthorized)
			return
		}

		var sub links.Submission
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&sub); err != nil {
			writeJSONError(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		link, err := s.services.Links.Submit(r.Context(), claims.Login, sub)
		if err != nil {
			s.writeLinkError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, link)
	}
}

// ListLinksHandler lists approved links. Other statuses need an admin token.
func (s *Server) ListLinksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, ok := links.ParseStatus(r.URL.Query().Get("status"))
		if !ok {
			writeJSONError(w, "Invalid status", http.StatusBadRequest)
			return
		}

		if status != links.StatusApproved {
			claims, ok := s.services.Flow.Verify(r)
			if !ok {
				writeJSONError(w, msgAuthRequired, http.StatusUnauthorized)
				return
			}
			if !s.services.Flow.IsAdmin(claims) {
				writeJSONError(w, msgAdminRequired, http.StatusForbidden)
				return
			}
		}

		list, err := s.services.Links.List(r.Context(), status)
		if err != nil {
			s.writeLinkError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type manageLinkRequest struct {
	Action links.Action `json:"action"`
}

// ManageLinkHandler approves, rejects or deletes a link.
func (s *Server) ManageLinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req manageLinkRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeJSONError(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		link, err := s.services.Links.Apply(r.Context(), r.PathValue("id"), req.Action)
		if err != nil {
			s.writeLinkError(w, r, err)
			return
		}
		if link == nil {
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}
		writeJSON(w, http.StatusOK, link)
	}
}

func (s *Server) writeLinkError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, links.ErrNotFound):
		writeJSONError(w, "Link not found", http.StatusNotFound)
	case errors.Is(err, links.ErrDuplicateURL):
		writeJSONError(w, "Link already submitted", http.StatusConflict)
	case errors.Is(err, apperrors.ErrInvalidInput):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Ctx(r.Context()).Err(err).Msg("link operation failed")
		writeJSONError(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
