package api

import (
	"net/http"

	"github.com/bookberryapp/bookberry-server/internal/http/response"
)

// handleShelfEvents streams the caller's shelf snapshots over SSE.
// It is a plain chi route because huma operations cannot hold the
// connection open.
func (s *Server) handleShelfEvents(w http.ResponseWriter, r *http.Request) {
	userID := OptionalUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}
	s.sseHandler.Stream(w, r, userID)
}
