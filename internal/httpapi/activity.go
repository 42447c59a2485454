package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

const defaultActivityLimit = 50

// handleActivity reports the most recent requests served, newest first, for
// the CLI/TUI's live activity view. Returns an empty list if no
// requestlog.Store was configured.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.requests == nil {
		writeJSON(w, http.StatusOK, map[string]any{"requests": []any{}})
		return
	}

	entries, err := s.requests.Recent(defaultActivityLimit)
	if err != nil {
		s.log.Error("[%s] load recent activity: %v", requestIDFromContext(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": entries})
}
