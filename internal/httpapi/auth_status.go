package httpapi

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// authStatusResponse reveals presence, expiry, and type of the stored
// token — never the token value itself.
type authStatusResponse struct {
	Authenticated bool       `json:"authenticated"`
	Type          string     `json:"type,omitempty"` // "ephemeral" or "long_lived"
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ExpiresIn     string     `json:"expires_in,omitempty"` // human-readable countdown, e.g. "2h15m0s"
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rec, ok := s.tokenStore.Current()
	if !ok {
		var err error
		rec, err = s.tokenStore.Load()
		if err != nil {
			writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: false})
			return
		}
	}

	resp := authStatusResponse{Authenticated: true}
	if rec.LongLived {
		resp.Type = "long_lived"
	} else {
		resp.Type = "ephemeral"
	}
	if !rec.ExpiresAt.IsZero() {
		resp.ExpiresAt = &rec.ExpiresAt
		if remaining := time.Until(rec.ExpiresAt); remaining > 0 {
			resp.ExpiresIn = remaining.Round(time.Minute).String()
		} else {
			resp.ExpiresIn = "expired"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
