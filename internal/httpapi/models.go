package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// modelListEntry is one element of the /v1/models response, in OpenAI's
// model-listing shape.
type modelListEntry struct {
	ID                  string `json:"id"`
	Object              string `json:"object"` // "model"
	Created             int64  `json:"created"`
	OwnedBy             string `json:"owned_by"`
	ContextLength       int    `json:"context_length"`
	MaxCompletionTokens int    `json:"max_completion_tokens"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ids := s.registry.Listing()
	data := make([]modelListEntry, 0, len(ids))
	for _, id := range ids {
		entry, ok := s.registry.Entry(id)
		if !ok {
			continue
		}
		ownedBy := entry.OwnedBy
		if ownedBy == "" {
			ownedBy = "custom"
		}
		data = append(data, modelListEntry{
			ID:                  entry.ID,
			Object:              "model",
			Created:             entry.Created,
			OwnedBy:             ownedBy,
			ContextLength:       entry.ContextWindow,
			MaxCompletionTokens: entry.MaxOutputTokens,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data":   data,
	})
}
