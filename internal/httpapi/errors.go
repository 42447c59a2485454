package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codefionn/gatewayd/internal/gwerr"
	"github.com/codefionn/gatewayd/internal/protocol"
	"github.com/codefionn/gatewayd/internal/upstream/anthropic"
)

// statusForError maps an internal error to the HTTP status code the spec
// assigns it: credential errors are 401, translation/unknown-model errors
// are 400, an upstream StatusError is forwarded verbatim, everything else
// is 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, gwerr.ErrNoCredentials), errors.Is(err, gwerr.ErrReauthRequired), errors.Is(err, gwerr.ErrRefreshFailed):
		return http.StatusUnauthorized
	case errors.Is(err, gwerr.ErrUnknownModel), errors.Is(err, gwerr.ErrTranslation):
		return http.StatusBadRequest
	}

	var statusErr *anthropic.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}

	var blockErr *protocol.UnknownBlockTypeError
	if errors.As(err, &blockErr) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAnthropicError writes the native Messages API error shape, used by
// /v1/messages.
func writeAnthropicError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"type": "error",
		"error": map[string]string{
			"type":    anthropicErrorType(status),
			"message": message,
		},
	})
}

func anthropicErrorType(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	default:
		return "api_error"
	}
}

// writeOpenAIError writes OpenAI's {error: {message, type, code}} shape,
// used by /v1/chat/completions.
func writeOpenAIError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    openAIErrorType(status),
			"code":    status,
		},
	})
}

func openAIErrorType(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "invalid_request_error"
	case http.StatusBadRequest:
		return "invalid_request_error"
	default:
		return "api_error"
	}
}
