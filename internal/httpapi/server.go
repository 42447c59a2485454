// Package httpapi is gatewayd's HTTP surface: the native Anthropic Messages
// passthrough, the OpenAI-compatible Chat Completions endpoint, model
// listing, and the local auth-status/health routes the CLI and TUI poll.
// Routes are registered on httprouter.Router; handlers are plain
// http.HandlerFunc-shaped functions, and the router is wrapped by two
// middlewares: request-id stamping and request observability.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/gatewayd/internal/config"
	"github.com/codefionn/gatewayd/internal/httpapi/statusws"
	"github.com/codefionn/gatewayd/internal/logger"
	"github.com/codefionn/gatewayd/internal/modelregistry"
	"github.com/codefionn/gatewayd/internal/oauthstore"
	"github.com/codefionn/gatewayd/internal/requestlog"
	"github.com/codefionn/gatewayd/internal/thinkingcache"
	"github.com/codefionn/gatewayd/internal/upstream/anthropic"
	"github.com/codefionn/gatewayd/internal/upstream/customprovider"
)

// Server holds everything a handler needs to serve a request: the model
// registry, both upstream clients, the shared thinking cache, and the
// persisted config/token state.
type Server struct {
	cfg        *config.Config
	tokenStore *oauthstore.Store
	registry   *modelregistry.Registry
	anthropic  *anthropic.Client
	custom     *customprovider.Client
	thinking   *thinkingcache.Cache
	requests   *requestlog.Store // nil disables activity persistence
	log        *logger.Logger
	startedAt  time.Time

	status  *statusws.Server
	stopped chan struct{}
}

// New constructs a Server. registry is rebuilt by the caller whenever the
// config's custom-provider set changes; Server only ever reads it. requests
// may be nil, in which case /auth/activity reports an empty history and no
// request is persisted. The returned Server's status-websocket broadcaster
// runs until Close is called.
func New(cfg *config.Config, tokenStore *oauthstore.Store, registry *modelregistry.Registry, anthropicClient *anthropic.Client, customClient *customprovider.Client, thinking *thinkingcache.Cache, requests *requestlog.Store) *Server {
	s := &Server{
		cfg:        cfg,
		tokenStore: tokenStore,
		registry:   registry,
		anthropic:  anthropicClient,
		custom:     customClient,
		thinking:   thinking,
		requests:   requests,
		log:        logger.Global().WithPrefix("httpapi"),
		startedAt:  time.Now(),
		status:     statusws.New(),
		stopped:    make(chan struct{}),
	}
	go s.status.Run(s.stopped)
	return s
}

// Close stops the status-websocket broadcaster. Safe to call once.
func (s *Server) Close() {
	close(s.stopped)
}

// Handler builds the routed http.Handler for this Server.
func (s *Server) Handler() http.Handler {
	r := httprouter.New()
	r.GET("/healthz", s.handleHealthz)
	r.GET("/v1/models", s.handleModels)
	r.GET("/auth/status", s.handleAuthStatus)
	r.GET("/ws/status", s.handleStatusWebSocket)
	r.GET("/auth/activity", s.handleActivity)
	r.POST("/v1/messages", s.handleMessages)
	r.POST("/v1/chat/completions", s.handleChatCompletions)
	return withRequestID(s.withObservability(r))
}

// handleStatusWebSocket upgrades to a WebSocket pushing live request
// counters, gated by the same local auth token the CLI/TUI already use.
func (s *Server) handleStatusWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.cfg.AuthToken != "" && r.URL.Query().Get("token") != s.cfg.AuthToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.status.Upgrade(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Flush satisfies http.Flusher by delegating to the wrapped writer, so
// streaming handlers that type-assert for it still see one through
// statusRecorder.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withObservability wraps every request (except the status socket itself)
// so statusws.Counters reflects live in-flight/total/error counts and, when
// a requestlog.Store is configured, so recent activity survives a restart.
// It installs a model slot in the request context that handlers fill via
// setRequestModel once they've resolved the model, so the model name is
// available here after the handler returns.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws/status" {
			next.ServeHTTP(w, r)
			return
		}

		finish := s.status.Counters.BeginRequest()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx, modelSlot := withRequestModelSlot(r.Context())
		started := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		duration := time.Since(started)

		finish(*modelSlot, rec.status)

		if s.requests != nil {
			entry := requestlog.Entry{
				Timestamp:  started,
				Method:     r.Method,
				Path:       r.URL.Path,
				Model:      *modelSlot,
				Status:     rec.status,
				DurationMS: duration.Milliseconds(),
			}
			if rec.status >= 400 {
				entry.Error = fmt.Sprintf("status %d", rec.status)
			}
			s.requests.Record(entry)
		}
	})
}

// withRequestID stamps every request with a correlation id, generated once
// and threaded through to upstream client logging — never sent upstream
// itself.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(withRequestIDContext(r.Context(), id)))
	})
}
