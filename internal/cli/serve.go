package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/codefionn/gatewayd/internal/config"
	"github.com/codefionn/gatewayd/internal/consts"
	"github.com/codefionn/gatewayd/internal/httpapi"
	"github.com/codefionn/gatewayd/internal/logger"
	"github.com/codefionn/gatewayd/internal/modelregistry"
	"github.com/codefionn/gatewayd/internal/oauth"
	"github.com/codefionn/gatewayd/internal/oauthstore"
	"github.com/codefionn/gatewayd/internal/requestlog"
	"github.com/codefionn/gatewayd/internal/thinkingcache"
	"github.com/codefionn/gatewayd/internal/upstream/anthropic"
	"github.com/codefionn/gatewayd/internal/upstream/customprovider"
)

func runServeCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("serve")
	configPath := fs.String("config", "", "path to config.json (defaults to the platform config dir)")
	listenAddr := fs.String("listen", "", "override the listen address from config")
	logLevel := fs.String("log-level", "", "override the log level from config")
	console := fs.Bool("console", false, "also write log lines to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("cli serve: load config: %w", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	enableConsole := cfg.LogToConsole || *console

	level := logger.ParseLevel(cfg.LogLevel)
	if err := logger.InitWithConsole(level, cfg.LogPath, enableConsole); err != nil {
		return fmt.Errorf("cli serve: init logger: %w", err)
	}
	defer logger.Global().Close()
	log := logger.Global().WithPrefix("serve")

	deps, err := buildServerDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	srv := httpapi.New(cfg, deps.tokenStore, deps.registry, deps.anthropic, deps.custom, deps.thinking, deps.requests)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", cfg.ListenAddr)
		if lerr := httpServer.ListenAndServe(); lerr != nil && lerr != http.ErrServerClosed {
			errCh <- lerr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("cli serve: %w", err)
	case <-sigCh:
		log.Info("shutting down")
	}

	return httpServer.Close()
}

// serverDeps bundles every long-lived dependency the HTTP server and CLI
// commands construct the same way, so serve and the TUI dashboard build
// them identically.
type serverDeps struct {
	tokenStore *oauthstore.Store
	manager    *oauth.Manager
	registry   *modelregistry.Registry
	anthropic  *anthropic.Client
	custom     *customprovider.Client
	thinking   *thinkingcache.Cache
	requests   *requestlog.Store
}

func (d *serverDeps) Close() {
	if d.requests != nil {
		d.requests.Close()
	}
	if d.tokenStore != nil {
		d.tokenStore.Close()
	}
}

func buildServerDeps(cfg *config.Config) (*serverDeps, error) {
	tokenStore := oauthstore.New(cfg.TokenStorePath)
	if _, err := tokenStore.Load(); err != nil && err != oauthstore.ErrNoToken {
		return nil, fmt.Errorf("load token store: %w", err)
	}

	mgr := oauth.NewManager(tokenStore)
	anthropicClient := anthropic.New(mgr, logger.Global().WithPrefix("anthropic"))
	customClient := customprovider.New(defaultTimeout(cfg))

	names := make([]string, 0, len(cfg.CustomProviders))
	for name := range cfg.CustomProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	registry := modelregistry.Build(names)

	thinking := thinkingcache.New(consts.ThinkingCacheTTL, consts.ThinkingCacheMaxEntries)

	var requests *requestlog.Store
	if cfg.RequestLogPath != "" {
		store, err := requestlog.New(cfg.RequestLogPath, requestLogMaxEntries)
		if err != nil {
			return nil, fmt.Errorf("open request log: %w", err)
		}
		requests = store
	}

	return &serverDeps{
		tokenStore: tokenStore,
		manager:    mgr,
		registry:   registry,
		anthropic:  anthropicClient,
		custom:     customClient,
		thinking:   thinking,
		requests:   requests,
	}, nil
}
