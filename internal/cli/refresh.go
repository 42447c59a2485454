package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/codefionn/gatewayd/internal/oauth"
	"github.com/codefionn/gatewayd/internal/oauthstore"
)

func runRefreshCommand(args []string, stdout io.Writer) error {
	fs := newFlagSet("refresh")
	configPath := fs.String("config", "", "path to config.json (defaults to the platform config dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("cli refresh: load config: %w", err)
	}

	store := oauthstore.New(cfg.TokenStorePath)
	if _, err := store.Load(); err != nil {
		return fmt.Errorf("cli refresh: load token: %w", err)
	}

	mgr := oauth.NewManager(store)
	if _, err := mgr.ForceRefresh(context.Background()); err != nil {
		return fmt.Errorf("cli refresh: %w", err)
	}

	rec, _ := store.Current()
	fmt.Fprintln(stdout, "Token refreshed.")
	if rec != nil && !rec.ExpiresAt.IsZero() {
		fmt.Fprintf(stdout, "Now expires %s.\n", FormatExpiry(rec.ExpiresAt))
	}
	return nil
}
