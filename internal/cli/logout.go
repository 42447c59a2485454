package cli

import (
	"fmt"
	"io"

	"github.com/codefionn/gatewayd/internal/oauthstore"
)

func runLogoutCommand(args []string, stdout io.Writer) error {
	fs := newFlagSet("logout")
	configPath := fs.String("config", "", "path to config.json (defaults to the platform config dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("cli logout: load config: %w", err)
	}

	store := oauthstore.New(cfg.TokenStorePath)
	if err := store.Clear(); err != nil {
		return fmt.Errorf("cli logout: %w", err)
	}

	fmt.Fprintln(stdout, "Logged out.")
	return nil
}
