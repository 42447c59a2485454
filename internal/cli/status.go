package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/codefionn/gatewayd/internal/oauthstore"
)

func runStatusCommand(args []string, stdout io.Writer) error {
	fs := newFlagSet("status")
	configPath := fs.String("config", "", "path to config.json (defaults to the platform config dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("cli status: load config: %w", err)
	}

	store := oauthstore.New(cfg.TokenStorePath)
	rec, err := store.Load()
	if err != nil {
		if err == oauthstore.ErrNoToken {
			fmt.Fprintln(stdout, "Not logged in. Run `gatewayd login` first.")
			return nil
		}
		return fmt.Errorf("cli status: load token: %w", err)
	}

	fmt.Fprintln(stdout, "Logged in.")
	if rec.LongLived {
		fmt.Fprintln(stdout, "Token type: long-lived")
	} else {
		fmt.Fprintln(stdout, "Token type: standard")
	}
	if rec.Scope != "" {
		fmt.Fprintf(stdout, "Scope: %s\n", rec.Scope)
	}
	if !rec.ExpiresAt.IsZero() {
		if rec.IsExpired(time.Now(), 0) {
			fmt.Fprintln(stdout, "Expiry: expired")
		} else {
			fmt.Fprintf(stdout, "Expiry: %s\n", FormatExpiry(rec.ExpiresAt))
		}
	} else {
		fmt.Fprintln(stdout, "Expiry: never")
	}
	return nil
}

// FormatExpiry renders how far in the future t is as a short human string,
// e.g. "in 2h 14m", rounded to the nearest minute. A non-positive remainder
// reads as "expired".
func FormatExpiry(t time.Time) string {
	remaining := time.Until(t)
	if remaining <= 0 {
		return "expired"
	}
	remaining = remaining.Round(time.Minute)

	hours := int(remaining / time.Hour)
	minutes := int((remaining % time.Hour) / time.Minute)

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("in %dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("in %dh", hours)
	default:
		return fmt.Sprintf("in %dm", minutes)
	}
}
