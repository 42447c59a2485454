package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/codefionn/gatewayd/internal/oauth"
	"github.com/codefionn/gatewayd/internal/oauthstore"
)

func runLoginCommand(args []string, stdin io.Reader, stdout io.Writer, longLived bool) error {
	name := "login"
	if longLived {
		name = "login-long-lived"
	}
	fs := newFlagSet(name)
	configPath := fs.String("config", "", "path to config.json (defaults to the platform config dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("cli %s: load config: %w", name, err)
	}

	store := oauthstore.New(cfg.TokenStorePath)
	mgr := oauth.NewManager(store)

	session, err := oauth.NewSession()
	if err != nil {
		return fmt.Errorf("cli %s: start pkce session: %w", name, err)
	}

	authURL := mgr.AuthorizeURL(session, oauth.RedirectURI, longLived)
	fmt.Fprintln(stdout, "Open this URL in a browser and approve access:")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, authURL)
	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, "Paste the code shown after approving: ")

	reader, ok := stdin.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(stdin)
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("cli %s: read pasted code: %w", name, err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return fmt.Errorf("cli %s: no code provided", name)
	}

	rec, err := mgr.ExchangeCode(context.Background(), code, session, oauth.RedirectURI, longLived)
	if err != nil {
		return fmt.Errorf("cli %s: exchange code: %w", name, err)
	}

	if longLived {
		// Printed once, never logged: this is the only time the caller
		// sees the raw long-lived token.
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Long-lived token (store it somewhere safe, it will not be shown again):")
		fmt.Fprintln(stdout, rec.AccessToken)
		fmt.Fprintln(stdout)
	}

	fmt.Fprintln(stdout, "Login successful.")
	if !rec.ExpiresAt.IsZero() {
		fmt.Fprintf(stdout, "Token expires %s.\n", FormatExpiry(rec.ExpiresAt))
	}
	return nil
}
