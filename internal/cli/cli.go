// Package cli implements gatewayd's command dispatch: serve, login,
// login-long-lived, refresh, status, and logout, plus the interactive TUI
// entrypoint used when no subcommand is given.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/codefionn/gatewayd/internal/config"
)

// Run parses args (os.Args[1:]) and dispatches to the named subcommand. A
// missing subcommand launches the interactive TUI dashboard.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return runTUICommand(stdout, stderr)
	}

	switch args[0] {
	case "serve":
		return runServeCommand(args[1:], stdout, stderr)
	case "login":
		return runLoginCommand(args[1:], stdin, stdout, false)
	case "login-long-lived":
		return runLoginCommand(args[1:], stdin, stdout, true)
	case "refresh":
		return runRefreshCommand(args[1:], stdout)
	case "status":
		return runStatusCommand(args[1:], stdout)
	case "logout":
		return runLogoutCommand(args[1:], stdout)
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("cli: unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: gatewayd [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  (none)            launch the interactive status dashboard")
	fmt.Fprintln(w, "  serve             run the gateway server in the foreground")
	fmt.Fprintln(w, "  login             authorize gatewayd against a Claude Pro/Max subscription")
	fmt.Fprintln(w, "  login-long-lived  authorize with a long-lived, narrow-scope token")
	fmt.Fprintln(w, "  refresh           force a token refresh")
	fmt.Fprintln(w, "  status            print the current authentication status")
	fmt.Fprintln(w, "  logout            remove the stored token")
}

// loadConfig loads the config at the default path, or at --config if the
// flag set carries one.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = config.GetConfigPath()
	}
	return config.Load(configPath)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}
