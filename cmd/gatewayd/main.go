// Command gatewayd runs the personal API gateway: OAuth-backed Anthropic
// Messages and OpenAI-compatible Chat Completions endpoints, a CLI for
// managing the borrowed Claude Pro/Max credential, and an interactive
// status dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/codefionn/gatewayd/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	return cli.Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}
