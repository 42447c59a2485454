package cli

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codefionn/gatewayd/internal/tui"
)

func runTUICommand(stdout, stderr io.Writer) error {
	cfg, err := loadConfig("")
	if err != nil {
		return fmt.Errorf("cli: load config: %w", err)
	}

	deps, err := buildServerDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	model := tui.New(cfg, deps.tokenStore, deps.manager, deps.requests)
	p := tea.NewProgram(model)
	_, err = p.Run()
	return err
}
