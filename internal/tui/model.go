// Package tui implements gatewayd's interactive status dashboard: current
// token state, live request counters pushed over the gateway's status
// WebSocket, and a tail of recently handled requests.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/codefionn/gatewayd/internal/config"
	"github.com/codefionn/gatewayd/internal/oauth"
	"github.com/codefionn/gatewayd/internal/oauthstore"
	"github.com/codefionn/gatewayd/internal/requestlog"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(2)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			MarginLeft(2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginLeft(2)
)

const (
	refreshInterval = time.Second
	maxActivityRows = 12
)

// Model is the Bubble Tea model backing the dashboard.
type Model struct {
	cfg        *config.Config
	tokenStore *oauthstore.Store
	manager    *oauth.Manager
	requests   *requestlog.Store

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int
	height   int

	tokenState  tokenState
	counters    counterSnapshot
	activity    []requestLogEntryView
	err         error
	lastRefresh time.Time
	wsConnected bool
	wsEvents    chan tea.Msg
}

type tokenState struct {
	loggedIn  bool
	longLived bool
	scope     string
	expiresAt time.Time
}

type counterSnapshot struct {
	requestsTotal    uint64
	requestsInFlight int64
	requestsErrored  uint64
	lastModel        string
	lastStatus       int
}

// New builds the dashboard Model. requests may be nil, in which case the
// activity panel stays empty.
func New(cfg *config.Config, tokenStore *oauthstore.Store, manager *oauth.Manager, requests *requestlog.Store) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = okStyle

	return &Model{
		cfg:        cfg,
		tokenStore: tokenStore,
		manager:    manager,
		requests:   requests,
		spinner:    s,
		wsEvents:   make(chan tea.Msg, 8),
	}
}

// Init kicks off the periodic refresh loop and the status websocket reader.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		refreshCmd(m),
		connectStatusSocketCmd(m.cfg, m.wsEvents),
		waitForWsEventCmd(m.wsEvents),
		tickCmd(),
	)
}
