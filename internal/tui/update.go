package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codefionn/gatewayd/internal/oauthstore"
)

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refreshCmd re-reads token state and recent activity from disk/SQLite.
// Run off the UI goroutine like any other tea.Cmd, so a slow SQLite query
// never blocks keypresses.
func refreshCmd(m *Model) tea.Cmd {
	tokenStore := m.tokenStore
	requests := m.requests

	return func() tea.Msg {
		msg := refreshMsg{}

		rec, err := tokenStore.Load()
		switch {
		case err == nil:
			msg.token = tokenState{
				loggedIn:  true,
				longLived: rec.LongLived,
				scope:     rec.Scope,
				expiresAt: rec.ExpiresAt,
			}
		case err == oauthstore.ErrNoToken:
			msg.token = tokenState{}
		default:
			msg.err = err
		}

		if requests != nil {
			entries, rerr := requests.Recent(maxActivityRows)
			if rerr != nil {
				if msg.err == nil {
					msg.err = rerr
				}
			} else {
				msg.activity = make([]requestLogEntryView, 0, len(entries))
				for _, e := range entries {
					msg.activity = append(msg.activity, requestLogEntryView{
						timestamp: e.Timestamp,
						method:    e.Method,
						path:      e.Path,
						model:     e.Model,
						status:    e.Status,
						durationM: e.DurationMS,
					})
				}
			}
		}

		return msg
	}
}

// Update handles Bubble Tea messages. Window resize, spinner ticks, and
// viewport scrolling follow the same shape as any other Bubble Tea
// dashboard; the refresh/websocket messages are specific to this one.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerHeight := 3
		footerHeight := 2
		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			cmds = append(cmds, refreshCmd(m))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, refreshCmd(m), tickCmd())

	case refreshMsg:
		m.lastRefresh = time.Now()
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.tokenState = msg.token
			m.activity = msg.activity
		}
		if m.ready {
			m.viewport.SetContent(renderActivity(m.activity))
		}

	case wsConnectedMsg:
		m.wsConnected = true
		cmds = append(cmds, waitForWsEventCmd(m.wsEvents))

	case wsClosedMsg:
		m.wsConnected = false
		cmds = append(cmds, connectStatusSocketCmd(m.cfg, m.wsEvents), waitForWsEventCmd(m.wsEvents))

	case wsSnapshotMsg:
		m.counters = counterSnapshot(msg)
		cmds = append(cmds, waitForWsEventCmd(m.wsEvents))
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}
