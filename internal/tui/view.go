package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard: a header line, a token-state panel, a live
// counters panel, and a scrollable tail of recent requests.
func (m *Model) View() string {
	if !m.ready {
		return "initializing…\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("gatewayd status"))
	b.WriteByte('\n')

	socket := warnStyle.Render("socket: reconnecting")
	if m.wsConnected {
		socket = okStyle.Render("socket: connected")
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s  %s  last refresh %s",
		m.spinner.View(), socket, m.lastRefresh.Format("15:04:05"))))
	b.WriteByte('\n')

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteByte('\n')
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(renderTokenPanel(m.tokenState)),
		panelStyle.Render(renderCountersPanel(m.counters)),
	)
	b.WriteString(panels)
	b.WriteByte('\n')

	b.WriteString(panelTitleStyle.Render("recent requests"))
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	b.WriteString(helpStyle.Render("r refresh · q quit"))

	return b.String()
}

func renderTokenPanel(t tokenState) string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("token"))
	b.WriteByte('\n')

	if !t.loggedIn {
		b.WriteString(rowStyle.Render("not logged in"))
		return b.String()
	}

	kind := "standard"
	if t.longLived {
		kind = "long-lived"
	}
	b.WriteString(rowStyle.Render(fmt.Sprintf("type:   %s", kind)))
	b.WriteByte('\n')
	if t.scope != "" {
		b.WriteString(rowStyle.Render(fmt.Sprintf("scope:  %s", t.scope)))
		b.WriteByte('\n')
	}

	if t.expiresAt.IsZero() {
		b.WriteString(rowStyle.Render("expiry: never"))
		return b.String()
	}

	expiry := formatExpiry(t.expiresAt)
	style := okStyle
	if isExpiringSoon(t) {
		style = warnStyle
	}
	b.WriteString(rowStyle.Render("expiry: ") + style.Render(expiry))
	return b.String()
}

func renderCountersPanel(c counterSnapshot) string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("requests"))
	b.WriteByte('\n')
	b.WriteString(rowStyle.Render(fmt.Sprintf("total:     %d", c.requestsTotal)))
	b.WriteByte('\n')
	b.WriteString(rowStyle.Render(fmt.Sprintf("in flight: %d", c.requestsInFlight)))
	b.WriteByte('\n')

	errStyle := rowStyle
	if c.requestsErrored > 0 {
		errStyle = warnStyle
	}
	b.WriteString(errStyle.Render(fmt.Sprintf("errored:   %d", c.requestsErrored)))
	b.WriteByte('\n')

	if c.lastModel != "" {
		b.WriteString(rowStyle.Render(fmt.Sprintf("last:      %s (%d)", c.lastModel, c.lastStatus)))
	}
	return b.String()
}

func renderActivity(entries []requestLogEntryView) string {
	if len(entries) == 0 {
		return rowStyle.Render("no requests recorded yet")
	}

	var b strings.Builder
	for i, e := range entries {
		status := okStyle
		if e.status >= 400 {
			status = errorStyle
		}
		line := fmt.Sprintf("%s  %-5s %-28s %s %5dms",
			e.timestamp.Format("15:04:05"), e.method, e.path, status.Render(fmt.Sprintf("%d", e.status)), e.durationM)
		b.WriteString(rowStyle.Render(line))
		if i < len(entries)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func isExpiringSoon(t tokenState) bool {
	return !t.expiresAt.IsZero() && !t.longLived
}
