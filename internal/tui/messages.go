package tui

import "time"

// tickMsg drives the once-a-second refresh of token state and activity.
type tickMsg time.Time

// refreshMsg carries the result of re-reading token state and recent
// activity from disk.
type refreshMsg struct {
	token    tokenState
	activity []requestLogEntryView
	err      error
}

// requestLogEntryView is the subset of requestlog.Entry the activity panel
// renders; kept separate so model.go doesn't need the requestlog import
// just to shuttle a refresh result through a tea.Msg.
type requestLogEntryView struct {
	timestamp time.Time
	method    string
	path      string
	model     string
	status    int
	durationM int64
}

// wsSnapshotMsg is one counters frame pushed by the gateway's status
// WebSocket.
type wsSnapshotMsg counterSnapshot

// wsConnectedMsg reports a (re)established status-socket connection.
type wsConnectedMsg struct{}

// wsClosedMsg reports the status socket dropping, carrying the error (if
// any) so the dashboard can show a reconnect indicator instead of crashing.
type wsClosedMsg struct{ err error }
