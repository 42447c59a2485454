package tui

import (
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/codefionn/gatewayd/internal/config"
)

// waitForWsEventCmd blocks on the shared events channel and hands the next
// message back to the Bubble Tea runtime. Every handler for a message this
// produces must re-issue waitForWsEventCmd to keep the pump running.
func waitForWsEventCmd(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// connectStatusSocketCmd dials the gateway's own /ws/status endpoint and
// streams counters frames into events until the connection drops, at which
// point it reports wsClosedMsg so the caller can retry. It never blocks the
// Bubble Tea event loop itself — the dial and read loop run in a goroutine.
func connectStatusSocketCmd(cfg *config.Config, events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go runStatusSocket(cfg, events)
		return nil
	}
}

func runStatusSocket(cfg *config.Config, events chan tea.Msg) {
	wsURL := statusSocketURL(cfg)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		time.Sleep(time.Second)
		events <- wsClosedMsg{err: err}
		return
	}
	events <- wsConnectedMsg{}

	for {
		var snap struct {
			RequestsTotal    uint64 `json:"requests_total"`
			RequestsInFlight int64  `json:"requests_in_flight"`
			RequestsErrored  uint64 `json:"requests_errored"`
			LastModel        string `json:"last_model"`
			LastStatus       int    `json:"last_status"`
		}
		if err := conn.ReadJSON(&snap); err != nil {
			conn.Close()
			events <- wsClosedMsg{err: err}
			return
		}
		events <- wsSnapshotMsg(counterSnapshot{
			requestsTotal:    snap.RequestsTotal,
			requestsInFlight: snap.RequestsInFlight,
			requestsErrored:  snap.RequestsErrored,
			lastModel:        snap.LastModel,
			lastStatus:       snap.LastStatus,
		})
	}
}

func statusSocketURL(cfg *config.Config) string {
	host := cfg.ListenAddr
	wsURL := "ws://" + strings.TrimPrefix(strings.TrimPrefix(host, "http://"), "https://") + "/ws/status"
	if cfg.AuthToken == "" {
		return wsURL
	}
	q := url.Values{}
	q.Set("token", cfg.AuthToken)
	return wsURL + "?" + q.Encode()
}
