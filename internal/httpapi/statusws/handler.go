package statusws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codefionn/gatewayd/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // local-only server
}

const broadcastPeriod = 2 * time.Second

// Server owns a Hub plus the Counters it periodically broadcasts. Run runs
// the hub loop and the broadcast ticker until its stop channel is closed.
type Server struct {
	Hub      *Hub
	Counters *Counters
	log      *logger.Logger
}

// New wires a Server around a fresh Hub and Counters.
func New() *Server {
	return &Server{
		Hub:      NewHub(),
		Counters: NewCounters(),
		log:      logger.Global().WithPrefix("statusws"),
	}
}

// Run starts the hub loop and the periodic snapshot broadcaster. It blocks
// until stop is closed.
func (s *Server) Run(stop <-chan struct{}) {
	go s.Hub.Run()

	ticker := time.NewTicker(broadcastPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.Hub.ClientCount() == 0 {
				continue
			}
			s.Hub.Broadcast(s.Counters.Snapshot().Marshal())
		case <-stop:
			s.Hub.Stop()
			return
		}
	}
}

// Upgrade upgrades an HTTP request to a WebSocket connection, registers a
// Client against the hub, and immediately pushes the current snapshot so a
// newly connected dashboard isn't empty until the next tick.
func (s *Server) Upgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("status websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(s.Hub, conn)
	s.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	client.send <- s.Counters.Snapshot().Marshal()
}
