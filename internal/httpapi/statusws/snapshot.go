package statusws

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Counters tracks live request volume for periodic snapshot broadcast. All
// fields are updated with atomics so httpapi's request middleware can touch
// them without taking a lock per request.
type Counters struct {
	total      uint64
	inFlight   int64
	errors     uint64
	lastModel  atomic.Value // string
	lastStatus int64
	lastAt     int64 // unix nanos
}

// NewCounters returns a zeroed Counters.
func NewCounters() *Counters {
	c := &Counters{}
	c.lastModel.Store("")
	return c
}

// BeginRequest marks a request as started, returning a func to call when it
// finishes with the resolved model (if any) and the HTTP status written.
func (c *Counters) BeginRequest() func(model string, status int) {
	atomic.AddInt64(&c.inFlight, 1)
	atomic.AddUint64(&c.total, 1)
	return func(model string, status int) {
		atomic.AddInt64(&c.inFlight, -1)
		if status >= 400 {
			atomic.AddUint64(&c.errors, 1)
		}
		c.lastModel.Store(model)
		atomic.StoreInt64(&c.lastStatus, int64(status))
		atomic.StoreInt64(&c.lastAt, time.Now().UnixNano())
	}
}

// Snapshot is the wire shape pushed to status-dashboard clients.
type Snapshot struct {
	RequestsTotal    uint64 `json:"requests_total"`
	RequestsInFlight int64  `json:"requests_in_flight"`
	RequestsErrored  uint64 `json:"requests_errored"`
	LastModel        string `json:"last_model,omitempty"`
	LastStatus       int    `json:"last_status,omitempty"`
	LastRequestAt    string `json:"last_request_at,omitempty"`
}

// Snapshot renders the current counter state.
func (c *Counters) Snapshot() Snapshot {
	snap := Snapshot{
		RequestsTotal:    atomic.LoadUint64(&c.total),
		RequestsInFlight: atomic.LoadInt64(&c.inFlight),
		RequestsErrored:  atomic.LoadUint64(&c.errors),
		LastModel:        c.lastModel.Load().(string),
		LastStatus:       int(atomic.LoadInt64(&c.lastStatus)),
	}
	if nanos := atomic.LoadInt64(&c.lastAt); nanos != 0 {
		snap.LastRequestAt = time.Unix(0, nanos).UTC().Format(time.RFC3339)
	}
	return snap
}

// Marshal renders the snapshot as the JSON frame broadcast to clients.
func (s Snapshot) Marshal() []byte {
	data, _ := json.Marshal(s)
	return data
}
