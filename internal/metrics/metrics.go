// Package metrics counts what one module run did on the wire: an echo
// test or a chat session.
//
// Counters are atomics and every method accepts a nil *Collector, so
// sessions built without metrics pay only the nil check.
package metrics

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Collector accumulates the counters of one run.
type Collector struct {
	id      string
	started time.Time

	opened, active    atomic.Int64
	bytesIn, bytesOut atomic.Int64
	msgsIn, msgsOut   atomic.Int64
	warnings          atomic.Int64
	failures          atomic.Int64

	mu       sync.Mutex
	failedAt time.Time
	failure  string
}

// New starts a run with a fresh id.
func New() *Collector {
	return &Collector{id: uuid.NewString(), started: time.Now()}
}

// ID tags the run's log lines.
func (c *Collector) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// ── Recording ────────────────────────────────────────────────────────

// ConnectionOpened counts a connected or accepted socket.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.opened.Add(1)
	c.active.Add(1)
}

// ConnectionClosed pairs with ConnectionOpened.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.active.Add(-1)
}

func (c *Collector) BytesReceived(n int64) {
	if c != nil {
		c.bytesIn.Add(n)
	}
}

func (c *Collector) BytesSent(n int64) {
	if c != nil {
		c.bytesOut.Add(n)
	}
}

// MessageReceived counts one chat line from the peer.
func (c *Collector) MessageReceived() {
	if c != nil {
		c.msgsIn.Add(1)
	}
}

// MessageSent counts one chat line to the peer.
func (c *Collector) MessageSent() {
	if c != nil {
		c.msgsOut.Add(1)
	}
}

// ApplyWarning counts a socket option left at its OS default.
func (c *Collector) ApplyWarning() {
	if c != nil {
		c.warnings.Add(1)
	}
}

// RecordError counts a failed socket operation and keeps the latest
// message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.failures.Add(1)
	c.mu.Lock()
	c.failedAt = time.Now()
	c.failure = msg
	c.mu.Unlock()
}

// ── Reporting ────────────────────────────────────────────────────────

// Snapshot is a copy of the counters at one instant.
type Snapshot struct {
	ID                string `json:"id,omitempty"`
	Uptime            string `json:"uptime"`
	ConnectionsActive int64  `json:"connections_active"`
	ConnectionsTotal  int64  `json:"connections_total"`
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	MessagesIn        int64  `json:"messages_in"`
	MessagesOut       int64  `json:"messages_out"`
	ApplyWarnings     int64  `json:"apply_warnings"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	s := Snapshot{
		ID:                c.id,
		Uptime:            time.Since(c.started).Truncate(time.Millisecond).String(),
		ConnectionsActive: c.active.Load(),
		ConnectionsTotal:  c.opened.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		MessagesIn:        c.msgsIn.Load(),
		MessagesOut:       c.msgsOut.Load(),
		ApplyWarnings:     c.warnings.Load(),
		ErrorsTotal:       c.failures.Load(),
	}
	c.mu.Lock()
	if !c.failedAt.IsZero() {
		s.LastError = c.failedAt.Format(time.RFC3339)
		s.LastErrorMessage = c.failure
	}
	c.mu.Unlock()
	return s
}

// Summary is the one-line form logged at the end of a run.
func (s Snapshot) Summary() string {
	return fmt.Sprintf("connections=%d sent=%dB received=%dB messages=%d/%d warnings=%d errors=%d elapsed=%s",
		s.ConnectionsTotal, s.BytesOut, s.BytesIn, s.MessagesOut, s.MessagesIn,
		s.ApplyWarnings, s.ErrorsTotal, s.Uptime)
}

// JSON is the indented snapshot, logged at debug level.
func (c *Collector) JSON() string {
	data, _ := json.MarshalIndent(c.Snapshot(), "", "  ")
	return string(data)
}
