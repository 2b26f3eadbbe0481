package session

import (
	"sync/atomic"
	"time"

	"github.com/hubenschmidt/turnmetrics/internal/track"
)

// Session pairs one cost tracker and one latency tracker with a connection
// identity. Each session owns its trackers exclusively; the task driving the
// session's pipeline is their only writer, while the registry may read them
// for aggregate reporting.
type Session struct {
	ID        string
	CreatedAt time.Time
	Cost      *track.CostTracker
	Latency   *track.LatencyTracker
	Metadata  map[string]any

	active atomic.Bool
}

func newSession(id string, pricing track.Pricing, metadata map[string]any, now time.Time) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: now,
		Cost:      track.NewCostTracker(id, pricing),
		Latency:   track.NewLatencyTracker(id),
		Metadata:  metadata,
	}
	s.active.Store(true)
	return s
}

// Active reports whether the session is still registered.
func (s *Session) Active() bool { return s.active.Load() }

// deactivate flips the lifecycle flag; called exactly once, by removal.
func (s *Session) deactivate() { s.active.Store(false) }

// Details is the reporting snapshot for a single session.
type Details struct {
	SessionID string               `json:"session_id"`
	CreatedAt string               `json:"created_at"`
	IsActive  bool                 `json:"is_active"`
	Cost      track.CostSummary    `json:"cost"`
	Latency   track.LatencySummary `json:"latency"`
	Metadata  map[string]any       `json:"metadata"`
}

func (s *Session) details() Details {
	return Details{
		SessionID: s.ID,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339Nano),
		IsActive:  s.Active(),
		Cost:      s.Cost.Summary(),
		Latency:   s.Latency.Summary(),
		Metadata:  s.Metadata,
	}
}
