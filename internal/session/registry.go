package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hubenschmidt/turnmetrics/internal/metrics"
	"github.com/hubenschmidt/turnmetrics/internal/track"
)

// Registry is the concurrency-safe owner of all live sessions. Construct one
// per process and hand it to the transport and reporting layers; it holds no
// global state and needs no teardown beyond dropping the instance.
type Registry struct {
	pricing track.Pricing

	mu           sync.Mutex
	sessions     map[string]*Session
	totalCreated int
	now          func() time.Time
}

// New creates an empty registry whose sessions charge at the given rates.
func New(pricing track.Pricing) *Registry {
	return &Registry{
		pricing:  pricing,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a session under id, generating an id when empty. Creating
// an id that already exists is not an error: the existing session is returned
// unchanged and the conflict is logged.
func (r *Registry) Create(id string, metadata map[string]any) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[id]; ok {
		slog.Warn("session_already_exists", "session_id", id)
		return existing
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	s := newSession(id, r.pricing, metadata, r.now())
	r.sessions[id] = s
	r.totalCreated++

	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	slog.Info("session_created", "session_id", id, "active_sessions", len(r.sessions))
	return s
}

// Get returns the active session for id. Absence is a normal outcome, not an
// error.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unregisters and deactivates the session atomically, returning it so
// the caller can do final reporting. The open turn, if any, is discarded
// unfinalized; removed sessions no longer contribute to aggregates.
func (r *Registry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	s.deactivate()

	metrics.SessionsActive.Dec()
	slog.Info("session_removed",
		"session_id", id,
		"duration_seconds", r.now().Sub(s.CreatedAt).Seconds(),
		"turns", s.Latency.TurnCount(),
		"total_cost", s.Cost.TotalCost(),
		"active_sessions", len(r.sessions))
	return s, true
}

// ActiveCount is the number of currently registered sessions.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// TotalCreated never decreases, even after removals.
func (r *Registry) TotalCreated() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalCreated
}

// ActiveIDs returns the registered session ids, sorted for stable output.
func (r *Registry) ActiveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Details returns the reporting snapshot for one session, or ok=false when
// the id is not registered.
func (r *Registry) Details(id string) (Details, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return Details{}, false
	}
	return s.details(), true
}

// AggregateCost groups cross-session spend.
type AggregateCost struct {
	Total     float64            `json:"total"`
	Breakdown AggregateBreakdown `json:"breakdown"`
}

// AggregateBreakdown splits cross-session spend by stage category.
type AggregateBreakdown struct {
	STT float64 `json:"stt"`
	LLM float64 `json:"llm"`
	TTS float64 `json:"tts"`
}

// AggregateMetrics is the point-in-time rollup over all active sessions.
type AggregateMetrics struct {
	ActiveSessions       int           `json:"active_sessions"`
	TotalSessionsCreated int           `json:"total_sessions_created"`
	TotalTurns           int           `json:"total_turns"`
	AggregateCost        AggregateCost `json:"aggregate_cost"`
	AverageLatencyMs     *float64      `json:"average_latency_ms"`
	TargetLatencyMs      float64       `json:"target_latency_ms"`
}

// AggregateMetrics computes the rollup over currently active sessions only.
// The latency figure is the mean of each session's own average end-to-end
// latency (a mean of means, not a global mean over all turns); it is null
// when no session has a qualifying value.
func (r *Registry) AggregateMetrics() AggregateMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg := AggregateMetrics{
		ActiveSessions:       len(r.sessions),
		TotalSessionsCreated: r.totalCreated,
		TargetLatencyMs:      track.TargetLatencyMs,
	}

	var stt, llm, tts float64
	var latencySum float64
	var latencyN int
	for _, s := range r.sessions {
		stt += s.Cost.TotalSTTCost()
		llm += s.Cost.TotalLLMCost()
		tts += s.Cost.TotalTTSCost()
		agg.TotalTurns += s.Latency.TurnCount()
		if avg, ok := s.Latency.AverageEndToEndLatency(); ok {
			latencySum += avg
			latencyN++
		}
	}

	agg.AggregateCost = AggregateCost{
		Total: track.Round6(stt + llm + tts),
		Breakdown: AggregateBreakdown{
			STT: track.Round6(stt),
			LLM: track.Round6(llm),
			TTS: track.Round6(tts),
		},
	}
	if latencyN > 0 {
		avg := track.Round2(latencySum / float64(latencyN))
		agg.AverageLatencyMs = &avg
	}
	return agg
}
