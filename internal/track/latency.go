package track

import (
	"log/slog"
	"sync"
	"time"
)

// TargetLatencyMs is the end-to-end responsiveness target: audio reaching
// the recognizer to the first synthesized audio leaving the system. It is a
// reporting threshold, never an enforced deadline.
const TargetLatencyMs = 2000

// TurnLatency is the latency breakdown for one conversation turn.
type TurnLatency struct {
	TurnID        int
	TurnStartTime time.Time
	TurnEndTime   time.Time
	STT           *StageTiming
	LLM           *StageTiming
	Tool          *StageTiming
	TTS           *StageTiming
}

func newTurnLatency(id int, start time.Time) *TurnLatency {
	return &TurnLatency{
		TurnID:        id,
		TurnStartTime: start,
		STT:           newStageTiming(StageSTT),
		LLM:           newStageTiming(StageLLM),
		Tool:          newStageTiming(StageTool),
		TTS:           newStageTiming(StageTTS),
	}
}

// StageFor returns the timing record for stage, or nil for an unknown stage.
func (t *TurnLatency) StageFor(stage Stage) *StageTiming {
	switch stage {
	case StageSTT:
		return t.STT
	case StageLLM:
		return t.LLM
	case StageTool:
		return t.Tool
	case StageTTS:
		return t.TTS
	}
	return nil
}

// EndToEndLatency is the interval from speech recognition start to the first
// synthesized audio, in milliseconds.
func (t *TurnLatency) EndToEndLatency() (float64, bool) {
	return interval(t.STT.StartTime, t.TTS.FirstResultTime)
}

// TotalTurnDuration is the interval from turn start to turn end, in
// milliseconds. Absent until the turn is finished.
func (t *TurnLatency) TotalTurnDuration() (float64, bool) {
	return interval(t.TurnStartTime, t.TurnEndTime)
}

// LatencyTracker accumulates per-turn latency for one session. Exactly one
// turn is open at a time; FinishTurn freezes it into history and opens the
// next. Safe for concurrent use so a reporting task can read summaries while
// the pipeline task drives the stage marks.
type LatencyTracker struct {
	sessionID string

	mu      sync.Mutex
	turns   []*TurnLatency
	current *TurnLatency
	counter int
	now     func() time.Time
}

// NewLatencyTracker creates a tracker with turn 0 open.
func NewLatencyTracker(sessionID string) *LatencyTracker {
	l := &LatencyTracker{sessionID: sessionID, now: time.Now}
	l.current = newTurnLatency(0, l.now())
	return l
}

// StartStage marks the start of stage on the open turn.
func (l *LatencyTracker) StartStage(stage Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.current.StageFor(stage)
	if st == nil {
		return
	}
	st.MarkStart(l.now())
	l.logStage(stage, "started", 0, false)
}

// StageFirstResult marks the first partial output of stage. For TTS the
// first result is the first audible audio, so the turn's end-to-end latency
// is computed and logged against the target immediately.
func (l *LatencyTracker) StageFirstResult(stage Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.current.StageFor(stage)
	if st == nil {
		return
	}
	st.MarkFirstResult(l.now())
	ms, ok := st.TimeToFirstResult()
	l.logStage(stage, "first_result", ms, ok)

	if stage != StageTTS {
		return
	}
	if e2e, ok := l.current.EndToEndLatency(); ok {
		slog.Info("end_to_end_latency",
			"session_id", l.sessionID,
			"turn_id", l.current.TurnID,
			"latency_ms", Round2(e2e),
			"target_met", e2e <= TargetLatencyMs)
	}
}

// EndStage marks stage completion. Tool execution produces no streaming
// partials, so ending the tool stage also records its first result.
func (l *LatencyTracker) EndStage(stage Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.current.StageFor(stage)
	if st == nil {
		return
	}
	st.MarkEnd(l.now())
	if stage == StageTool {
		st.MarkFirstResult(st.EndTime)
	}
	ms, ok := st.TotalDuration()
	l.logStage(stage, "completed", ms, ok)
}

// FinishTurn stamps the turn end, freezes the open turn into history, and
// opens a fresh turn with the next sequential id. The returned turn is never
// mutated again.
func (l *LatencyTracker) FinishTurn() *TurnLatency {
	l.mu.Lock()
	defer l.mu.Unlock()

	done := l.current
	done.TurnEndTime = l.now()
	l.turns = append(l.turns, done)

	total, _ := done.TotalTurnDuration()
	e2e, _ := done.EndToEndLatency()
	slog.Info("turn_completed",
		"session_id", l.sessionID,
		"turn_id", done.TurnID,
		"total_duration_ms", Round2(total),
		"end_to_end_ms", Round2(e2e))

	l.counter++
	l.current = newTurnLatency(l.counter, l.now())
	return done
}

// AverageEndToEndLatency averages finished turns that have a defined
// end-to-end value; turns where recognition never started or synthesis never
// produced audio are skipped. ok is false when no turn qualifies.
func (l *LatencyTracker) AverageEndToEndLatency() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.averageLocked()
}

func (l *LatencyTracker) averageLocked() (float64, bool) {
	var sum float64
	var n int
	for _, t := range l.turns {
		if ms, ok := t.EndToEndLatency(); ok {
			sum += ms
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// TurnCount is the number of finished turns.
func (l *LatencyTracker) TurnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// CurrentTurnID is the id of the open turn.
func (l *LatencyTracker) CurrentTurnID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.TurnID
}

func (l *LatencyTracker) logStage(stage Stage, event string, latencyMs float64, hasLatency bool) {
	args := []any{
		"session_id", l.sessionID,
		"turn_id", l.current.TurnID,
		"stage", string(stage),
	}
	if hasLatency {
		args = append(args, "latency_ms", Round2(latencyMs))
	}
	slog.Info(string(stage)+"_"+event, args...)
}
