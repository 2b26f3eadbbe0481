package track

import "math"

// Wire snapshots for the reporting surface. Money is rounded to 6 decimal
// places and latencies to 2 at this boundary only; internal accumulation
// stays unrounded.

// Round2 rounds to 2 decimal places (milliseconds on the wire).
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// Round6 rounds to 6 decimal places (money on the wire).
func Round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func roundedMs(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	r := Round2(v)
	return &r
}

// TurnCostSnapshot is the serialized cost breakdown for one finished turn.
type TurnCostSnapshot struct {
	TurnID  int     `json:"turn_id"`
	STTCost float64 `json:"stt_cost"`
	LLMCost float64 `json:"llm_cost"`
	TTSCost float64 `json:"tts_cost"`
	Total   float64 `json:"total"`
}

// Snapshot serializes the turn's cost breakdown.
func (t *TurnCost) Snapshot() TurnCostSnapshot {
	return TurnCostSnapshot{
		TurnID:  t.TurnID,
		STTCost: Round6(t.STTCost),
		LLMCost: Round6(t.LLMCost()),
		TTSCost: Round6(t.TTSCost),
		Total:   Round6(t.Total()),
	}
}

// StageSnapshot is the serialized timing for one stage; absent intervals are
// null on the wire.
type StageSnapshot struct {
	Stage             Stage    `json:"stage"`
	TimeToFirstResult *float64 `json:"time_to_first_result_ms"`
	TotalDuration     *float64 `json:"total_duration_ms"`
}

// Snapshot serializes the stage timing.
func (s *StageTiming) Snapshot() StageSnapshot {
	ttfr, ttfrOK := s.TimeToFirstResult()
	total, totalOK := s.TotalDuration()
	return StageSnapshot{
		Stage:             s.Stage,
		TimeToFirstResult: roundedMs(ttfr, ttfrOK),
		TotalDuration:     roundedMs(total, totalOK),
	}
}

// TurnLatencySnapshot is the serialized latency breakdown for one turn.
type TurnLatencySnapshot struct {
	TurnID            int                     `json:"turn_id"`
	EndToEndLatencyMs *float64                `json:"end_to_end_latency_ms"`
	TotalTurnDuration *float64                `json:"total_turn_duration_ms"`
	Stages            map[Stage]StageSnapshot `json:"stages"`
}

// Snapshot serializes the turn's latency breakdown.
func (t *TurnLatency) Snapshot() TurnLatencySnapshot {
	e2e, e2eOK := t.EndToEndLatency()
	total, totalOK := t.TotalTurnDuration()
	return TurnLatencySnapshot{
		TurnID:            t.TurnID,
		EndToEndLatencyMs: roundedMs(e2e, e2eOK),
		TotalTurnDuration: roundedMs(total, totalOK),
		Stages: map[Stage]StageSnapshot{
			StageSTT:  t.STT.Snapshot(),
			StageLLM:  t.LLM.Snapshot(),
			StageTool: t.Tool.Snapshot(),
			StageTTS:  t.TTS.Snapshot(),
		},
	}
}

// CostBreakdown groups spend by stage category.
type CostBreakdown struct {
	STT   float64 `json:"stt"`
	LLM   float64 `json:"llm"`
	TTS   float64 `json:"tts"`
	Total float64 `json:"total"`
}

// CostSummary is the serialized per-session cost rollup.
type CostSummary struct {
	SessionID      string        `json:"session_id"`
	TurnCount      int           `json:"turn_count"`
	Costs          CostBreakdown `json:"costs"`
	AveragePerTurn float64       `json:"average_per_turn"`
}

// Summary serializes the session's cost rollup, open turn included.
func (c *CostTracker) Summary() CostSummary {
	return CostSummary{
		SessionID: c.sessionID,
		TurnCount: c.TurnCount(),
		Costs: CostBreakdown{
			STT:   Round6(c.TotalSTTCost()),
			LLM:   Round6(c.TotalLLMCost()),
			TTS:   Round6(c.TotalTTSCost()),
			Total: Round6(c.TotalCost()),
		},
		AveragePerTurn: Round6(c.AverageCostPerTurn()),
	}
}

// LastTurn serializes the most recently finished turn's cost breakdown.
// ok is false when no turn has finished.
func (c *CostTracker) LastTurn() (TurnCostSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.turns) == 0 {
		return TurnCostSnapshot{}, false
	}
	return c.turns[len(c.turns)-1].Snapshot(), true
}

// LatencySummary is the serialized per-session latency rollup.
type LatencySummary struct {
	SessionID       string   `json:"session_id"`
	TurnCount       int      `json:"turn_count"`
	AverageEndToEnd *float64 `json:"average_end_to_end_latency_ms"`
	TargetLatencyMs float64  `json:"target_latency_ms"`
	TargetMet       bool     `json:"target_met"`
}

// Summary serializes the session's latency rollup against the target.
func (l *LatencyTracker) Summary() LatencySummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	avg, ok := l.averageLocked()
	return LatencySummary{
		SessionID:       l.sessionID,
		TurnCount:       len(l.turns),
		AverageEndToEnd: roundedMs(avg, ok),
		TargetLatencyMs: TargetLatencyMs,
		TargetMet:       ok && avg <= TargetLatencyMs,
	}
}

// LastTurn serializes the most recently finished turn's latency breakdown.
// ok is false when no turn has finished.
func (l *LatencyTracker) LastTurn() (TurnLatencySnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.turns) == 0 {
		return TurnLatencySnapshot{}, false
	}
	return l.turns[len(l.turns)-1].Snapshot(), true
}
