package track

import "time"

// Stage identifies one phase of the voice pipeline.
type Stage string

const (
	StageSTT  Stage = "stt"
	StageLLM  Stage = "llm"
	StageTool Stage = "tool"
	StageTTS  Stage = "tts"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageSTT, StageLLM, StageTool, StageTTS}

// StageTiming records start, first-result, and end timestamps for one stage
// of one turn. A zero time means the event has not been observed yet. Marks
// overwrite unconditionally; the pipeline driver is responsible for calling
// them in causal order.
type StageTiming struct {
	Stage           Stage
	StartTime       time.Time
	FirstResultTime time.Time
	EndTime         time.Time
}

func newStageTiming(stage Stage) *StageTiming {
	return &StageTiming{Stage: stage}
}

// MarkStart records the stage start.
func (s *StageTiming) MarkStart(t time.Time) { s.StartTime = t }

// MarkFirstResult records the first partial output of the stage.
func (s *StageTiming) MarkFirstResult(t time.Time) { s.FirstResultTime = t }

// MarkEnd records stage completion.
func (s *StageTiming) MarkEnd(t time.Time) { s.EndTime = t }

// TimeToFirstResult returns the start to first-result interval in
// milliseconds. Absent until both timestamps are set, or when the marks
// arrived out of causal order and the interval would be negative.
func (s *StageTiming) TimeToFirstResult() (float64, bool) {
	return interval(s.StartTime, s.FirstResultTime)
}

// TotalDuration returns the start to end interval in milliseconds.
func (s *StageTiming) TotalDuration() (float64, bool) {
	return interval(s.StartTime, s.EndTime)
}

func interval(from, to time.Time) (float64, bool) {
	if from.IsZero() || to.IsZero() {
		return 0, false
	}
	d := to.Sub(from)
	if d < 0 {
		return 0, false
	}
	return d.Seconds() * 1000, true
}
