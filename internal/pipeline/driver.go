package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/hubenschmidt/turnmetrics/internal/metrics"
	"github.com/hubenschmidt/turnmetrics/internal/session"
	"github.com/hubenschmidt/turnmetrics/internal/track"
)

// Event is one message produced by the driver for delivery to the client.
type Event struct {
	Type      string                     `json:"type"`
	SessionID string                     `json:"session_id,omitempty"`
	Text      string                     `json:"text,omitempty"`
	IsFinal   bool                       `json:"is_final,omitempty"`
	URL       string                     `json:"url,omitempty"`
	Message   string                     `json:"message,omitempty"`
	Latency   *track.TurnLatencySnapshot `json:"latency,omitempty"`
	Cost      *track.TurnCostSnapshot    `json:"cost,omitempty"`
}

// EventCallback receives driver events for delivery to the client.
type EventCallback func(Event)

// Turn is one user→assistant exchange kept for conversation context.
type Turn struct {
	User      string
	Assistant string
}

// Responder produces the assistant reply for a user utterance. Production
// wires a real model client here; the default is the canned responder.
type Responder func(ctx context.Context, text string, history []Turn) (string, error)

// Config holds the injected collaborators for one session's driver.
type Config struct {
	Session   *session.Session
	Responder Responder
	Playback  PlaybackFunc
}

// Driver runs the stt→llm→tool→tts exchange for one session, timing and
// charging every stage on the session's trackers. Text input stands in for
// the audio path: the recognition stage completes instantly and its cost is
// estimated from the speaking time the words represent.
type Driver struct {
	sess      *session.Session
	responder Responder
	tool      *AudioPlaybackTool
	history   []Turn
}

// New creates a driver for one session.
func New(cfg Config) *Driver {
	responder := cfg.Responder
	if responder == nil {
		responder = CannedResponder
	}
	return &Driver{
		sess:      cfg.Session,
		responder: responder,
		tool:      NewAudioPlaybackTool(cfg.Playback),
	}
}

const (
	// wordsPerMinute approximates speaking rate when estimating how much
	// audio a typed utterance replaces.
	wordsPerMinute = 150
	// tokensPerWord is a rough tokenizer estimate for cost accounting.
	tokensPerWord = 2
)

// ProcessText runs one typed utterance through the full pipeline and
// finalizes the turn on both trackers. Events are emitted in order:
// transcript, optional play_audio, response, turn_complete.
func (d *Driver) ProcessText(ctx context.Context, text string, emit EventCallback) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lat, cost := d.sess.Latency, d.sess.Cost

	// Recognition is already done for typed input.
	lat.StartStage(track.StageSTT)
	lat.StageFirstResult(track.StageSTT)
	lat.EndStage(track.StageSTT)

	words := len(strings.Fields(text))
	cost.AddSTTCost(float64(words) / wordsPerMinute * 60)

	emit(Event{Type: "transcript", Text: text, IsFinal: true})

	lat.StartStage(track.StageLLM)
	response, err := d.responder(ctx, text, d.history)
	if err != nil {
		lat.EndStage(track.StageLLM)
		return fmt.Errorf("llm: %w", err)
	}
	lat.StageFirstResult(track.StageLLM)

	if wantsPlayback(text) {
		lat.StartStage(track.StageTool)
		playErr := d.tool.Play(ctx, SampleAudioURLs["notification"], "notification sound")
		lat.EndStage(track.StageTool)
		if playErr == nil {
			response = "I've played a notification sound for you!"
		}
	}

	lat.EndStage(track.StageLLM)
	cost.AddLLMCost(words*tokensPerWord, len(strings.Fields(response))*tokensPerWord)
	d.history = append(d.history, Turn{User: text, Assistant: response})

	lat.StartStage(track.StageTTS)
	emit(Event{Type: "response", Text: response})
	lat.StageFirstResult(track.StageTTS)
	cost.AddTTSCost(len(response))
	lat.EndStage(track.StageTTS)

	turnLat := lat.FinishTurn()
	turnCost := cost.FinishTurn()
	observeTurn(turnLat, turnCost)

	latSnap := turnLat.Snapshot()
	costSnap := turnCost.Snapshot()
	emit(Event{Type: "turn_complete", Latency: &latSnap, Cost: &costSnap})
	return nil
}

// observeTurn exports the finished turn to Prometheus.
func observeTurn(lat *track.TurnLatency, cost *track.TurnCost) {
	for _, stage := range track.Stages {
		if ms, ok := lat.StageFor(stage).TotalDuration(); ok {
			metrics.StageDuration.WithLabelValues(string(stage)).Observe(ms / 1000)
		}
	}
	if ms, ok := lat.EndToEndLatency(); ok {
		metrics.E2EDuration.Observe(ms / 1000)
	}
	metrics.TurnsTotal.Inc()
	metrics.CostTotal.WithLabelValues("stt").Add(cost.STTCost)
	metrics.CostTotal.WithLabelValues("llm").Add(cost.LLMCost())
	metrics.CostTotal.WithLabelValues("tts").Add(cost.TTSCost)
}

func wantsPlayback(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "play audio") || strings.Contains(lower, "play sound")
}

// CannedResponder is the offline stand-in for a model call, used when no
// Responder is injected.
func CannedResponder(_ context.Context, text string, _ []Turn) (string, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hello"), strings.Contains(lower, "hi"):
		return "Hello! I'm your voice assistant. How can I help you today?", nil
	case strings.Contains(lower, "how are you"):
		return "I'm doing great, thank you for asking! I'm here and ready to help.", nil
	case strings.Contains(lower, "weather"):
		return "I don't have access to real-time weather data, but I'd recommend checking a weather service for the most accurate forecast.", nil
	case strings.Contains(lower, "help"):
		return "I can help with various tasks! You can ask me questions, have a conversation, or ask me to play audio by saying 'play sound'.", nil
	case strings.Contains(lower, "bye"), strings.Contains(lower, "goodbye"):
		return "Goodbye! It was nice talking with you. Have a great day!", nil
	}
	return fmt.Sprintf("I heard you say: %q. Connect a model backend for real responses.", text), nil
}
