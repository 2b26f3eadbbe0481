package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// PlaybackFunc delivers an audio playback command to the client. The driver
// never knows which transport carries it.
type PlaybackFunc func(ctx context.Context, url string) error

// SampleAudioURLs are stock sounds the canned responder can trigger.
var SampleAudioURLs = map[string]string{
	"notification": "https://assets.mixkit.co/active_storage/sfx/2869/2869-preview.mp3",
	"success":      "https://assets.mixkit.co/active_storage/sfx/1435/1435-preview.mp3",
	"error":        "https://assets.mixkit.co/active_storage/sfx/2955/2955-preview.mp3",
}

// AudioPlaybackTool plays audio on the client through an injected callback.
type AudioPlaybackTool struct {
	playback PlaybackFunc
}

// NewAudioPlaybackTool wraps a playback callback; fn may be nil, in which
// case Play reports that no handler is configured.
func NewAudioPlaybackTool(fn PlaybackFunc) *AudioPlaybackTool {
	return &AudioPlaybackTool{playback: fn}
}

// Play triggers playback of url on the client.
func (t *AudioPlaybackTool) Play(ctx context.Context, url, description string) error {
	slog.Info("play_audio_tool_called", "audio_url", url, "description", description)
	if t.playback == nil {
		slog.Warn("play_audio_no_callback")
		return errors.New("no playback handler configured")
	}
	if err := t.playback(ctx, url); err != nil {
		slog.Error("play_audio_failed", "audio_url", url, "error", err)
		return fmt.Errorf("play audio: %w", err)
	}
	slog.Info("play_audio_success", "audio_url", url)
	return nil
}
