package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/turnmetrics/internal/pipeline"
	"github.com/hubenschmidt/turnmetrics/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared collaborators for all conversation sessions.
type HandlerConfig struct {
	Registry      *session.Registry
	Responder     pipeline.Responder
	MaxConcurrent int
}

// Handler manages WebSocket conversation sessions with admission control.
// Each connection gets one registry session, removed when the connection
// closes.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a WebSocket handler with a concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// controlMessage is a JSON text frame from the client.
type controlMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ServeHTTP upgrades the connection and runs the conversation session.
// Returns 503 at max concurrent session capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.runSession(r.Context(), conn)
}

func (h *Handler) runSession(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := h.cfg.Registry.Create("", nil)
	defer func() {
		h.cfg.Registry.Remove(sess.ID)
		slog.Info("session_cleanup_complete", "session_id", sess.ID)
	}()

	slog.Info("websocket_connected", "session_id", sess.ID)

	send := newEventSender(conn)
	drv := pipeline.New(pipeline.Config{
		Session:   sess,
		Responder: h.cfg.Responder,
		Playback: func(ctx context.Context, url string) error {
			return send(pipeline.Event{Type: "play_audio", URL: url})
		},
	})

	send(pipeline.Event{Type: "session_start", SessionID: sess.ID})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("websocket_disconnected", "session_id", sess.ID, "error", err)
			return
		}

		if msgType == websocket.BinaryMessage {
			// Raw audio frames are accepted but not transcribed here; a
			// provider adapter feeds the trackers on the audio path.
			continue
		}

		var msg controlMessage
		if err = json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid_json_message", "session_id", sess.ID)
			continue
		}

		switch msg.Type {
		case "text_input":
			if err = drv.ProcessText(ctx, msg.Text, func(ev pipeline.Event) { send(ev) }); err != nil {
				slog.Error("process text", "session_id", sess.ID, "error", err)
				send(pipeline.Event{Type: "error", Message: err.Error()})
			}
		case "stop":
			slog.Info("client_requested_stop", "session_id", sess.ID)
			return
		case "cancel":
			slog.Info("client_cancelled_turn", "session_id", sess.ID)
		}
	}
}

func newEventSender(conn *websocket.Conn) func(pipeline.Event) error {
	var mu sync.Mutex
	return func(ev pipeline.Event) error {
		mu.Lock()
		defer mu.Unlock()

		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if err = conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Error("write event", "error", err)
			return err
		}
		return nil
	}
}
