package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/turnmetrics/internal/pipeline"
	"github.com/hubenschmidt/turnmetrics/internal/session"
	"github.com/hubenschmidt/turnmetrics/internal/track"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) pipeline.Event {
	t.Helper()
	var ev pipeline.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestTalkSessionLifecycle(t *testing.T) {
	reg := session.New(track.DefaultPricing)
	srv := httptest.NewServer(NewHandler(HandlerConfig{
		Registry: reg,
		Responder: func(context.Context, string, []pipeline.Turn) (string, error) {
			return "hi back", nil
		},
	}))
	defer srv.Close()

	conn := dial(t, srv)

	start := readEvent(t, conn)
	if start.Type != "session_start" || start.SessionID == "" {
		t.Fatalf("first event = %+v, want session_start with id", start)
	}
	if reg.ActiveCount() != 1 {
		t.Fatalf("active sessions = %d, want 1", reg.ActiveCount())
	}

	if err := conn.WriteJSON(map[string]string{"type": "text_input", "text": "hello"}); err != nil {
		t.Fatalf("write text_input: %v", err)
	}

	var sawTranscript, sawResponse bool
	for {
		ev := readEvent(t, conn)
		switch ev.Type {
		case "transcript":
			sawTranscript = true
		case "response":
			sawResponse = true
			if ev.Text != "hi back" {
				t.Fatalf("response text = %q", ev.Text)
			}
		case "turn_complete":
			if !sawTranscript || !sawResponse {
				t.Fatal("turn_complete arrived before transcript and response")
			}
			if ev.Cost == nil || ev.Latency == nil {
				t.Fatal("turn_complete missing snapshots")
			}
			if ev.Cost.Total <= 0 {
				t.Fatalf("turn cost total = %v, want > 0", ev.Cost.Total)
			}
			goto done
		}
	}
done:
	if err := conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		t.Fatalf("write stop: %v", err)
	}
	waitForActiveCount(t, reg, 0)
}

func TestDisconnectRemovesSession(t *testing.T) {
	reg := session.New(track.DefaultPricing)
	srv := httptest.NewServer(NewHandler(HandlerConfig{Registry: reg}))
	defer srv.Close()

	conn := dial(t, srv)
	readEvent(t, conn) // session_start
	conn.Close()
	waitForActiveCount(t, reg, 0)
}

func TestAtCapacityRejectsConnection(t *testing.T) {
	reg := session.New(track.DefaultPricing)
	srv := httptest.NewServer(NewHandler(HandlerConfig{Registry: reg, MaxConcurrent: 1}))
	defer srv.Close()

	conn := dial(t, srv)
	readEvent(t, conn) // session_start: first slot is held

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err == nil {
		t.Fatal("second dial succeeded past the concurrency limit")
	}
	if resp == nil || resp.StatusCode != 503 {
		t.Fatalf("second dial response = %+v, want 503", resp)
	}
}

func TestInvalidJSONIsIgnored(t *testing.T) {
	reg := session.New(track.DefaultPricing)
	srv := httptest.NewServer(NewHandler(HandlerConfig{Registry: reg}))
	defer srv.Close()

	conn := dial(t, srv)
	readEvent(t, conn) // session_start

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	// The session must survive the bad frame and keep serving.
	if err := conn.WriteJSON(map[string]string{"type": "text_input", "text": "hello"}); err != nil {
		t.Fatalf("write text_input: %v", err)
	}
	if ev := readEvent(t, conn); ev.Type != "transcript" {
		t.Fatalf("event after bad frame = %+v, want transcript", ev)
	}
}

func TestPlaybackEventReachesClient(t *testing.T) {
	reg := session.New(track.DefaultPricing)
	srv := httptest.NewServer(NewHandler(HandlerConfig{Registry: reg}))
	defer srv.Close()

	conn := dial(t, srv)
	readEvent(t, conn) // session_start

	if err := conn.WriteJSON(map[string]string{"type": "text_input", "text": "play sound"}); err != nil {
		t.Fatalf("write text_input: %v", err)
	}

	var sawPlay bool
	for {
		ev := readEvent(t, conn)
		if ev.Type == "play_audio" {
			sawPlay = true
			if ev.URL == "" {
				t.Fatal("play_audio event has no url")
			}
		}
		if ev.Type == "turn_complete" {
			break
		}
	}
	if !sawPlay {
		t.Fatal("no play_audio event before turn_complete")
	}
}

func waitForActiveCount(t *testing.T, reg *session.Registry, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reg.ActiveCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("active sessions = %d, want %d", reg.ActiveCount(), want)
}
