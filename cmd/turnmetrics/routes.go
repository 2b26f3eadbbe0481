package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hubenschmidt/turnmetrics/internal/session"
)

type deps struct {
	registry  *session.Registry
	wsHandler http.Handler
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/talk", d.wsHandler)
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/metrics", d.handleAggregateMetrics)
	mux.HandleFunc("GET /api/sessions", d.handleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", d.handleSessionDetails)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d deps) handleAggregateMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, d.registry.AggregateMetrics())
}

func (d deps) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"active_sessions": d.registry.ActiveCount(),
		"sessions":        d.registry.ActiveIDs(),
	})
}

func (d deps) handleSessionDetails(w http.ResponseWriter, r *http.Request) {
	details, ok := d.registry.Details(r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, details)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
