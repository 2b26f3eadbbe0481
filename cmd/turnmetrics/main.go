package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hubenschmidt/turnmetrics/internal/session"
	"github.com/hubenschmidt/turnmetrics/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	registry := session.New(cfg.pricing)

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		Registry:      registry,
		MaxConcurrent: cfg.maxConcurrentSessions,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		registry:  registry,
		wsHandler: wsHandler,
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig, "active_sessions", registry.ActiveCount())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("turnmetrics starting",
		"addr", addr,
		"max_concurrent", cfg.maxConcurrentSessions,
		"stt_per_minute", cfg.pricing.STTPerMinute,
		"llm_input_per_mtok", cfg.pricing.LLMInputPerMTok,
		"llm_output_per_mtok", cfg.pricing.LLMOutputPerMTok,
		"tts_per_1k_chars", cfg.pricing.TTSPer1KChars)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("turnmetrics stopped")
}
