package main

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hubenschmidt/turnmetrics/internal/env"
	"github.com/hubenschmidt/turnmetrics/internal/track"
)

type config struct {
	port                  string
	maxConcurrentSessions int
	pricing               track.Pricing
}

// loadConfig reads env vars, layering pricing as defaults < PRICING_FILE
// (YAML) < individual env overrides.
func loadConfig() config {
	pricing := track.DefaultPricing

	if path := env.Str("PRICING_FILE", ""); path != "" {
		loaded, err := loadPricingFile(path, pricing)
		if err != nil {
			slog.Warn("pricing file ignored", "path", path, "error", err)
		} else {
			pricing = loaded
		}
	}

	pricing.STTPerMinute = env.Float("STT_COST_PER_MINUTE", pricing.STTPerMinute)
	pricing.LLMInputPerMTok = env.Float("LLM_INPUT_COST_PER_MTOK", pricing.LLMInputPerMTok)
	pricing.LLMOutputPerMTok = env.Float("LLM_OUTPUT_COST_PER_MTOK", pricing.LLMOutputPerMTok)
	pricing.TTSPer1KChars = env.Float("TTS_COST_PER_1K_CHARS", pricing.TTSPer1KChars)

	return config{
		port:                  env.Str("PORT", "8000"),
		maxConcurrentSessions: env.Int("MAX_CONCURRENT_SESSIONS", 100),
		pricing:               pricing,
	}
}

func loadPricingFile(path string, base track.Pricing) (track.Pricing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	pricing := base
	if err = yaml.Unmarshal(data, &pricing); err != nil {
		return base, err
	}
	return pricing, nil
}
