package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_sessions_active",
		Help: "Currently active conversation sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_sessions_created_total",
		Help: "Total sessions created since startup",
	})

	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_turns_total",
		Help: "Conversation turns completed",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_stage_duration_seconds",
		Help:    "Per-stage latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0},
	}, []string{"stage"})

	E2EDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_e2e_duration_seconds",
		Help:    "End-to-end latency from speech start to first TTS audio",
		Buckets: []float64{0.1, 0.2, 0.5, 0.8, 1.0, 1.5, 2.0, 3.0, 5.0},
	})

	CostTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_cost_usd_total",
		Help: "Accumulated estimated spend by stage category",
	}, []string{"category"})
)
