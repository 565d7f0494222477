package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VoiceCommandsTotal counts dispatched intents by action and outcome (ok, rejected, failed).
	VoiceCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocalkart_voice_commands_total",
		Help: "Voice commands dispatched, by action and status",
	}, []string{"action", "status"})

	VoiceTurnSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vocalkart_voice_turn_seconds",
		Help:    "Time from stop of recording to end of narration",
		Buckets: prometheus.DefBuckets,
	})

	// DetectorFallbacksTotal counts turns where the rule matcher replaced the language model.
	DetectorFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocalkart_detector_fallbacks_total",
		Help: "Intent detections served by the rule-based fallback",
	}, []string{"reason"})

	SharePublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocalkart_share_publish_total",
		Help: "Share publish attempts, by destination and status",
	}, []string{"destination", "status"})

	CaptureRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocalkart_capture_rejections_total",
		Help: "Toggle or capture requests rejected, by reason",
	}, []string{"reason"})

	VoiceSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vocalkart_voice_sessions_active",
		Help: "Open voice websocket sessions",
	})
)
