package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the analysis pipeline. Registered on the default
// registry; the API server exposes them on /metrics.
var (
	// AnalysisCycles counts completed analysis cycles by outcome ("ok" or "error").
	AnalysisCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "structure_analysis_cycles_total",
		Help: "Analysis cycles run, labelled by outcome.",
	}, []string{"outcome"})

	// EventsDetected counts detected events by kind (impact, resonance, anomaly).
	EventsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "structure_events_detected_total",
		Help: "Detected structural events by kind.",
	}, []string{"kind"})

	// CrackLikelihood tracks the most recent crack likelihood estimate.
	CrackLikelihood = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "structure_crack_likelihood",
		Help: "Crack likelihood from the latest damage assessment (0-1).",
	})

	// OverallConfidence tracks the most recent overall measurement confidence.
	OverallConfidence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "structure_overall_confidence",
		Help: "Overall measurement confidence from the latest cycle (0-1).",
	})

	// DominantFrequency tracks the most recent dominant frequency estimate.
	DominantFrequency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "structure_dominant_frequency_hz",
		Help: "Dominant vibration frequency from the latest cycle.",
	})
)
