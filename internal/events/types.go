// Package events flags impacts, resonance excitation, and statistical
// anomalies in the buffered displacement signal and keeps a bounded,
// timestamped event log.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the detector that produced an event.
type Kind string

const (
	KindImpact    Kind = "impact"
	KindResonance Kind = "resonance"
	KindAnomaly   Kind = "anomaly"
)

// Subtype refines anomaly events.
type Subtype string

const (
	SubtypeNone            Subtype = ""
	SubtypeOutlier         Subtype = "outlier"
	SubtypeBurst           Subtype = "burst"
	SubtypeTrend           Subtype = "trend"
	SubtypeMaterialScatter Subtype = "material_scatter"
)

// Severity grades an event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event is one detected occurrence. Events are immutable once created.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Subtype   Subtype   `json:"subtype,omitempty"`
	Magnitude float64   `json:"magnitude"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`

	// RiseTimeSec is set for impact events: seconds from signal onset to peak.
	RiseTimeSec float64 `json:"rise_time_sec,omitempty"`

	// FrequencyHz and QFactor are set for resonance events.
	FrequencyHz float64 `json:"frequency_hz,omitempty"`
	QFactor     float64 `json:"q_factor,omitempty"`
}

func newEvent(kind Kind, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: now,
	}
}

// Summary aggregates the event history over a lookback window.
type Summary struct {
	TotalEvents    int    `json:"total_events"`
	RecentEvents   int    `json:"recent_events"`
	HighSeverity   int    `json:"high_severity"`
	MediumSeverity int    `json:"medium_severity"`
	LowSeverity    int    `json:"low_severity"`
	LatestEvent    *Event `json:"latest_event,omitempty"`
}
