package baseline

import (
	"fmt"
	"math"

	"github.com/banshee-data/structure.report/internal/vibration"
)

// Deviation report severities.
const (
	SeverityNormal   = "normal"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Per-metric deviation tolerances, in percent. SNR is directional: only a
// decline beyond its tolerance alerts.
const (
	FrequencyTolerance = 15.0
	DampingTolerance   = 30.0
	RMSTolerance       = 25.0
	SNRDeclineLimit    = 10.0

	// A breach this many percentage points beyond tolerance counts as severe.
	severeMargin = 20.0
	// Absolute deviation bounds for the severity bands.
	warningDeviation  = 20.0
	criticalDeviation = 40.0
)

// DeviationReport scores the live snapshot against a stored baseline. It is
// derived per cycle and never persisted.
type DeviationReport struct {
	Baseline     string             `json:"baseline"`
	Deviations   map[string]float64 `json:"deviations"`
	Severity     string             `json:"severity"`
	MaxDeviation float64            `json:"max_deviation"`
	Alerts       []string           `json:"alerts"`
}

// Compare loads the named baseline and reports the signed percent deviation
// of each tracked metric, the alert list, and an overall severity.
func (s *Store) Compare(current vibration.MetricsSnapshot, name string) (*DeviationReport, error) {
	ref, err := s.Load(name)
	if err != nil {
		return nil, err
	}

	base := ref.Snapshot
	report := &DeviationReport{
		Baseline:   name,
		Deviations: make(map[string]float64, 4),
		Alerts:     []string{},
	}

	freqDev := percentChange(base.FrequencyHz, current.FrequencyHz)
	dampDev := percentChange(base.DampingRatio, current.DampingRatio)
	rmsDev := percentChange(base.RMSDisplacement, current.RMSDisplacement)
	snrDev := percentChange(base.SNRdB, current.SNRdB)

	report.Deviations["frequency"] = freqDev
	report.Deviations["damping"] = dampDev
	report.Deviations["rms"] = rmsDev
	report.Deviations["snr"] = snrDev

	var severe int
	if math.Abs(freqDev) > FrequencyTolerance {
		report.Alerts = append(report.Alerts, fmt.Sprintf("Frequency shift: %+.1f%%", freqDev))
		if math.Abs(freqDev) > FrequencyTolerance+severeMargin {
			severe++
		}
	}
	if math.Abs(dampDev) > DampingTolerance {
		report.Alerts = append(report.Alerts, fmt.Sprintf("Damping change: %+.1f%%", dampDev))
		if math.Abs(dampDev) > DampingTolerance+severeMargin {
			severe++
		}
	}
	if math.Abs(rmsDev) > RMSTolerance {
		report.Alerts = append(report.Alerts, fmt.Sprintf("Amplitude change: %+.1f%%", rmsDev))
		if math.Abs(rmsDev) > RMSTolerance+severeMargin {
			severe++
		}
	}
	// SNR improvement is never penalized.
	if snrDev < -SNRDeclineLimit {
		report.Alerts = append(report.Alerts, "Signal quality degraded (SNR down)")
		if snrDev < -(SNRDeclineLimit + severeMargin) {
			severe++
		}
	}

	for _, dev := range report.Deviations {
		if math.Abs(dev) > report.MaxDeviation {
			report.MaxDeviation = math.Abs(dev)
		}
	}

	switch {
	case len(report.Alerts) > 2 || report.MaxDeviation > criticalDeviation:
		report.Severity = SeverityCritical
	case severe >= 1 || report.MaxDeviation > warningDeviation:
		report.Severity = SeverityWarning
	default:
		report.Severity = SeverityNormal
	}

	return report, nil
}

// percentChange returns the signed percent change from base to current.
// A zero base reports the raw difference instead of dividing by zero.
func percentChange(base, current float64) float64 {
	if base == 0 {
		return current - base
	}
	return 100 * (current - base) / math.Abs(base)
}
