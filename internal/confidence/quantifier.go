// Package confidence scores the reliability of each vibration metric from
// SNR, historical stability, and tracking robustness, and produces
// uncertainty intervals with a quality classification.
package confidence

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/structure.report/internal/vibration"
)

// Quality classifications.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// Bounds is a 95% confidence interval for one metric.
type Bounds struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Margin float64 `json:"margin"`
}

// Assessment is the per-cycle confidence output.
type Assessment struct {
	OverallConfidence   float64           `json:"overall_confidence"`
	FrequencyConfidence float64           `json:"frequency_confidence"`
	DampingConfidence   float64           `json:"damping_confidence"`
	RMSConfidence       float64           `json:"rms_confidence"`
	TrackingConfidence  float64           `json:"tracking_confidence"`
	StationarityScore   float64           `json:"stationarity_score"`
	QualityScore        string            `json:"quality_score"`
	Warnings            []string          `json:"warnings"`
	UncertaintyBounds   map[string]Bounds `json:"uncertainty_bounds"`
}

// Config holds the quantifier's tunables.
type Config struct {
	// HistoryLength bounds the rolling per-metric history.
	HistoryLength int
	// DampingValidLow/High is the physically plausible damping range;
	// estimates outside it are penalized.
	DampingValidLow  float64
	DampingValidHigh float64
	// RobustFeatures is the tracked-feature count for near-maximal
	// tracking confidence.
	RobustFeatures int
	// StableCV is the coefficient of variation under which historical
	// stability contributes near-maximal confidence.
	StableCV float64
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		HistoryLength:    300,
		DampingValidLow:  0.01,
		DampingValidHigh: 0.1,
		RobustFeatures:   100,
		StableCV:         0.02,
	}
}

// Quantifier owns rolling histories of recent metric values, used only
// internally for stability computation.
type Quantifier struct {
	cfg Config

	mu          sync.Mutex
	freqHistory *metricRing
	dampHistory *metricRing
	rmsHistory  *metricRing
}

// NewQuantifier creates a quantifier with the given configuration.
func NewQuantifier(cfg Config) *Quantifier {
	return &Quantifier{
		cfg:         cfg,
		freqHistory: newMetricRing(cfg.HistoryLength),
		dampHistory: newMetricRing(cfg.HistoryLength),
		rmsHistory:  newMetricRing(cfg.HistoryLength),
	}
}

// UpdateHistory appends the latest metric values to the rolling buffers,
// evicting the oldest entries once capacity is reached.
func (q *Quantifier) UpdateHistory(m vibration.MetricsSnapshot) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.freqHistory.add(m.FrequencyHz)
	q.dampHistory.add(m.DampingRatio)
	q.rmsHistory.add(m.RMSDisplacement)
}

// Estimate scores the reliability of the snapshot's metrics. signal may be
// empty and trackedFeatures zero; missing inputs degrade to neutral scores
// rather than failing.
func (q *Quantifier) Estimate(m vibration.MetricsSnapshot, signal []float64, trackedFeatures int) Assessment {
	var warnings []string

	freqConf, warn := q.frequencyConfidence(m)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	dampConf, warn := q.dampingConfidence(m)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	rmsConf, warn := q.rmsConfidence(m)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	trackConf, warn := q.trackingConfidence(trackedFeatures)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	statScore, warn := stationarityScore(signal)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	overall := (freqConf + dampConf + rmsConf + trackConf + statScore) / 5
	if warnings == nil {
		warnings = []string{}
	}

	return Assessment{
		OverallConfidence:   overall,
		FrequencyConfidence: freqConf,
		DampingConfidence:   dampConf,
		RMSConfidence:       rmsConf,
		TrackingConfidence:  trackConf,
		StationarityScore:   statScore,
		QualityScore:        qualityScore(overall, len(warnings)),
		Warnings:            warnings,
		UncertaintyBounds:   q.uncertaintyBounds(m),
	}
}

// snrFactor converts SNR in dB to a dimensionless attenuation factor used to
// scale confidence-interval half-widths.
func snrFactor(snrDB float64) float64 {
	return math.Max(0.05, math.Pow(10, -snrDB/20))
}

// uncertaintyBounds estimates 95% confidence intervals for the key metrics.
// Margins scale with the SNR attenuation factor.
func (q *Quantifier) uncertaintyBounds(m vibration.MetricsSnapshot) map[string]Bounds {
	factor := snrFactor(m.SNRdB)

	freqMargin := factor * 0.1 * m.FrequencyHz
	dampMargin := factor * 0.2 * m.DampingRatio
	rmsMargin := factor * 0.15 * m.RMSDisplacement

	return map[string]Bounds{
		"frequency": {
			Lower:  math.Max(0, m.FrequencyHz-freqMargin),
			Upper:  m.FrequencyHz + freqMargin,
			Margin: freqMargin,
		},
		"damping": {
			Lower:  math.Max(0, m.DampingRatio-dampMargin),
			Upper:  math.Min(1, m.DampingRatio+dampMargin),
			Margin: dampMargin,
		},
		"rms": {
			Lower:  math.Max(0, m.RMSDisplacement-rmsMargin),
			Upper:  m.RMSDisplacement + rmsMargin,
			Margin: rmsMargin,
		},
	}
}

// frequencyConfidence blends a continuous SNR term with historical
// stability of the frequency estimate.
func (q *Quantifier) frequencyConfidence(m vibration.MetricsSnapshot) (float64, string) {
	snrConf := clampRange(0.3+0.65*m.SNRdB/20, 0.3, 0.95)
	warn := ""
	if m.SNRdB < 5 {
		warn = "Low SNR reduces frequency accuracy"
	}

	histConf := 0.7
	q.mu.Lock()
	cv, ok := q.freqHistory.cv()
	q.mu.Unlock()
	if ok {
		switch {
		case cv < q.cfg.StableCV:
			histConf = 0.95
		case cv < 0.05:
			histConf = 0.85
		case cv < 0.10:
			histConf = 0.70
			if warn == "" {
				warn = "Frequency oscillating (poor stability)"
			}
		default:
			histConf = 0.50
			if warn == "" {
				warn = "Frequency highly unstable"
			}
		}
	}
	return (snrConf + histConf) / 2, warn
}

// dampingConfidence starts from value validity (damping is hard to estimate
// outside its physical range) and applies SNR and stability penalties.
func (q *Quantifier) dampingConfidence(m vibration.MetricsSnapshot) (float64, string) {
	var conf float64
	warn := ""
	switch {
	case m.DampingRatio <= 0:
		conf = 0.2
		warn = "Damping estimation failed (non-positive)"
	case m.DampingRatio < q.cfg.DampingValidLow:
		conf = 0.5
		warn = "Damping very low (may be unreliable)"
	case m.DampingRatio <= q.cfg.DampingValidHigh:
		conf = 0.85
	case m.DampingRatio < 0.3:
		conf = 0.7
		warn = "Damping above the expected physical range"
	default:
		conf = 0.55
		warn = "Damping high (estimate may be unstable)"
	}

	// SNR penalty, saturating at 10 dB.
	conf *= clampRange(0.8+0.02*m.SNRdB, 0.8, 1.0)

	q.mu.Lock()
	cv, ok := q.dampHistory.cv()
	q.mu.Unlock()
	if ok && cv > 0.5 {
		conf *= 0.7
		if warn == "" {
			warn = "Damping highly variable (poor stability)"
		}
	}
	return clampRange(conf, 0, 1), warn
}

// rmsConfidence is SNR-dominated; RMS is the most robust of the metrics.
func (q *Quantifier) rmsConfidence(m vibration.MetricsSnapshot) (float64, string) {
	conf := clampRange(0.4+0.55*m.SNRdB/15, 0.4, 0.95)
	warn := ""
	if m.SNRdB < 3 {
		warn = "Very low SNR"
	}

	q.mu.Lock()
	cv, ok := q.rmsHistory.cv()
	q.mu.Unlock()
	if ok && cv > 0.3 {
		conf *= 0.8
		if warn == "" {
			warn = "RMS oscillating"
		}
	}
	return clampRange(conf, 0, 1), warn
}

// trackingConfidence grows monotonically with the number of tracked visual
// features; above RobustFeatures it is near-maximal.
func (q *Quantifier) trackingConfidence(features int) (float64, string) {
	switch {
	case features >= q.cfg.RobustFeatures:
		return 0.95, ""
	case features >= q.cfg.RobustFeatures/2:
		return 0.85, ""
	case features >= q.cfg.RobustFeatures/5:
		return 0.65, ""
	default:
		return 0.4, fmt.Sprintf("Only %d features tracked (low robustness)", features)
	}
}

// stationarityScore compares means and deviations across signal quarters.
func stationarityScore(signal []float64) (float64, string) {
	if len(signal) < 20 {
		return 0.7, ""
	}

	n := len(signal)
	quarters := [][]float64{
		signal[:n/4], signal[n/4 : n/2], signal[n/2 : 3*n/4], signal[3*n/4:],
	}

	means := make([]float64, 4)
	stds := make([]float64, 4)
	for i, qr := range quarters {
		means[i], stds[i] = stat.MeanStdDev(qr, nil)
	}

	absMeans := make([]float64, 4)
	for i, v := range means {
		absMeans[i] = math.Abs(v)
	}
	_, meanStd := stat.MeanStdDev(means, nil)
	meanCV := meanStd / (stat.Mean(absMeans, nil) + 1e-9)
	stdMean, stdStd := stat.MeanStdDev(stds, nil)
	stdCV := stdStd / (stdMean + 1e-9)
	combined := (meanCV + stdCV) / 2

	switch {
	case combined < 0.10:
		return 0.95, ""
	case combined < 0.20:
		return 0.85, ""
	case combined < 0.35:
		return 0.70, "Signal moderately non-stationary"
	default:
		return 0.50, "Signal highly non-stationary (low confidence)"
	}
}

// qualityScore classifies overall measurement quality from the aggregate
// confidence and the number of generated warnings.
func qualityScore(overall float64, warnings int) string {
	switch {
	case overall > 0.90 && warnings == 0:
		return QualityExcellent
	case overall > 0.75 && warnings <= 1:
		return QualityGood
	case overall > 0.60 && warnings <= 2:
		return QualityFair
	default:
		return QualityPoor
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
