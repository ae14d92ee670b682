// Package damage fuses spectral metrics, baseline deviation, and raw-signal
// statistics into a probabilistic damage likelihood and categorical damage
// type.
package damage

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/structure.report/internal/vibration"
)

// DamageType classifies the hypothesized damage pattern.
type DamageType string

const (
	TypeNone         DamageType = "none"
	TypeSurfaceCrack DamageType = "surface_crack"
	TypeDeepCrack    DamageType = "deep_crack"
	TypeFracture     DamageType = "fracture"
	TypeUnknown      DamageType = "unknown"
)

// WarningLevel grades the urgency of an assessment.
type WarningLevel string

const (
	WarnNone     WarningLevel = "none"
	WarnCaution  WarningLevel = "caution"
	WarnAlert    WarningLevel = "alert"
	WarnCritical WarningLevel = "critical"
)

// Indicator names, used as keys of Assessment.Indicators.
const (
	IndFrequencyShift  = "frequency_shift"
	IndDampingIncrease = "damping_increase"
	IndBroadening      = "spectral_broadening"
	IndSignalQuality   = "signal_degradation"
	IndMaterialScatter = "material_scatter"
	IndHighFrequency   = "high_frequency_content"
)

// Indicator is one scored damage signature.
type Indicator struct {
	Score         float64 `json:"score"`
	PercentChange float64 `json:"percent_change"`
	Detail        string  `json:"detail"`
}

// Assessment is the per-cycle damage hypothesis. It is stateless output;
// callers may log it but the engine never persists it.
type Assessment struct {
	CrackLikelihood float64              `json:"crack_likelihood"`
	DamageIndicator float64              `json:"damage_indicator"`
	DamageType      DamageType           `json:"damage_type"`
	WarningLevel    WarningLevel         `json:"warning_level"`
	Indicators      map[string]Indicator `json:"indicators"`
	Recommendations []string             `json:"recommendations"`
}

// Config holds the indicator bands and classification cutoffs. Bands are
// linear ramps: the score is 0 below the low bound and 1 at or above the
// high bound.
type Config struct {
	// FreqDropLow/High band the frequency drop percent (stiffness loss).
	FreqDropLow  float64
	FreqDropHigh float64
	// DampRiseLow/High band the damping increase percent.
	DampRiseLow  float64
	DampRiseHigh float64
	// BroadeningLow/High band the dominant-peak Q-factor drop percent.
	BroadeningLow  float64
	BroadeningHigh float64
	// SNRDropLow/High band the SNR decline in dB.
	SNRDropLow  float64
	SNRDropHigh float64
	// ScatterCVLow/High band the quarter-variance coefficient of variation.
	ScatterCVLow  float64
	ScatterCVHigh float64
	// HighFreqCutoffHz separates the high-frequency band of the spectrum.
	HighFreqCutoffHz float64
	// HFRatioLow/High band the high-frequency energy ratio over the
	// engine's own historical floor.
	HFRatioLow  float64
	HFRatioHigh float64
	// HFHistory bounds the rolling high-frequency energy history.
	HFHistory int

	// Classification cutoffs, in fixed precedence order.
	SevereCutoff   float64
	ModerateCutoff float64
	LowerCutoff    float64
	ElevatedCutoff float64

	// Warning-level likelihood bands.
	CautionLikelihood  float64
	AlertLikelihood    float64
	CriticalLikelihood float64

	// Weights combine the six indicator scores into damage_indicator, in
	// the order frequency, damping, broadening, snr, scatter, high-freq.
	Weights [6]float64
}

// DefaultConfig returns the production indicator bands.
func DefaultConfig() Config {
	return Config{
		FreqDropLow:      5,
		FreqDropHigh:     20,
		DampRiseLow:      20,
		DampRiseHigh:     60,
		BroadeningLow:    10,
		BroadeningHigh:   50,
		SNRDropLow:       3,
		SNRDropHigh:      15,
		ScatterCVLow:     0.15,
		ScatterCVHigh:    0.60,
		HighFreqCutoffHz: 10,
		HFRatioLow:       1.5,
		HFRatioHigh:      4.0,
		HFHistory:        50,

		SevereCutoff:   0.6,
		ModerateCutoff: 0.45,
		LowerCutoff:    0.3,
		ElevatedCutoff: 0.5,

		CautionLikelihood:  0.2,
		AlertLikelihood:    0.4,
		CriticalLikelihood: 0.65,

		// Equal weighting: no indicator has documented priority over the
		// others, so each contributes one sixth.
		Weights: [6]float64{1, 1, 1, 1, 1, 1},
	}
}

// Engine scores the six damage indicators. It owns a rolling history of
// high-frequency energy used as the floor for the sixth indicator.
type Engine struct {
	cfg Config

	mu        sync.Mutex
	hfHistory []float64
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Assess runs all six indicator checks and fuses them into an assessment.
// baseline may be nil and signal may be empty: missing inputs contribute a
// neutral score with an explanatory detail instead of failing, so an
// assessment is always producible from a valid snapshot.
func (e *Engine) Assess(current vibration.MetricsSnapshot, baseline *vibration.MetricsSnapshot,
	signal []float64, spectrum vibration.Spectrum) Assessment {

	indicators := map[string]Indicator{
		IndFrequencyShift:  e.checkFrequencyShift(current, baseline),
		IndDampingIncrease: e.checkDampingIncrease(current, baseline),
		IndBroadening:      e.checkBroadening(current, baseline),
		IndSignalQuality:   e.checkSignalQuality(current, baseline),
		IndMaterialScatter: e.checkMaterialScatter(signal),
		IndHighFrequency:   e.checkHighFrequency(spectrum),
	}

	weighted := 0.0
	weightSum := 0.0
	for i, name := range []string{
		IndFrequencyShift, IndDampingIncrease, IndBroadening,
		IndSignalQuality, IndMaterialScatter, IndHighFrequency,
	} {
		weighted += e.cfg.Weights[i] * indicators[name].Score
		weightSum += e.cfg.Weights[i]
	}
	damageIndicator := 0.0
	if weightSum > 0 {
		damageIndicator = weighted / weightSum
	}
	likelihood := clamp01(damageIndicator)

	damageType := e.classify(indicators)
	warning := e.warningLevel(likelihood, damageType)

	return Assessment{
		CrackLikelihood: likelihood,
		DamageIndicator: damageIndicator,
		DamageType:      damageType,
		WarningLevel:    warning,
		Indicators:      indicators,
		Recommendations: recommendations(damageType, warning),
	}
}

// checkFrequencyShift scores stiffness loss: the score ramps up as the
// measured frequency drop grows through the configured band.
func (e *Engine) checkFrequencyShift(current vibration.MetricsSnapshot, baseline *vibration.MetricsSnapshot) Indicator {
	if baseline == nil {
		return Indicator{Detail: "no baseline reference"}
	}
	if baseline.FrequencyHz == 0 {
		return Indicator{Detail: "baseline frequency is zero"}
	}

	pct := 100 * (current.FrequencyHz - baseline.FrequencyHz) / baseline.FrequencyHz
	drop := -pct
	return Indicator{
		Score:         ramp(drop, e.cfg.FreqDropLow, e.cfg.FreqDropHigh),
		PercentChange: pct,
		Detail: fmt.Sprintf("frequency %.2f -> %.2f Hz (%+.1f%%)",
			baseline.FrequencyHz, current.FrequencyHz, pct),
	}
}

// checkDampingIncrease scores energy dissipation from micro-cracking.
func (e *Engine) checkDampingIncrease(current vibration.MetricsSnapshot, baseline *vibration.MetricsSnapshot) Indicator {
	if baseline == nil {
		return Indicator{Detail: "no baseline reference"}
	}
	if baseline.DampingRatio == 0 {
		return Indicator{Detail: "baseline damping is zero"}
	}

	pct := 100 * (current.DampingRatio - baseline.DampingRatio) / math.Abs(baseline.DampingRatio)
	return Indicator{
		Score:         ramp(pct, e.cfg.DampRiseLow, e.cfg.DampRiseHigh),
		PercentChange: pct,
		Detail: fmt.Sprintf("damping %.4f -> %.4f (%+.1f%%)",
			baseline.DampingRatio, current.DampingRatio, pct),
	}
}

// checkBroadening scores loss of coherence: the dominant peak's Q factor
// dropping against baseline means the peak is broadening.
func (e *Engine) checkBroadening(current vibration.MetricsSnapshot, baseline *vibration.MetricsSnapshot) Indicator {
	if baseline == nil {
		return Indicator{Detail: "no baseline reference"}
	}
	baseQ := meanTopQ(baseline.SpectralPeaks)
	curQ := meanTopQ(current.SpectralPeaks)
	if baseQ <= 0 || curQ <= 0 {
		return Indicator{Detail: "missing spectral peak data"}
	}

	dropPct := 100 * (baseQ - curQ) / baseQ
	return Indicator{
		Score:         ramp(dropPct, e.cfg.BroadeningLow, e.cfg.BroadeningHigh),
		PercentChange: -dropPct,
		Detail:        fmt.Sprintf("peak Q-factor %.1f -> %.1f", baseQ, curQ),
	}
}

// checkSignalQuality scores SNR decline against baseline.
func (e *Engine) checkSignalQuality(current vibration.MetricsSnapshot, baseline *vibration.MetricsSnapshot) Indicator {
	if baseline == nil {
		return Indicator{Detail: "no baseline reference"}
	}

	drop := baseline.SNRdB - current.SNRdB
	pct := 0.0
	if baseline.SNRdB != 0 {
		pct = -100 * drop / math.Abs(baseline.SNRdB)
	}
	return Indicator{
		Score:         ramp(drop, e.cfg.SNRDropLow, e.cfg.SNRDropHigh),
		PercentChange: pct,
		Detail:        fmt.Sprintf("SNR %.1f -> %.1f dB", baseline.SNRdB, current.SNRdB),
	}
}

// checkMaterialScatter scores non-stationarity from the raw signal alone:
// cracks scatter energy, so variance drifts across the window quarters.
func (e *Engine) checkMaterialScatter(signal []float64) Indicator {
	if len(signal) < 20 {
		return Indicator{Detail: "signal too short"}
	}

	cv := vibration.QuarterVarianceCV(signal)
	return Indicator{
		Score:         ramp(cv, e.cfg.ScatterCVLow, e.cfg.ScatterCVHigh),
		PercentChange: 100 * cv,
		Detail:        fmt.Sprintf("signal non-stationarity: CV=%.3f", cv),
	}
}

// checkHighFrequency scores elevated spectral magnitude above the cutoff
// relative to the signal's own historical high-frequency floor.
func (e *Engine) checkHighFrequency(spectrum vibration.Spectrum) Indicator {
	energy, ok := highFreqEnergy(spectrum, e.cfg.HighFreqCutoffHz)
	if !ok {
		return Indicator{Detail: "no spectrum above cutoff"}
	}

	e.mu.Lock()
	var floor float64
	enough := len(e.hfHistory) >= 5
	if enough {
		floor = stat.Mean(e.hfHistory, nil)
	}
	e.hfHistory = append(e.hfHistory, energy)
	if len(e.hfHistory) > e.cfg.HFHistory {
		e.hfHistory = e.hfHistory[1:]
	}
	e.mu.Unlock()

	if !enough || floor <= 0 {
		return Indicator{Detail: "building high-frequency history"}
	}

	ratio := energy / floor
	return Indicator{
		Score:         ramp(ratio, e.cfg.HFRatioLow, e.cfg.HFRatioHigh),
		PercentChange: 100 * (ratio - 1),
		Detail:        fmt.Sprintf("high-frequency energy %.2fx historical floor", ratio),
	}
}

// highFreqEnergy returns the mean FFT magnitude above the cutoff.
func highFreqEnergy(spectrum vibration.Spectrum, cutoffHz float64) (float64, bool) {
	var sum float64
	var n int
	for i, f := range spectrum.FFTFrequencies {
		if f >= cutoffHz && i < len(spectrum.FFTMagnitudes) {
			sum += spectrum.FFTMagnitudes[i]
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// meanTopQ averages the Q factors of the three strongest peaks.
func meanTopQ(peaks []vibration.SpectralPeak) float64 {
	if len(peaks) == 0 {
		return 0
	}
	n := len(peaks)
	if n > 3 {
		n = 3
	}
	var sum float64
	for _, p := range peaks[:n] {
		sum += p.QFactor
	}
	return sum / float64(n)
}

// ramp maps v linearly from [low, high] onto [0, 1], clamped.
func ramp(v, low, high float64) float64 {
	if high <= low {
		if v >= high {
			return 1
		}
		return 0
	}
	return clamp01((v - low) / (high - low))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
