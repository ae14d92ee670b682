package events

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/structure.report/internal/vibration"
)

// Config holds the tunable detection thresholds.
type Config struct {
	// SampleRate is the displacement sampling rate in Hz.
	SampleRate float64
	// DetectionWindow is the number of samples examined per pass.
	DetectionWindow int

	// ImpactSigma is the peak threshold in standard deviations of the
	// window's baseline statistics (computed with the peak region excluded).
	ImpactSigma float64
	// MediumSigma and HighSigma band the impact severity.
	MediumSigma float64
	HighSigma   float64
	// PeakMargin is the number of samples around a candidate peak excluded
	// from the baseline statistics.
	PeakMargin int
	// MaxRiseFraction bounds impact rise time as a fraction of the window.
	MaxRiseFraction float64

	// ResonanceQMin is the minimum peak sharpness to flag resonance.
	ResonanceQMin float64
	// ResonanceStepRatio is the step-change factor over the detector's
	// short-term PSD history required to flag resonance.
	ResonanceStepRatio float64
	// PSDHistory is the length of the dominant-peak magnitude history.
	PSDHistory int

	// OutlierSigma and OutlierFraction gate the outlier anomaly.
	OutlierSigma    float64
	OutlierFraction float64
	// BurstWindowSec and BurstRatio gate the burst anomaly.
	BurstWindowSec float64
	BurstRatio     float64
	// TrendSigma is the drift-over-window threshold in units of the window's
	// standard deviation, measured on a robust (Theil-Sen) fit.
	TrendSigma float64
	// ScatterCV is the quarter-variance coefficient-of-variation threshold
	// for the material scatter anomaly.
	ScatterCV float64

	// HistorySize bounds the event log.
	HistorySize int
}

// DefaultConfig returns the production detection thresholds.
func DefaultConfig() Config {
	return Config{
		SampleRate:         30.0,
		DetectionWindow:    150,
		ImpactSigma:        3.5,
		MediumSigma:        2.5,
		HighSigma:          5.0,
		PeakMargin:         5,
		MaxRiseFraction:    0.1,
		ResonanceQMin:      3.0,
		ResonanceStepRatio: 2.0,
		PSDHistory:         10,
		OutlierSigma:       3.5,
		OutlierFraction:    0.05,
		BurstWindowSec:     0.5,
		BurstRatio:         2.5,
		TrendSigma:         2.0,
		ScatterCV:          0.6,
		HistorySize:        512,
	}
}

// BaselineStats carries precomputed noise statistics for anomaly detection.
// Zero-valued fields are filled in from the signal window.
type BaselineStats struct {
	Mean float64
	Std  float64
	RMS  float64
}

// Detector owns the event history and the short-term PSD history used for
// resonance step-change detection.
type Detector struct {
	cfg Config

	mu      sync.Mutex
	history *eventRing

	// Recent dominant-peak PSD magnitudes, oldest evicted first.
	psdHistory []float64
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:     cfg,
		history: newEventRing(cfg.HistorySize),
	}
}

// DetectImpact scans the window for a sharp transient. A candidate peak is an
// impact when it exceeds ImpactSigma standard deviations of the window's
// baseline statistics and rises from the noise floor quickly relative to the
// window. The detection, if any, is appended to the event history.
func (d *Detector) DetectImpact(window []float64, now time.Time) *Event {
	if len(window) < 10 {
		return nil
	}

	abs := make([]float64, len(window))
	for i, v := range window {
		abs[i] = math.Abs(v)
	}

	peakIdx := 0
	for i, v := range abs {
		if v > abs[peakIdx] {
			peakIdx = i
		}
	}
	peakMag := abs[peakIdx]

	mean, std := marginExcludedStats(abs, peakIdx, d.cfg.PeakMargin)
	if std <= 0 {
		return nil
	}

	excess := (peakMag - mean) / std
	if excess < d.cfg.ImpactSigma {
		return nil
	}

	// Onset: last sample before the peak still inside the noise floor.
	noiseFloor := mean + std
	onset := 0
	for i := peakIdx - 1; i >= 0; i-- {
		if abs[i] <= noiseFloor {
			onset = i
			break
		}
	}
	riseSamples := peakIdx - onset
	if float64(riseSamples) > d.cfg.MaxRiseFraction*float64(len(window)) {
		return nil
	}

	e := newEvent(KindImpact, now)
	e.Magnitude = peakMag
	e.RiseTimeSec = float64(riseSamples) / d.cfg.SampleRate
	e.Severity = d.impactSeverity(excess)
	e.Detail = fmt.Sprintf("peak %.3f at %.1f sigma, rise %.0f ms",
		peakMag, excess, 1000*e.RiseTimeSec)

	d.append(e)
	return &e
}

func (d *Detector) impactSeverity(excess float64) Severity {
	switch {
	case excess > d.cfg.HighSigma:
		return SeverityHigh
	case excess > d.cfg.MediumSigma:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// marginExcludedStats computes mean and standard deviation of the window
// with samples inside the margin around the candidate peak excluded.
func marginExcludedStats(abs []float64, peakIdx, margin int) (mean, std float64) {
	background := make([]float64, 0, len(abs))
	for i, v := range abs {
		if i >= peakIdx-margin && i <= peakIdx+margin {
			continue
		}
		background = append(background, v)
	}
	if len(background) < 2 {
		return 0, 0
	}
	mean, std = stat.MeanStdDev(background, nil)
	return mean, std
}

// DetectResonance flags a narrow-band energy surge: the dominant PSD peak's
// Q factor exceeds the sharpness threshold and its magnitude is a step-change
// increase over the detector's short-term history of dominant-peak power.
func (d *Detector) DetectResonance(freqs, psd []float64, now time.Time) *Event {
	if len(freqs) < 5 || len(psd) < 5 {
		return nil
	}

	peaks := vibration.ExtractSpectralPeaks(freqs, psd, 1)
	if len(peaks) == 0 {
		return nil
	}
	peak := peaks[0]

	d.mu.Lock()
	historyMean := 0.0
	if len(d.psdHistory) > 0 {
		historyMean = stat.Mean(d.psdHistory, nil)
	}
	enough := len(d.psdHistory) >= 3
	d.psdHistory = append(d.psdHistory, peak.Magnitude)
	if len(d.psdHistory) > d.cfg.PSDHistory {
		d.psdHistory = d.psdHistory[1:]
	}
	d.mu.Unlock()

	if !enough || historyMean <= 0 {
		return nil
	}
	if peak.QFactor < d.cfg.ResonanceQMin || peak.Magnitude < d.cfg.ResonanceStepRatio*historyMean {
		return nil
	}

	e := newEvent(KindResonance, now)
	e.Magnitude = peak.Magnitude
	e.FrequencyHz = peak.FrequencyHz
	e.QFactor = peak.QFactor
	e.Severity = severityFromScore(math.Min(peak.Magnitude/(d.cfg.ResonanceStepRatio*historyMean)-1, 1))
	e.Detail = fmt.Sprintf("resonance at %.2f Hz, Q=%.1f, %.1fx short-term power",
		peak.FrequencyHz, peak.QFactor, peak.Magnitude/historyMean)

	d.append(e)
	return &e
}

// DetectAnomalies runs the independent statistical sub-detectors over the
// window. Each sub-detector that fires appends one event; several subtypes
// may fire in the same cycle.
func (d *Detector) DetectAnomalies(window []float64, stats BaselineStats, now time.Time) []Event {
	if len(window) < 10 {
		return nil
	}

	mean, std := stats.Mean, stats.Std
	if mean == 0 && std == 0 {
		mean, std = stat.MeanStdDev(window, nil)
	}

	var fired []Event
	if e := d.detectOutliers(window, mean, std, now); e != nil {
		fired = append(fired, *e)
	}
	if e := d.detectBurst(window, stats.RMS, now); e != nil {
		fired = append(fired, *e)
	}
	if e := d.detectTrend(window, std, now); e != nil {
		fired = append(fired, *e)
	}
	if e := d.detectScatter(window, now); e != nil {
		fired = append(fired, *e)
	}
	return fired
}

func (d *Detector) detectOutliers(window []float64, mean, std float64, now time.Time) *Event {
	if std <= 0 {
		return nil
	}
	outliers := 0
	for _, v := range window {
		if math.Abs(v-mean) > d.cfg.OutlierSigma*std {
			outliers++
		}
	}
	ratio := float64(outliers) / float64(len(window))
	if ratio <= d.cfg.OutlierFraction {
		return nil
	}

	e := newEvent(KindAnomaly, now)
	e.Subtype = SubtypeOutlier
	e.Magnitude = ratio
	e.Severity = severityFromScore(math.Min(ratio/(4*d.cfg.OutlierFraction), 1))
	e.Detail = fmt.Sprintf("%.1f%% of samples are outliers", 100*ratio)
	d.append(e)
	return &e
}

func (d *Detector) detectBurst(window []float64, baselineRMS float64, now time.Time) *Event {
	size := int(d.cfg.SampleRate * d.cfg.BurstWindowSec)
	if size < 2 || len(window) < size {
		return nil
	}

	var windows []float64
	for i := 0; i+size <= len(window); i++ {
		windows = append(windows, vibration.RMSDisplacement(window[i:i+size]))
	}
	maxRMS := 0.0
	for _, v := range windows {
		if v > maxRMS {
			maxRMS = v
		}
	}
	ref := baselineRMS
	if ref <= 0 {
		ref = stat.Mean(windows, nil)
	}
	if ref <= 0 || maxRMS <= d.cfg.BurstRatio*ref {
		return nil
	}

	e := newEvent(KindAnomaly, now)
	e.Subtype = SubtypeBurst
	e.Magnitude = maxRMS
	e.Severity = severityFromScore(math.Min((maxRMS-ref)/(3*ref), 1))
	e.Detail = fmt.Sprintf("energy burst: %.3f vs %.3f baseline RMS", maxRMS, ref)
	d.append(e)
	return &e
}

// detectTrend measures monotonic drift with a Theil-Sen fit: the median of
// pairwise slopes, insensitive to outliers that would skew least squares.
func (d *Detector) detectTrend(window []float64, std float64, now time.Time) *Event {
	if len(window) < 20 {
		return nil
	}

	slope := theilSenSlope(window)
	drift := math.Abs(slope) * float64(len(window))
	threshold := d.cfg.TrendSigma * (std + 1e-9)
	if drift <= threshold {
		return nil
	}

	e := newEvent(KindAnomaly, now)
	e.Subtype = SubtypeTrend
	e.Magnitude = drift
	e.Severity = severityFromScore(math.Min(drift/(2.5*threshold), 1))
	e.Detail = fmt.Sprintf("drift %.3f over window (%.2fx threshold)", drift, drift/threshold)
	d.append(e)
	return &e
}

func (d *Detector) detectScatter(window []float64, now time.Time) *Event {
	if len(window) < 20 {
		return nil
	}

	cv := vibration.QuarterVarianceCV(window)
	if cv <= d.cfg.ScatterCV {
		return nil
	}

	e := newEvent(KindAnomaly, now)
	e.Subtype = SubtypeMaterialScatter
	e.Magnitude = cv
	e.Severity = severityFromScore(math.Min((cv-d.cfg.ScatterCV)/d.cfg.ScatterCV, 1))
	e.Detail = fmt.Sprintf("variance dispersion across quarters: CV=%.3f", cv)
	d.append(e)
	return &e
}

// theilSenSlope returns the median of all pairwise slopes.
func theilSenSlope(signal []float64) float64 {
	n := len(signal)
	slopes := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			slopes = append(slopes, (signal[j]-signal[i])/float64(j-i))
		}
	}
	if len(slopes) == 0 {
		return 0
	}
	sort.Float64s(slopes)
	return slopes[len(slopes)/2]
}

func severityFromScore(score float64) Severity {
	switch {
	case score >= 0.66:
		return SeverityHigh
	case score >= 0.33:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (d *Detector) append(e Event) {
	d.mu.Lock()
	d.history.add(e)
	d.mu.Unlock()
}

// Summary filters the event history to entries within the lookback window
// from now. The history itself is not mutated; pruning happens at read.
func (d *Detector) Summary(lookback time.Duration, now time.Time) Summary {
	d.mu.Lock()
	all := d.history.all()
	total := d.history.total
	d.mu.Unlock()

	s := Summary{TotalEvents: total}
	cutoff := now.Add(-lookback)
	for i := range all {
		if all[i].Timestamp.Before(cutoff) {
			continue
		}
		s.RecentEvents++
		switch all[i].Severity {
		case SeverityHigh:
			s.HighSeverity++
		case SeverityMedium:
			s.MediumSeverity++
		case SeverityLow:
			s.LowSeverity++
		}
		e := all[i]
		s.LatestEvent = &e
	}
	return s
}

// Recent returns events within the lookback window, oldest first.
func (d *Detector) Recent(lookback time.Duration, now time.Time) []Event {
	d.mu.Lock()
	all := d.history.all()
	d.mu.Unlock()

	cutoff := now.Add(-lookback)
	out := []Event{}
	for _, e := range all {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}
