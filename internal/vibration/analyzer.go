package vibration

import (
	"fmt"
	"time"
)

// Config holds the tunable parameters of the spectral analyzer.
type Config struct {
	// SampleRate is the nominal displacement sampling rate in Hz.
	SampleRate float64
	// BufferSize is the rolling buffer capacity in samples.
	BufferSize int
	// AnalysisWindow is the number of recent samples analysed per cycle.
	AnalysisWindow int
	// MinSamples is the minimum window length for spectral analysis.
	MinSamples int
	// HighpassCutoffHz removes drift below this frequency before analysis.
	HighpassCutoffHz float64
	// MinFrequencyHz is the lowest frequency considered for the dominant mode.
	MinFrequencyHz float64
	// PeakCount is how many ranked spectral peaks each snapshot carries.
	PeakCount int
}

// DefaultConfig returns the production analyzer settings.
func DefaultConfig() Config {
	return Config{
		SampleRate:       30.0,
		BufferSize:       300,
		AnalysisWindow:   150,
		MinSamples:       32,
		HighpassCutoffHz: 0.5,
		MinFrequencyHz:   0.3,
		PeakCount:        5,
	}
}

// MetricsSnapshot is the immutable per-cycle output of the analyzer and the
// unit of comparison for baselines and damage assessment.
type MetricsSnapshot struct {
	FrequencyHz     float64        `json:"frequency_hz"`
	DampingRatio    float64        `json:"damping_ratio"`
	RMSDisplacement float64        `json:"rms_displacement"`
	SNRdB           float64        `json:"snr_db"`
	SpectralPeaks   []SpectralPeak `json:"spectral_peaks"`
	Status          string         `json:"status"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Clone returns a deep copy of the snapshot.
func (m MetricsSnapshot) Clone() MetricsSnapshot {
	out := m
	out.SpectralPeaks = append([]SpectralPeak(nil), m.SpectralPeaks...)
	return out
}

// Analyzer turns a displacement window into a MetricsSnapshot and its
// supporting spectrum.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an analyzer with the given configuration.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze computes spectral and modal metrics from the raw displacement
// window. The returned window is the filtered signal actually analysed,
// which downstream detectors consume.
func (a *Analyzer) Analyze(raw []float64, now time.Time) (MetricsSnapshot, Spectrum, []float64, error) {
	if len(raw) < a.cfg.MinSamples {
		return MetricsSnapshot{}, Spectrum{}, nil, fmt.Errorf(
			"spectral analysis needs %d samples, have %d: %w",
			a.cfg.MinSamples, len(raw), ErrInsufficientData)
	}

	signal := HighpassFilter(raw, a.cfg.SampleRate, a.cfg.HighpassCutoffHz)

	var spec Spectrum
	spec.Frequencies, spec.PSD = ComputeWelchPSD(signal, a.cfg.SampleRate)
	spec.FFTFrequencies, spec.FFTMagnitudes = ComputeFFT(signal, a.cfg.SampleRate)

	freq, _ := DominantFrequency(spec.Frequencies, spec.PSD, a.cfg.MinFrequencyHz)
	if freq < 0 {
		return MetricsSnapshot{}, Spectrum{}, nil, fmt.Errorf(
			"dominant frequency %.3f Hz: %w", freq, ErrInvalidMetric)
	}

	snapshot := MetricsSnapshot{
		FrequencyHz:     freq,
		DampingRatio:    EstimateDamping(signal),
		RMSDisplacement: RMSDisplacement(signal),
		SNRdB:           SignalSNR(spec.PSD),
		SpectralPeaks:   ExtractSpectralPeaks(spec.FFTFrequencies, spec.FFTMagnitudes, a.cfg.PeakCount),
		Status:          statusLabel(freq),
		Timestamp:       now,
	}
	return snapshot, spec, signal, nil
}

// statusLabel maps the dominant frequency to a coarse vibration status.
func statusLabel(freqHz float64) string {
	switch {
	case freqHz < 2:
		return "Stable"
	case freqHz < 8:
		return "Moderate Vibration"
	default:
		return "High Vibration"
	}
}
