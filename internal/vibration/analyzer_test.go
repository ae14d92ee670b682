package vibration

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestAnalyzeInsufficientData(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	_, _, _, err := a.Analyze(make([]float64, 10), time.Now())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}

	_, _, _, err = a.Analyze(nil, time.Now())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for empty input, got %v", err)
	}
}

func TestAnalyzePureTone(t *testing.T) {
	cfg := DefaultConfig()
	a := NewAnalyzer(cfg)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signal := sine(cfg.AnalysisWindow, 5.0, 2.0, cfg.SampleRate)

	snap, spectrum, filtered, err := a.Analyze(signal, now)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if math.Abs(snap.FrequencyHz-5.0) > 0.3 {
		t.Errorf("Expected dominant frequency near 5 Hz, got %v", snap.FrequencyHz)
	}
	if snap.RMSDisplacement <= 0 {
		t.Errorf("Expected positive RMS, got %v", snap.RMSDisplacement)
	}
	if snap.SNRdB <= 0 {
		t.Errorf("Expected positive SNR for a clean tone, got %v", snap.SNRdB)
	}
	if len(snap.SpectralPeaks) == 0 {
		t.Error("Expected at least one spectral peak")
	}
	if snap.Status != "Moderate Vibration" {
		t.Errorf("Expected status Moderate Vibration at 5 Hz, got %q", snap.Status)
	}
	if !snap.Timestamp.Equal(now) {
		t.Errorf("Expected timestamp %v, got %v", now, snap.Timestamp)
	}
	if len(filtered) != len(signal) {
		t.Errorf("Filtered window length %d != input length %d", len(filtered), len(signal))
	}
	if len(spectrum.Frequencies) == 0 || len(spectrum.FFTFrequencies) == 0 {
		t.Error("Expected both PSD and FFT views populated")
	}
}

func TestStatusLabelBands(t *testing.T) {
	cases := []struct {
		freq float64
		want string
	}{
		{0.5, "Stable"},
		{1.99, "Stable"},
		{2.0, "Moderate Vibration"},
		{7.9, "Moderate Vibration"},
		{8.0, "High Vibration"},
		{14.0, "High Vibration"},
	}
	for _, c := range cases {
		if got := statusLabel(c.freq); got != c.want {
			t.Errorf("statusLabel(%v): expected %q, got %q", c.freq, c.want, got)
		}
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	snap := MetricsSnapshot{
		FrequencyHz:   5.0,
		SpectralPeaks: []SpectralPeak{{FrequencyHz: 5.0, Magnitude: 10}},
	}
	clone := snap.Clone()
	clone.SpectralPeaks[0].Magnitude = 99

	if snap.SpectralPeaks[0].Magnitude != 10 {
		t.Error("Clone shares spectral peak storage with the original")
	}
}
