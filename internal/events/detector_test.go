package events

import (
	"math"
	"testing"
	"time"
)

func quietTone(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*5*float64(i)/30)
	}
	return out
}

func TestDetectImpactZeroSignalNeverFires(t *testing.T) {
	d := NewDetector(DefaultConfig())
	now := time.Now()

	if e := d.DetectImpact(make([]float64, 150), now); e != nil {
		t.Errorf("Zero signal must not fire an impact, got %+v", e)
	}
	if events := d.DetectAnomalies(make([]float64, 150), BaselineStats{}, now); len(events) != 0 {
		t.Errorf("Zero signal must not fire anomalies, got %v", events)
	}
	if s := d.Summary(time.Hour, now); s.TotalEvents != 0 {
		t.Errorf("Expected empty history, got %d events", s.TotalEvents)
	}
}

func TestDetectImpactSharpSpikeIsHighSeverity(t *testing.T) {
	d := NewDetector(DefaultConfig())
	now := time.Now()

	// Quiet background with one spike rising over 3 samples, far beyond 5
	// sigma of the background statistics.
	window := quietTone(150)
	window[98] = 3.0
	window[99] = 6.5
	window[100] = 10.0

	e := d.DetectImpact(window, now)
	if e == nil {
		t.Fatal("Expected an impact event")
	}
	if e.Kind != KindImpact {
		t.Errorf("Expected kind impact, got %q", e.Kind)
	}
	if e.Severity != SeverityHigh {
		t.Errorf("Expected severity high, got %q", e.Severity)
	}
	if e.Magnitude != 10.0 {
		t.Errorf("Expected peak magnitude 10.0, got %v", e.Magnitude)
	}
	if e.RiseTimeSec <= 0 || e.RiseTimeSec > 0.5 {
		t.Errorf("Expected a short rise time, got %v s", e.RiseTimeSec)
	}
	if e.ID == "" {
		t.Error("Expected a populated event ID")
	}
}

func TestDetectImpactSlowSwellRejected(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// A large but slowly growing excursion: every sample from the onset to
	// the peak stays above the noise floor, so the rise spans far more than
	// the allowed fraction of the window.
	window := quietTone(150)
	for i := 50; i <= 120; i++ {
		window[i] = 2.0 + 8.0*float64(i-50)/70.0
	}

	if e := d.DetectImpact(window, time.Now()); e != nil {
		t.Errorf("Slow swell must not register as an impact, got %+v", e)
	}
}

func TestDetectResonanceNeedsHistoryAndSharpPeak(t *testing.T) {
	d := NewDetector(DefaultConfig())
	now := time.Now()

	freqs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	calm := []float64{0.1, 0.12, 0.1, 0.11, 1.0, 0.11, 0.1, 0.12, 0.1}

	// First passes only build history; no event can fire yet.
	for i := 0; i < 3; i++ {
		if e := d.DetectResonance(freqs, calm, now); e != nil {
			t.Fatalf("Pass %d fired before history was populated: %+v", i, e)
		}
	}

	// Sharp narrow peak with a 5x magnitude step over the history.
	surge := []float64{0.1, 0.12, 0.1, 0.11, 5.0, 0.11, 0.1, 0.12, 0.1}
	e := d.DetectResonance(freqs, surge, now)
	if e == nil {
		t.Fatal("Expected a resonance event")
	}
	if e.Kind != KindResonance {
		t.Errorf("Expected kind resonance, got %q", e.Kind)
	}
	if e.FrequencyHz != 5.0 {
		t.Errorf("Expected resonance at 5 Hz, got %v", e.FrequencyHz)
	}
	if e.QFactor < DefaultConfig().ResonanceQMin {
		t.Errorf("Expected Q above threshold, got %v", e.QFactor)
	}
}

func TestDetectResonanceStableSpectrumSilent(t *testing.T) {
	d := NewDetector(DefaultConfig())
	now := time.Now()

	freqs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	calm := []float64{0.1, 0.12, 0.1, 0.11, 1.0, 0.11, 0.1, 0.12, 0.1}
	for i := 0; i < 8; i++ {
		if e := d.DetectResonance(freqs, calm, now); e != nil {
			t.Fatalf("Stable spectrum fired on pass %d: %+v", i, e)
		}
	}
}

func TestDetectAnomaliesOutlier(t *testing.T) {
	d := NewDetector(DefaultConfig())
	now := time.Now()

	window := make([]float64, 100)
	for i := range window {
		if i%2 == 0 {
			window[i] = 0.1
		} else {
			window[i] = -0.1
		}
	}
	// 10% of samples far outside the injected noise statistics.
	for i := 0; i < 10; i++ {
		window[i*10] = 5.0
	}

	fired := d.DetectAnomalies(window, BaselineStats{Mean: 0, Std: 0.1, RMS: 0.1}, now)
	if !hasSubtype(fired, SubtypeOutlier) {
		t.Errorf("Expected an outlier anomaly, got %v", fired)
	}
}

func TestDetectAnomaliesTrend(t *testing.T) {
	d := NewDetector(DefaultConfig())
	now := time.Now()

	// Pure linear ramp: drift dominates, nothing else fires.
	window := make([]float64, 100)
	for i := range window {
		window[i] = 0.1 * float64(i)
	}

	fired := d.DetectAnomalies(window, BaselineStats{}, now)
	if len(fired) != 1 {
		t.Fatalf("Expected exactly the trend anomaly, got %v", fired)
	}
	if fired[0].Subtype != SubtypeTrend {
		t.Errorf("Expected subtype trend, got %q", fired[0].Subtype)
	}
}

func TestDetectAnomaliesMaterialScatter(t *testing.T) {
	d := NewDetector(DefaultConfig())
	now := time.Now()

	// All vibration energy packed into the first quarter of the window.
	window := make([]float64, 400)
	for i := 0; i < 100; i++ {
		window[i] = 5.0 * math.Sin(2*math.Pi*5*float64(i)/30)
	}

	fired := d.DetectAnomalies(window, BaselineStats{}, now)
	if !hasSubtype(fired, SubtypeMaterialScatter) {
		t.Errorf("Expected a material scatter anomaly, got %v", fired)
	}
}

func hasSubtype(fired []Event, sub Subtype) bool {
	for _, e := range fired {
		if e.Kind == KindAnomaly && e.Subtype == sub {
			return true
		}
	}
	return false
}

func TestSummaryLookbackFiltering(t *testing.T) {
	d := NewDetector(DefaultConfig())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	old := newEvent(KindImpact, now.Add(-2*time.Hour))
	old.Severity = SeverityHigh
	recent := newEvent(KindAnomaly, now.Add(-10*time.Minute))
	recent.Subtype = SubtypeBurst
	recent.Severity = SeverityMedium
	latest := newEvent(KindImpact, now.Add(-time.Minute))
	latest.Severity = SeverityLow
	d.append(old)
	d.append(recent)
	d.append(latest)

	s := d.Summary(time.Hour, now)
	if s.TotalEvents != 3 {
		t.Errorf("Expected lifetime total 3, got %d", s.TotalEvents)
	}
	if s.RecentEvents != 2 {
		t.Errorf("Expected 2 events inside lookback, got %d", s.RecentEvents)
	}
	if s.HighSeverity != 0 || s.MediumSeverity != 1 || s.LowSeverity != 1 {
		t.Errorf("Unexpected severity counts: %+v", s)
	}
	if s.LatestEvent == nil || s.LatestEvent.ID != latest.ID {
		t.Error("Expected the newest event as LatestEvent")
	}

	// Reads must not prune history: a wider lookback still sees everything.
	s = d.Summary(3*time.Hour, now)
	if s.RecentEvents != 3 {
		t.Errorf("Expected all 3 events in wider lookback, got %d", s.RecentEvents)
	}

	events := d.Recent(time.Hour, now)
	if len(events) != 2 {
		t.Fatalf("Expected 2 recent events, got %d", len(events))
	}
	if !events[0].Timestamp.Before(events[1].Timestamp) {
		t.Error("Expected recent events ordered oldest first")
	}
}

func TestEventRingEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 3
	d := NewDetector(cfg)
	now := time.Now()

	for i := 0; i < 5; i++ {
		d.append(newEvent(KindImpact, now.Add(time.Duration(i)*time.Second)))
	}

	s := d.Summary(time.Hour, now.Add(5*time.Second))
	if s.TotalEvents != 5 {
		t.Errorf("Expected lifetime total 5, got %d", s.TotalEvents)
	}
	if s.RecentEvents != 3 {
		t.Errorf("Expected retention capped at 3, got %d", s.RecentEvents)
	}
}
