package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestEmptyConfigYieldsDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	vib := cfg.Vibration()
	if vib.SampleRate != 30.0 || vib.BufferSize != 300 {
		t.Errorf("Expected analyzer defaults, got %+v", vib)
	}
	ev := cfg.Events()
	if ev.ImpactSigma != 3.5 {
		t.Errorf("Expected default impact sigma 3.5, got %v", ev.ImpactSigma)
	}
	pl := cfg.Pipeline()
	if pl.Interval != time.Second || pl.DefaultBaseline != "default" {
		t.Errorf("Expected pipeline defaults, got %+v", pl)
	}
}

func TestPartialOverrides(t *testing.T) {
	path := writeConfigFile(t, `{
		"sample_rate": 60.0,
		"impact_sigma": 4.0,
		"analysis_interval": "500ms",
		"default_baseline": "winter",
		"damping_valid_low": 0.005,
		"damping_valid_high": 0.2
	}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	vib := cfg.Vibration()
	if vib.SampleRate != 60.0 {
		t.Errorf("Expected sample rate override 60, got %v", vib.SampleRate)
	}
	if vib.BufferSize != 300 {
		t.Errorf("Unset fields must keep defaults, got buffer size %d", vib.BufferSize)
	}

	ev := cfg.Events()
	if ev.ImpactSigma != 4.0 {
		t.Errorf("Expected impact sigma override 4.0, got %v", ev.ImpactSigma)
	}
	if ev.SampleRate != 60.0 {
		t.Errorf("Detector sample rate must track the analyzer, got %v", ev.SampleRate)
	}

	conf := cfg.Confidence()
	if conf.DampingValidLow != 0.005 || conf.DampingValidHigh != 0.2 {
		t.Errorf("Expected damping band override, got %+v", conf)
	}

	pl := cfg.Pipeline()
	if pl.Interval != 500*time.Millisecond {
		t.Errorf("Expected interval 500ms, got %v", pl.Interval)
	}
	if pl.DefaultBaseline != "winter" {
		t.Errorf("Expected default baseline winter, got %q", pl.DefaultBaseline)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"negative sample rate", `{"sample_rate": -1}`},
		{"zero buffer", `{"buffer_size": 0}`},
		{"tiny min samples", `{"min_samples": 2}`},
		{"bad interval", `{"analysis_interval": "soon"}`},
		{"inverted damping band", `{"damping_valid_low": 0.5, "damping_valid_high": 0.1}`},
		{"non-positive impact sigma", `{"impact_sigma": 0}`},
	}
	for _, c := range cases {
		path := writeConfigFile(t, c.contents)
		if _, err := LoadTuningConfig(path); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	os.WriteFile(path, []byte("{}"), 0o644)

	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("Expected rejection of non-.json extension")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfigFile(t, `{"sample_rate": `)
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}
