// Package config is the single source of truth for tunable analysis
// parameters. Every threshold that governs analysis, detection, or
// classification lives here; the per-package Config structs are built
// from one TuningConfig so a JSON file can override any of them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/structure.report/internal/confidence"
	"github.com/banshee-data/structure.report/internal/damage"
	"github.com/banshee-data/structure.report/internal/events"
	"github.com/banshee-data/structure.report/internal/pipeline"
	"github.com/banshee-data/structure.report/internal/vibration"
)

// TuningConfig represents the root tuning configuration. All fields are
// pointers so a partial JSON file overrides only what it names; nil fields
// fall back to the package defaults.
type TuningConfig struct {
	// Acquisition and spectral params
	SampleRate       *float64 `json:"sample_rate,omitempty"`
	BufferSize       *int     `json:"buffer_size,omitempty"`
	AnalysisWindow   *int     `json:"analysis_window,omitempty"`
	MinSamples       *int     `json:"min_samples,omitempty"`
	HighpassCutoffHz *float64 `json:"highpass_cutoff_hz,omitempty"`
	MinFrequencyHz   *float64 `json:"min_frequency_hz,omitempty"`
	PeakCount        *int     `json:"peak_count,omitempty"`

	// Event detection params
	ImpactSigma        *float64 `json:"impact_sigma,omitempty"`
	ResonanceQMin      *float64 `json:"resonance_q_min,omitempty"`
	ResonanceStepRatio *float64 `json:"resonance_step_ratio,omitempty"`
	OutlierSigma       *float64 `json:"outlier_sigma,omitempty"`
	BurstRatio         *float64 `json:"burst_ratio,omitempty"`
	TrendSigma         *float64 `json:"trend_sigma,omitempty"`
	EventHistorySize   *int     `json:"event_history_size,omitempty"`

	// Damage assessment params
	FreqDropHigh   *float64 `json:"freq_drop_high,omitempty"`
	DampRiseHigh   *float64 `json:"damp_rise_high,omitempty"`
	SevereCutoff   *float64 `json:"severe_cutoff,omitempty"`
	ModerateCutoff *float64 `json:"moderate_cutoff,omitempty"`

	// Confidence params
	ConfidenceHistory *int     `json:"confidence_history,omitempty"`
	DampingValidLow   *float64 `json:"damping_valid_low,omitempty"`
	DampingValidHigh  *float64 `json:"damping_valid_high,omitempty"`

	// Orchestration params
	AnalysisInterval *string `json:"analysis_interval,omitempty"` // duration string like "1s"
	DefaultBaseline  *string `json:"default_baseline,omitempty"`
	SignalTail       *int    `json:"signal_tail,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields nil, meaning
// every parameter takes its package default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configured values are physically sensible.
func (c *TuningConfig) Validate() error {
	if c.SampleRate != nil && *c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %f", *c.SampleRate)
	}
	if c.BufferSize != nil && *c.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be at least 1, got %d", *c.BufferSize)
	}
	if c.AnalysisWindow != nil && *c.AnalysisWindow < 1 {
		return fmt.Errorf("analysis_window must be at least 1, got %d", *c.AnalysisWindow)
	}
	if c.MinSamples != nil && *c.MinSamples < 8 {
		return fmt.Errorf("min_samples must be at least 8, got %d", *c.MinSamples)
	}
	if c.HighpassCutoffHz != nil && *c.HighpassCutoffHz < 0 {
		return fmt.Errorf("highpass_cutoff_hz must be non-negative, got %f", *c.HighpassCutoffHz)
	}
	if c.ImpactSigma != nil && *c.ImpactSigma <= 0 {
		return fmt.Errorf("impact_sigma must be positive, got %f", *c.ImpactSigma)
	}
	if c.DampingValidLow != nil && c.DampingValidHigh != nil &&
		*c.DampingValidLow >= *c.DampingValidHigh {
		return fmt.Errorf("damping_valid_low %f must be below damping_valid_high %f",
			*c.DampingValidLow, *c.DampingValidHigh)
	}
	if c.AnalysisInterval != nil && *c.AnalysisInterval != "" {
		if _, err := time.ParseDuration(*c.AnalysisInterval); err != nil {
			return fmt.Errorf("invalid analysis_interval '%s': %w", *c.AnalysisInterval, err)
		}
	}
	return nil
}

// Vibration builds the analyzer config with overrides applied.
func (c *TuningConfig) Vibration() vibration.Config {
	cfg := vibration.DefaultConfig()
	if c.SampleRate != nil {
		cfg.SampleRate = *c.SampleRate
	}
	if c.BufferSize != nil {
		cfg.BufferSize = *c.BufferSize
	}
	if c.AnalysisWindow != nil {
		cfg.AnalysisWindow = *c.AnalysisWindow
	}
	if c.MinSamples != nil {
		cfg.MinSamples = *c.MinSamples
	}
	if c.HighpassCutoffHz != nil {
		cfg.HighpassCutoffHz = *c.HighpassCutoffHz
	}
	if c.MinFrequencyHz != nil {
		cfg.MinFrequencyHz = *c.MinFrequencyHz
	}
	if c.PeakCount != nil {
		cfg.PeakCount = *c.PeakCount
	}
	return cfg
}

// Events builds the detector config with overrides applied. The sample
// rate and window track the analyzer settings so both layers see the same
// signal geometry.
func (c *TuningConfig) Events() events.Config {
	cfg := events.DefaultConfig()
	if c.SampleRate != nil {
		cfg.SampleRate = *c.SampleRate
	}
	if c.AnalysisWindow != nil {
		cfg.DetectionWindow = *c.AnalysisWindow
	}
	if c.ImpactSigma != nil {
		cfg.ImpactSigma = *c.ImpactSigma
	}
	if c.ResonanceQMin != nil {
		cfg.ResonanceQMin = *c.ResonanceQMin
	}
	if c.ResonanceStepRatio != nil {
		cfg.ResonanceStepRatio = *c.ResonanceStepRatio
	}
	if c.OutlierSigma != nil {
		cfg.OutlierSigma = *c.OutlierSigma
	}
	if c.BurstRatio != nil {
		cfg.BurstRatio = *c.BurstRatio
	}
	if c.TrendSigma != nil {
		cfg.TrendSigma = *c.TrendSigma
	}
	if c.EventHistorySize != nil {
		cfg.HistorySize = *c.EventHistorySize
	}
	return cfg
}

// Damage builds the hypothesis engine config with overrides applied.
func (c *TuningConfig) Damage() damage.Config {
	cfg := damage.DefaultConfig()
	if c.FreqDropHigh != nil {
		cfg.FreqDropHigh = *c.FreqDropHigh
	}
	if c.DampRiseHigh != nil {
		cfg.DampRiseHigh = *c.DampRiseHigh
	}
	if c.SevereCutoff != nil {
		cfg.SevereCutoff = *c.SevereCutoff
	}
	if c.ModerateCutoff != nil {
		cfg.ModerateCutoff = *c.ModerateCutoff
	}
	return cfg
}

// Confidence builds the quantifier config with overrides applied.
func (c *TuningConfig) Confidence() confidence.Config {
	cfg := confidence.DefaultConfig()
	if c.ConfidenceHistory != nil {
		cfg.HistoryLength = *c.ConfidenceHistory
	}
	if c.DampingValidLow != nil {
		cfg.DampingValidLow = *c.DampingValidLow
	}
	if c.DampingValidHigh != nil {
		cfg.DampingValidHigh = *c.DampingValidHigh
	}
	return cfg
}

// Pipeline builds the orchestration config with overrides applied.
func (c *TuningConfig) Pipeline() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if c.AnalysisInterval != nil && *c.AnalysisInterval != "" {
		if d, err := time.ParseDuration(*c.AnalysisInterval); err == nil {
			cfg.Interval = d
		}
	}
	if c.DefaultBaseline != nil {
		cfg.DefaultBaseline = *c.DefaultBaseline
	}
	if c.SignalTail != nil {
		cfg.SignalTail = *c.SignalTail
	}
	return cfg
}
