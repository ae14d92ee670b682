// Package pipeline drives the periodic analysis cycle and owns the
// last-published result bundle that the serving layer reads.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/structure.report/internal/baseline"
	"github.com/banshee-data/structure.report/internal/confidence"
	"github.com/banshee-data/structure.report/internal/damage"
	"github.com/banshee-data/structure.report/internal/events"
	"github.com/banshee-data/structure.report/internal/monitoring"
	"github.com/banshee-data/structure.report/internal/vibration"
)

// Config holds the orchestration settings.
type Config struct {
	// Interval between analysis cycles. Analysis is decoupled from the raw
	// sampling rate; it is too expensive to run per sample.
	Interval time.Duration
	// DefaultBaseline is compared against every cycle when present.
	DefaultBaseline string
	// SignalTail is how many trailing samples each published bundle keeps
	// for the live waveform endpoint.
	SignalTail int
}

// DefaultConfig returns the production orchestration settings.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Second,
		DefaultBaseline: "default",
		SignalTail:      60,
	}
}

// Results is the published output of one analysis cycle. Readers receive
// copies; the pipeline retains the previous bundle when a cycle fails, so
// stale-but-valid data stays visible rather than disappearing.
type Results struct {
	Metrics    vibration.MetricsSnapshot `json:"metrics"`
	Deviation  *baseline.DeviationReport `json:"deviation,omitempty"`
	Damage     *damage.Assessment        `json:"damage,omitempty"`
	Confidence *confidence.Assessment    `json:"confidence,omitempty"`
	Signal     []float64                 `json:"signal"`
	UpdatedAt  time.Time                 `json:"updated_at"`
	Warnings   []string                  `json:"warnings,omitempty"`
}

func (r Results) clone() Results {
	out := r
	out.Metrics = r.Metrics.Clone()
	out.Signal = append([]float64(nil), r.Signal...)
	out.Warnings = append([]string(nil), r.Warnings...)
	if r.Deviation != nil {
		d := *r.Deviation
		out.Deviation = &d
	}
	if r.Damage != nil {
		d := *r.Damage
		out.Damage = &d
	}
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	return out
}

// Pipeline wires the buffer, analyzer, detectors, and stores together and
// runs them once per interval from a single worker.
type Pipeline struct {
	cfg        Config
	buffer     *vibration.SignalBuffer
	analyzer   *vibration.Analyzer
	store      *baseline.Store
	detector   *events.Detector
	engine     *damage.Engine
	quantifier *confidence.Quantifier

	mu        sync.Mutex
	latest    Results
	published bool

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a pipeline over the given components.
func New(cfg Config, buf *vibration.SignalBuffer, analyzer *vibration.Analyzer,
	store *baseline.Store, detector *events.Detector, engine *damage.Engine,
	quantifier *confidence.Quantifier) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		buffer:     buf,
		analyzer:   analyzer,
		store:      store,
		detector:   detector,
		engine:     engine,
		quantifier: quantifier,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Buffer returns the signal buffer the ingest path appends to.
func (p *Pipeline) Buffer() *vibration.SignalBuffer { return p.buffer }

// Run starts the periodic analysis loop. It blocks until the context is
// cancelled or Stop is called.
func (p *Pipeline) Run(ctx context.Context) error {
	p.runMu.Lock()
	if p.running {
		p.runMu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.runMu.Unlock()

	defer func() {
		close(p.doneCh)
		p.runMu.Lock()
		p.running = false
		p.runMu.Unlock()
	}()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.RunCycle(time.Now()); err != nil {
				// The previous bundle stays published; never crash the worker.
				monitoring.Logf("analysis cycle failed: %v", err)
				monitoring.AnalysisCycles.WithLabelValues("error").Inc()
			} else {
				monitoring.AnalysisCycles.WithLabelValues("ok").Inc()
			}
		}
	}
}

// Stop signals the loop to exit and waits for it to finish.
func (p *Pipeline) Stop() {
	p.runMu.Lock()
	if !p.running {
		p.runMu.Unlock()
		return
	}
	close(p.stopCh)
	done := p.doneCh
	p.runMu.Unlock()
	<-done
}

// RunCycle performs one full analysis pass. All computation happens on a
// private copy of the signal window; only the final bundle is published
// under the lock.
func (p *Pipeline) RunCycle(now time.Time) error {
	window := p.buffer.Window(p.analyzer.Config().AnalysisWindow)
	features := p.buffer.Features()

	snapshot, spectrum, filtered, err := p.analyzer.Analyze(window, now)
	if err != nil {
		return err
	}

	var warnings []string

	// Baseline deviation, when the default baseline exists. Its absence is
	// normal before the operator records one.
	var deviation *baseline.DeviationReport
	var ref *vibration.MetricsSnapshot
	if p.cfg.DefaultBaseline != "" {
		if loaded, err := p.store.Load(p.cfg.DefaultBaseline); err == nil {
			ref = &loaded.Snapshot
			deviation, err = p.store.Compare(snapshot, p.cfg.DefaultBaseline)
			if err != nil {
				warnings = append(warnings, "baseline comparison failed: "+err.Error())
			}
		} else if !errors.Is(err, baseline.ErrNotFound) {
			warnings = append(warnings, "baseline load failed: "+err.Error())
		}
	}

	// Event detection over the filtered window and the fresh PSD.
	if e := p.detector.DetectImpact(filtered, now); e != nil {
		monitoring.EventsDetected.WithLabelValues(string(e.Kind)).Inc()
	}
	if e := p.detector.DetectResonance(spectrum.Frequencies, spectrum.PSD, now); e != nil {
		monitoring.EventsDetected.WithLabelValues(string(e.Kind)).Inc()
	}
	for range p.detector.DetectAnomalies(filtered, events.BaselineStats{}, now) {
		monitoring.EventsDetected.WithLabelValues(string(events.KindAnomaly)).Inc()
	}

	assessment := p.engine.Assess(snapshot, ref, filtered, spectrum)

	p.quantifier.UpdateHistory(snapshot)
	conf := p.quantifier.Estimate(snapshot, filtered, features)

	tail := filtered
	if len(tail) > p.cfg.SignalTail {
		tail = tail[len(tail)-p.cfg.SignalTail:]
	}

	monitoring.CrackLikelihood.Set(assessment.CrackLikelihood)
	monitoring.OverallConfidence.Set(conf.OverallConfidence)
	monitoring.DominantFrequency.Set(snapshot.FrequencyHz)

	p.mu.Lock()
	p.latest = Results{
		Metrics:    snapshot,
		Deviation:  deviation,
		Damage:     &assessment,
		Confidence: &conf,
		Signal:     append([]float64(nil), tail...),
		UpdatedAt:  now,
		Warnings:   warnings,
	}
	p.published = true
	p.mu.Unlock()

	return nil
}

// Latest returns a copy of the last published bundle. ok is false until the
// first successful cycle.
func (p *Pipeline) Latest() (Results, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.published {
		return Results{}, false
	}
	return p.latest.clone(), true
}

// CompareTo computes a deviation report for the latest metrics against the
// named baseline, without re-running analysis.
func (p *Pipeline) CompareTo(name string) (*baseline.DeviationReport, error) {
	latest, ok := p.Latest()
	if !ok {
		return nil, vibration.ErrInsufficientData
	}
	return p.store.Compare(latest.Metrics, name)
}

// CreateBaseline records the latest published metrics under name.
func (p *Pipeline) CreateBaseline(name string) (*baseline.Baseline, error) {
	latest, ok := p.Latest()
	if !ok {
		return nil, vibration.ErrInsufficientData
	}
	return p.store.Create(name, latest.Metrics)
}

// EventSummary aggregates the event log over the lookback window.
func (p *Pipeline) EventSummary(lookback time.Duration) events.Summary {
	return p.detector.Summary(lookback, time.Now())
}

// RecentEvents returns events within the lookback window.
func (p *Pipeline) RecentEvents(lookback time.Duration) []events.Event {
	return p.detector.Recent(lookback, time.Now())
}

// Store exposes the baseline store for operator CRUD.
func (p *Pipeline) Store() *baseline.Store { return p.store }
