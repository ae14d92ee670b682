package tracker

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"
)

// MockPort implements Porter with a synthetic displacement signal, used for
// development without sensor hardware. The signal is a lightly damped
// sinusoid with measurement noise and an occasional impact spike.
type MockPort struct {
	reader *io.PipeReader
	writer *io.PipeWriter

	closeOnce sync.Once
	done      chan struct{}
}

// MockConfig shapes the synthetic signal.
type MockConfig struct {
	SampleRate  float64
	FrequencyHz float64
	Amplitude   float64
	NoiseStd    float64
	// ImpactEvery is the mean interval between synthetic impact spikes.
	// Zero disables them.
	ImpactEvery time.Duration
	Features    int
	Seed        int64
}

// DefaultMockConfig returns a plausible healthy-structure signal.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		SampleRate:  30.0,
		FrequencyHz: 5.0,
		Amplitude:   2.0,
		NoiseStd:    0.2,
		ImpactEvery: 45 * time.Second,
		Features:    120,
		Seed:        1,
	}
}

// NewMockPort starts the generator goroutine and returns the port.
func NewMockPort(cfg MockConfig) *MockPort {
	r, w := io.Pipe()
	p := &MockPort{reader: r, writer: w, done: make(chan struct{})}
	go p.generate(cfg)
	return p
}

func (p *MockPort) Read(b []byte) (int, error) { return p.reader.Read(b) }

func (p *MockPort) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.writer.Close()
	})
	return nil
}

func (p *MockPort) generate(cfg MockConfig) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	interval := time.Duration(float64(time.Second) / cfg.SampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	impact := 0.0
	for {
		select {
		case <-p.done:
			return
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			sample := cfg.Amplitude*math.Sin(2*math.Pi*cfg.FrequencyHz*t) +
				rng.NormFloat64()*cfg.NoiseStd

			// Exponentially decaying impact transient.
			if cfg.ImpactEvery > 0 && rng.Float64() < float64(interval)/float64(cfg.ImpactEvery) {
				impact = cfg.Amplitude * 8
			}
			sample += impact
			impact *= 0.7

			features := cfg.Features + rng.Intn(11) - 5
			line := fmt.Sprintf("%.3f,%.5f,%d\n", t, sample, features)
			if _, err := p.writer.Write([]byte(line)); err != nil {
				return
			}
		}
	}
}
