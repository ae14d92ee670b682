package tracker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/banshee-data/structure.report/internal/vibration"
)

func TestParseLine(t *testing.T) {
	r, err := ParseLine("12.500,-0.03421,118")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if r.UptimeSec != 12.5 {
		t.Errorf("Expected uptime 12.5, got %v", r.UptimeSec)
	}
	if r.Displacement != -0.03421 {
		t.Errorf("Expected displacement -0.03421, got %v", r.Displacement)
	}
	if r.Features != 118 {
		t.Errorf("Expected 118 features, got %d", r.Features)
	}

	// Surrounding whitespace is tolerated; the sensor pads fields.
	if _, err := ParseLine("  1.0, 2.0, 3 \r"); err != nil {
		t.Errorf("Expected padded line to parse, got %v", err)
	}
}

func TestParseLineMalformed(t *testing.T) {
	cases := []string{
		"",
		"1.0,2.0",
		"1.0,2.0,3,4",
		"abc,2.0,3",
		"1.0,def,3",
		"1.0,2.0,ghi",
		"1.0,2.0,-5", // negative feature count
	}
	for _, line := range cases {
		if _, err := ParseLine(line); !errors.Is(err, ErrMalformedLine) {
			t.Errorf("ParseLine(%q): expected ErrMalformedLine, got %v", line, err)
		}
	}
}

// pipePort adapts an io.Pipe to the Porter interface for tests.
type pipePort struct {
	*io.PipeReader
}

func TestMonitorFeedsBuffer(t *testing.T) {
	r, w := io.Pipe()
	buf := vibration.NewSignalBuffer(16)
	trk := New(pipePort{r}, buf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- trk.Monitor(ctx)
	}()

	// Two good readings around a line of line noise; the bad line is
	// skipped without stalling ingest.
	w.Write([]byte("1.0,0.5,100\n"))
	w.Write([]byte("garbage#$%\n"))
	w.Write([]byte("1.033,0.7,101\n"))

	deadline := time.After(2 * time.Second)
	for buf.Len() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for samples, have %d", buf.Len())
		case <-time.After(5 * time.Millisecond):
		}
	}

	window := buf.Window(2)
	if window[0] != 0.5 || window[1] != 0.7 {
		t.Errorf("Unexpected buffered samples %v", window)
	}
	if buf.Features() != 101 {
		t.Errorf("Expected latest feature count 101, got %d", buf.Features())
	}

	// A closed port ends the loop cleanly.
	w.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean exit on closed port, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not exit after port close")
	}
}

func TestMonitorStopsOnContextCancel(t *testing.T) {
	r, _ := io.Pipe()
	trk := New(pipePort{r}, vibration.NewSignalBuffer(16))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- trk.Monitor(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not exit on context cancel")
	}
}

func TestMockPortEmitsParseableLines(t *testing.T) {
	cfg := DefaultMockConfig()
	cfg.SampleRate = 200 // fast samples so the test finishes quickly
	cfg.ImpactEvery = 0
	port := NewMockPort(cfg)
	defer port.Close()

	buf := vibration.NewSignalBuffer(64)
	trk := New(port, buf)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go trk.Monitor(ctx)

	deadline := time.After(2 * time.Second)
	for buf.Len() < 5 {
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for synthetic samples, have %d", buf.Len())
		case <-time.After(10 * time.Millisecond):
		}
	}
	if buf.Features() <= 0 {
		t.Errorf("Expected a positive feature count, got %d", buf.Features())
	}
}
