// Package tracker reads displacement readings from the sensor link and
// feeds them into the rolling signal buffer.
package tracker

import (
	"bufio"
	"context"
	"sync"

	"github.com/banshee-data/structure.report/internal/monitoring"
	"github.com/banshee-data/structure.report/internal/vibration"
)

// Tracker owns the sensor link and the ingest loop.
type Tracker struct {
	port   Porter
	buffer *vibration.SignalBuffer

	mu      sync.Mutex
	closing bool
}

// New creates a tracker feeding the given buffer from port.
func New(port Porter, buffer *vibration.SignalBuffer) *Tracker {
	return &Tracker{port: port, buffer: buffer}
}

// Monitor reads lines from the sensor until the context is cancelled or the
// link fails. Malformed lines are logged and skipped.
func (t *Tracker) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(t.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan.Scan runs in its own goroutine so the outer loop
	// can await lines and context cancellation together.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			if t.isClosing() {
				return nil
			}
			return err

		case line, ok := <-lineChan:
			if !ok {
				// Port closed; a deliberate Close is a clean exit.
				return nil
			}
			reading, err := ParseLine(line)
			if err != nil {
				monitoring.Logf("skipping sensor line %q: %v", line, err)
				continue
			}
			t.buffer.Append(reading.Displacement, reading.Features)
		}
	}
}

// Close shuts the sensor link, unblocking Monitor.
func (t *Tracker) Close() error {
	t.mu.Lock()
	t.closing = true
	t.mu.Unlock()
	return t.port.Close()
}

func (t *Tracker) isClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closing
}
