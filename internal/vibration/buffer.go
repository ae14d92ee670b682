// Package vibration maintains the rolling displacement buffer and computes
// spectral and modal characteristics of the monitored structure.
package vibration

import "sync"

// SignalBuffer is a fixed-capacity ring buffer of displacement samples.
// The ingest path appends while the analysis worker reads, so access is
// guarded internally. Readers receive copies.
type SignalBuffer struct {
	mu       sync.Mutex
	samples  []float64
	capacity int
	head     int // next write position
	size     int

	features int // tracked feature count reported with the latest sample
}

// NewSignalBuffer creates a buffer holding up to capacity samples.
func NewSignalBuffer(capacity int) *SignalBuffer {
	if capacity < 1 {
		capacity = 300
	}
	return &SignalBuffer{
		samples:  make([]float64, capacity),
		capacity: capacity,
	}
}

// Append stores a displacement sample and the tracked feature count that
// produced it, evicting the oldest sample once at capacity.
func (b *SignalBuffer) Append(sample float64, features int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples[b.head] = sample
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
	b.features = features
}

// Len returns the number of buffered samples.
func (b *SignalBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Features returns the tracked feature count from the most recent sample.
func (b *SignalBuffer) Features() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.features
}

// Window returns a copy of the most recent n samples in arrival order.
// If fewer than n samples are buffered it returns all of them.
func (b *SignalBuffer) Window(n int) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.size {
		n = b.size
	}
	out := make([]float64, n)
	start := (b.head - n + b.capacity) % b.capacity
	for i := 0; i < n; i++ {
		out[i] = b.samples[(start+i)%b.capacity]
	}
	return out
}
