package confidence

import "gonum.org/v1/gonum/stat"

// metricRing is a fixed-capacity ring buffer of metric values with eviction
// on insert, used for coefficient-of-variation stability checks.
type metricRing struct {
	values   []float64
	capacity int
	head     int
	size     int
}

func newMetricRing(capacity int) *metricRing {
	if capacity < 1 {
		capacity = 300
	}
	return &metricRing{
		values:   make([]float64, capacity),
		capacity: capacity,
	}
}

func (r *metricRing) add(v float64) {
	r.values[r.head] = v
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

func (r *metricRing) len() int { return r.size }

// snapshot returns the recorded values oldest first.
func (r *metricRing) snapshot() []float64 {
	out := make([]float64, r.size)
	start := (r.head - r.size + r.capacity) % r.capacity
	for i := 0; i < r.size; i++ {
		out[i] = r.values[(start+i)%r.capacity]
	}
	return out
}

// cv returns the coefficient of variation of the recorded values, skipping
// non-positive entries. Returns ok=false when too few valid values exist.
func (r *metricRing) cv() (float64, bool) {
	var valid []float64
	for _, v := range r.snapshot() {
		if v > 0 {
			valid = append(valid, v)
		}
	}
	if len(valid) < 3 {
		return 0, false
	}
	mean, std := stat.MeanStdDev(valid, nil)
	if mean <= 0 {
		return 0, false
	}
	return std / mean, true
}
