package vibration

import "math"

// biquad holds second-order IIR filter coefficients in direct form I.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// highpassBiquad builds a second-order Butterworth high-pass section for the
// given cutoff and sample rate using the bilinear transform.
func highpassBiquad(cutoffHz, sampleRate float64) biquad {
	w0 := 2 * math.Pi * cutoffHz / sampleRate
	cosW := math.Cos(w0)
	// Butterworth Q for a single second-order section.
	alpha := math.Sin(w0) / math.Sqrt2

	a0 := 1 + alpha
	return biquad{
		b0: (1 + cosW) / 2 / a0,
		b1: -(1 + cosW) / a0,
		b2: (1 + cosW) / 2 / a0,
		a1: -2 * cosW / a0,
		a2: (1 - alpha) / a0,
	}
}

// apply runs the filter over the signal in one direction.
func (f biquad) apply(signal []float64) []float64 {
	out := make([]float64, len(signal))
	var x1, x2, y1, y2 float64
	for i, x := range signal {
		y := f.b0*x + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		out[i] = y
		x2, x1 = x1, x
		y2, y1 = y1, y
	}
	return out
}

// HighpassFilter removes low-frequency drift below cutoffHz. The filter is
// applied forward and backward so the result is zero-phase, matching the
// behaviour expected by the damping estimator.
func HighpassFilter(signal []float64, sampleRate, cutoffHz float64) []float64 {
	if len(signal) < 3 || cutoffHz <= 0 || cutoffHz >= sampleRate/2 {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	f := highpassBiquad(cutoffHz, sampleRate)
	forward := f.apply(signal)

	// Reverse, filter again, reverse back.
	n := len(forward)
	rev := make([]float64, n)
	for i, v := range forward {
		rev[n-1-i] = v
	}
	back := f.apply(rev)
	out := make([]float64, n)
	for i, v := range back {
		out[n-1-i] = v
	}
	return out
}

// SmoothSignal applies a centered moving average of the given window size.
func SmoothSignal(signal []float64, window int) []float64 {
	if window < 2 || len(signal) == 0 {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	out := make([]float64, len(signal))
	half := window / 2
	for i := range signal {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(signal) {
			hi = len(signal)
		}
		var sum float64
		for _, v := range signal[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
