package vibration

import (
	"math"
	"sort"
)

// SpectralPeak describes one ranked local maximum of a magnitude spectrum.
type SpectralPeak struct {
	FrequencyHz float64 `json:"frequency_hz"`
	Magnitude   float64 `json:"magnitude"`
	QFactor     float64 `json:"q_factor"`
	BandwidthHz float64 `json:"bandwidth_hz"`
}

// ExtractSpectralPeaks returns the top-n local maxima of the magnitude
// spectrum, ranked by descending magnitude with ties broken by ascending
// frequency. Each peak carries its half-power (-3 dB) bandwidth, measured by
// linear interpolation around the peak, and the resulting Q factor. Fewer
// than n peaks yields all found peaks; none yields an empty slice.
func ExtractSpectralPeaks(freqs, mags []float64, n int) []SpectralPeak {
	if n <= 0 || len(freqs) == 0 || len(freqs) != len(mags) {
		return []SpectralPeak{}
	}

	candidates := localMaxima(mags)
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if mags[a] != mags[b] {
			return mags[a] > mags[b]
		}
		return freqs[a] < freqs[b]
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	peaks := make([]SpectralPeak, 0, len(candidates))
	for _, idx := range candidates {
		bw := halfPowerBandwidth(freqs, mags, idx)
		q := 0.0
		if bw > 0 {
			q = freqs[idx] / bw
		}
		peaks = append(peaks, SpectralPeak{
			FrequencyHz: freqs[idx],
			Magnitude:   mags[idx],
			QFactor:     q,
			BandwidthHz: bw,
		})
	}
	return peaks
}

// localMaxima returns indices of local maxima. Interior samples must exceed
// both neighbours; the first and last samples qualify when they exceed their
// single neighbour.
func localMaxima(mags []float64) []int {
	var out []int
	if len(mags) == 1 {
		if mags[0] > 0 {
			out = append(out, 0)
		}
		return out
	}
	for i := range mags {
		switch {
		case i == 0:
			if mags[0] > mags[1] {
				out = append(out, 0)
			}
		case i == len(mags)-1:
			if mags[i] > mags[i-1] {
				out = append(out, i)
			}
		default:
			if mags[i] > mags[i-1] && mags[i] > mags[i+1] {
				out = append(out, i)
			}
		}
	}
	return out
}

// halfPowerBandwidth measures the -3 dB bandwidth around the peak at idx.
// When only one half-power crossing is measurable (peak at or near an array
// edge) the one-sided distance is doubled. When neither side crosses the
// half-power level before the spectrum ends, the bin spacing is used as a
// floor so the Q factor stays finite.
func halfPowerBandwidth(freqs, mags []float64, idx int) float64 {
	level := mags[idx] / math.Sqrt2

	left, leftOK := crossingFrequency(freqs, mags, idx, -1, level)
	right, rightOK := crossingFrequency(freqs, mags, idx, +1, level)

	switch {
	case leftOK && rightOK:
		return right - left
	case leftOK:
		return 2 * (freqs[idx] - left)
	case rightOK:
		return 2 * (right - freqs[idx])
	default:
		if len(freqs) > 1 {
			return freqs[1] - freqs[0]
		}
		return 0
	}
}

// crossingFrequency walks from idx in the given direction until the
// magnitude drops below level, then interpolates the crossing frequency
// between the two straddling samples.
func crossingFrequency(freqs, mags []float64, idx, dir int, level float64) (float64, bool) {
	for i := idx + dir; i >= 0 && i < len(mags); i += dir {
		if mags[i] < level {
			prev := i - dir
			dm := mags[i] - mags[prev]
			if dm == 0 {
				return freqs[i], true
			}
			t := (level - mags[prev]) / dm
			return freqs[prev] + t*(freqs[i]-freqs[prev]), true
		}
	}
	return 0, false
}
