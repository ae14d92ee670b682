package vibration

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Spectrum holds the frequency-domain view of one analysis window.
type Spectrum struct {
	// Welch PSD estimate.
	Frequencies []float64
	PSD         []float64

	// Raw FFT magnitude spectrum (positive frequencies only), used for
	// spectral peak extraction.
	FFTFrequencies []float64
	FFTMagnitudes  []float64
}

// hannWindow returns an n-point Hann window.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// ComputeFFT returns the positive-frequency axis and magnitude spectrum of
// the signal.
func ComputeFFT(signal []float64, sampleRate float64) (freqs, mags []float64) {
	n := len(signal)
	if n < 2 {
		return nil, nil
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, signal)

	// Skip the DC bin; keep bins up to Nyquist.
	nBins := len(coeffs) - 1
	freqs = make([]float64, nBins)
	mags = make([]float64, nBins)
	df := sampleRate / float64(n)
	for i := 1; i < len(coeffs); i++ {
		freqs[i-1] = float64(i) * df
		mags[i-1] = cmplxAbs(coeffs[i])
	}
	return freqs, mags
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// ComputeWelchPSD estimates the power spectral density using Welch's method:
// Hann-windowed segments with 50% overlap, periodograms averaged.
func ComputeWelchPSD(signal []float64, sampleRate float64) (freqs, psd []float64) {
	n := len(signal)
	if n < 8 {
		return nil, nil
	}

	segLen := 256
	for segLen > n {
		segLen /= 2
	}
	step := segLen / 2

	window := hannWindow(segLen)
	var windowPower float64
	for _, w := range window {
		windowPower += w * w
	}

	fft := fourier.NewFFT(segLen)
	nBins := segLen/2 + 1
	psd = make([]float64, nBins)
	segments := 0

	buf := make([]float64, segLen)
	for start := 0; start+segLen <= n; start += step {
		for i := 0; i < segLen; i++ {
			buf[i] = signal[start+i] * window[i]
		}
		coeffs := fft.Coefficients(nil, buf)
		for i, c := range coeffs {
			p := real(c)*real(c) + imag(c)*imag(c)
			// One-sided spectrum: double everything except DC and Nyquist.
			if i > 0 && i < nBins-1 {
				p *= 2
			}
			psd[i] += p / (sampleRate * windowPower)
		}
		segments++
	}
	if segments == 0 {
		return nil, nil
	}
	for i := range psd {
		psd[i] /= float64(segments)
	}

	freqs = make([]float64, nBins)
	df := sampleRate / float64(segLen)
	for i := range freqs {
		freqs[i] = float64(i) * df
	}
	return freqs, psd
}

// DominantFrequency returns the frequency with maximum magnitude at or above
// minHz, along with that magnitude. Returns zeros when no bin qualifies.
func DominantFrequency(freqs, mags []float64, minHz float64) (float64, float64) {
	bestIdx := -1
	var bestMag float64
	for i, f := range freqs {
		if f < minHz || i >= len(mags) {
			continue
		}
		if bestIdx < 0 || mags[i] > bestMag {
			bestIdx = i
			bestMag = mags[i]
		}
	}
	if bestIdx < 0 {
		return 0, 0
	}
	return freqs[bestIdx], bestMag
}

// RMSDisplacement returns the root-mean-square amplitude of the signal.
func RMSDisplacement(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, v := range signal {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(signal)))
}

// SignalSNR estimates the signal-to-noise ratio in dB from the PSD: peak
// power against a 10th-percentile noise floor.
func SignalSNR(psd []float64) float64 {
	if len(psd) < 4 {
		return 0
	}

	sorted := make([]float64, len(psd))
	copy(sorted, psd)
	sort.Float64s(sorted)
	floor := sorted[len(sorted)/10]
	if floor < 1e-12 {
		floor = 1e-12
	}

	peak := sorted[len(sorted)-1]
	if peak <= floor {
		return 0
	}
	return 10 * math.Log10(peak/floor)
}

// EstimateDamping estimates the damping ratio via the logarithmic decrement
// of successive positive signal peaks. Returns 0 when the signal does not
// expose enough decaying peaks to measure.
func EstimateDamping(signal []float64) float64 {
	peaks := positivePeaks(signal)
	if len(peaks) < 2 {
		return 0
	}

	var decrements []float64
	for i := 0; i+1 < len(peaks); i++ {
		a0 := signal[peaks[i]]
		a1 := signal[peaks[i+1]]
		if a0 <= 0 || a1 <= 0 || a1 >= a0 {
			continue
		}
		decrements = append(decrements, math.Log(a0/a1))
	}
	if len(decrements) == 0 {
		return 0
	}

	delta := stat.Mean(decrements, nil)
	zeta := delta / math.Sqrt(4*math.Pi*math.Pi+delta*delta)
	if zeta < 0 || math.IsNaN(zeta) {
		return 0
	}
	return zeta
}

// QuarterVarianceCV splits the signal into quarters and returns the
// coefficient of variation of the per-quarter variances. Stationary signals
// score near zero; energy scattering drives the dispersion up.
func QuarterVarianceCV(signal []float64) float64 {
	n := len(signal)
	if n < 8 {
		return 0
	}
	variances := []float64{
		stat.Variance(signal[:n/4], nil),
		stat.Variance(signal[n/4:n/2], nil),
		stat.Variance(signal[n/2:3*n/4], nil),
		stat.Variance(signal[3*n/4:], nil),
	}
	mean, std := stat.MeanStdDev(variances, nil)
	return std / (mean + 1e-9)
}

// positivePeaks returns indices of strict local maxima with positive value.
func positivePeaks(signal []float64) []int {
	var peaks []int
	for i := 1; i+1 < len(signal); i++ {
		if signal[i] > 0 && signal[i] > signal[i-1] && signal[i] > signal[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}
