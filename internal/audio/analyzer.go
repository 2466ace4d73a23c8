package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// FFT size - must be power of 2
	fftSize = 2048
	// Number of log-spaced frequency bands in a spectrum
	NumBands = 128
)

// SpectrumAnalyzer summarizes mono samples as log-spaced band levels (0-255),
// the same scale a Web Audio AnalyserNode reports.
type SpectrumAnalyzer struct {
	fft        *fourier.FFT
	window     []float64
	sampleRate int
}

// NewSpectrumAnalyzer creates an analyzer for the given sample rate
func NewSpectrumAnalyzer(sampleRate int) *SpectrumAnalyzer {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	// Hann window
	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}

	return &SpectrumAnalyzer{
		fft:        fourier.NewFFT(fftSize),
		window:     window,
		sampleRate: sampleRate,
	}
}

// Bands returns the average band levels over all complete frames of samples.
// Fewer than fftSize samples are zero-padded into a single frame.
func (a *SpectrumAnalyzer) Bands(samples []float64) []uint8 {
	sum := make([]float64, NumBands)
	frames := 0

	for start := 0; start == 0 || start+fftSize <= len(samples); start += fftSize {
		frame := make([]float64, fftSize)
		end := start + fftSize
		if end > len(samples) {
			end = len(samples)
		}
		copy(frame, samples[start:end])

		for i, v := range a.frameBands(frame) {
			sum[i] += v
		}
		frames++
	}

	out := make([]uint8, NumBands)
	for i, v := range sum {
		out[i] = toByte(v / float64(frames))
	}
	return out
}

// frameBands computes band levels for one fftSize frame
func (a *SpectrumAnalyzer) frameBands(frame []float64) []float64 {
	windowed := make([]float64, fftSize)
	for i := range windowed {
		windowed[i] = frame[i] * a.window[i]
	}
	coeffs := a.fft.Coefficients(nil, windowed)

	nyquist := fftSize / 2
	freqPerBin := float64(a.sampleRate) / float64(fftSize)

	// Logarithmic band mapping gives the low end more resolution
	minFreq := 20.0
	maxFreq := 20000.0
	if float64(a.sampleRate)/2 < maxFreq {
		maxFreq = float64(a.sampleRate) / 2
	}
	logMin := math.Log10(minFreq)
	logRange := math.Log10(maxFreq) - logMin

	bands := make([]float64, NumBands)
	counts := make([]int, NumBands)

	for bin := 1; bin < nyquist; bin++ {
		freq := float64(bin) * freqPerBin
		if freq < minFreq || freq > maxFreq {
			continue
		}

		band := int((math.Log10(freq) - logMin) / logRange * NumBands)
		if band >= NumBands {
			band = NumBands - 1
		}
		if band < 0 {
			band = 0
		}

		re, im := real(coeffs[bin]), imag(coeffs[bin])
		magnitude := math.Sqrt(re*re + im*im)

		// -60dB..0dB mapped onto 0..255
		db := 20 * math.Log10(magnitude/float64(fftSize)+1e-10)
		normalized := (db + 60) / 60 * 255
		bands[band] += math.Max(0, math.Min(255, normalized))
		counts[band]++
	}

	for i := range bands {
		if counts[i] > 0 {
			bands[i] /= float64(counts[i])
		}
	}

	// Bands with no bins borrow from their neighbours
	spread := make([]float64, NumBands)
	for i := range bands {
		spread[i] = bands[i]
		if i > 0 {
			spread[i] += bands[i-1] * 0.3
		}
		if i < NumBands-1 {
			spread[i] += bands[i+1] * 0.3
		}
		if spread[i] > 255 {
			spread[i] = 255
		}
	}
	return spread
}

// Envelope returns the peak absolute amplitude of each of n equal buckets of samples
func Envelope(samples []float64, n int) []float64 {
	out := make([]float64, n)
	if n <= 0 || len(samples) == 0 {
		return out
	}

	for i := 0; i < n; i++ {
		start := i * len(samples) / n
		end := (i + 1) * len(samples) / n
		if end <= start {
			end = start + 1
		}
		if end > len(samples) {
			end = len(samples)
		}
		peak := 0.0
		for _, s := range samples[start:end] {
			if v := math.Abs(s); v > peak {
				peak = v
			}
		}
		out[i] = peak
	}
	return out
}

func toByte(v float64) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}
