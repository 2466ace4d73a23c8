package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/audion-app/audion/internal/audio"
	"github.com/audion-app/audion/internal/types"
)

// WaveformBuckets is the number of peak buckets in a waveform envelope
const WaveformBuckets = 200

// Features is the visualization payload returned for one file
type Features struct {
	Filename   string        `json:"filename"`
	SampleRate int           `json:"sampleRate"`
	Duration   float64       `json:"duration"`
	Waveform   []float64     `json:"waveform"`
	Spectrum   []int         `json:"spectrum"`
	Stats      WaveformStats `json:"stats"`

	// Simulated is set when the payload was generated rather than decoded
	Simulated bool `json:"simulated"`
}

// WaveformStats summarizes a waveform envelope
type WaveformStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Peak   float64 `json:"peak"`
}

// Visualize builds the payload from decoded samples
func Visualize(name string, d *Decoded) Features {
	envelope := audio.Envelope(d.Samples, WaveformBuckets)
	bands := audio.NewSpectrumAnalyzer(d.Properties.SampleRate).Bands(d.Samples)

	spectrum := make([]int, len(bands))
	for i, b := range bands {
		spectrum[i] = int(b)
	}

	return Features{
		Filename:   name,
		SampleRate: d.Properties.SampleRate,
		Duration:   d.Properties.Duration,
		Waveform:   roundAll(envelope, 4),
		Spectrum:   spectrum,
		Stats:      summarize(envelope),
	}
}

// Features generates a payload of the same shape for files that cannot be decoded
func (g *Generator) Features(s Subject) Features {
	props := s.Properties
	if props == (Properties{}) {
		props = DefaultProperties()
	}

	g.mu.Lock()
	envelope := make([]float64, WaveformBuckets)
	for i := range envelope {
		envelope[i] = g.uniform(0.05, 0.9)
	}
	spectrum := make([]int, audio.NumBands)
	for i := range spectrum {
		// Roll off toward the high bands like most program material
		ceiling := 255 - 180*float64(i)/float64(audio.NumBands)
		spectrum[i] = int(g.uniform(0, ceiling))
	}
	g.mu.Unlock()

	return Features{
		Filename:   s.Name,
		SampleRate: props.SampleRate,
		Duration:   props.Duration,
		Waveform:   roundAll(envelope, 4),
		Spectrum:   spectrum,
		Stats:      summarize(envelope),
		Simulated:  true,
	}
}

func summarize(envelope []float64) WaveformStats {
	if len(envelope) == 0 {
		return WaveformStats{}
	}
	return WaveformStats{
		Mean:   types.Round(stat.Mean(envelope, nil), 4),
		StdDev: types.Round(stat.StdDev(envelope, nil), 4),
		Peak:   types.Round(floats.Max(envelope), 4),
	}
}

func roundAll(values []float64, decimals int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = types.Round(v, decimals)
	}
	return out
}
