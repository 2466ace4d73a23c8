// Package types provides the result shapes shared by the client, the backends and the daemon.
package types

import "math"

// Classification types produced by the analyzer
const (
	ClassMusic         = "Music"
	ClassSpeech        = "Speech"
	ClassEnvironmental = "Environmental"
	ClassMixed         = "Mixed"
)

// ClassificationTypes lists every classification the analyzer may emit
var ClassificationTypes = []string{ClassMusic, ClassSpeech, ClassEnvironmental, ClassMixed}

// NumMFCC is the number of cepstral coefficients in SpectralFeatures
const NumMFCC = 13

// SpectralFeatures contains the spectral descriptors of an analyzed file
type SpectralFeatures struct {
	CentroidMean     float64   `json:"centroidMean"`
	CentroidStd      float64   `json:"centroidStd"`
	BandwidthMean    float64   `json:"bandwidthMean"`
	BandwidthStd     float64   `json:"bandwidthStd"`
	SpectralRolloff  float64   `json:"spectralRolloff"`
	ZeroCrossingRate float64   `json:"zeroCrossingRate"`
	MFCCCoefficients []float64 `json:"mfccCoefficients"`
}

// FrequencyBand is the normalized energy of one frequency range
type FrequencyBand struct {
	Band   string  `json:"band"`
	Label  string  `json:"label"`
	Energy float64 `json:"energy"` // 0.0 - 1.0
}

// AudioQuality contains level and noise metrics (dB unless noted)
type AudioQuality struct {
	SNR          float64 `json:"snr"`
	DynamicRange float64 `json:"dynamicRange"`
	PeakLevel    float64 `json:"peakLevel"`
	RMSLevel     float64 `json:"rmsLevel"`
	CrestFactor  float64 `json:"crestFactor"`
}

// Classification is the detected content type of a file
type Classification struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"` // 0.0 - 1.0
	Subtype    string  `json:"subtype"`
}

// AnalysisResult describes one audio file's properties and classification.
// A result is never modified after it is produced.
type AnalysisResult struct {
	Filename         string           `json:"filename"`
	FileSizeMB       float64          `json:"fileSizeMB"`
	Duration         float64          `json:"duration"`   // seconds
	SampleRate       int              `json:"sampleRate"` // Hz
	Channels         int              `json:"channels"`
	BitRate          int              `json:"bitRate"` // kbps
	Format           string           `json:"format"`
	SpectralFeatures SpectralFeatures `json:"spectralFeatures"`
	FrequencyBands   []FrequencyBand  `json:"frequencyBands"`
	AudioQuality     AudioQuality     `json:"audioQuality"`
	Classification   Classification   `json:"classification"`
}

// Similarity holds the component scores of a match, each 0.0 - 1.0
type Similarity struct {
	Total     float64 `json:"total"`
	Energy    float64 `json:"energy"`
	Spectral  float64 `json:"spectral"`
	Frequency float64 `json:"frequency"`
}

// MatchResult pairs one test file with its best matching reference file
type MatchResult struct {
	TestFile             string     `json:"testFile"`
	MatchedReferenceFile string     `json:"matchedReferenceFile"`
	Confidence           float64    `json:"confidence"`
	Similarity           Similarity `json:"similarity"`
}

// Clamp01 bounds v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Normalize clamps every bounded field of a match result
func (m MatchResult) Normalize() MatchResult {
	m.Confidence = Clamp01(m.Confidence)
	m.Similarity.Total = Clamp01(m.Similarity.Total)
	m.Similarity.Energy = Clamp01(m.Similarity.Energy)
	m.Similarity.Spectral = Clamp01(m.Similarity.Spectral)
	m.Similarity.Frequency = Clamp01(m.Similarity.Frequency)
	return m
}

// Normalize clamps the classification confidence and band energies of a result.
// The receiver is copied; the returned result shares no slices with it.
func (r AnalysisResult) Normalize() AnalysisResult {
	r.Classification.Confidence = Clamp01(r.Classification.Confidence)

	bands := make([]FrequencyBand, len(r.FrequencyBands))
	for i, b := range r.FrequencyBands {
		b.Energy = Clamp01(b.Energy)
		bands[i] = b
	}
	r.FrequencyBands = bands

	mfcc := make([]float64, len(r.SpectralFeatures.MFCCCoefficients))
	copy(mfcc, r.SpectralFeatures.MFCCCoefficients)
	r.SpectralFeatures.MFCCCoefficients = mfcc
	return r
}

// Percent renders a 0-1 value as a percentage rounded to one decimal place
func Percent(v float64) float64 {
	return math.Round(v*1000) / 10
}

// SizeMB converts a byte count to megabytes rounded to the given number of decimals
func SizeMB(sizeBytes int64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(float64(sizeBytes)/1024/1024*scale) / scale
}

// Round rounds v to the given number of decimals
func Round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
