package types

import (
	"math"
	"testing"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1, 100},
		{0.87654, 87.7},
		{0.12341, 12.3},
		{0.5, 50},
	}

	for _, tt := range tests {
		got := Percent(tt.in)
		if got != tt.want {
			t.Errorf("Percent(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got != math.Round(tt.in*1000)/10 {
			t.Errorf("Percent(%v) does not match round(v*1000)/10", tt.in)
		}
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.2) != 0 {
		t.Error("Expected negative values to clamp to 0")
	}
	if Clamp01(1.4) != 1 {
		t.Error("Expected values above 1 to clamp to 1")
	}
	if Clamp01(math.NaN()) != 0 {
		t.Error("Expected NaN to clamp to 0")
	}
	if Clamp01(0.42) != 0.42 {
		t.Error("Expected in-range value to pass through")
	}
}

func TestSizeMB(t *testing.T) {
	if got := SizeMB(1572864, 2); got != 1.5 {
		t.Errorf("Expected 1.5 MB, got %v", got)
	}
	if got := SizeMB(1234567, 1); got != 1.2 {
		t.Errorf("Expected 1.2 MB, got %v", got)
	}
	if got := SizeMB(1234567, 2); got != 1.18 {
		t.Errorf("Expected 1.18 MB, got %v", got)
	}
}

func TestMatchResultNormalize(t *testing.T) {
	m := MatchResult{
		Confidence: 1.2,
		Similarity: Similarity{Total: -0.1, Energy: 0.5, Spectral: 2, Frequency: 0.9},
	}.Normalize()

	if m.Confidence != 1 || m.Similarity.Total != 0 || m.Similarity.Spectral != 1 {
		t.Errorf("Unexpected normalized values: %+v", m)
	}
	if m.Similarity.Energy != 0.5 || m.Similarity.Frequency != 0.9 {
		t.Errorf("In-range values should be untouched: %+v", m.Similarity)
	}
}

func TestAnalysisResultNormalizeCopies(t *testing.T) {
	r := AnalysisResult{
		FrequencyBands:   []FrequencyBand{{Band: "20-200 Hz", Energy: 1.5}},
		SpectralFeatures: SpectralFeatures{MFCCCoefficients: []float64{0.1}},
		Classification:   Classification{Confidence: 3},
	}

	n := r.Normalize()
	if n.FrequencyBands[0].Energy != 1 {
		t.Errorf("Expected clamped energy, got %v", n.FrequencyBands[0].Energy)
	}
	if r.FrequencyBands[0].Energy != 1.5 {
		t.Error("Normalize must not mutate the original bands")
	}

	n.SpectralFeatures.MFCCCoefficients[0] = 9
	if r.SpectralFeatures.MFCCCoefficients[0] != 0.1 {
		t.Error("Normalize must not share the MFCC slice")
	}
	if n.Classification.Confidence != 1 {
		t.Errorf("Expected clamped confidence, got %v", n.Classification.Confidence)
	}
}
