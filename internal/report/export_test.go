package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/audion-app/audion/internal/platform"
	"github.com/audion-app/audion/internal/types"
)

func sampleAnalysis() types.AnalysisResult {
	return types.AnalysisResult{
		Filename:   "kick.wav",
		FileSizeMB: 1.5,
		Duration:   3.42,
		SampleRate: 44100,
		Channels:   2,
		BitRate:    320,
		Format:     "WAV",
		SpectralFeatures: types.SpectralFeatures{
			CentroidMean:     1500.2,
			CentroidStd:      180.4,
			BandwidthMean:    950.1,
			BandwidthStd:     140.9,
			SpectralRolloff:  4000.5,
			ZeroCrossingRate: 0.0812,
			MFCCCoefficients: []float64{0.1, -0.2, 0.3, -0.4, 0.5, -0.6, 0.7, -0.8, 0.9, -0.1, 0.2, -0.3, 0.4},
		},
		FrequencyBands: []types.FrequencyBand{
			{Band: "20-200 Hz", Label: "Sub-bass", Energy: 0.12},
			{Band: "200-500 Hz", Label: "Bass", Energy: 0.34},
		},
		AudioQuality: types.AudioQuality{SNR: 28.4, DynamicRange: 15.2, PeakLevel: -6.1, RMSLevel: -21.3, CrestFactor: 11.7},
		Classification: types.Classification{
			Type:       types.ClassMusic,
			Confidence: 0.912,
			Subtype:    "Auto-detected based on spectral characteristics",
		},
	}
}

func TestExportRoundtrip(t *testing.T) {
	p := NewPresenter()
	at := time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return at }
	p.SetAnalysis(sampleAnalysis())

	pl := platform.NewMemory()
	location, ok, err := p.Export(pl)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !ok || location == "" {
		t.Fatalf("Expected export to happen, got %v %q", ok, location)
	}

	data, found := pl.Downloaded("audio-analysis-kick.json")
	if !found {
		t.Fatal("Expected audio-analysis-kick.json to be downloaded")
	}

	rep, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if !rep.AnalysisDate.Equal(at) {
		t.Errorf("Expected analysis date %v, got %v", at, rep.AnalysisDate)
	}
	if rep.FileProperties.Size != "1.50 MB" {
		t.Errorf("Expected size 1.50 MB, got %q", rep.FileProperties.Size)
	}
	if got := rep.Result(); !reflect.DeepEqual(got, sampleAnalysis()) {
		t.Errorf("Roundtrip mismatch:\n got %+v\nwant %+v", got, sampleAnalysis())
	}
}

func TestExportWithoutAnalysis(t *testing.T) {
	p := NewPresenter()
	p.SetMatches([]types.MatchResult{{TestFile: "kick.wav", MatchedReferenceFile: "snare.wav"}})

	pl := platform.NewMemory()
	location, ok, err := p.Export(pl)
	if err != nil || ok || location != "" {
		t.Errorf("Expected a no-op, got %q %v %v", location, ok, err)
	}
	if pl.Downloads() != 0 {
		t.Errorf("Expected nothing downloaded, got %d", pl.Downloads())
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kick.wav", "audio-analysis-kick.json"},
		{"my.song.final.mp3", "audio-analysis-my.song.final.json"},
		{"noext", "audio-analysis-noext.json"},
	}

	for _, tt := range tests {
		if got := FileName(tt.in); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
