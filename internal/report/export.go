package report

import (
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/audion-app/audion/internal/platform"
	"github.com/audion-app/audion/internal/types"
)

// FileProperties is the file section of an exported report
type FileProperties struct {
	Size       string  `json:"size"` // "1.50 MB"
	SizeMB     float64 `json:"sizeMB"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sampleRate"`
	Channels   int     `json:"channels"`
	BitRate    int     `json:"bitRate"`
	Format     string  `json:"format"`
}

// Report is the exported form of an analysis
type Report struct {
	Filename         string                 `json:"filename"`
	AnalysisDate     time.Time              `json:"analysisDate"`
	FileProperties   FileProperties         `json:"fileProperties"`
	SpectralFeatures types.SpectralFeatures `json:"spectralFeatures"`
	FrequencyBands   []types.FrequencyBand  `json:"frequencyBands"`
	AudioQuality     types.AudioQuality     `json:"audioQuality"`
	Classification   types.Classification   `json:"classification"`
}

// NewReport builds a report for r dated at
func NewReport(r types.AnalysisResult, at time.Time) Report {
	r = r.Normalize()
	return Report{
		Filename:     r.Filename,
		AnalysisDate: at.UTC(),
		FileProperties: FileProperties{
			Size:       fmt.Sprintf("%.2f MB", r.FileSizeMB),
			SizeMB:     r.FileSizeMB,
			Duration:   r.Duration,
			SampleRate: r.SampleRate,
			Channels:   r.Channels,
			BitRate:    r.BitRate,
			Format:     r.Format,
		},
		SpectralFeatures: r.SpectralFeatures,
		FrequencyBands:   r.FrequencyBands,
		AudioQuality:     r.AudioQuality,
		Classification:   r.Classification,
	}
}

// Result converts the report back to the analysis it was built from
func (rep Report) Result() types.AnalysisResult {
	return types.AnalysisResult{
		Filename:         rep.Filename,
		FileSizeMB:       rep.FileProperties.SizeMB,
		Duration:         rep.FileProperties.Duration,
		SampleRate:       rep.FileProperties.SampleRate,
		Channels:         rep.FileProperties.Channels,
		BitRate:          rep.FileProperties.BitRate,
		Format:           rep.FileProperties.Format,
		SpectralFeatures: rep.SpectralFeatures,
		FrequencyBands:   rep.FrequencyBands,
		AudioQuality:     rep.AudioQuality,
		Classification:   rep.Classification,
	}
}

// Marshal encodes the report as indented JSON
func (rep Report) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an exported report
func Unmarshal(data []byte) (Report, error) {
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return Report{}, fmt.Errorf("failed to parse report: %w", err)
	}
	return rep, nil
}

// FileName returns the export file name for an analyzed file ("kick.wav" -> "audio-analysis-kick.json")
func FileName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return "audio-analysis-" + base + ".json"
}

// Export downloads the held analysis as a report through pl and returns where it went.
// Match results are never exported. With no analysis held it does nothing and reports false.
func (p *Presenter) Export(pl platform.Platform) (string, bool, error) {
	r, ok := p.Analysis()
	if !ok {
		return "", false, nil
	}

	data, err := NewReport(r, p.now()).Marshal()
	if err != nil {
		return "", false, err
	}

	name := FileName(r.Filename)
	location, err := pl.Download(name, data)
	if err != nil {
		return "", false, fmt.Errorf("failed to export %s: %w", name, err)
	}

	log.Printf("[REPORT] Exported analysis of %s to %s", r.Filename, location)
	return location, true, nil
}
