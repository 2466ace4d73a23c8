// Package report renders the current analysis or match results and exports analysis reports.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/audion-app/audion/internal/types"
)

var (
	// ErrNoResult is returned when rendering with nothing held
	ErrNoResult = errors.New("no result to show")

	// ErrUnknownView is returned for a view name outside Views
	ErrUnknownView = errors.New("unknown view")
)

// View names accepted by Render
const (
	ViewAll            = "all"
	ViewProperties     = "properties"
	ViewClassification = "classification"
	ViewSpectral       = "spectral"
	ViewQuality        = "quality"
	ViewBands          = "bands"
	ViewMFCC           = "mfcc"
	ViewMatches        = "matches"
)

// Views lists the analysis views in display order
var Views = []string{ViewProperties, ViewClassification, ViewSpectral, ViewQuality, ViewBands, ViewMFCC}

// Presenter holds the current result of a page. A new result replaces the old one wholesale.
type Presenter struct {
	mu       sync.RWMutex
	analysis *types.AnalysisResult
	matches  []types.MatchResult
	onChange func()

	// now dates exported reports
	now func() time.Time
}

// NewPresenter creates an empty presenter
func NewPresenter() *Presenter {
	return &Presenter{now: time.Now}
}

// SetOnChange sets a callback to be called when the held result changes
func (p *Presenter) SetOnChange(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = callback
}

func (p *Presenter) notifyChange() {
	p.mu.RLock()
	callback := p.onChange
	p.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

// SetAnalysis replaces the held analysis
func (p *Presenter) SetAnalysis(r types.AnalysisResult) {
	r = r.Normalize()
	p.mu.Lock()
	p.analysis = &r
	p.mu.Unlock()
	p.notifyChange()
}

// SetMatches replaces the held match results
func (p *Presenter) SetMatches(results []types.MatchResult) {
	held := make([]types.MatchResult, len(results))
	for i, m := range results {
		held[i] = m.Normalize()
	}
	p.mu.Lock()
	p.matches = held
	p.mu.Unlock()
	p.notifyChange()
}

// Clear drops everything held
func (p *Presenter) Clear() {
	p.mu.Lock()
	p.analysis = nil
	p.matches = nil
	p.mu.Unlock()
	p.notifyChange()
}

// Analysis returns a copy of the held analysis
func (p *Presenter) Analysis() (types.AnalysisResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.analysis == nil {
		return types.AnalysisResult{}, false
	}
	return p.analysis.Normalize(), true
}

// Matches returns a copy of the held match results
func (p *Presenter) Matches() []types.MatchResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.MatchResult, len(p.matches))
	copy(out, p.matches)
	return out
}

// Render writes one view of the held result to w
func (p *Presenter) Render(w io.Writer, view string) error {
	if view == "" {
		view = ViewAll
	}

	if view == ViewMatches {
		matches := p.Matches()
		if len(matches) == 0 {
			return ErrNoResult
		}
		RenderMatches(w, matches)
		return nil
	}

	r, ok := p.Analysis()
	if !ok {
		return ErrNoResult
	}

	switch view {
	case ViewAll:
		for i, v := range Views {
			if i > 0 {
				fmt.Fprintln(w)
			}
			renderView(w, r, v)
		}
	case ViewProperties, ViewClassification, ViewSpectral, ViewQuality, ViewBands, ViewMFCC:
		renderView(w, r, view)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownView, view)
	}
	return nil
}

func renderView(w io.Writer, r types.AnalysisResult, view string) {
	switch view {
	case ViewProperties:
		fmt.Fprintf(w, "File Properties\n")
		fmt.Fprintf(w, "  %-14s %s\n", "File", r.Filename)
		fmt.Fprintf(w, "  %-14s %.2f MB\n", "Size", r.FileSizeMB)
		fmt.Fprintf(w, "  %-14s %s\n", "Duration", FormatDuration(r.Duration))
		fmt.Fprintf(w, "  %-14s %s\n", "Sample Rate", FormatSampleRate(r.SampleRate))
		fmt.Fprintf(w, "  %-14s %s\n", "Channels", FormatChannels(r.Channels))
		fmt.Fprintf(w, "  %-14s %d kbps\n", "Bit Rate", r.BitRate)
		fmt.Fprintf(w, "  %-14s %s\n", "Format", r.Format)

	case ViewClassification:
		c := r.Classification
		fmt.Fprintf(w, "Classification\n")
		fmt.Fprintf(w, "  %-14s %s\n", "Type", c.Type)
		fmt.Fprintf(w, "  %-14s %.1f%%\n", "Confidence", types.Percent(c.Confidence))
		fmt.Fprintf(w, "  %-14s %s\n", "Subtype", c.Subtype)

	case ViewSpectral:
		s := r.SpectralFeatures
		fmt.Fprintf(w, "Spectral Features\n")
		fmt.Fprintf(w, "  %-20s %.1f Hz\n", "Centroid (mean)", s.CentroidMean)
		fmt.Fprintf(w, "  %-20s %.1f Hz\n", "Centroid (std)", s.CentroidStd)
		fmt.Fprintf(w, "  %-20s %.1f Hz\n", "Bandwidth (mean)", s.BandwidthMean)
		fmt.Fprintf(w, "  %-20s %.1f Hz\n", "Bandwidth (std)", s.BandwidthStd)
		fmt.Fprintf(w, "  %-20s %.1f Hz\n", "Rolloff", s.SpectralRolloff)
		fmt.Fprintf(w, "  %-20s %.4f\n", "Zero Crossing Rate", s.ZeroCrossingRate)

	case ViewQuality:
		q := r.AudioQuality
		fmt.Fprintf(w, "Audio Quality\n")
		fmt.Fprintf(w, "  %-14s %.1f dB\n", "SNR", q.SNR)
		fmt.Fprintf(w, "  %-14s %.1f dB\n", "Dynamic Range", q.DynamicRange)
		fmt.Fprintf(w, "  %-14s %.1f dB\n", "Peak Level", q.PeakLevel)
		fmt.Fprintf(w, "  %-14s %.1f dB\n", "RMS Level", q.RMSLevel)
		fmt.Fprintf(w, "  %-14s %.1f\n", "Crest Factor", q.CrestFactor)

	case ViewBands:
		fmt.Fprintf(w, "Frequency Bands\n")
		for _, b := range r.FrequencyBands {
			fmt.Fprintf(w, "  %-12s %-13s %-20s %5.1f%%\n", b.Label, b.Band, Bar(b.Energy, 20), types.Percent(b.Energy))
		}

	case ViewMFCC:
		fmt.Fprintf(w, "MFCC Coefficients\n")
		for i, c := range r.SpectralFeatures.MFCCCoefficients {
			fmt.Fprintf(w, "  C%-3d %7.3f\n", i+1, c)
		}
	}
}

// RenderMatches writes the match table
func RenderMatches(w io.Writer, matches []types.MatchResult) {
	fmt.Fprintf(w, "%-3s %-28s %-28s %-10s %-8s %-8s %-8s %-8s\n", "#", "Test File", "Matched Reference", "Confidence", "Total", "Energy", "Spectral", "Freq")
	fmt.Fprintf(w, "%-3s %-28s %-28s %-10s %-8s %-8s %-8s %-8s\n", "-", "---------", "-----------------", "----------", "-----", "------", "--------", "----")
	for i, m := range matches {
		s := m.Similarity
		fmt.Fprintf(w, "%-3d %-28s %-28s %-10s %-8s %-8s %-8s %-8s\n",
			i+1,
			truncate(m.TestFile, 28),
			truncate(m.MatchedReferenceFile, 28),
			pct(m.Confidence),
			pct(s.Total),
			pct(s.Energy),
			pct(s.Spectral),
			pct(s.Frequency))
	}
}

// FormatDuration renders seconds as "3.42s"
func FormatDuration(seconds float64) string {
	return fmt.Sprintf("%.2fs", seconds)
}

// FormatSampleRate renders a rate as "44.1 kHz"
func FormatSampleRate(hz int) string {
	return fmt.Sprintf("%g kHz", types.Round(float64(hz)/1000, 1))
}

// FormatChannels names common channel layouts
func FormatChannels(n int) string {
	switch n {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%d channels", n)
	}
}

// Bar draws v (0-1) as a bar of the given width
func Bar(v float64, width int) string {
	filled := int(types.Clamp01(v)*float64(width) + 0.5)
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", types.Percent(v))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
