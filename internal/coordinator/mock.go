package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/audion-app/audion/internal/analysis"
	"github.com/audion-app/audion/internal/intake"
)

// MockBackend simulates the analysis service in process
type MockBackend struct {
	generator    *analysis.Generator
	prober       analysis.Prober
	analyzeDelay time.Duration
	matchDelay   time.Duration
}

// MockOption configures a MockBackend
type MockOption func(*MockBackend)

// WithDelays sets the simulated processing time of analyze/features and match requests
func WithDelays(analyze, match time.Duration) MockOption {
	return func(m *MockBackend) {
		m.analyzeDelay = analyze
		m.matchDelay = match
	}
}

// WithProber reads non-WAV file properties through p
func WithProber(p analysis.Prober) MockOption {
	return func(m *MockBackend) {
		m.prober = p
	}
}

// NewMockBackend creates a mock backend drawing results from generator
func NewMockBackend(generator *analysis.Generator, opts ...MockOption) *MockBackend {
	m := &MockBackend{
		generator:    generator,
		analyzeDelay: 2500 * time.Millisecond,
		matchDelay:   3000 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Analyze waits out the simulated processing time and returns generated results
func (m *MockBackend) Analyze(ctx context.Context, req Request) (*Result, error) {
	delay := m.analyzeDelay
	if req.Kind == KindMatch {
		delay = m.matchDelay
	}
	if err := wait(ctx, delay); err != nil {
		return nil, err
	}

	switch req.Kind {
	case KindAnalyze:
		f := req.Files[0]
		result := m.generator.Analyze(analysis.Subject{
			Name:       f.Name,
			SizeBytes:  f.SizeBytes,
			MimeType:   f.MimeType,
			Properties: m.properties(ctx, f),
		})
		return &Result{Analysis: &result}, nil

	case KindMatch:
		matches, err := m.generator.Match(names(req.Files), names(req.References))
		if err != nil {
			return nil, err
		}
		return &Result{Matches: matches}, nil

	case KindFeatures:
		f := req.Files[0]
		var features analysis.Features
		if decoded, err := decode(f); err == nil {
			features = analysis.Visualize(f.Name, decoded)
		} else {
			log.Printf("[COORD] Generating visualization for %s: %v", f.Name, err)
			features = m.generator.Features(analysis.Subject{Name: f.Name, SizeBytes: f.SizeBytes, MimeType: f.MimeType})
		}
		data, err := json.Marshal(features)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal features: %w", err)
		}
		return &Result{Features: data}, nil
	}

	return nil, fmt.Errorf("unsupported request kind %q", req.Kind)
}

// properties probes files on disk and decodes in-memory WAV data
func (m *MockBackend) properties(ctx context.Context, f intake.UploadedFile) analysis.Properties {
	if f.Path != "" {
		return analysis.ProbeFile(ctx, f.Path, m.prober)
	}
	if decoded, err := decode(f); err == nil {
		return decoded.Properties
	}
	return analysis.DefaultProperties()
}

func decode(f intake.UploadedFile) (*analysis.Decoded, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return analysis.DecodeWAV(bytes.NewReader(data))
}

func names(files []intake.UploadedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
