package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/audion-app/audion/internal/analysis"
)

func newTestMock(seed uint64) *MockBackend {
	return NewMockBackend(analysis.NewGenerator(seed), WithDelays(0, 0))
}

func TestMockAnalyzeUsesWAVHeader(t *testing.T) {
	c := New(newTestMock(1))

	res, err := c.Submit(context.Background(), Request{Kind: KindAnalyze, Files: uploaded("kick.wav")})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	a := res.Analysis
	if a.Filename != "kick.wav" {
		t.Errorf("Expected kick.wav, got %s", a.Filename)
	}
	if a.SampleRate != 8000 || a.Channels != 1 || a.Duration != 1 || a.BitRate != 128 {
		t.Errorf("Expected probed WAV properties, got %d Hz %d ch %vs %d kbps", a.SampleRate, a.Channels, a.Duration, a.BitRate)
	}
	if a.Format != "WAV" {
		t.Errorf("Expected WAV, got %s", a.Format)
	}
}

func TestMockMatchKickAgainstSnare(t *testing.T) {
	c := New(newTestMock(0))

	res, err := c.Submit(context.Background(), Request{
		Kind:       KindMatch,
		Files:      uploaded("kick.wav"),
		References: uploaded("snare.wav"),
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("Expected one result, got %d", len(res.Matches))
	}
	m := res.Matches[0]
	if m.TestFile != "kick.wav" || m.MatchedReferenceFile != "snare.wav" {
		t.Errorf("Unexpected pairing %s -> %s", m.TestFile, m.MatchedReferenceFile)
	}
	if m.Confidence < 0.7 || m.Confidence > 1 {
		t.Errorf("Confidence %v outside [0.7, 1.0]", m.Confidence)
	}
}

func TestMockMatchKeepsTestOrder(t *testing.T) {
	c := New(newTestMock(5))
	tests := uploaded("a.wav", "b.wav", "c.wav")

	res, err := c.Submit(context.Background(), Request{Kind: KindMatch, Files: tests, References: uploaded("r1.wav", "r2.wav")})
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range res.Matches {
		if m.TestFile != tests[i].Name {
			t.Errorf("Result %d: expected %s, got %s", i, tests[i].Name, m.TestFile)
		}
	}
}

func TestMockFeatures(t *testing.T) {
	c := New(newTestMock(2))

	res, err := c.Submit(context.Background(), Request{Kind: KindFeatures, Files: uploaded("kick.wav")})
	if err != nil {
		t.Fatal(err)
	}

	var features analysis.Features
	if err := json.Unmarshal(res.Features, &features); err != nil {
		t.Fatalf("Features are not valid JSON: %v", err)
	}
	if features.Simulated {
		t.Error("WAV input should be visualized from its samples")
	}
	if len(features.Waveform) != analysis.WaveformBuckets {
		t.Errorf("Expected %d buckets, got %d", analysis.WaveformBuckets, len(features.Waveform))
	}
}

func TestMockDelayHonorsCancellation(t *testing.T) {
	m := NewMockBackend(analysis.NewGenerator(1), WithDelays(time.Hour, time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(m).Submit(ctx, Request{Kind: KindAnalyze, Files: uploaded("kick.wav")})
	if !errors.Is(err, ErrRequestFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected a failed request wrapping the deadline, got %v", err)
	}
}
