package audio

import (
	"testing"
	"time"
)

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"streams": [{"codec_name": "mp3", "sample_rate": "44100", "channels": 2, "bit_rate": "320000"}],
		"format": {"format_name": "mp3", "duration": "2.500000", "bit_rate": "321000"}
	}`)

	info, err := parseProbe(data)
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 2 {
		t.Errorf("Unexpected stream properties %+v", info)
	}
	if info.BitRate != 320 {
		t.Errorf("Expected stream bit rate 320 kbps, got %d", info.BitRate)
	}
	if info.Duration != 2500*time.Millisecond {
		t.Errorf("Expected 2.5s, got %v", info.Duration)
	}
	if info.Container != "mp3" {
		t.Errorf("Expected mp3 container, got %s", info.Container)
	}
}

func TestParseProbeFallsBackToFormatBitRate(t *testing.T) {
	data := []byte(`{
		"streams": [{"codec_name": "flac", "sample_rate": "48000", "channels": 1}],
		"format": {"format_name": "flac", "duration": "1.0", "bit_rate": "900000"}
	}`)

	info, err := parseProbe(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.BitRate != 900 {
		t.Errorf("Expected 900 kbps, got %d", info.BitRate)
	}
}

func TestParseProbeNoStream(t *testing.T) {
	if _, err := parseProbe([]byte(`{"streams": [], "format": {}}`)); err == nil {
		t.Error("Expected error without audio stream")
	}
	if _, err := parseProbe([]byte(`nope`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
