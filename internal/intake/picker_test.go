package intake

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// minimalWAV returns a 44-byte PCM WAV header followed by n zero samples
func minimalWAV(n int) []byte {
	dataLen := n * 2
	b := make([]byte, 44+dataLen)
	copy(b[0:], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], uint32(36+dataLen))
	copy(b[8:], "WAVE")
	copy(b[12:], "fmt ")
	binary.LittleEndian.PutUint32(b[16:], 16)
	binary.LittleEndian.PutUint16(b[20:], 1)
	binary.LittleEndian.PutUint16(b[22:], 1)
	binary.LittleEndian.PutUint32(b[24:], 8000)
	binary.LittleEndian.PutUint32(b[28:], 16000)
	binary.LittleEndian.PutUint16(b[32:], 2)
	binary.LittleEndian.PutUint16(b[34:], 16)
	copy(b[36:], "data")
	binary.LittleEndian.PutUint32(b[40:], uint32(dataLen))
	return b
}

func TestDetectMimeType(t *testing.T) {
	dir := t.TempDir()

	wav := filepath.Join(dir, "tone.wav")
	if err := os.WriteFile(wav, minimalWAV(16), 0644); err != nil {
		t.Fatal(err)
	}
	if mt := DetectMimeType(wav); !IsAudio(mt) {
		t.Errorf("Expected audio type for WAV content, got %s", mt)
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if mt := DetectMimeType(txt); IsAudio(mt) {
		t.Errorf("Expected non-audio type for text, got %s", mt)
	}

	// Unrecognized content falls back to the extension
	flac := filepath.Join(dir, "track.flac")
	if err := os.WriteFile(flac, []byte{0x00, 0x01, 0x02}, 0644); err != nil {
		t.Fatal(err)
	}
	if mt := DetectMimeType(flac); mt != "audio/flac" {
		t.Errorf("Expected audio/flac from extension, got %s", mt)
	}
}

func TestPickWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "refs")
	hidden := filepath.Join(dir, ".cache")
	for _, d := range []string{sub, hidden} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}

	files := map[string][]byte{
		filepath.Join(dir, "b.wav"):     minimalWAV(8),
		filepath.Join(dir, "a.wav"):     minimalWAV(8),
		filepath.Join(sub, "c.wav"):     minimalWAV(8),
		filepath.Join(hidden, "d.wav"):  minimalWAV(8),
		filepath.Join(dir, ".skip.wav"): minimalWAV(8),
	}
	for p, data := range files {
		if err := os.WriteFile(p, data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := NewPicker().Pick(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}

	want := []string{"a.wav", "b.wav", "c.wav"}
	if len(pending) != len(want) {
		t.Fatalf("Expected %d files, got %d", len(want), len(pending))
	}
	for i, p := range pending {
		if p.Name != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], p.Name)
		}
		if p.SizeBytes != 60 {
			t.Errorf("Expected size 60 for %s, got %d", p.Name, p.SizeBytes)
		}
	}
}

func TestPickMissingPath(t *testing.T) {
	_, err := NewPicker().Pick(context.Background(), []string{filepath.Join(t.TempDir(), "nope.wav")})
	if err == nil {
		t.Error("Expected error for missing path")
	}
}
