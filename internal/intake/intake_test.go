package intake

import (
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/audion-app/audion/internal/platform"
)

func audio(name string) PendingFile {
	return PendingFile{Name: name, SizeBytes: 1024, MimeType: "audio/wav", Data: []byte("RIFF")}
}

func names(files []UploadedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestAddFiltersNonAudio(t *testing.T) {
	in := New("test", platform.NewMemory())

	accepted := in.Add([]PendingFile{
		audio("kick.wav"),
		{Name: "notes.txt", MimeType: "text/plain"},
		{Name: "snare.mp3", MimeType: "audio/mpeg"},
		{Name: "cover.png", MimeType: "image/png"},
		{Name: "blank", MimeType: ""},
	})

	if len(accepted) != 2 {
		t.Fatalf("Expected 2 accepted files, got %d", len(accepted))
	}
	got := names(in.Files())
	if len(got) != 2 || got[0] != "kick.wav" || got[1] != "snare.mp3" {
		t.Errorf("Unexpected files %v", got)
	}
}

func TestAddCreatesHandles(t *testing.T) {
	p := platform.NewMemory()
	in := New("test", p)

	in.Add([]PendingFile{audio("a.wav"), audio("b.wav")})

	if p.Live() != 2 {
		t.Errorf("Expected 2 live handles, got %d", p.Live())
	}
	for _, f := range in.Files() {
		if f.Handle.IsZero() {
			t.Errorf("Expected handle for %s", f.Name)
		}
	}
}

func TestAddPreservesArrivalOrderAcrossCalls(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []string{"audio/wav", "audio/mpeg", "video/mp4", "text/plain", "audio/flac"}

	for round := 0; round < 50; round++ {
		in := New("test", nil)
		var want []string

		calls := rng.Intn(5) + 1
		for c := 0; c < calls; c++ {
			var batch []PendingFile
			for i := rng.Intn(6); i > 0; i-- {
				name := fmt.Sprintf("r%d-c%d-%d", round, c, i)
				mt := types[rng.Intn(len(types))]
				batch = append(batch, PendingFile{Name: name, MimeType: mt})
				if IsAudio(mt) {
					want = append(want, name)
				}
			}
			in.Add(batch)
		}

		got := in.Files()
		if len(got) != len(want) {
			t.Fatalf("Round %d: expected %d files, got %d", round, len(want), len(got))
		}
		for i, f := range got {
			if f.Name != want[i] {
				t.Fatalf("Round %d: position %d expected %s, got %s", round, i, want[i], f.Name)
			}
			if !IsAudio(f.MimeType) {
				t.Fatalf("Round %d: non-audio entry %s held", round, f.Name)
			}
		}
	}
}

func TestRemove(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for i := 0; i < n; i++ {
			p := platform.NewMemory()
			in := New("test", p)
			var batch []PendingFile
			for k := 0; k < n; k++ {
				batch = append(batch, audio(fmt.Sprintf("f%d.wav", k)))
			}
			in.Add(batch)

			if !in.Remove(i) {
				t.Fatalf("Remove(%d) on %d files failed", i, n)
			}

			got := names(in.Files())
			if len(got) != n-1 {
				t.Fatalf("Expected %d files, got %d", n-1, len(got))
			}
			k := 0
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				if got[k] != fmt.Sprintf("f%d.wav", j) {
					t.Fatalf("Remove(%d) of %d: position %d is %s", i, n, k, got[k])
				}
				k++
			}
			if p.Live() != n-1 {
				t.Errorf("Expected removed file's handle to be revoked, %d live", p.Live())
			}
		}
	}
}

func TestRemoveOutOfRange(t *testing.T) {
	in := New("test", nil)
	in.Add([]PendingFile{audio("a.wav")})

	if in.Remove(-1) || in.Remove(1) {
		t.Error("Expected out-of-range Remove to fail")
	}
	if in.Len() != 1 {
		t.Errorf("Expected 1 file, got %d", in.Len())
	}
}

func TestReplaceKeepsFirstAudio(t *testing.T) {
	p := platform.NewMemory()
	in := New("analyze", p)

	in.Replace([]PendingFile{audio("first.wav")})
	f, ok := in.Replace([]PendingFile{
		{Name: "readme.md", MimeType: "text/markdown"},
		audio("second.wav"),
		audio("third.wav"),
	})

	if !ok || f.Name != "second.wav" {
		t.Fatalf("Expected second.wav, got %v %v", f.Name, ok)
	}
	if in.Len() != 1 {
		t.Errorf("Expected single held file, got %d", in.Len())
	}
	if p.Live() != 1 {
		t.Errorf("Expected previous handle revoked, %d live", p.Live())
	}
}

func TestReplaceWithoutAudioIsNoOp(t *testing.T) {
	in := New("analyze", nil)
	in.Replace([]PendingFile{audio("keep.wav")})

	if _, ok := in.Replace([]PendingFile{{Name: "x.txt", MimeType: "text/plain"}}); ok {
		t.Error("Expected Replace without audio to report false")
	}
	if f, _ := in.Get(0); f.Name != "keep.wav" {
		t.Errorf("Expected keep.wav to remain, got %s", f.Name)
	}
}

func TestOnChange(t *testing.T) {
	in := New("test", nil)
	calls := 0
	in.SetOnChange(func() { calls++ })

	in.Add([]PendingFile{audio("a.wav")})
	in.Add([]PendingFile{{Name: "x.txt", MimeType: "text/plain"}})
	in.Remove(0)
	in.Clear()

	if calls != 2 {
		t.Errorf("Expected 2 change notifications, got %d", calls)
	}
}

func TestOpenInMemory(t *testing.T) {
	in := New("test", nil)
	in.Add([]PendingFile{{Name: "a.wav", MimeType: "audio/wav", Data: []byte("data")}})

	f, _ := in.Get(0)
	if f.SizeBytes != 4 {
		t.Errorf("Expected size from data, got %d", f.SizeBytes)
	}
	rc, err := f.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "data" {
		t.Errorf("Unexpected contents %q", b)
	}
}
