package audio

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeOutput struct {
	mu      sync.Mutex
	written int
	paused  bool
	stopped int
}

func (o *fakeOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written += len(p)
	return len(p), nil
}

func (o *fakeOutput) Close() error    { return nil }
func (o *fakeOutput) SampleRate() int { return 44100 }
func (o *fakeOutput) Channels() int   { return 2 }
func (o *fakeOutput) Buffered() int   { return 0 }

func (o *fakeOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = true
}

func (o *fakeOutput) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = false
}

func (o *fakeOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped++
}

// fakeDecoder writes a fixed buffer, or blocks until cancelled when block is set
type fakeDecoder struct {
	block    bool
	duration time.Duration
}

func (d *fakeDecoder) DecodeFrom(ctx context.Context, path string, output Output, startMs int64) error {
	if d.block {
		<-ctx.Done()
		return ctx.Err()
	}
	_, err := output.Write(make([]byte, 4096))
	return err
}

func (d *fakeDecoder) Probe(ctx context.Context, path string) (*FileInfo, error) {
	return &FileInfo{Duration: d.duration, SampleRate: 44100, Channels: 2}, nil
}

func TestPlayerReportsNaturalEnd(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlayerWith(out, &fakeDecoder{duration: 2 * time.Second})

	ended := make(chan struct{})
	p.SetOnEnded(func() { close(ended) })

	if err := p.Load("/tmp/kick.wav"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Duration() != 2*time.Second {
		t.Errorf("Expected probed duration 2s, got %v", p.Duration())
	}
	if err := p.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected onEnded to be called")
	}

	if p.Position() != 0 {
		t.Errorf("Expected position to rewind after end, got %v", p.Position())
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	if out.written != 4096 {
		t.Errorf("Expected 4096 bytes written, got %d", out.written)
	}
}

func TestPlayerPauseResume(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlayerWith(out, &fakeDecoder{block: true})
	p.SetOnEnded(func() { t.Error("onEnded should not fire for a cancelled session") })

	p.Load("/tmp/kick.wav")
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	p.Pause()

	out.mu.Lock()
	paused := out.paused
	out.mu.Unlock()
	if !paused {
		t.Error("Expected output to be paused")
	}

	pos := p.Position()
	time.Sleep(10 * time.Millisecond)
	if p.Position() != pos {
		t.Error("Position should not advance while paused")
	}

	p.Play()
	out.mu.Lock()
	paused = out.paused
	out.mu.Unlock()
	if paused {
		t.Error("Expected output to resume")
	}

	p.Stop()
	if p.Position() != 0 {
		t.Errorf("Expected Stop to rewind, got %v", p.Position())
	}
}

func TestPlayerPlayWithoutFile(t *testing.T) {
	p := NewPlayerWith(&fakeOutput{}, &fakeDecoder{})
	if err := p.Play(); err == nil {
		t.Error("Expected error playing with nothing loaded")
	}
}

func TestPlayerLoadStopsCurrentSession(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlayerWith(out, &fakeDecoder{block: true})

	p.Load("/tmp/kick.wav")
	p.Play()
	p.Load("/tmp/snare.wav")

	out.mu.Lock()
	defer out.mu.Unlock()
	if out.stopped != 1 {
		t.Errorf("Expected loading a new file to stop the output once, got %d", out.stopped)
	}
}
