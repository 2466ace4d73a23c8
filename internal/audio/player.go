// Package audio decodes files with FFmpeg and plays them through Oto.
package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// Output is the interface for audio output backends
type Output interface {
	io.WriteCloser
	SampleRate() int
	Channels() int
	Pause()
	Resume()
	Stop()
	Buffered() int
}

// Decoder is the interface for audio decoders
type Decoder interface {
	DecodeFrom(ctx context.Context, path string, output Output, startMs int64) error
	Probe(ctx context.Context, path string) (*FileInfo, error)
}

// Player plays one loaded file at a time
type Player struct {
	mu      sync.Mutex
	output  Output
	decoder Decoder

	path      string
	duration  time.Duration
	position  time.Duration // position at the last pause/stop
	startedAt time.Time     // wall clock when the current play stretch began
	playing   bool

	// Current decode session; nil when nothing is decoding
	sessionID uint64
	cancel    context.CancelFunc
	paused    bool

	onEnded func()
}

// NewPlayer creates a player using FFmpeg decoding and Oto output
func NewPlayer(sampleRate int, volume float64) (*Player, error) {
	output, err := NewOtoOutput(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio output: %w", err)
	}
	output.SetVolume(volume)

	decoder, err := NewFFmpegDecoder()
	if err != nil {
		output.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return NewPlayerWith(output, decoder), nil
}

// NewPlayerWith creates a player over the given output and decoder
func NewPlayerWith(output Output, decoder Decoder) *Player {
	return &Player{
		output:  output,
		decoder: decoder,
	}
}

// SetOnEnded sets a callback run when the loaded file plays to its end
func (p *Player) SetOnEnded(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnded = callback
}

// Load stops any current playback and makes path the loaded file
func (p *Player) Load(path string) error {
	p.mu.Lock()
	p.stopLocked()
	p.path = path
	p.position = 0
	p.duration = 0
	p.mu.Unlock()

	if path == "" {
		return nil
	}

	info, err := p.decoder.Probe(context.Background(), path)
	if err != nil {
		log.Printf("[PLAYER] Could not probe %s: %v", path, err)
		return nil
	}

	p.mu.Lock()
	if p.path == path {
		p.duration = info.Duration
	}
	p.mu.Unlock()
	return nil
}

// Play starts playback from the current position, or resumes a paused session
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.path == "" {
		return fmt.Errorf("no file loaded")
	}
	if p.playing {
		return nil
	}

	if p.cancel != nil && p.paused {
		p.output.Resume()
		p.paused = false
		p.playing = true
		p.startedAt = time.Now()
		log.Printf("[PLAYER] Resumed at %v", p.position)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.sessionID++
	p.cancel = cancel
	p.playing = true
	p.paused = false
	p.startedAt = time.Now()

	go p.playbackLoop(ctx, p.path, p.position, p.sessionID)
	return nil
}

// Pause pauses playback, keeping the position
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return nil
	}

	p.output.Pause()
	p.position += time.Since(p.startedAt)
	p.playing = false
	p.paused = true
	log.Printf("[PLAYER] Paused at %v", p.position)
	return nil
}

// Stop ends playback and rewinds to the start
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.position = 0
	return nil
}

func (p *Player) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.output.Stop()
		log.Printf("[PLAYER] Stopped playback")
	}
	p.playing = false
	p.paused = false
}

// Position returns the current playback position
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return p.position + time.Since(p.startedAt)
	}
	return p.position
}

// Duration returns the probed duration of the loaded file, or 0 if unknown
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Close stops playback and releases the output
func (p *Player) Close() error {
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()
	return p.output.Close()
}

// playbackLoop decodes path into the output and reports a natural end
func (p *Player) playbackLoop(ctx context.Context, path string, start time.Duration, sessionID uint64) {
	log.Printf("[PLAYER] Starting playback (session %d) from %v: %s", sessionID, start, path)

	err := p.decoder.DecodeFrom(ctx, path, p.output, start.Milliseconds())
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Printf("[PLAYER] Decode error: %v", err)
	}

	// Wait for the device to drain what was decoded
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for p.output.Buffered() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	p.mu.Lock()
	if p.sessionID != sessionID || p.cancel == nil {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.cancel = nil
	p.playing = false
	p.paused = false
	p.position = 0
	callback := p.onEnded
	p.mu.Unlock()

	log.Printf("[PLAYER] Playback finished: %s", path)
	if callback != nil {
		callback()
	}
}
