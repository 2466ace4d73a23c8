package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"github.com/audion-app/audion/internal/types"
)

const (
	defaultSampleRate = 44100
	defaultChannels   = 2
	defaultBitDepth   = 2 // 16-bit = 2 bytes

	// 100ms at 44100Hz stereo 16-bit; decoding is throttled to this much read-ahead
	maxBufferSize = 17640
)

// OtoOutput is an audio output using the Oto library
type OtoOutput struct {
	context    *oto.Context
	player     oto.Player
	sampleRate int
	channels   int
	mu         sync.Mutex
	cond       *sync.Cond // signals pause/resume/close to a blocked Read
	buffer     *bytes.Buffer
	volume     float64 // 0.0 - 1.0
	paused     bool    // set by Pause; Write must not restart the player
	closed     bool
}

// NewOtoOutput creates a new Oto-based audio output
func NewOtoOutput(sampleRate int) (*OtoOutput, error) {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	ctx, ready, err := oto.NewContext(sampleRate, defaultChannels, defaultBitDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	output := &OtoOutput{
		context:    ctx,
		sampleRate: sampleRate,
		channels:   defaultChannels,
		buffer:     &bytes.Buffer{},
		volume:     1.0,
	}
	output.cond = sync.NewCond(&output.mu)
	output.player = ctx.NewPlayer(output)

	return output, nil
}

// Read implements io.Reader for the oto player
func (o *OtoOutput) Read(p []byte) (n int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for o.paused && !o.closed {
		o.cond.Wait()
	}
	if o.closed {
		return 0, io.EOF
	}

	// Keep the stream alive with silence while the decoder catches up
	if o.buffer.Len() == 0 {
		clear(p)
		return len(p), nil
	}

	n, err = o.buffer.Read(p)
	if err != nil {
		return n, err
	}

	if o.volume < 1.0 && n > 0 {
		o.applyVolume(p[:n])
	}
	return n, nil
}

// applyVolume scales 16-bit little-endian PCM samples by the current volume
func (o *OtoOutput) applyVolume(data []byte) {
	vol := o.volume
	if vol >= 1.0 {
		return
	}

	for i := 0; i < len(data)-1; i += 2 {
		sample := int16(data[i]) | int16(data[i+1])<<8
		scaled := int16(float64(sample) * vol)
		data[i] = byte(scaled)
		data[i+1] = byte(scaled >> 8)
	}
}

// SetVolume sets the playback volume (0.0 - 1.0)
func (o *OtoOutput) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = types.Clamp01(v)
}

// Volume returns the current volume
func (o *OtoOutput) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// Write buffers PCM data, blocking while the read-ahead is full
func (o *OtoOutput) Write(data []byte) (int, error) {
	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return 0, io.ErrClosedPipe
		}
		if o.buffer.Len() < maxBufferSize {
			break
		}
		o.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	defer o.mu.Unlock()

	n, err := o.buffer.Write(data)
	if err != nil {
		return n, err
	}

	if o.player != nil && !o.player.IsPlaying() && !o.paused {
		o.player.Play()
	}
	return n, nil
}

// Pause pauses audio playback
func (o *OtoOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = true
	if o.player != nil && o.player.IsPlaying() {
		o.player.Pause()
	}
}

// Resume resumes audio playback
func (o *OtoOutput) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = false
	o.cond.Broadcast()
	if o.player != nil && !o.player.IsPlaying() {
		o.player.Play()
	}
}

// Stop stops playback and discards buffered audio
func (o *OtoOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = false
	o.cond.Broadcast()
	if o.player != nil {
		o.player.Pause()
	}
	o.buffer.Reset()
}

// Buffered returns the number of bytes not yet handed to the device
func (o *OtoOutput) Buffered() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffer.Len()
}

// Close releases the audio output resources
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closed = true
	o.cond.Broadcast()

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			return err
		}
	}
	return nil
}

// SampleRate returns the sample rate
func (o *OtoOutput) SampleRate() int {
	return o.sampleRate
}

// Channels returns the number of channels
func (o *OtoOutput) Channels() int {
	return o.channels
}

var (
	_ io.Reader = (*OtoOutput)(nil)
	_ Output    = (*OtoOutput)(nil)
)
