package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-audio/wav"

	"github.com/audion-app/audion/internal/audio"
	"github.com/audion-app/audion/internal/types"
)

// ErrNotWAV is returned by DecodeWAV for streams without a valid RIFF/WAVE header
var ErrNotWAV = errors.New("not a WAV file")

// Decoded is a WAV stream read fully into memory
type Decoded struct {
	Properties Properties

	// Samples is the mono mixdown in [-1, 1]
	Samples []float64
}

// wavHeader validates the RIFF/WAVE header and returns the stream format
func wavHeader(r io.ReadSeeker) (d *wav.Decoder, channels, sampleRate, bitDepth int, err error) {
	d = wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, 0, 0, ErrNotWAV
	}

	channels = int(d.NumChans)
	if channels <= 0 {
		channels = 1
	}
	bitDepth = int(d.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return d, channels, int(d.SampleRate), bitDepth, nil
}

func wavProperties(frames, channels, sampleRate, bitDepth int) Properties {
	props := Properties{
		SampleRate: sampleRate,
		Channels:   channels,
		BitRate:    sampleRate * channels * bitDepth / 1000,
	}
	if sampleRate > 0 {
		props.Duration = types.Round(float64(frames)/float64(sampleRate), 2)
	}
	return props
}

// ReadWAVProperties reads a WAV stream's properties from its header without
// loading the PCM data
func ReadWAVProperties(r io.ReadSeeker) (Properties, error) {
	d, channels, sampleRate, bitDepth, err := wavHeader(r)
	if err != nil {
		return Properties{}, err
	}
	if err := d.FwdToPCM(); err != nil {
		return Properties{}, fmt.Errorf("failed to find PCM data: %w", err)
	}
	if d.PCMChunk == nil {
		return Properties{}, errors.New("failed to find PCM data")
	}

	frameBytes := channels * ((bitDepth + 7) / 8)
	frames := int(d.PCMLen()) / frameBytes
	return wavProperties(frames, channels, sampleRate, bitDepth), nil
}

// DecodeWAV reads the header and PCM data of a WAV stream
func DecodeWAV(r io.ReadSeeker) (*Decoded, error) {
	d, channels, sampleRate, bitDepth, err := wavHeader(r)
	if err != nil {
		return nil, err
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	// 8-bit PCM is unsigned and centred on 128
	var offset float64
	if bitDepth == 8 {
		offset = 128
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += (float64(buf.Data[i*channels+ch]) - offset) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return &Decoded{Properties: wavProperties(frames, channels, sampleRate, bitDepth), Samples: samples}, nil
}

// Prober reads container properties from a file on disk
type Prober interface {
	Probe(ctx context.Context, path string) (*audio.FileInfo, error)
}

// ProbeFile returns the properties of the file at path. WAV headers are read
// directly; other containers go through prober when one is given. Anything
// that cannot be read reports DefaultProperties.
func ProbeFile(ctx context.Context, path string, prober Prober) Properties {
	if f, err := os.Open(path); err == nil {
		props, err := ReadWAVProperties(f)
		f.Close()
		if err == nil {
			return props
		}
		if !errors.Is(err, ErrNotWAV) {
			log.Printf("[ANALYSIS] Could not decode %s: %v", path, err)
		}
	}

	if prober != nil {
		info, err := prober.Probe(ctx, path)
		if err == nil && info.SampleRate > 0 {
			props := Properties{
				Duration:   types.Round(info.Duration.Seconds(), 2),
				SampleRate: info.SampleRate,
				Channels:   info.Channels,
				BitRate:    info.BitRate,
			}
			if props.BitRate <= 0 {
				props.BitRate = DefaultProperties().BitRate
			}
			return props
		}
		if err != nil {
			log.Printf("[ANALYSIS] Could not probe %s: %v", path, err)
		}
	}

	return DefaultProperties()
}
