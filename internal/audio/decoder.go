package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FileInfo contains stream properties probed from an audio file
type FileInfo struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	BitRate    int // kbps
	Codec      string
	Container  string
}

// FFmpegDecoder uses FFmpeg for audio decoding and ffprobe for stream properties
type FFmpegDecoder struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegDecoder creates a new FFmpeg-based decoder
func NewFFmpegDecoder() (*FFmpegDecoder, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &FFmpegDecoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// NewFFprobe returns a decoder usable only for Probe, or nil when ffprobe is missing
func NewFFprobe() *FFmpegDecoder {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil
	}
	return &FFmpegDecoder{ffprobePath: ffprobePath}
}

// DecodeFrom decodes an audio file from startMs, writing s16le PCM to output
func (d *FFmpegDecoder) DecodeFrom(ctx context.Context, path string, output Output, startMs int64) error {
	if d.ffmpegPath == "" {
		return fmt.Errorf("ffmpeg not available")
	}

	args := []string{"-v", "error"}
	if startMs > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", float64(startMs)/1000.0))
	}
	args = append(args,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(output.Channels()),
		"-ar", strconv.Itoa(output.SampleRate()),
		"-",
	)

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	buf := make([]byte, 4096)
	var copyErr error
	for {
		if ctx.Err() != nil {
			copyErr = ctx.Err()
			break
		}

		n, err := stdout.Read(buf)
		if n > 0 {
			if _, writeErr := output.Write(buf[:n]); writeErr != nil {
				copyErr = fmt.Errorf("failed to write to output: %w", writeErr)
				break
			}
		}
		if err != nil {
			break
		}
	}

	if copyErr != nil {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
		return copyErr
	}
	return cmd.Wait()
}

// Probe reads duration, sample rate, channels and bit rate with ffprobe
func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (*FileInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0",
		path,
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, d.ffprobePath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(output)
}

type probeOutput struct {
	Streams []struct {
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
}

func parseProbe(data []byte) (*FileInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio stream found")
	}

	stream := probe.Streams[0]
	info := &FileInfo{
		Channels:  stream.Channels,
		Codec:     stream.CodecName,
		Container: strings.Split(probe.Format.FormatName, ",")[0],
	}
	info.SampleRate, _ = strconv.Atoi(stream.SampleRate)

	if sec, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(sec * float64(time.Second))
	}

	bitRate := stream.BitRate
	if bitRate == "" {
		bitRate = probe.Format.BitRate
	}
	if bps, err := strconv.Atoi(bitRate); err == nil {
		info.BitRate = bps / 1000
	}
	return info, nil
}
