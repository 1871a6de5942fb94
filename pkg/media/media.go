// Package media wraps the ffmpeg and ffprobe command line tools behind a
// small Runner interface so the audio post-processing and clip generation
// layers can be tested without real binaries.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Info describes a probed media file.
type Info struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	Size       int64 // bytes, as reported by the container
}

// Loudness is the measurement pass of the loudnorm filter.
type Loudness struct {
	InputI      float64 `json:"input_i,string"`
	InputTP     float64 `json:"input_tp,string"`
	InputLRA    float64 `json:"input_lra,string"`
	InputThresh float64 `json:"input_thresh,string"`
}

// Runner executes media operations. Implementations must be safe for
// concurrent use.
type Runner interface {
	// Run executes ffmpeg with the given arguments (without the binary name).
	Run(ctx context.Context, args ...string) error
	// Probe returns duration and stream layout of the file.
	Probe(ctx context.Context, path string) (Info, error)
	// MeasureLoudness runs the loudnorm analysis pass over the file.
	MeasureLoudness(ctx context.Context, path string) (Loudness, error)
}

// Compile-time interface assertion.
var _ Runner = (*FFmpeg)(nil)

const defaultTimeout = 5 * time.Minute

// Option is a functional option for configuring FFmpeg.
type Option func(*FFmpeg)

// WithBinaries overrides the ffmpeg and ffprobe executable paths.
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(f *FFmpeg) {
		f.ffmpegBin = ffmpeg
		f.ffprobeBin = ffprobe
	}
}

// WithTimeout sets the per-invocation timeout. Defaults to 5 min.
func WithTimeout(d time.Duration) Option {
	return func(f *FFmpeg) { f.timeout = d }
}

// FFmpeg is the exec-based Runner.
type FFmpeg struct {
	ffmpegBin  string
	ffprobeBin string
	timeout    time.Duration
}

// NewFFmpeg creates an exec-based Runner using binaries from PATH.
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{ffmpegBin: "ffmpeg", ffprobeBin: "ffprobe", timeout: defaultTimeout}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Run executes ffmpeg, always injecting -y and -hide_banner.
func (f *FFmpeg) Run(ctx context.Context, args ...string) error {
	runCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(runCtx, f.ffmpegBin, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("media: ffmpeg: %w: %s", err, lastLine(stderr.Bytes()))
	}
	return nil
}

// probeOutput mirrors the ffprobe -of json layout for the fields we read.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// Probe runs ffprobe and decodes duration plus first audio stream layout.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Info, error) {
	runCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, f.ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration,size",
		"-show_streams",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("media: ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (Info, error) {
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return Info{}, fmt.Errorf("media: decode probe: %w", err)
	}
	info := Info{}
	if po.Format.Duration != "" {
		d, err := strconv.ParseFloat(po.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("media: probe duration %q: %w", po.Format.Duration, err)
		}
		info.Duration = d
	}
	if po.Format.Size != "" {
		if n, err := strconv.ParseInt(po.Format.Size, 10, 64); err == nil {
			info.Size = n
		}
	}
	for _, s := range po.Streams {
		if s.CodecType != "audio" {
			continue
		}
		if s.SampleRate != "" {
			if sr, err := strconv.Atoi(s.SampleRate); err == nil {
				info.SampleRate = sr
			}
		}
		info.Channels = s.Channels
		break
	}
	return info, nil
}

// MeasureLoudness runs the loudnorm analysis pass. ffmpeg prints the
// measurement JSON to stderr after its normal output.
func (f *FFmpeg) MeasureLoudness(ctx context.Context, path string) (Loudness, error) {
	runCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, f.ffmpegBin,
		"-hide_banner", "-nostats",
		"-i", path,
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11:print_format=json",
		"-f", "null", "-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Loudness{}, fmt.Errorf("media: loudness scan %s: %w", path, err)
	}
	return parseLoudness(stderr.Bytes())
}

// parseLoudness extracts the trailing JSON object from loudnorm stderr.
func parseLoudness(stderr []byte) (Loudness, error) {
	start := bytes.LastIndexByte(stderr, '{')
	end := bytes.LastIndexByte(stderr, '}')
	if start < 0 || end < start {
		return Loudness{}, fmt.Errorf("media: no loudness report in output")
	}
	var l Loudness
	if err := json.Unmarshal(stderr[start:end+1], &l); err != nil {
		return Loudness{}, fmt.Errorf("media: decode loudness report: %w", err)
	}
	return l, nil
}

func lastLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
