// Package metricstore records post-hoc quality measurements of synthesis
// attempts. Records are append-only: one per segment per (re)generation,
// consumed by dashboards and regeneration heuristics downstream.
package metricstore

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/bekzodm/dubpipe/pkg/types"
)

// Store persists quality metrics. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, m types.QualityMetric) error
	ListBySegment(ctx context.Context, segmentID int64) ([]types.QualityMetric, error)
}

// trimmedRatio: a take this far over the slot had to be hard-trimmed.
const trimmedRatio = 1.05

// Measure probes the final audio and builds the metric record for one
// synthesis attempt.
func Measure(audioPath string, seg types.Segment, provider string, stretchFactor float64) (types.QualityMetric, error) {
	m := types.QualityMetric{
		SegmentID:     seg.ID,
		VideoID:       seg.VideoID,
		Provider:      provider,
		StretchFactor: stretchFactor,
		CreatedAt:     time.Now().UTC(),
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return m, fmt.Errorf("metricstore: open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return m, fmt.Errorf("metricstore: %s is not a valid WAV file", audioPath)
	}

	dur, err := dec.Duration()
	if err != nil {
		return m, fmt.Errorf("metricstore: probe duration: %w", err)
	}
	if slot := seg.SlotDuration(); slot > 0 {
		m.DurationRatio = dur.Seconds() / slot
		m.Trimmed = m.DurationRatio > trimmedRatio
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return m, fmt.Errorf("metricstore: decode audio: %w", err)
	}
	m.RMSLevel = rms(buf.Data, buf.SourceBitDepth)
	if buf.Format != nil {
		m.PitchHz = estimatePitch(buf.Data, buf.Format.SampleRate, buf.Format.NumChannels)
	}
	return m, nil
}

const (
	// pitchWindow bounds the autocorrelation frame, taken from the middle
	// of the take where voicing is most stable.
	pitchWindow = 4096

	// pitchFloorHz..pitchCeilHz is the plausible speaking range searched.
	pitchFloorHz = 60
	pitchCeilHz  = 500

	// pitchMinCorrelation: below this the frame is treated as unvoiced.
	pitchMinCorrelation = 0.5
)

// estimatePitch returns the fundamental frequency of the take's middle
// frame by normalized autocorrelation over the first channel, or 0 when no
// stable period is found.
func estimatePitch(samples []int, sampleRate, channels int) float64 {
	if sampleRate <= 0 || len(samples) == 0 {
		return 0
	}
	if channels > 1 {
		mono := make([]int, 0, len(samples)/channels)
		for i := 0; i+channels <= len(samples); i += channels {
			mono = append(mono, samples[i])
		}
		samples = mono
	}

	window := pitchWindow
	if window > len(samples) {
		window = len(samples)
	}
	start := (len(samples) - window) / 2
	frame := samples[start : start+window]

	minLag := sampleRate / pitchCeilHz
	if minLag < 1 {
		minLag = 1
	}
	maxLag := sampleRate / pitchFloorHz
	if maxLag >= window {
		maxLag = window - 1
	}
	if minLag >= maxLag {
		return 0
	}

	var energy float64
	for _, s := range frame {
		energy += float64(s) * float64(s)
	}
	if energy == 0 {
		return 0
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < window; i++ {
			corr += float64(frame[i]) * float64(frame[i+lag])
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr, bestLag = corr, lag
		}
	}
	if bestLag == 0 || bestCorr < pitchMinCorrelation {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}

// rms computes the root-mean-square level normalized to 0..1.
func rms(samples []int, bitDepth int) float64 {
	if len(samples) == 0 {
		return 0
	}
	if bitDepth == 0 {
		bitDepth = 16
	}
	fullScale := math.Pow(2, float64(bitDepth-1))

	sum := 0.0
	for _, s := range samples {
		v := float64(s) / fullScale
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
