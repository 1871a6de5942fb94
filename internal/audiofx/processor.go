package audiofx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/bekzodm/dubpipe/pkg/media"
	"github.com/bekzodm/dubpipe/pkg/types"
)

const (
	workingSampleRate = 48000

	// stretchTolerance: inputs within 5% of the slot are left alone.
	stretchTolerance = 1.05
	// maxStretch bounds the correction; anything worse sounds robotic.
	maxStretch = 1.4

	// gainAudibility: net gain below this is skipped entirely.
	gainAudibilityDB = 0.5

	// minOutputBytes guards against silently truncated renders.
	minOutputBytes = 1000

	loudnessTargetI  = -16.0
	loudnessRangeLRA = 11.0
	loudnessPeakTP   = -1.5
	limiterCeiling   = 0.97
)

// Profile describes the line being processed: the acting direction results
// plus the speaker knobs the post stage owns.
type Profile struct {
	Emotion        string
	Delivery       string
	VocalQualities []string
	Gender         types.Gender
	Intensity      float64
	SlotDuration   float64
	GainDB         float64
	VolumeDeltaDB  float64
	TextLength     int
}

// Report summarizes what the processor did, for quality metrics.
type Report struct {
	InputDuration float64
	StretchFactor float64
}

// StageSet toggles individual stages of the graph. Order is fixed; a
// disabled stage is simply omitted.
type StageSet struct {
	Resample    bool
	Stretch     bool
	Cleanup     bool
	DeEss       bool
	EmotionEQ   bool
	Compression bool
	Gain        bool
	Ambience    bool
	Loudnorm    bool
	Limiter     bool
}

// AllStages enables the full graph.
func AllStages() StageSet {
	return StageSet{
		Resample: true, Stretch: true, Cleanup: true, DeEss: true,
		EmotionEQ: true, Compression: true, Gain: true, Ambience: true,
		Loudnorm: true, Limiter: true,
	}
}

// Option is a functional option for configuring the Processor.
type Option func(*Processor)

// WithStages replaces the enabled stage set.
func WithStages(s StageSet) Option {
	return func(p *Processor) { p.stages = s }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Processor) { p.log = log }
}

// Processor applies the deterministic mastering graph. It operates on a
// copy and replaces the input only after verifying the rendered output, so
// a failed run leaves the original audio intact.
type Processor struct {
	runner media.Runner
	stages StageSet
	log    *slog.Logger
}

// NewProcessor creates a Processor with all stages enabled.
func NewProcessor(runner media.Runner, opts ...Option) *Processor {
	p := &Processor{runner: runner, stages: AllStages(), log: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process masters the file at path in place. The returned Report is valid
// even when err is non-nil if probing succeeded.
func (p *Processor) Process(ctx context.Context, path string, prof Profile) (Report, error) {
	info, err := p.runner.Probe(ctx, path)
	if err != nil {
		return Report{}, fmt.Errorf("audiofx: probe input: %w", err)
	}
	report := Report{InputDuration: info.Duration, StretchFactor: 1.0}

	chain := p.buildChain(info, prof, &report)

	tmp := path + ".proc.wav"
	args := []string{"-i", path}
	if len(chain) > 0 {
		args = append(args, "-af", chain.String())
	}
	args = append(args,
		"-ar", fmt.Sprintf("%d", workingSampleRate),
		"-ac", "2",
		"-c:a", "pcm_s16le",
		tmp,
	)
	if err := p.runner.Run(ctx, args...); err != nil {
		os.Remove(tmp)
		return report, fmt.Errorf("audiofx: render: %w", err)
	}

	st, err := os.Stat(tmp)
	if err != nil {
		return report, fmt.Errorf("audiofx: rendered output missing: %w", err)
	}
	if st.Size() < minOutputBytes {
		os.Remove(tmp)
		return report, fmt.Errorf("audiofx: rendered output suspiciously small (%d bytes)", st.Size())
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return report, fmt.Errorf("audiofx: replace input: %w", err)
	}
	return report, nil
}

// buildChain assembles the stage list in the load-bearing order.
func (p *Processor) buildChain(info media.Info, prof Profile, report *Report) Chain {
	var chain Chain

	if p.stages.Resample {
		chain = append(chain, resample(workingSampleRate))
	}

	if p.stages.Stretch && prof.SlotDuration > 0 && info.Duration > prof.SlotDuration*stretchTolerance {
		ratio := math.Min(info.Duration/prof.SlotDuration, maxStretch)
		report.StretchFactor = ratio
		chain = append(chain, stretchSteps(ratio)...)
	}

	if p.stages.Cleanup {
		chain = append(chain, highpass(60), lowpass(14000))
	}

	if p.stages.DeEss {
		chain = append(chain, eq(6500, 3, -3))
	}

	if p.stages.EmotionEQ {
		chain = append(chain, emotionEQ(prof.Emotion)...)
		if f, ok := genderEQ(prof.Gender); ok {
			chain = append(chain, f)
		}
	}

	if p.stages.Compression {
		preset := compressionPresets[prof.Emotion]
		if preset.ratio == 0 {
			preset = defaultCompression
		}
		chain = append(chain, compressor(preset.threshold, preset.ratio))
	}

	if p.stages.Gain {
		net := prof.GainDB + prof.VolumeDeltaDB
		if math.Abs(net) >= gainAudibilityDB {
			chain = append(chain, volume(net))
		}
	}

	if p.stages.Ambience {
		chain = append(chain, ambience(8, 0.05))
	}

	if p.stages.Loudnorm {
		chain = append(chain, loudnorm(loudnessTargetI, loudnessRangeLRA, loudnessPeakTP))
	}

	if p.stages.Limiter {
		chain = append(chain, limiter(limiterCeiling))
	}

	return chain
}

// emotionEQ returns the small corrective bands per emotion. Boosts stay
// within ±3 dB so the color never overpowers the voice.
func emotionEQ(emotion string) []Filter {
	switch emotion {
	case "angry":
		return []Filter{eq(3000, 1.5, 2), eq(150, 1, -1)}
	case "sad", "tender":
		return []Filter{eq(300, 1, 1.5), eq(8000, 2, -2)}
	case "happy", "excited":
		return []Filter{eq(5000, 1.5, 2), eq(10000, 2, 1)}
	case "fear", "anxious":
		return []Filter{eq(2000, 1.5, 1.5)}
	case "surprise":
		return []Filter{eq(4000, 1.5, 1.5)}
	default:
		return nil
	}
}

// genderEQ nudges the body of the voice toward its natural fundamental.
func genderEQ(g types.Gender) (Filter, bool) {
	switch g {
	case types.GenderMale:
		return eq(120, 1, 1), true
	case types.GenderFemale:
		return eq(220, 1, 1), true
	default:
		return Filter{}, false
	}
}

type compressionPreset struct {
	threshold float64
	ratio     float64
}

// compressionPresets: quieter emotions get lower threshold and ratio so the
// compressor never pumps audibly on soft material.
var compressionPresets = map[string]compressionPreset{
	"sad":     {threshold: 0.22, ratio: 2},
	"tender":  {threshold: 0.22, ratio: 2},
	"fear":    {threshold: 0.25, ratio: 2.2},
	"anxious": {threshold: 0.25, ratio: 2.2},
	"angry":   {threshold: 0.4, ratio: 3},
	"excited": {threshold: 0.4, ratio: 3},
}

var defaultCompression = compressionPreset{threshold: 0.3, ratio: 2.5}
