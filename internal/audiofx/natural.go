package audiofx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/bekzodm/dubpipe/pkg/media"
)

// longLineChars: lines past this length get a breath even when calm.
const longLineChars = 60

// breathShape is the duration/level envelope of a synthesized breath.
type breathShape struct {
	duration float64 // seconds
	level    float64 // peak amplitude, 0..1
}

var breathShapes = map[string]breathShape{
	"sad":     {duration: 0.5, level: 0.10},
	"fear":    {duration: 0.22, level: 0.12},
	"anxious": {duration: 0.25, level: 0.10},
	"angry":   {duration: 0.3, level: 0.14},
	"excited": {duration: 0.25, level: 0.12},
}

var defaultBreath = breathShape{duration: 0.35, level: 0.08}

// NaturalSpeech is the optional humanization pass: breath insertion, pitch
// micro-wobble, and vocal-quality coloring. It runs after the mastering
// graph and follows the same copy-then-replace discipline.
type NaturalSpeech struct {
	runner    media.Runner
	sampleDir string // breath sample library, may be empty
	log       *slog.Logger
}

// NaturalOption is a functional option for configuring NaturalSpeech.
type NaturalOption func(*NaturalSpeech)

// WithSampleDir points at a directory of recorded breath samples named
// breath_{emotion}.wav. Missing samples fall back to synthesis.
func WithSampleDir(dir string) NaturalOption {
	return func(n *NaturalSpeech) { n.sampleDir = dir }
}

// WithNaturalLogger overrides the default logger.
func WithNaturalLogger(log *slog.Logger) NaturalOption {
	return func(n *NaturalSpeech) { n.log = log }
}

// NewNaturalSpeech creates the humanization pass.
func NewNaturalSpeech(runner media.Runner, opts ...NaturalOption) *NaturalSpeech {
	n := &NaturalSpeech{runner: runner, log: slog.Default()}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Apply humanizes the file at path in place.
func (n *NaturalSpeech) Apply(ctx context.Context, path string, prof Profile) error {
	if n.wantsBreath(prof) {
		if err := n.insertBreath(ctx, path, prof); err != nil {
			// Breath is a nicety; keep going with the coloring filters.
			n.log.Warn("audiofx: breath insertion failed", "path", path, "error", err)
		}
	}

	chain := naturalChain(prof)
	if len(chain) == 0 {
		return nil
	}

	tmp := path + ".nat.wav"
	err := n.runner.Run(ctx, "-i", path, "-af", chain.String(), "-c:a", "pcm_s16le", tmp)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("audiofx: humanize render: %w", err)
	}
	st, statErr := os.Stat(tmp)
	if statErr != nil || st.Size() < minOutputBytes {
		os.Remove(tmp)
		return fmt.Errorf("audiofx: humanize output invalid")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("audiofx: replace input: %w", err)
	}
	return nil
}

// wantsBreath: long lines and emotionally charged lines breathe.
func (n *NaturalSpeech) wantsBreath(prof Profile) bool {
	if prof.TextLength > longLineChars {
		return true
	}
	switch prof.Emotion {
	case "sad", "fear", "anxious", "angry", "excited":
		return prof.Intensity >= 0.5
	}
	return false
}

// insertBreath prepends a breath sound. A recorded sample wins over the
// synthesized noise burst when the library has one for the emotion.
func (n *NaturalSpeech) insertBreath(ctx context.Context, path string, prof Profile) error {
	breath, cleanup, err := n.breathFile(prof.Emotion)
	if err != nil {
		return err
	}
	defer cleanup()

	tmp := path + ".breath.wav"
	err = n.runner.Run(ctx,
		"-i", breath,
		"-i", path,
		"-filter_complex", "[0:a][1:a]concat=n=2:v=0:a=1[out]",
		"-map", "[out]",
		"-c:a", "pcm_s16le",
		tmp,
	)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("concat breath: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace input: %w", err)
	}
	return nil
}

func (n *NaturalSpeech) breathFile(emotion string) (string, func(), error) {
	if n.sampleDir != "" {
		sample := filepath.Join(n.sampleDir, "breath_"+emotion+".wav")
		if st, err := os.Stat(sample); err == nil && st.Size() > 0 {
			return sample, func() {}, nil
		}
	}

	shape, ok := breathShapes[emotion]
	if !ok {
		shape = defaultBreath
	}
	f, err := os.CreateTemp("", "breath-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("temp breath: %w", err)
	}
	name := f.Name()
	f.Close()
	if err := synthesizeBreath(name, shape); err != nil {
		os.Remove(name)
		return "", nil, err
	}
	return name, func() { os.Remove(name) }, nil
}

// synthesizeBreath writes a lowpassed noise burst with an attack/decay
// envelope — a passable inhale when no recorded sample exists.
func synthesizeBreath(path string, shape breathShape) error {
	const sampleRate = 48000
	total := int(shape.duration * sampleRate)
	if total < 1 {
		total = 1
	}
	attack := total / 3

	rng := rand.New(rand.NewSource(1))
	data := make([]int, total)
	filtered := 0.0
	for i := 0; i < total; i++ {
		// One-pole lowpass over white noise keeps only the airy band.
		filtered += 0.08 * (rng.Float64()*2 - 1 - filtered)

		var env float64
		if i < attack {
			env = float64(i) / float64(attack)
		} else {
			env = math.Pow(1-float64(i-attack)/float64(total-attack), 2)
		}
		data[i] = int(filtered * env * shape.level * math.MaxInt16)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create breath: %w", err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("encode breath: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize breath: %w", err)
	}
	return f.Close()
}

// naturalChain builds the coloring filters for the line. The micro-wobble
// is always present; the rest depends on emotion and vocal quality.
func naturalChain(prof Profile) Chain {
	chain := Chain{vibrato(4, 0.02)}

	qualities := map[string]bool{}
	for _, q := range prof.VocalQualities {
		qualities[q] = true
	}

	if qualities["breathy"] {
		chain = append(chain, highpass(100), eq(4000, 1.5, 1.5))
	}
	if qualities["tense"] || qualities["strained"] {
		chain = append(chain, eq(3000, 1.5, 2), compressor(0.3, 3))
	}
	if qualities["trembling"] {
		chain = append(chain, tremoloFx(6, 0.3))
	}
	if prof.Emotion == "sad" || prof.Emotion == "tender" {
		chain = append(chain, lowpass(10000), eq(400, 1, 1.5))
	}

	return chain
}
