// Package edge provides a TTS provider backed by the edge-tts command line
// tool — the free, no-cloning engine of the pipeline. Prosody is expressed
// as signed rate/pitch/volume strings and the per-sentence markup built by
// the ssml package is handed to the CLI through a temporary file.
//
// It implements the tts.Provider interface.
package edge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bekzodm/dubpipe/internal/director"
	"github.com/bekzodm/dubpipe/internal/ssml"
	"github.com/bekzodm/dubpipe/internal/textnorm"
	"github.com/bekzodm/dubpipe/pkg/provider/tts"
	"github.com/bekzodm/dubpipe/pkg/types"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultBinary  = "edge-tts"
	defaultTimeout = 60 * time.Second

	// pitchBoundHz is the documented safe pitch offset for the engine.
	pitchBoundHz = 50.0
)

// defaultVoices is the deterministic per-gender default catalogue. Order
// matters: earlier voices are preferred until taken by another speaker.
var defaultVoices = map[string]map[types.Gender][]string{
	"uz": {
		types.GenderMale:    {"uz-UZ-SardorNeural"},
		types.GenderFemale:  {"uz-UZ-MadinaNeural"},
		types.GenderUnknown: {"uz-UZ-SardorNeural", "uz-UZ-MadinaNeural"},
	},
	"ru": {
		types.GenderMale:    {"ru-RU-DmitryNeural"},
		types.GenderFemale:  {"ru-RU-SvetlanaNeural", "ru-RU-DariyaNeural"},
		types.GenderUnknown: {"ru-RU-DmitryNeural", "ru-RU-SvetlanaNeural"},
	},
	"en": {
		types.GenderMale:    {"en-US-GuyNeural", "en-US-ChristopherNeural"},
		types.GenderFemale:  {"en-US-JennyNeural", "en-US-AriaNeural"},
		types.GenderUnknown: {"en-US-GuyNeural", "en-US-JennyNeural"},
	},
}

// Option is a functional option for configuring the edge Provider.
type Option func(*Provider)

// WithBinary overrides the edge-tts executable path.
func WithBinary(path string) Option {
	return func(p *Provider) { p.binary = path }
}

// WithTimeout sets the per-synthesis CLI timeout. Defaults to 60 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements tts.Provider backed by the edge-tts CLI.
// Safe for concurrent use; each call runs its own process.
type Provider struct {
	binary  string
	timeout time.Duration
}

// New creates an edge Provider.
func New(opts ...Option) *Provider {
	p := &Provider{binary: defaultBinary, timeout: defaultTimeout}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Provider) Name() string               { return "edge" }
func (p *Provider) SupportsVoiceCloning() bool { return false }
func (p *Provider) SupportsEmotions() bool     { return false }
func (p *Provider) CostPerCharacter() float64  { return 0 }

// Voices returns the static default catalogue for the language. The engine
// has hundreds of voices; only the ones the pipeline assigns by default are
// listed here.
func (p *Provider) Voices(_ context.Context, language string) ([]tts.Voice, error) {
	byGender, ok := defaultVoices[language]
	if !ok {
		return nil, nil
	}
	var out []tts.Voice
	seen := map[string]bool{}
	for _, gender := range []types.Gender{types.GenderMale, types.GenderFemale} {
		for _, id := range byGender[gender] {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, tts.Voice{
				ID:       id,
				Name:     voiceDisplayName(id),
				Provider: p.Name(),
				Language: language,
				Gender:   gender,
			})
		}
	}
	return out, nil
}

// CloneVoice is unsupported: edge voices are fixed presets.
func (p *Provider) CloneVoice(context.Context, string, string, tts.CloneOptions) (string, error) {
	return "", tts.ErrCloningUnsupported
}

// Synthesize renders the segment through the CLI and verifies the output.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (string, error) {
	fail := func(err error) (string, error) {
		return "", &tts.SynthesisError{Provider: p.Name(), SegmentID: req.Segment.ID, Err: err}
	}

	voice := tts.ResolveVoice(req, defaultVoices[req.Language])
	if voice == "" {
		return fail(fmt.Errorf("no voice available for language %q", req.Language))
	}

	text := textnorm.Normalize(req.Text, req.Language)

	rate := tts.ClampRate(tts.SlotRate(len(text), req.Segment.SlotDuration(), req.Language) +
		req.Params.RateAdjust + req.Speaker.RatePercent)
	volume := clampVolume(req.Params.VolumeAdjust)
	pitch := tts.ClampPitchHz(req.Speaker.PitchOffsetHz, pitchBoundHz)

	// The CLI flags establish the voice-level prosody; prosody values in the
	// markup compound with that base, so the markup carries only the
	// per-sentence nudges on top of a zero base.
	doc := ssml.Build(text, voice, director.Emotion(req.Params.Emotion), ssml.Prosody{})

	docFile, err := writeTempDoc(doc)
	if err != nil {
		return fail(err)
	}
	defer os.Remove(docFile)

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fail(fmt.Errorf("create output dir: %w", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.binary,
		"--file", docFile,
		"--voice", voice,
		"--rate", fmt.Sprintf("%+.0f%%", rate),
		"--volume", fmt.Sprintf("%+.0f%%", volume),
		"--pitch", fmt.Sprintf("%+.0fHz", pitch),
		"--write-media", req.OutputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fail(fmt.Errorf("edge-tts: %w: %s", err, firstLine(out)))
	}

	if err := tts.CheckOutput(req.OutputPath); err != nil {
		return fail(err)
	}
	return req.OutputPath, nil
}

func clampVolume(v float64) float64 {
	if v < -50 {
		return -50
	}
	if v > 50 {
		return 50
	}
	return v
}

func writeTempDoc(doc string) (string, error) {
	f, err := os.CreateTemp("", "edge-ssml-*.xml")
	if err != nil {
		return "", fmt.Errorf("temp markup file: %w", err)
	}
	if _, err := f.WriteString(doc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write markup: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close markup: %w", err)
	}
	return f.Name(), nil
}

// voiceDisplayName turns "uz-UZ-SardorNeural" into "Sardor".
func voiceDisplayName(id string) string {
	parts := strings.Split(id, "-")
	last := parts[len(parts)-1]
	return strings.TrimSuffix(last, "Neural")
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
