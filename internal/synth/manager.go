// Package synth orchestrates one segment's synthesis: acting direction,
// driver dispatch by provider name, audio post-processing, and quality
// metric capture. Synthesis failures are fatal to the attempt; everything
// after a successful take degrades gracefully, because some audio beats no
// audio.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/bekzodm/dubpipe/internal/audiofx"
	"github.com/bekzodm/dubpipe/internal/config"
	"github.com/bekzodm/dubpipe/internal/director"
	"github.com/bekzodm/dubpipe/internal/metricstore"
	"github.com/bekzodm/dubpipe/internal/observe"
	"github.com/bekzodm/dubpipe/pkg/provider/tts"
	"github.com/bekzodm/dubpipe/pkg/types"
)

// volumeInPost lists backends whose API has no volume control; for these
// the Direction's volume delta is applied by the post stage instead.
var volumeInPost = map[string]bool{
	"elevenlabs": true,
	"playht":     true,
	"xtts":       true,
}

// Result is the outcome of one successful synthesis attempt.
type Result struct {
	// AudioPath is the final, post-processed audio file.
	AudioPath string

	// Direction is the acting analysis that drove the synthesis.
	Direction director.Direction

	// StretchFactor is the time-stretch applied in post (1.0 = none).
	StretchFactor float64
}

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

// WithProcessor sets the mastering pass. Nil skips post-processing.
func WithProcessor(p *audiofx.Processor) Option {
	return func(m *Manager) { m.processor = p }
}

// WithNaturalSpeech sets the optional humanization pass.
func WithNaturalSpeech(n *audiofx.NaturalSpeech) Option {
	return func(m *Manager) { m.natural = n }
}

// WithMetricStore sets the quality-metric sink.
func WithMetricStore(s metricstore.Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithMetrics sets the telemetry instruments.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Manager) { m.metrics = met }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager dispatches synthesis to the configured drivers. Safe for
// concurrent use.
type Manager struct {
	providers   map[string]tts.Provider
	defaultName string
	audioRoot   string

	processor *audiofx.Processor
	natural   *audiofx.NaturalSpeech
	store     metricstore.Store
	metrics   *observe.Metrics
	log       *slog.Logger
}

// NewManager creates a Manager over the given drivers. defaultName selects
// the backend for speakers with no explicit provider and must be among the
// drivers when non-empty.
func NewManager(providers map[string]tts.Provider, defaultName, audioRoot string, opts ...Option) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("synth: no providers configured")
	}
	if defaultName != "" {
		if _, ok := providers[defaultName]; !ok {
			return nil, fmt.Errorf("synth: default %w: %q", config.ErrProviderNotRegistered, defaultName)
		}
	}
	m := &Manager{
		providers:   providers,
		defaultName: defaultName,
		audioRoot:   audioRoot,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// BuildProviders instantiates every configured backend through the
// registry. An unregistered name is a fatal configuration error.
func BuildProviders(reg *config.Registry, pc config.ProvidersConfig) (map[string]tts.Provider, error) {
	out := make(map[string]tts.Provider, len(pc.Entries))
	for _, entry := range pc.Entries {
		p, err := reg.Create(entry)
		if err != nil {
			return nil, fmt.Errorf("synth: build %q: %w", entry.Name, err)
		}
		out[entry.Name] = p
	}
	return out, nil
}

// ProviderFor resolves the driver for a speaker: the speaker's configured
// backend, or the global default.
func (m *Manager) ProviderFor(speaker types.Speaker) (tts.Provider, error) {
	name := speaker.Provider
	if name == "" {
		name = m.defaultName
	}
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("synth: %w: %q", config.ErrProviderNotRegistered, name)
	}
	return p, nil
}

// AudioPath returns the deterministic artifact location for a segment.
func (m *Manager) AudioPath(seg types.Segment) string {
	return filepath.Join(m.audioRoot, "audio", fmt.Sprintf("%d", seg.VideoID),
		fmt.Sprintf("seg_%d.wav", seg.ID))
}

// SynthesizeSegment runs the full per-segment pipeline: direction, driver
// synthesis, post-processing, quality metric. The returned audio path is
// final and ready for muxing.
func (m *Manager) SynthesizeSegment(ctx context.Context, speaker types.Speaker, seg types.Segment, usedVoices []string) (*Result, error) {
	if strings.TrimSpace(seg.TranslatedText) == "" {
		return nil, fmt.Errorf("synth: segment %d has no translated text", seg.ID)
	}
	provider, err := m.ProviderFor(speaker)
	if err != nil {
		return nil, err
	}

	dir := director.Analyze(seg.Text, seg.TranslatedText, director.Context{
		PreviousText: seg.PreviousText,
		NextText:     seg.NextText,
	})
	params := director.MapToTTSParams(dir)

	req := tts.Request{
		Text:     seg.TranslatedText,
		Language: seg.Language,
		Speaker:  speaker,
		Segment:  seg,
		Params: tts.Params{
			Emotion:      string(dir.Emotion),
			Intensity:    dir.Intensity,
			RateAdjust:   params.RateAdjust,
			VolumeAdjust: params.VolumeAdjust,
			Breathiness:  params.Breathiness,
			Tension:      params.Tension,
			Tremolo:      params.Tremolo,
		},
		UsedVoices: usedVoices,
		OutputPath: m.AudioPath(seg),
	}

	start := time.Now()
	path, err := provider.Synthesize(ctx, req)
	if m.metrics != nil {
		m.metrics.RecordSynthesis(ctx, provider.Name(), time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{AudioPath: path, Direction: dir, StretchFactor: 1.0}
	prof := audiofx.Profile{
		Emotion:        string(dir.Emotion),
		Delivery:       string(dir.Delivery),
		VocalQualities: qualityStrings(dir.VocalQuality),
		Gender:         speaker.Gender,
		Intensity:      dir.Intensity,
		SlotDuration:   seg.SlotDuration(),
		GainDB:         speaker.GainDB + seg.GainDB,
		TextLength:     len(seg.TranslatedText),
	}
	if volumeInPost[provider.Name()] {
		prof.VolumeDeltaDB = percentToDB(params.VolumeAdjust)
	}

	if m.processor != nil {
		postStart := time.Now()
		report, perr := m.processor.Process(ctx, path, prof)
		if m.metrics != nil {
			m.metrics.PostProcessDuration.Record(ctx, time.Since(postStart).Seconds())
		}
		if perr != nil {
			// Non-fatal: the un-mastered take is still usable audio.
			m.log.Warn("synth: post-processing failed, keeping raw take",
				"segment", seg.ID, "error", perr)
		} else {
			result.StretchFactor = report.StretchFactor
		}
	}

	if m.natural != nil {
		if nerr := m.natural.Apply(ctx, path, prof); nerr != nil {
			m.log.Warn("synth: humanization failed, keeping mastered take",
				"segment", seg.ID, "error", nerr)
		}
	}

	m.recordQuality(ctx, path, seg, provider.Name(), result.StretchFactor)
	return result, nil
}

// recordQuality measures and appends the metric; failures only warn.
func (m *Manager) recordQuality(ctx context.Context, path string, seg types.Segment, provider string, stretch float64) {
	if m.store == nil {
		return
	}
	metric, err := metricstore.Measure(path, seg, provider, stretch)
	if err != nil {
		m.log.Warn("synth: quality measurement failed", "segment", seg.ID, "error", err)
		return
	}
	if err := m.store.Append(ctx, metric); err != nil {
		m.log.Warn("synth: quality metric append failed", "segment", seg.ID, "error", err)
	}
}

// CloneSpeakerVoice creates a cloned voice from the speaker's reference
// sample on the speaker's backend and returns the new voice ID.
func (m *Manager) CloneSpeakerVoice(ctx context.Context, speaker types.Speaker, language string) (string, error) {
	if speaker.CloneSamplePath == "" {
		return "", fmt.Errorf("synth: speaker %d has no clone sample", speaker.ID)
	}
	provider, err := m.ProviderFor(speaker)
	if err != nil {
		return "", err
	}
	name := speaker.Name
	if name == "" {
		name = fmt.Sprintf("speaker-%d", speaker.ID)
	}
	return provider.CloneVoice(ctx, speaker.CloneSamplePath, name, tts.CloneOptions{
		Language: language,
	})
}

// Voices lists the catalogue of one backend.
func (m *Manager) Voices(ctx context.Context, providerName, language string) ([]tts.Voice, error) {
	p, ok := m.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("synth: %w: %q", config.ErrProviderNotRegistered, providerName)
	}
	return p.Voices(ctx, language)
}

func qualityStrings(qs []director.VocalQuality) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = string(q)
	}
	return out
}

// percentToDB converts a relative volume percentage to decibels.
func percentToDB(percent float64) float64 {
	if percent <= -100 {
		return -60
	}
	return 20 * math.Log10(1+percent/100)
}
