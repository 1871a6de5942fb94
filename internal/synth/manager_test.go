package synth

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/bekzodm/dubpipe/internal/audiofx"
	"github.com/bekzodm/dubpipe/internal/config"
	"github.com/bekzodm/dubpipe/internal/director"
	"github.com/bekzodm/dubpipe/internal/metricstore"
	"github.com/bekzodm/dubpipe/pkg/media"
	"github.com/bekzodm/dubpipe/pkg/provider/tts"
	"github.com/bekzodm/dubpipe/pkg/types"
)

// fakeProvider writes a real one-second WAV so quality measurement works.
type fakeProvider struct {
	name     string
	synthErr error
	gotReq   tts.Request
}

func (f *fakeProvider) Name() string               { return f.name }
func (f *fakeProvider) SupportsVoiceCloning() bool { return true }
func (f *fakeProvider) SupportsEmotions() bool     { return true }
func (f *fakeProvider) CostPerCharacter() float64  { return 0 }

func (f *fakeProvider) Voices(context.Context, string) ([]tts.Voice, error) {
	return nil, nil
}

func (f *fakeProvider) CloneVoice(context.Context, string, string, tts.CloneOptions) (string, error) {
	return "clone-1", nil
}

func (f *fakeProvider) Synthesize(_ context.Context, req tts.Request) (string, error) {
	f.gotReq = req
	if f.synthErr != nil {
		return "", f.synthErr
	}
	if err := writeTestWAV(req.OutputPath); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

func writeTestWAV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	const sampleRate = 8000
	data := make([]int, sampleRate)
	for i := range data {
		data[i] = int(0.4 * math.MaxInt16 * math.Sin(2*math.Pi*220*float64(i)/sampleRate))
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// failRunner makes every render fail, for post-failure paths.
type failRunner struct{}

func (failRunner) Run(context.Context, ...string) error {
	return errors.New("render failed")
}

func (failRunner) Probe(context.Context, string) (media.Info, error) {
	return media.Info{Duration: 1}, nil
}

func (failRunner) MeasureLoudness(context.Context, string) (media.Loudness, error) {
	return media.Loudness{}, nil
}

func testSegment() types.Segment {
	return types.Segment{
		ID:             7,
		VideoID:        1,
		StartTime:      0,
		EndTime:        2,
		Text:           "Stop it now!!!",
		TranslatedText: "To'xtat hoziroq!!!",
		Language:       "uz",
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, "", "/tmp"); err == nil {
		t.Error("want error for empty provider map")
	}

	providers := map[string]tts.Provider{"edge": &fakeProvider{name: "edge"}}
	if _, err := NewManager(providers, "xtts", "/tmp"); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered for unknown default", err)
	}
	if _, err := NewManager(providers, "edge", "/tmp"); err != nil {
		t.Errorf("NewManager: %v", err)
	}
}

func TestProviderFor(t *testing.T) {
	edge := &fakeProvider{name: "edge"}
	m, err := NewManager(map[string]tts.Provider{"edge": edge}, "edge", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	p, err := m.ProviderFor(types.Speaker{})
	if err != nil || p != edge {
		t.Errorf("default dispatch = %v, %v; want the edge driver", p, err)
	}

	_, err = m.ProviderFor(types.Speaker{Provider: "bark"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestSynthesizeSegment(t *testing.T) {
	t.Run("full pipeline without post", func(t *testing.T) {
		provider := &fakeProvider{name: "edge"}
		store := metricstore.NewMemory()
		m, err := NewManager(map[string]tts.Provider{"edge": provider}, "edge", t.TempDir(),
			WithMetricStore(store))
		if err != nil {
			t.Fatal(err)
		}

		res, err := m.SynthesizeSegment(context.Background(), types.Speaker{ID: 1}, testSegment(), nil)
		if err != nil {
			t.Fatalf("SynthesizeSegment: %v", err)
		}
		if _, err := os.Stat(res.AudioPath); err != nil {
			t.Errorf("audio missing: %v", err)
		}
		if res.Direction.Emotion != director.EmotionAngry {
			t.Errorf("Emotion = %q, want angry for a shouted line", res.Direction.Emotion)
		}
		if res.StretchFactor != 1.0 {
			t.Errorf("StretchFactor = %v, want 1.0 without post", res.StretchFactor)
		}
		if provider.gotReq.Params.Emotion != "angry" {
			t.Errorf("driver saw emotion %q", provider.gotReq.Params.Emotion)
		}

		metrics, err := store.ListBySegment(context.Background(), 7)
		if err != nil || len(metrics) != 1 {
			t.Fatalf("metrics = %v, %v; want one record", metrics, err)
		}
		if metrics[0].Provider != "edge" {
			t.Errorf("metric provider = %q", metrics[0].Provider)
		}
	})

	t.Run("neighboring lines reach the director", func(t *testing.T) {
		provider := &fakeProvider{name: "edge"}
		m, err := NewManager(map[string]tts.Provider{"edge": provider}, "edge", t.TempDir())
		if err != nil {
			t.Fatal(err)
		}

		seg := testSegment()
		seg.Text = "That is wonderful news."
		seg.TranslatedText = "Bu ajoyib yangilik."
		seg.PreviousText = "Everything failed."

		res, err := m.SynthesizeSegment(context.Background(), types.Speaker{}, seg, nil)
		if err != nil {
			t.Fatalf("SynthesizeSegment: %v", err)
		}
		if res.Direction.Subtext != "ironic response" {
			t.Errorf("Subtext = %q, want the cross-line irony cue", res.Direction.Subtext)
		}
	})

	t.Run("empty translated text", func(t *testing.T) {
		m, _ := NewManager(map[string]tts.Provider{"edge": &fakeProvider{name: "edge"}}, "edge", t.TempDir())
		seg := testSegment()
		seg.TranslatedText = "  "
		if _, err := m.SynthesizeSegment(context.Background(), types.Speaker{}, seg, nil); err == nil {
			t.Fatal("want error for empty text")
		}
	})

	t.Run("synthesis failure is fatal", func(t *testing.T) {
		provider := &fakeProvider{name: "edge", synthErr: errors.New("engine down")}
		m, _ := NewManager(map[string]tts.Provider{"edge": provider}, "edge", t.TempDir())
		if _, err := m.SynthesizeSegment(context.Background(), types.Speaker{}, testSegment(), nil); err == nil {
			t.Fatal("want error when the driver fails")
		}
	})

	t.Run("post failure keeps the raw take", func(t *testing.T) {
		provider := &fakeProvider{name: "edge"}
		store := metricstore.NewMemory()
		m, err := NewManager(map[string]tts.Provider{"edge": provider}, "edge", t.TempDir(),
			WithMetricStore(store),
			WithProcessor(audiofx.NewProcessor(failRunner{})))
		if err != nil {
			t.Fatal(err)
		}

		res, err := m.SynthesizeSegment(context.Background(), types.Speaker{}, testSegment(), nil)
		if err != nil {
			t.Fatalf("post failure must be non-fatal, got %v", err)
		}
		if _, err := os.Stat(res.AudioPath); err != nil {
			t.Errorf("raw take missing: %v", err)
		}
		if metrics, _ := store.ListBySegment(context.Background(), 7); len(metrics) != 1 {
			t.Errorf("metrics = %d records, want the raw take measured", len(metrics))
		}
	})
}

func TestCloneSpeakerVoice(t *testing.T) {
	m, _ := NewManager(map[string]tts.Provider{"xtts": &fakeProvider{name: "xtts"}}, "xtts", t.TempDir())

	if _, err := m.CloneSpeakerVoice(context.Background(), types.Speaker{ID: 1}, "uz"); err == nil {
		t.Error("want error for speaker without a clone sample")
	}

	id, err := m.CloneSpeakerVoice(context.Background(), types.Speaker{ID: 1, CloneSamplePath: "s.wav"}, "uz")
	if err != nil {
		t.Fatalf("CloneSpeakerVoice: %v", err)
	}
	if id != "clone-1" {
		t.Errorf("voice id = %q, want clone-1", id)
	}
}

func TestBuildProviders(t *testing.T) {
	reg := config.NewRegistry()
	reg.Register("edge", func(config.ProviderEntry) (tts.Provider, error) {
		return &fakeProvider{name: "edge"}, nil
	})

	providers, err := BuildProviders(reg, config.ProvidersConfig{
		Entries: []config.ProviderEntry{{Name: "edge"}},
	})
	if err != nil {
		t.Fatalf("BuildProviders: %v", err)
	}
	if len(providers) != 1 {
		t.Errorf("len = %d, want 1", len(providers))
	}

	_, err = BuildProviders(reg, config.ProvidersConfig{
		Entries: []config.ProviderEntry{{Name: "bark"}},
	})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}
