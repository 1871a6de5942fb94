package audiofx

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bekzodm/dubpipe/pkg/media"
	"github.com/bekzodm/dubpipe/pkg/types"
)

// fakeRunner records calls and writes a plausible output file, mimicking a
// successful ffmpeg run. The output path is always the final argument.
type fakeRunner struct {
	info        media.Info
	probeErr    error
	runErr      error
	outputBytes int
	calls       [][]string
}

func (f *fakeRunner) Run(_ context.Context, args ...string) error {
	f.calls = append(f.calls, args)
	if f.runErr != nil {
		return f.runErr
	}
	size := f.outputBytes
	if size == 0 {
		size = 4096
	}
	return os.WriteFile(args[len(args)-1], make([]byte, size), 0o644)
}

func (f *fakeRunner) Probe(context.Context, string) (media.Info, error) {
	return f.info, f.probeErr
}

func (f *fakeRunner) MeasureLoudness(context.Context, string) (media.Loudness, error) {
	return media.Loudness{}, nil
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seg_1.wav")
	if err := os.WriteFile(path, []byte("original audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestChainString(t *testing.T) {
	chain := Chain{
		highpass(60),
		eq(3000, 1.5, 2),
		loudnorm(-16, 11, -1.5),
	}
	want := "highpass=f=60,equalizer=f=3000:width_type=q:w=1.5:g=2,loudnorm=I=-16:LRA=11:TP=-1.5"
	if got := chain.String(); got != want {
		t.Errorf("Chain.String()\n got %q\nwant %q", got, want)
	}
}

func TestStretchSteps(t *testing.T) {
	t.Run("single step under bound", func(t *testing.T) {
		steps := stretchSteps(1.25)
		if len(steps) != 1 || steps[0].String() != "atempo=tempo=1.25" {
			t.Errorf("steps = %v, want single atempo=1.25", steps)
		}
	})

	t.Run("decomposes past the bound", func(t *testing.T) {
		steps := stretchSteps(3.5)
		if len(steps) != 2 {
			t.Fatalf("len = %d, want 2", len(steps))
		}
		if steps[0].String() != "atempo=tempo=2" || steps[1].String() != "atempo=tempo=1.75" {
			t.Errorf("steps = %v, %v, want 2 then 1.75", steps[0], steps[1])
		}
	})
}

func TestBuildChainStretch(t *testing.T) {
	p := NewProcessor(&fakeRunner{})

	t.Run("over slot by more than 5 percent", func(t *testing.T) {
		var report Report
		report.StretchFactor = 1.0
		chain := p.buildChain(media.Info{Duration: 10}, Profile{SlotDuration: 8}, &report)
		if math.Abs(report.StretchFactor-1.25) > 1e-9 {
			t.Errorf("StretchFactor = %v, want 1.25", report.StretchFactor)
		}
		if !strings.Contains(chain.String(), "atempo") {
			t.Error("chain should contain a stretch stage")
		}
	})

	t.Run("within tolerance leaves audio alone", func(t *testing.T) {
		var report Report
		report.StretchFactor = 1.0
		chain := p.buildChain(media.Info{Duration: 8.2}, Profile{SlotDuration: 8}, &report)
		if report.StretchFactor != 1.0 {
			t.Errorf("StretchFactor = %v, want 1.0", report.StretchFactor)
		}
		if strings.Contains(chain.String(), "atempo") {
			t.Error("chain must not stretch within tolerance")
		}
	})

	t.Run("ratio is capped", func(t *testing.T) {
		var report Report
		report.StretchFactor = 1.0
		p.buildChain(media.Info{Duration: 20}, Profile{SlotDuration: 10}, &report)
		if math.Abs(report.StretchFactor-1.4) > 1e-9 {
			t.Errorf("StretchFactor = %v, want cap 1.4", report.StretchFactor)
		}
	})
}

func TestBuildChainGain(t *testing.T) {
	p := NewProcessor(&fakeRunner{})
	var report Report

	quiet := p.buildChain(media.Info{Duration: 1}, Profile{GainDB: 0.3}, &report)
	if strings.Contains(quiet.String(), "volume") {
		t.Error("sub-audibility gain must be skipped")
	}

	loud := p.buildChain(media.Info{Duration: 1}, Profile{GainDB: 2, VolumeDeltaDB: 1}, &report)
	if !strings.Contains(loud.String(), "volume=volume=3.0dB") {
		t.Errorf("chain = %q, want net 3.0dB volume stage", loud.String())
	}
}

func TestBuildChainEmotion(t *testing.T) {
	p := NewProcessor(&fakeRunner{})
	var report Report

	angry := p.buildChain(media.Info{Duration: 1}, Profile{Emotion: "angry", Gender: types.GenderMale}, &report)
	s := angry.String()
	if !strings.Contains(s, "equalizer=f=3000") {
		t.Error("angry chain should boost presence at 3 kHz")
	}
	if !strings.Contains(s, "equalizer=f=120") {
		t.Error("male chain should include the low nudge")
	}
	if !strings.Contains(s, "acompressor=threshold=0.4:ratio=3") {
		t.Error("angry chain should use the loud compression preset")
	}

	neutral := p.buildChain(media.Info{Duration: 1}, Profile{}, &report)
	if !strings.Contains(neutral.String(), "acompressor=threshold=0.3:ratio=2.5") {
		t.Error("unknown emotion should fall back to the default preset")
	}
}

func TestProcess(t *testing.T) {
	t.Run("success replaces input", func(t *testing.T) {
		path := writeInput(t)
		runner := &fakeRunner{info: media.Info{Duration: 10}}
		p := NewProcessor(runner)

		report, err := p.Process(context.Background(), path, Profile{SlotDuration: 8})
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if math.Abs(report.StretchFactor-1.25) > 1e-9 {
			t.Errorf("StretchFactor = %v, want 1.25", report.StretchFactor)
		}
		st, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if st.Size() != 4096 {
			t.Errorf("size = %d, want rendered 4096", st.Size())
		}
		if _, err := os.Stat(path + ".proc.wav"); !errors.Is(err, os.ErrNotExist) {
			t.Error("temp render must not be left behind")
		}
	})

	t.Run("render failure keeps original", func(t *testing.T) {
		path := writeInput(t)
		runner := &fakeRunner{info: media.Info{Duration: 2}, runErr: errors.New("boom")}
		p := NewProcessor(runner)

		if _, err := p.Process(context.Background(), path, Profile{}); err == nil {
			t.Fatal("want error from failed render")
		}
		data, _ := os.ReadFile(path)
		if string(data) != "original audio bytes" {
			t.Error("original audio must survive a failed render")
		}
	})

	t.Run("tiny output is rejected", func(t *testing.T) {
		path := writeInput(t)
		runner := &fakeRunner{info: media.Info{Duration: 2}, outputBytes: 10}
		p := NewProcessor(runner)

		if _, err := p.Process(context.Background(), path, Profile{}); err == nil {
			t.Fatal("want error for undersized render")
		}
		data, _ := os.ReadFile(path)
		if string(data) != "original audio bytes" {
			t.Error("original audio must survive a rejected render")
		}
	})
}

func TestStageToggle(t *testing.T) {
	stages := AllStages()
	stages.Ambience = false
	stages.Loudnorm = false
	p := NewProcessor(&fakeRunner{}, WithStages(stages))

	var report Report
	chain := p.buildChain(media.Info{Duration: 1}, Profile{}, &report).String()
	if strings.Contains(chain, "aecho") || strings.Contains(chain, "loudnorm") {
		t.Errorf("disabled stages leaked into chain %q", chain)
	}
	if !strings.Contains(chain, "alimiter") {
		t.Error("enabled limiter missing from chain")
	}
}
