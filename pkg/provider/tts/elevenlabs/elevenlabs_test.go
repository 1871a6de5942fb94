package elevenlabs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bekzodm/dubpipe/pkg/provider/tts"
	"github.com/bekzodm/dubpipe/pkg/types"
)

func TestNew(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		if _, err := New(""); err == nil {
			t.Fatal("expected error for empty apiKey, got nil")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		p, err := New("key")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if p.model != defaultModel {
			t.Errorf("model = %q, want %q", p.model, defaultModel)
		}
	})

	t.Run("with model", func(t *testing.T) {
		p, _ := New("key", WithModel("eleven_flash_v2_5"))
		if p.model != "eleven_flash_v2_5" {
			t.Errorf("model = %q, want override", p.model)
		}
	})
}

func TestSettingsFor(t *testing.T) {
	t.Run("calm line is stable", func(t *testing.T) {
		vs := settingsFor(tts.Params{Intensity: 0.3}, 0)
		if vs.Stability <= 0.5 {
			t.Errorf("Stability = %v, want > 0.5 for low intensity", vs.Stability)
		}
		if vs.Speed != 1.0 {
			t.Errorf("Speed = %v, want 1.0", vs.Speed)
		}
	})

	t.Run("intense line trades stability for style", func(t *testing.T) {
		vs := settingsFor(tts.Params{Intensity: 1.0}, 0)
		if vs.Stability < 0.2 || vs.Stability > 0.45 {
			t.Errorf("Stability = %v, want in [0.2,0.45]", vs.Stability)
		}
		if vs.Style != 1.0 {
			t.Errorf("Style = %v, want intensity passthrough", vs.Style)
		}
	})

	t.Run("speed is bounded", func(t *testing.T) {
		if vs := settingsFor(tts.Params{}, 40); vs.Speed != 1.15 {
			t.Errorf("Speed = %v, want cap 1.15", vs.Speed)
		}
		if vs := settingsFor(tts.Params{}, -40); vs.Speed != 0.9 {
			t.Errorf("Speed = %v, want floor 0.9", vs.Speed)
		}
	})
}

func TestParseVoices(t *testing.T) {
	vr := voicesResponse{Voices: []apiVoice{
		{VoiceID: "a", Name: "Adam", Category: "premade", Labels: map[string]string{"gender": "male"}},
		{VoiceID: "b", Name: "Hero", Category: "cloned", Labels: map[string]string{"gender": "Female"}},
		{VoiceID: "c", Name: "Mystery"},
	}}

	voices := parseVoices(vr, "uz")
	if len(voices) != 3 {
		t.Fatalf("len = %d, want 3", len(voices))
	}
	if voices[0].Gender != types.GenderMale {
		t.Errorf("voices[0].Gender = %q, want male", voices[0].Gender)
	}
	if !voices[1].Cloned || voices[1].Gender != types.GenderFemale {
		t.Errorf("voices[1] = %+v, want cloned female", voices[1])
	}
	if voices[2].Gender != types.GenderUnknown {
		t.Errorf("voices[2].Gender = %q, want unknown", voices[2].Gender)
	}
}

func TestWriteWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "take.wav")

	// 1200 samples of silence: enough to pass the output sanity check.
	pcm := make([]byte, 2400)
	if err := writeWAV(path, pcm, outputSampleRate); err != nil {
		t.Fatalf("writeWAV: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() < 44 {
		t.Errorf("size = %d, want at least a WAV header", info.Size())
	}
	if err := tts.CheckOutput(path); err != nil {
		t.Errorf("CheckOutput: %v", err)
	}
}

func TestDefaultVoicePools(t *testing.T) {
	for _, gender := range []types.Gender{types.GenderMale, types.GenderFemale, types.GenderUnknown} {
		if len(defaultVoices[gender]) == 0 {
			t.Errorf("no default voices for %q", gender)
		}
	}
}
