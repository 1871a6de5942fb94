package tts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bekzodm/dubpipe/pkg/types"
)

func TestSlotRate(t *testing.T) {
	cases := []struct {
		name     string
		textLen  int
		slot     float64
		language string
		want     float64
		wantZero bool
	}{
		{name: "comfortable fit stays untouched", textLen: 22, slot: 2.0, language: "en", wantZero: true},
		{name: "uzbek target is 10cps", textLen: 20, slot: 2.0, language: "uz", wantZero: true},
		{name: "overrun capped at +15", textLen: 60, slot: 2.0, language: "en", want: 15},
		{name: "underrun capped at -10", textLen: 6, slot: 2.0, language: "en", want: -10},
		{name: "empty text", textLen: 0, slot: 2.0, language: "en", wantZero: true},
		{name: "zero slot", textLen: 30, slot: 0, language: "en", wantZero: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SlotRate(tc.textLen, tc.slot, tc.language)
			if tc.wantZero {
				if got != 0 {
					t.Errorf("SlotRate = %v, want 0", got)
				}
				return
			}
			if got != tc.want {
				t.Errorf("SlotRate = %v, want %v", got, tc.want)
			}
		})
	}

	t.Run("mild overrun requests proportional speedup", func(t *testing.T) {
		// 26 chars in 2s = 13 cps vs 11 target → ~18% over, capped at 15;
		// 25 chars = 12.5 cps → ~13.6% over, not capped.
		got := SlotRate(25, 2.0, "en")
		if got <= 10 || got >= 15 {
			t.Errorf("SlotRate = %v, want between 10 and 15", got)
		}
	})
}

func TestClampRate(t *testing.T) {
	if got := ClampRate(40); got != 15 {
		t.Errorf("ClampRate(40) = %v, want 15", got)
	}
	if got := ClampRate(-40); got != -10 {
		t.Errorf("ClampRate(-40) = %v, want -10", got)
	}
	if got := ClampRate(5); got != 5 {
		t.Errorf("ClampRate(5) = %v, want 5", got)
	}
}

func TestClampPitchHz(t *testing.T) {
	if got := ClampPitchHz(200, 50); got != 50 {
		t.Errorf("ClampPitchHz(200, 50) = %v, want 50", got)
	}
	if got := ClampPitchHz(-200, 50); got != -50 {
		t.Errorf("ClampPitchHz(-200, 50) = %v, want -50", got)
	}
}

func TestResolveVoice(t *testing.T) {
	defaults := map[types.Gender][]string{
		types.GenderMale:   {"male-a", "male-b"},
		types.GenderFemale: {"female-a"},
	}

	t.Run("stored id wins", func(t *testing.T) {
		req := Request{Speaker: types.Speaker{VoiceID: "custom", Gender: types.GenderMale}}
		if got := ResolveVoice(req, defaults); got != "custom" {
			t.Errorf("ResolveVoice = %q, want stored id", got)
		}
	})

	t.Run("skips voices used by peers", func(t *testing.T) {
		req := Request{
			Speaker:    types.Speaker{ID: 2, Gender: types.GenderMale},
			UsedVoices: []string{"male-a"},
		}
		if got := ResolveVoice(req, defaults); got != "male-b" {
			t.Errorf("ResolveVoice = %q, want male-b", got)
		}
	})

	t.Run("exhausted pool indexes by speaker id", func(t *testing.T) {
		req := Request{
			Speaker:    types.Speaker{ID: 3, Gender: types.GenderMale},
			UsedVoices: []string{"male-a", "male-b"},
		}
		if got := ResolveVoice(req, defaults); got != "male-b" {
			t.Errorf("ResolveVoice = %q, want male-b (3 %% 2)", got)
		}
	})

	t.Run("negative speaker id stays in the pool", func(t *testing.T) {
		req := Request{
			Speaker:    types.Speaker{ID: -3, Gender: types.GenderMale},
			UsedVoices: []string{"male-a", "male-b"},
		}
		if got := ResolveVoice(req, defaults); got != "male-a" && got != "male-b" {
			t.Errorf("ResolveVoice = %q, want a pool voice", got)
		}
	})
}

func TestCheckOutput(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if err := CheckOutput(filepath.Join(dir, "nope.wav")); err == nil {
			t.Error("want error for missing file")
		}
	})

	t.Run("too small", func(t *testing.T) {
		p := filepath.Join(dir, "tiny.wav")
		if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := CheckOutput(p); err == nil {
			t.Error("want error for implausibly small file")
		}
	})

	t.Run("plausible file", func(t *testing.T) {
		p := filepath.Join(dir, "ok.wav")
		if err := os.WriteFile(p, make([]byte, 4096), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := CheckOutput(p); err != nil {
			t.Errorf("CheckOutput = %v, want nil", err)
		}
	})
}
