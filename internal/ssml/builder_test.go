package ssml

import (
	"strings"
	"testing"

	"github.com/bekzodm/dubpipe/internal/director"
)

func TestBuildThreeSentences(t *testing.T) {
	doc := Build("First one. Second one! Third one?", "ziyoda", director.EmotionNeutral, Prosody{})

	if got := strings.Count(doc, "<prosody"); got != 3 {
		t.Errorf("prosody blocks = %d, want 3\ndoc: %s", got, doc)
	}
	if got := strings.Count(doc, "<break"); got != 2 {
		t.Errorf("breaks = %d, want 2\ndoc: %s", got, doc)
	}
	if !strings.Contains(doc, `<voice name="ziyoda">`) {
		t.Errorf("missing voice element in %s", doc)
	}
}

func TestBuildProsodyNudges(t *testing.T) {
	base := Prosody{RatePercent: 2, PitchHz: 0, VolumePercent: 10}

	t.Run("exclamation brightens", func(t *testing.T) {
		doc := Build("Wonderful!", "", director.EmotionNeutral, base)
		if !strings.Contains(doc, `rate="+5%"`) || !strings.Contains(doc, `pitch="+5Hz"`) {
			t.Errorf("want rate +5%% and pitch +5Hz, got %s", doc)
		}
	})

	t.Run("question rises", func(t *testing.T) {
		doc := Build("Why?", "", director.EmotionNeutral, base)
		if !strings.Contains(doc, `pitch="+8Hz"`) {
			t.Errorf("want pitch +8Hz, got %s", doc)
		}
	})

	t.Run("ellipsis slows", func(t *testing.T) {
		doc := Build("Well... maybe.", "", director.EmotionNeutral, base)
		if !strings.Contains(doc, `rate="-3%"`) {
			t.Errorf("want rate 2-5 = -3%%, got %s", doc)
		}
	})
}

func TestBuildBreakTiming(t *testing.T) {
	cases := []struct {
		emotion director.Emotion
		want    string
	}{
		{director.EmotionNeutral, `time="350ms"`},
		{director.EmotionSad, `time="500ms"`},
		{director.EmotionAngry, `time="200ms"`},
		{director.EmotionExcited, `time="250ms"`},
		{director.EmotionFear, `time="300ms"`},
	}
	for _, tc := range cases {
		doc := Build("One. Two.", "", tc.emotion, Prosody{})
		if !strings.Contains(doc, tc.want) {
			t.Errorf("%s: want break %s, got %s", tc.emotion, tc.want, doc)
		}
	}
}

func TestBuildContrastConjunctionExtendsBreak(t *testing.T) {
	doc := Build("I tried. But nothing worked.", "", director.EmotionNeutral, Prosody{})
	if !strings.Contains(doc, `time="450ms"`) {
		t.Errorf("want 350+100ms break before contrast, got %s", doc)
	}
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"One. Two. Three.", 3},
		{"Just one line without punctuation", 1},
		{"Wait... what?! No way!", 3},
		{"", 0},
	}
	for _, tc := range cases {
		if got := SplitSentences(tc.in); len(got) != tc.want {
			t.Errorf("SplitSentences(%q) = %v, want %d sentences", tc.in, got, tc.want)
		}
	}
}

func TestBuildEscapesText(t *testing.T) {
	doc := Build("Tom & Jerry < everyone.", "", director.EmotionNeutral, Prosody{})
	if strings.Contains(doc, "& Jerry") || !strings.Contains(doc, "&amp;") {
		t.Errorf("text not escaped: %s", doc)
	}
}
