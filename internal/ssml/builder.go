// Package ssml builds per-segment speech markup for markup-driven TTS
// engines. One prosody block is emitted per sentence with a tuned
// inter-sentence break between blocks, so emotional pacing survives engines
// that reset prosody at document boundaries.
package ssml

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/bekzodm/dubpipe/internal/director"
)

// Prosody is the caller-supplied base for the whole segment. Sentence-level
// nudges are additive deltas on top of these values.
type Prosody struct {
	RatePercent   float64
	PitchHz       float64
	VolumePercent float64
}

// baseBreakMs is the inter-sentence pause before emotion adjustment.
const baseBreakMs = 350

// breakAdjustMs tunes the inter-sentence pause per emotion: grief breathes,
// anger rushes.
var breakAdjustMs = map[director.Emotion]int{
	director.EmotionSad:     150,
	director.EmotionAngry:   -150,
	director.EmotionExcited: -100,
	director.EmotionHappy:   -100,
	director.EmotionFear:    -50,
}

// contrastConjunctions extend the pause before a sentence that pivots
// against the previous one.
var contrastConjunctions = []string{
	"but", "however", "yet", "still",
	"lekin", "ammo", "biroq",
	"но", "однако", "зато",
}

// Build renders the markup document for one segment.
func Build(text, voice string, emotion director.Emotion, base Prosody) string {
	sentences := SplitSentences(text)

	var b strings.Builder
	b.WriteString(`<speak>`)
	if voice != "" {
		fmt.Fprintf(&b, `<voice name=%q>`, voice)
	}

	for i, sentence := range sentences {
		p := nudge(base, sentence)
		fmt.Fprintf(&b, `<prosody rate="%s" pitch="%s" volume="%s">%s</prosody>`,
			signedPercent(p.RatePercent), signedHz(p.PitchHz), signedPercent(p.VolumePercent),
			escape(sentence))

		if i < len(sentences)-1 {
			b.WriteString(fmt.Sprintf(`<break time="%dms"/>`, breakAfter(emotion, sentences[i+1])))
		}
	}

	if voice != "" {
		b.WriteString(`</voice>`)
	}
	b.WriteString(`</speak>`)
	return b.String()
}

// SplitSentences splits on sentence-final punctuation, keeping the
// punctuation attached. Abbreviations like "Mr. Smith" are not
// special-cased; the over-split is a known limitation kept for parity with
// the rest of the pipeline.
func SplitSentences(text string) []string {
	var out []string
	var cur strings.Builder

	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		cur.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Swallow runs of terminal punctuation ("?!", "...").
		if i+1 < len(runes) {
			next := runes[i+1]
			if next == '.' || next == '!' || next == '?' {
				continue
			}
		}
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// nudge applies the sentence-local prosody deltas: exclamations get
// brighter and faster, questions rise, trailing thoughts slow down.
func nudge(base Prosody, sentence string) Prosody {
	p := base
	switch {
	case strings.HasSuffix(sentence, "!"):
		p.PitchHz += 5
		p.RatePercent += 3
	case strings.HasSuffix(sentence, "?"):
		p.PitchHz += 8
	}
	if strings.Contains(sentence, "...") || strings.ContainsRune(sentence, '…') {
		p.RatePercent -= 5
	}
	return p
}

// breakAfter computes the pause before next, adjusted by emotion and by a
// contrast conjunction opening the next sentence.
func breakAfter(emotion director.Emotion, next string) int {
	ms := baseBreakMs + breakAdjustMs[emotion]

	first := strings.ToLower(strings.TrimLeft(next, `"'«`))
	for _, conj := range contrastConjunctions {
		if strings.HasPrefix(first, conj+" ") || strings.HasPrefix(first, conj+",") {
			ms += 100
			break
		}
	}
	if ms < 0 {
		ms = 0
	}
	return ms
}

func signedPercent(v float64) string {
	return fmt.Sprintf("%+.0f%%", v)
}

func signedHz(v float64) string {
	return fmt.Sprintf("%+.0fHz", v)
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
