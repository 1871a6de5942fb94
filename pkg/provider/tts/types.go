package tts

import (
	"errors"
	"fmt"
	"os"

	"github.com/bekzodm/dubpipe/pkg/types"
)

// ErrCloningUnsupported is returned by CloneVoice on providers without
// voice cloning.
var ErrCloningUnsupported = errors.New("tts: provider does not support voice cloning")

// Voice is one entry of a provider's voice catalogue.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which backend this voice belongs to.
	Provider string

	// Language is the voice's primary language code, or "multi".
	Language string

	Gender types.Gender

	// Cloned reports whether this voice was created by CloneVoice.
	Cloned bool
}

// Params are the Direction-derived prosody adjustments handed to a driver.
// Values are already clamped by the acting director; drivers re-clamp the
// merged result to their own safe envelope.
type Params struct {
	// Emotion is the resolved emotion label, for engines that accept one.
	Emotion string

	// Intensity is the emotion intensity in 0..1.
	Intensity float64

	// RateAdjust is a speaking-rate delta in percent (-20..+20).
	RateAdjust float64

	// VolumeAdjust is a loudness delta in percent (-50..+50).
	VolumeAdjust float64

	// Breathiness, Tension and Tremolo are 0..1 texture hints; engines
	// without matching controls ignore them (post-processing picks them up).
	Breathiness float64
	Tension     float64
	Tremolo     float64
}

// Request is one synthesis job: a segment's text plus everything a driver
// needs to pick a voice and shape prosody.
type Request struct {
	// Text is the raw translated line. Drivers normalize it for Language
	// via textnorm before synthesis.
	Text string

	// Language is the target language code.
	Language string

	Speaker types.Speaker
	Segment types.Segment

	Params Params

	// UsedVoices lists voice IDs already assigned to other speakers in the
	// same video. Default-voice resolution must avoid them.
	UsedVoices []string

	// OutputPath is the deterministic per-segment destination file.
	OutputPath string
}

// CloneOptions carry optional metadata for a CloneVoice call.
type CloneOptions struct {
	// Description is a free-text note stored with the cloned voice.
	Description string

	// Language is the primary language of the reference sample.
	Language string
}

// SynthesisError is the typed fatal error for one segment's synthesis
// attempt. No internal retry happens; the invoking job layer decides.
type SynthesisError struct {
	Provider  string
	SegmentID int64
	Err       error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts: %s: segment %d: %v", e.Provider, e.SegmentID, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// minOutputBytes is the sanity floor for a synthesized file; anything
// smaller is treated as a failed take. Matches the synthesis service's own
// output check.
const minOutputBytes = 1000

// CheckOutput verifies that a synthesis output exists and is plausibly
// sized. Returns a descriptive error suitable for wrapping in a
// *SynthesisError.
func CheckOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output missing: %w", err)
	}
	if info.Size() < minOutputBytes {
		return fmt.Errorf("output implausibly small: %d bytes", info.Size())
	}
	return nil
}

// ResolveVoice picks the effective voice for a request: the speaker's
// stored ID if set, otherwise a deterministic default from the provider's
// per-gender catalogue that avoids voices already used by other speakers in
// the video. When every default is taken the speaker ID indexes the list,
// so the choice stays stable across regenerations.
func ResolveVoice(req Request, defaults map[types.Gender][]string) string {
	if req.Speaker.VoiceID != "" {
		return req.Speaker.VoiceID
	}

	pool := defaults[req.Speaker.Gender]
	if len(pool) == 0 {
		pool = defaults[types.GenderUnknown]
	}
	if len(pool) == 0 {
		return ""
	}

	used := make(map[string]bool, len(req.UsedVoices))
	for _, v := range req.UsedVoices {
		used[v] = true
	}
	for _, candidate := range pool {
		if !used[candidate] {
			return candidate
		}
	}
	idx := int(req.Speaker.ID % int64(len(pool)))
	if idx < 0 {
		idx += len(pool)
	}
	return pool[idx]
}
