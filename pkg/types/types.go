// Package types defines the shared records used across all dubpipe packages.
//
// These types form the lingua franca between the acting director, the TTS
// drivers, the audio post-processors, and the clip service. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import "time"

// Gender is the detected or declared gender of a speaker's voice.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// AgeGroup is a coarse age bucket used when picking a default voice.
type AgeGroup string

const (
	AgeChild  AgeGroup = "child"
	AgeYoung  AgeGroup = "young"
	AgeAdult  AgeGroup = "adult"
	AgeSenior AgeGroup = "senior"
)

// Speaker is the persistent voice identity of one detected character in a
// video. Created once per detected speaker; mutated by manual tuning or
// automatic profile assignment; never deleted except on video reset.
type Speaker struct {
	// ID is the speaker's stable identifier within the video.
	ID int64

	// VideoID is the video this speaker belongs to.
	VideoID int64

	// Name is the display label ("Speaker 1", or a user-assigned name).
	Name string

	Gender Gender
	Age    AgeGroup

	// MedianPitchHz is the median fundamental frequency measured from the
	// speaker's source audio by the diarization stage. Zero if unmeasured.
	MedianPitchHz float64

	// Emotion is the speaker's baseline emotion label from analysis.
	Emotion string

	// Provider selects the TTS backend for this speaker by registered name
	// (e.g., "edge", "elevenlabs", "xtts"). Empty means the global default.
	Provider string

	// VoiceID is the provider-specific voice identifier, if one has been
	// assigned. Empty means the driver must resolve a default voice.
	VoiceID string

	// CloneSamplePath points at the reference audio used for voice cloning.
	// Empty for speakers using preset voices.
	CloneSamplePath string

	// GainDB is a manual per-speaker loudness trim applied in post.
	GainDB float64

	// RatePercent is a manual speaking-rate trim (-10..+15).
	RatePercent float64

	// PitchOffsetHz is a manual pitch trim applied on top of the voice's
	// native pitch. Providers clamp it to their documented bounds.
	PitchOffsetHz float64
}

// Segment is one dialogue utterance of a video: its time slot, source and
// translated text, and the synthesis results once available. The time range
// is immutable once the text is finalized.
type Segment struct {
	ID        int64
	VideoID   int64
	SpeakerID int64

	// StartTime and EndTime bound the slot in seconds. StartTime < EndTime.
	StartTime float64
	EndTime   float64

	// Text is the original-language transcript.
	Text string

	// TranslatedText is the target-language line to synthesize.
	TranslatedText string

	// PreviousText and NextText carry the adjacent original-language lines
	// of the scene, when known. Acting direction uses them for cross-line
	// cues such as an ironic response to bad news.
	PreviousText string
	NextText     string

	// Language is the target language code ("uz", "ru", "en", ...).
	Language string

	// Emotion, Delivery and Intent hold the resolved direction once a
	// synthesis has run. Stored for display and regeneration.
	Emotion  string
	Delivery string
	Intent   string

	// AudioPath is the synthesized, post-processed audio clip. Empty until
	// the first successful synthesis.
	AudioPath string

	// GainDB is a per-segment loudness trim layered over the speaker gain.
	GainDB float64

	// LoudnessLUFS is the measured integrated loudness of AudioPath.
	LoudnessLUFS float64
}

// SlotDuration returns the time window the synthesized line must fit into.
func (s Segment) SlotDuration() float64 {
	return s.EndTime - s.StartTime
}

// QualityMetric is a post-hoc measurement of one synthesis attempt.
// Append-only: one record per segment per (re)generation.
type QualityMetric struct {
	SegmentID int64
	VideoID   int64
	Provider  string

	// DurationRatio is synthesized duration divided by the slot duration.
	// 1.0 means a perfect fit; >1 means the raw take ran long.
	DurationRatio float64

	// RMSLevel is the root-mean-square level of the final audio (0..1).
	RMSLevel float64

	// PitchHz is the measured median pitch of the final audio, if probed.
	PitchHz float64

	// StretchFactor is the time-stretch ratio applied in post (1.0 = none).
	StretchFactor float64

	// Trimmed reports whether the take had to be hard-trimmed to the slot.
	Trimmed bool

	CreatedAt time.Time
}
