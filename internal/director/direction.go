// Package director derives an acting direction from a line of dialogue.
//
// The director is deliberately rule-based: a weighted emotion score built
// from punctuation and keyword lexicons, followed by ordered cascades for
// delivery style, speaker intent, vocal quality and subtext. All rules live
// in data tables (see lexicon.go) evaluated in a fixed priority order, so
// behaviour is deterministic and individual rules are testable in isolation.
package director

import "fmt"

// Emotion is a label from the fixed emotion vocabulary.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionFear      Emotion = "fear"
	EmotionSurprise  Emotion = "surprise"
	EmotionExcited   Emotion = "excited"
	EmotionDisgusted Emotion = "disgusted"
	EmotionContempt  Emotion = "contempt"
	EmotionTender    Emotion = "tender"
	EmotionAnxious   Emotion = "anxious"
)

// emotionVocabulary fixes the declaration order of all emotions. Score ties
// resolve to the earlier entry (first-declared-wins), so this order is part
// of the observable behaviour — do not reorder.
var emotionVocabulary = []Emotion{
	EmotionNeutral, EmotionHappy, EmotionSad, EmotionAngry, EmotionFear,
	EmotionSurprise, EmotionExcited, EmotionDisgusted, EmotionContempt,
	EmotionTender, EmotionAnxious,
}

// Delivery is the vocal delivery style for a line.
type Delivery string

const (
	DeliveryNormal    Delivery = "normal"
	DeliveryWhisper   Delivery = "whisper"
	DeliverySoft      Delivery = "soft"
	DeliveryLoud      Delivery = "loud"
	DeliveryShout     Delivery = "shout"
	DeliveryTrembling Delivery = "trembling"
	DeliveryTense     Delivery = "tense"
)

// Intent is the speaker's communicative goal.
type Intent string

const (
	IntentInform    Intent = "inform"
	IntentQuestion  Intent = "question"
	IntentCommand   Intent = "command"
	IntentMock      Intent = "mock"
	IntentPersuade  Intent = "persuade"
	IntentComfort   Intent = "comfort"
	IntentThreaten  Intent = "threaten"
	IntentConfide   Intent = "confide"
	IntentApologize Intent = "apologize"
	IntentAccuse    Intent = "accuse"
	IntentPlead     Intent = "plead"
	IntentCelebrate Intent = "celebrate"
	IntentMourn     Intent = "mourn"
)

// VocalQuality is an independent voice texture tag. Several may co-occur.
type VocalQuality string

const (
	QualityBreathy   VocalQuality = "breathy"
	QualityTense     VocalQuality = "tense"
	QualityTrembling VocalQuality = "trembling"
	QualityStrained  VocalQuality = "strained"
	QualityCreaky    VocalQuality = "creaky"
	QualityNasal     VocalQuality = "nasal"
)

// CuePosition locates a paralinguistic cue within the line.
type CuePosition string

const (
	CueStart  CuePosition = "start"
	CueMiddle CuePosition = "middle"
	CueEnd    CuePosition = "end"
)

// Cue is one paralinguistic event: a sigh, laugh, gasp, breath and so on.
type Cue struct {
	Type     string
	Position CuePosition
}

// Direction is the structured acting analysis for one dialogue line.
// Computed fresh per synthesis call; it has no independent lifecycle.
type Direction struct {
	Emotion   Emotion
	Intensity float64 // 0..1
	Delivery  Delivery
	Intent    Intent

	// VocalQuality holds zero or more co-occurring texture tags.
	VocalQuality []VocalQuality

	// Subtext describes detected sarcasm or irony. Empty when none.
	Subtext string

	// Paralinguistics is ordered by position within the line.
	Paralinguistics []Cue

	// ActingNote is a human-readable summary for the editing UI.
	ActingNote string
}

// HasQuality reports whether q is among the direction's vocal quality tags.
func (d Direction) HasQuality(q VocalQuality) bool {
	for _, got := range d.VocalQuality {
		if got == q {
			return true
		}
	}
	return false
}

// TTSParams are engine-neutral prosody adjustments derived from a Direction.
// Every field is clamped to its documented range by MapToTTSParams.
//
// PitchAdjust stays zero for all emotions and deliveries: pitch encodes
// speaker identity only, so a character's voice stays stable across
// emotional states within a video. Drivers add the speaker's pitch offset
// themselves.
type TTSParams struct {
	RateAdjust   float64 // percent, -20..+20
	PitchAdjust  float64 // Hz, identity-derived only; zero here
	VolumeAdjust float64 // percent, -50..+50
	Breathiness  float64 // 0..1
	Tension      float64 // 0..1
	Tremolo      float64 // 0..1
}

func (p TTSParams) String() string {
	return fmt.Sprintf("rate=%+.1f%% vol=%+.1f%% breath=%.2f tension=%.2f tremolo=%.2f",
		p.RateAdjust, p.VolumeAdjust, p.Breathiness, p.Tension, p.Tremolo)
}

// Context carries the neighbouring lines used for cross-line irony checks.
type Context struct {
	// PreviousText is the preceding line in the same scene, if any.
	PreviousText string

	// NextText is the following line, if already known.
	NextText string
}
