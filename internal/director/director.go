package director

import (
	"fmt"
	"strings"
	"unicode"
)

// maxScoreForFullIntensity converts a winning emotion score to intensity:
// intensity = min(1, score/6).
const maxScoreForFullIntensity = 6.0

// neutralPromotionThreshold is the minimum winning score required to
// promote the dominant emotion away from neutral.
const neutralPromotionThreshold = 2.0

// neutralIntensity is the fixed intensity reported for neutral lines.
const neutralIntensity = 0.3

// longLineChars is the length above which a line gets a generic breath cue
// if no other breath-type cue was detected.
const longLineChars = 60

// Analyze derives a Direction from a dialogue line. originalText is the
// source-language line, translatedText the line to be synthesized; both feed
// keyword matching so cues survive translation. ctx supplies neighbouring
// lines for the cross-line irony check and may be zero.
func Analyze(originalText, translatedText string, ctx Context) Direction {
	text := translatedText
	if strings.TrimSpace(text) == "" {
		text = originalText
	}
	searchable := strings.ToLower(originalText + " " + translatedText)

	scores := scoreEmotions(text, searchable)
	emotion, intensity := dominantEmotion(scores)

	delivery := resolveDelivery(text, emotion, intensity)
	intent := resolveIntent(text, searchable)
	qualities := resolveVocalQualities(searchable, delivery, emotion, intensity)
	subtext := resolveSubtext(text, searchable, ctx)
	cues := resolveParalinguistics(text, emotion, intensity)

	return Direction{
		Emotion:         emotion,
		Intensity:       intensity,
		Delivery:        delivery,
		Intent:          intent,
		VocalQuality:    qualities,
		Subtext:         subtext,
		Paralinguistics: cues,
		ActingNote:      buildActingNote(emotion, intensity, delivery, intent, subtext, qualities),
	}
}

// scoreEmotions accumulates a weighted score per emotion from punctuation
// signals and the keyword lexicons.
func scoreEmotions(text, searchable string) map[Emotion]float64 {
	scores := make(map[Emotion]float64, len(emotionVocabulary))

	exclamations := strings.Count(text, "!")
	switch {
	case exclamations >= 3:
		scores[EmotionAngry] += 3
		scores[EmotionExcited] += 3
	case exclamations == 2:
		scores[EmotionAngry] += 2
		scores[EmotionExcited] += 2
		scores[EmotionSurprise] += 1
	case exclamations == 1:
		scores[EmotionExcited] += 1
	}

	if strings.Count(text, "?") >= 2 {
		scores[EmotionSurprise] += 2
		scores[EmotionAnxious] += 1
	}

	if strings.Contains(text, "...") || strings.ContainsRune(text, '…') {
		scores[EmotionSad] += 1
		scores[EmotionAnxious] += 1
		scores[EmotionTender] += 0.5
	}

	for _, word := range strings.Fields(text) {
		if isShoutedWord(word) {
			scores[EmotionAngry] += 2
			scores[EmotionExcited] += 1
			break
		}
	}

	for emotion, entries := range emotionLexicon {
		for _, e := range entries {
			if strings.Contains(searchable, e.phrase) {
				scores[emotion] += e.weight
			}
		}
	}

	return scores
}

// isShoutedWord reports whether word is an ALL-CAPS word of length >= 4.
func isShoutedWord(word string) bool {
	letters := 0
	for _, r := range strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 4
}

// dominantEmotion picks the arg-max emotion. Ties resolve to the earlier
// entry in emotionVocabulary (first-declared-wins): a later emotion must
// strictly beat the current maximum to take over. Neutral wins unless the
// best score reaches the promotion threshold.
func dominantEmotion(scores map[Emotion]float64) (Emotion, float64) {
	best := EmotionNeutral
	bestScore := 0.0
	for _, e := range emotionVocabulary {
		if s := scores[e]; s > bestScore {
			best, bestScore = e, s
		}
	}
	if best == EmotionNeutral || bestScore < neutralPromotionThreshold {
		return EmotionNeutral, neutralIntensity
	}
	intensity := bestScore / maxScoreForFullIntensity
	if intensity > 1 {
		intensity = 1
	}
	return best, intensity
}

// resolveDelivery runs the delivery cascade: explicit stage directions,
// then exclamation heuristics, then per-emotion defaults.
func resolveDelivery(text string, emotion Emotion, intensity float64) Delivery {
	for _, sd := range stageDirections {
		if sd.pattern.MatchString(text) {
			return sd.delivery
		}
	}

	exclamations := strings.Count(text, "!")
	switch {
	case exclamations >= 3:
		return DeliveryShout
	case exclamations >= 2 && emotion == EmotionAngry:
		return DeliveryShout
	case exclamations >= 2:
		return DeliveryLoud
	}

	if def, ok := deliveryDefaults[emotion]; ok {
		if intensity > highIntensity {
			return def.high
		}
		return def.base
	}
	return DeliveryNormal
}

// resolveIntent runs the ordered intent cascade.
func resolveIntent(text, searchable string) Intent {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	for _, verb := range commandVerbs {
		if strings.HasPrefix(trimmed, verb+" ") || trimmed == verb ||
			strings.HasPrefix(trimmed, verb+"!") || strings.HasPrefix(trimmed, verb+",") {
			return IntentCommand
		}
	}

	if strings.HasSuffix(strings.TrimRight(trimmed, " "), "?") {
		for _, marker := range rhetoricalMarkers {
			if strings.Contains(searchable, marker) {
				return IntentMock
			}
		}
		return IntentQuestion
	}

	for _, group := range intentGroups {
		for _, kw := range group.keywords {
			if strings.Contains(searchable, kw) {
				return group.intent
			}
		}
	}
	return IntentInform
}

// resolveVocalQualities runs the independent boolean texture checks.
// Order is stable so notes and tests are deterministic.
func resolveVocalQualities(searchable string, delivery Delivery, emotion Emotion, intensity float64) []VocalQuality {
	var out []VocalQuality
	add := func(q VocalQuality) { out = append(out, q) }

	if delivery == DeliveryWhisper || containsAny(searchable, exhaustionKeywords) {
		add(QualityBreathy)
	}
	if delivery == DeliveryTense || emotion == EmotionAnxious {
		add(QualityTense)
	}
	if delivery == DeliveryTrembling || containsAny(searchable, shakingKeywords) {
		add(QualityTrembling)
	}
	if containsAny(searchable, painKeywords) {
		add(QualityStrained)
	}
	if containsAny(searchable, resignationKeywords) {
		add(QualityCreaky)
	}
	if emotion == EmotionSad && intensity > 0.6 {
		add(QualityNasal)
	}
	return out
}

// resolveSubtext detects sarcasm/irony: pattern list first, then the
// cross-line check (negative previous line + strongly positive current).
func resolveSubtext(text, searchable string, ctx Context) string {
	for _, sp := range sarcasmPatterns {
		if sp.pattern.MatchString(text) {
			return sp.subtext
		}
	}

	if ctx.PreviousText != "" {
		prev := strings.ToLower(ctx.PreviousText)
		if containsAny(prev, negativeSentimentKeywords) && containsAny(searchable, stronglyPositiveKeywords) {
			return "ironic response"
		}
	}
	return ""
}

// resolveParalinguistics collects explicit cue markers and derives implicit
// breaths from emotion, intensity and line length.
func resolveParalinguistics(text string, emotion Emotion, intensity float64) []Cue {
	var cues []Cue

	for _, ec := range explicitCues {
		if loc := ec.pattern.FindStringIndex(text); loc != nil {
			cues = append(cues, Cue{Type: ec.cue, Position: positionOf(loc[0], len(text))})
		}
	}

	hasBreath := false
	for _, c := range cues {
		if strings.Contains(c.Type, "breath") || c.Type == "sigh" || c.Type == "gasp" {
			hasBreath = true
		}
	}

	switch {
	case emotion == EmotionSad && intensity >= 0.7:
		cues = append(cues, Cue{Type: "shaky_breath", Position: CueStart})
		hasBreath = true
	case emotion == EmotionFear && intensity >= 0.4:
		cues = append(cues, Cue{Type: "quick_breath", Position: CueStart})
		hasBreath = true
	case emotion == EmotionAngry && intensity >= 0.7 && len(text) > 40:
		cues = append(cues, Cue{Type: "heavy_breath", Position: CueEnd})
		hasBreath = true
	}

	if len(text) > longLineChars && !hasBreath {
		cues = append(cues, Cue{Type: "breath", Position: CueStart})
	}
	return cues
}

func positionOf(index, length int) CuePosition {
	if length == 0 {
		return CueStart
	}
	switch ratio := float64(index) / float64(length); {
	case ratio < 0.33:
		return CueStart
	case ratio < 0.66:
		return CueMiddle
	default:
		return CueEnd
	}
}

// buildActingNote assembles the human-readable summary shown in the editor.
func buildActingNote(emotion Emotion, intensity float64, delivery Delivery, intent Intent, subtext string, qualities []VocalQuality) string {
	var parts []string

	if emotion != EmotionNeutral {
		qualifier := "mildly"
		switch {
		case intensity >= 0.8:
			qualifier = "intensely"
		case intensity >= 0.5:
			qualifier = "clearly"
		}
		parts = append(parts, fmt.Sprintf("%s %s", qualifier, emotion))
	}

	if delivery != DeliveryNormal {
		parts = append(parts, deliveryDescription(delivery))
	}
	if intent != IntentInform {
		parts = append(parts, intentDescription(intent))
	}
	if subtext != "" {
		parts = append(parts, "("+subtext+")")
	}
	if len(qualities) > 0 {
		names := make([]string, len(qualities))
		for i, q := range qualities {
			names[i] = string(q)
		}
		parts = append(parts, strings.Join(names, ", ")+" voice")
	}

	if len(parts) == 0 {
		return "neutral delivery"
	}
	return strings.Join(parts, "; ")
}

func deliveryDescription(d Delivery) string {
	switch d {
	case DeliveryWhisper:
		return "whispered"
	case DeliverySoft:
		return "spoken softly"
	case DeliveryLoud:
		return "raised voice"
	case DeliveryShout:
		return "shouted"
	case DeliveryTrembling:
		return "trembling delivery"
	case DeliveryTense:
		return "tense delivery"
	default:
		return string(d)
	}
}

func intentDescription(i Intent) string {
	switch i {
	case IntentQuestion:
		return "asking"
	case IntentCommand:
		return "commanding"
	case IntentMock:
		return "mocking"
	case IntentPersuade:
		return "persuading"
	case IntentComfort:
		return "comforting"
	case IntentThreaten:
		return "threatening"
	case IntentConfide:
		return "confiding"
	case IntentApologize:
		return "apologizing"
	case IntentAccuse:
		return "accusing"
	case IntentPlead:
		return "pleading"
	case IntentCelebrate:
		return "celebrating"
	case IntentMourn:
		return "mourning"
	default:
		return string(i)
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
