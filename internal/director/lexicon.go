package director

import "regexp"

// weightedPhrase is one lexicon entry: a lowercase substring and the score
// it contributes to its emotion. Tiers by convention: high-confidence
// phrases 3–5, medium 2–3, mild cues 2.
type weightedPhrase struct {
	phrase string
	weight float64
}

// emotionLexicon maps each emotion to its keyword entries. Matching is
// case-insensitive substring search over original plus translated text, so
// entries cover the languages the pipeline dubs between (en, uz, ru).
var emotionLexicon = map[Emotion][]weightedPhrase{
	EmotionHappy: {
		{"i'm so happy", 4}, {"wonderful news", 4}, {"juda xursandman", 4},
		{"happy", 2.5}, {"glad", 2.5}, {"xursand", 2.5}, {"рад", 2.5},
		{"nice", 2}, {"good", 2}, {"yaxshi", 2}, {"хорошо", 2},
	},
	EmotionSad: {
		{"i miss you", 4}, {"heartbroken", 5}, {"sog'indim", 4},
		{"sad", 3}, {"crying", 3}, {"yig'la", 3}, {"грустно", 3},
		{"alone", 2}, {"lost", 2}, {"yolg'iz", 2}, {"жаль", 2},
	},
	EmotionAngry: {
		{"i hate you", 5}, {"get out", 4}, {"yo'qol", 4}, {"ненавижу", 5},
		{"hate", 3}, {"furious", 3}, {"jahlim", 3}, {"злой", 3},
		{"stop it", 2}, {"enough", 2}, {"bas qil", 2}, {"хватит", 2},
	},
	EmotionFear: {
		{"i'm scared", 5}, {"help me", 4}, {"qo'rqyapman", 5}, {"страшно", 4},
		{"afraid", 3}, {"terrified", 3}, {"qo'rq", 3}, {"боюсь", 3},
		{"danger", 2}, {"careful", 2}, {"xavf", 2}, {"опасно", 2},
	},
	EmotionSurprise: {
		{"i can't believe", 4}, {"no way", 4}, {"nahotki", 4}, {"не может быть", 4},
		{"really", 2.5}, {"rostdanmi", 2.5}, {"серьёзно", 2.5},
		{"wow", 2}, {"voy", 2}, {"ого", 2},
	},
	EmotionExcited: {
		{"can't wait", 4}, {"let's go", 3}, {"ketdik", 3}, {"поехали", 3},
		{"amazing", 3}, {"ajoyib", 3}, {"потрясающе", 3},
		{"finally", 2}, {"nihoyat", 2}, {"наконец", 2},
	},
	EmotionDisgusted: {
		{"disgusting", 5}, {"jirkanch", 5}, {"отвратительно", 5},
		{"gross", 3}, {"yuck", 3}, {"фу", 3},
		{"awful", 2}, {"yomon", 2},
	},
	EmotionContempt: {
		{"pathetic", 5}, {"beneath me", 4}, {"жалкий", 5},
		{"loser", 3}, {"worthless", 3}, {"nodon", 3},
		{"whatever", 2}, {"как скажешь", 2},
	},
	EmotionTender: {
		{"i love you", 5}, {"sevaman", 5}, {"люблю тебя", 5},
		{"my dear", 3}, {"azizim", 3}, {"дорогой", 3}, {"jonim", 3},
		{"sweet", 2}, {"gentle", 2}, {"mehribon", 2},
	},
	EmotionAnxious: {
		{"what if", 3}, {"i'm worried", 4}, {"xavotirdaman", 4}, {"волнуюсь", 4},
		{"nervous", 3}, {"asabiy", 3}, {"тревожно", 3},
		{"maybe", 2}, {"not sure", 2}, {"bilmadim", 2},
	},
}

// stageDirection maps an explicit stage-direction marker in the text to a
// delivery style. Markers take priority over every heuristic. Checked in
// declared order.
var stageDirections = []struct {
	pattern  *regexp.Regexp
	delivery Delivery
}{
	{regexp.MustCompile(`(?i)[\*\(](whisper|whispers|whispering|shivirlab|шёпотом)[\*\)]`), DeliveryWhisper},
	{regexp.MustCompile(`(?i)[\*\(](shout|shouts|shouting|yells|baqirib|кричит)[\*\)]`), DeliveryShout},
	{regexp.MustCompile(`(?i)[\*\(](soft|softly|quietly|sekin|тихо)[\*\)]`), DeliverySoft},
	{regexp.MustCompile(`(?i)[\*\(](trembling|shaking|titrab|дрожа)[\*\)]`), DeliveryTrembling},
}

// deliveryDefaults maps an emotion to its delivery when no marker or
// exclamation heuristic fired. High kicks in above highIntensity.
var deliveryDefaults = map[Emotion]struct {
	base Delivery
	high Delivery
}{
	EmotionAngry:   {DeliveryLoud, DeliveryShout},
	EmotionFear:    {DeliveryTense, DeliveryTrembling},
	EmotionSad:     {DeliverySoft, DeliveryTrembling},
	EmotionTender:  {DeliverySoft, DeliverySoft},
	EmotionAnxious: {DeliveryTense, DeliveryTense},
	EmotionExcited: {DeliveryLoud, DeliveryLoud},
}

// highIntensity is the threshold above which the high-intensity delivery
// default applies.
const highIntensity = 0.7

// commandVerbs are imperative sentence openers checked by the intent
// cascade. Lowercase; matched as a prefix of the trimmed line.
var commandVerbs = []string{
	"stop", "go", "come", "get", "give", "listen", "look", "wait", "leave",
	"don't", "do not", "tell me", "show me",
	"to'xta", "ket", "kel", "ber", "qara", "kut", "gapir",
	"стой", "иди", "дай", "слушай", "смотри", "жди", "говори",
}

// rhetoricalMarkers turn a trailing question mark into mockery rather than
// a genuine question.
var rhetoricalMarkers = []string{
	"oh really", "seriously", "you think", "is that so",
	"nahotki", "shunaqami", "да неужели", "серьёзно",
}

// intentGroups is the keyword cascade evaluated after command/question
// detection, in declared priority order. First group with a hit wins.
var intentGroups = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPersuade, []string{"you should", "trust me", "believe me", "ishoning", "поверь"}},
	{IntentComfort, []string{"it's okay", "don't worry", "everything will", "xavotir olma", "не волнуйся", "всё будет"}},
	{IntentThreaten, []string{"or else", "you'll regret", "i warn", "afsuslanasan", "пожалеешь"}},
	{IntentConfide, []string{"between us", "don't tell", "my secret", "sirim", "по секрету"}},
	{IntentApologize, []string{"i'm sorry", "forgive me", "my fault", "kechir", "прости", "uzr"}},
	{IntentAccuse, []string{"you did", "it was you", "your fault", "sen qilding", "это ты"}},
	{IntentPlead, []string{"please", "i beg", "iltimos", "yolvoraman", "умоляю", "пожалуйста"}},
	{IntentCelebrate, []string{"congratulations", "we did it", "tabriklayman", "uddaladik", "поздравляю"}},
	{IntentMourn, []string{"rest in peace", "he's gone", "she's gone", "vafot", "olamdan o'tdi", "скончал"}},
}

// Keyword sets for the independent vocal-quality checks.
var (
	exhaustionKeywords  = []string{"tired", "exhausted", "can't go on", "charchadim", "holdan toydim", "устал"}
	shakingKeywords     = []string{"shaking", "trembling", "titrayapman", "дрожу"}
	painKeywords        = []string{"it hurts", "ouch", "pain", "og'riyapti", "больно"}
	resignationKeywords = []string{"whatever", "never mind", "i give up", "mayli", "baribir", "всё равно"}
)

// sarcasmPatterns is the ordered subtext detector: the first matching
// pattern sets the subtext description.
var sarcasmPatterns = []struct {
	pattern *regexp.Regexp
	subtext string
}{
	{regexp.MustCompile(`(?i)\boh,? (sure|great|wonderful|perfect)\b`), "sarcastic agreement"},
	{regexp.MustCompile(`(?i)\byeah,? right\b`), "open disbelief"},
	{regexp.MustCompile(`(?i)\bhow original\b`), "mocking praise"},
	{regexp.MustCompile(`(?i)\bjust (great|perfect|what i needed)\b`), "frustration masked as praise"},
	{regexp.MustCompile(`(?i)\bnice going\b`), "blame disguised as praise"},
	{regexp.MustCompile(`(?i)\bzo'r[- ]?da\b`), "sarcastic agreement"},
	{regexp.MustCompile(`(?i)\bну конечно\b`), "sarcastic agreement"},
}

// explicitCues maps marker words inside *...* or (...) to paralinguistic
// cue types.
var explicitCues = []struct {
	pattern *regexp.Regexp
	cue     string
}{
	{regexp.MustCompile(`(?i)[\*\(]sighs?[\*\)]`), "sigh"},
	{regexp.MustCompile(`(?i)[\*\(]laughs?[\*\)]`), "laugh"},
	{regexp.MustCompile(`(?i)[\*\(]gasps?[\*\)]`), "gasp"},
	{regexp.MustCompile(`(?i)[\*\(]sobs?[\*\)]`), "sob"},
	{regexp.MustCompile(`(?i)[\*\(]coughs?[\*\)]`), "cough"},
}

// negativeSentiment marks a previous line as negative for the cross-line
// irony check.
var negativeSentimentKeywords = []string{
	"bad", "terrible", "awful", "failed", "lost", "broke", "wrong",
	"yomon", "xato", "плохо", "ужасно",
}

// stronglyPositiveKeywords mark the current line as effusively positive.
var stronglyPositiveKeywords = []string{
	"great", "wonderful", "perfect", "fantastic", "amazing",
	"ajoyib", "zo'r", "отлично", "прекрасно",
}
