// Package textnorm rewrites dialogue text before it reaches a TTS engine.
//
// Synthesis engines stumble over digits, unit abbreviations, and the Latin
// Uzbek digraphs written with apostrophe-like marks (oʻ, gʻ). Normalize
// expands all of these into words the engines are known to render correctly.
//
// Normalize is a pure best-effort function: it never fails, and on any
// anomaly it returns the input text unchanged rather than blocking synthesis.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// locale bundles everything Normalize needs for one language.
type locale struct {
	code string

	// abbreviations is an ordered pattern→replacement table. Order matters:
	// longer, more specific patterns must precede their prefixes, and the
	// whole table runs before number expansion so that "5 km" becomes
	// "5 kilometr" before "5" is spelled out.
	abbreviations []replacement

	// script holds post-expansion character rewrites (digraph mapping for
	// Uzbek). Applied last so that generated number words are covered too.
	script []replacement

	numbers numberWords
}

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

var locales = map[string]*locale{
	"uz": uzbek,
	"ru": russian,
	"en": english,
}

var localeAliases = map[string]string{
	"uzbek":   "uz",
	"uz-uz":   "uz",
	"russian": "ru",
	"ru-ru":   "ru",
	"english": "en",
	"en-us":   "en",
	"en-gb":   "en",
}

// resolveLocale maps a language tag to a locale, or nil if unsupported.
func resolveLocale(language string) *locale {
	key := strings.ToLower(strings.TrimSpace(language))
	if alias, ok := localeAliases[key]; ok {
		key = alias
	}
	return locales[key]
}

// numberToken matches an optionally negative integer or decimal. The decimal
// separator may be "." or "," (Russian text uses the comma).
var numberToken = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// Normalize rewrites text for the given language so that a TTS engine reads
// it naturally: abbreviations and units are expanded, numbers are spelled
// out, and locale-specific characters are mapped to renderable forms.
//
// Unknown languages pass through with only Unicode NFC applied. Normalize is
// idempotent for text that contains no digits or abbreviations.
func Normalize(text, language string) string {
	out := norm.NFC.String(text)

	loc := resolveLocale(language)
	if loc == nil {
		return out
	}

	// Abbreviations before numbers: "5 km" → "5 kilometr" → "besh kilometr".
	for _, r := range loc.abbreviations {
		out = r.pattern.ReplaceAllString(out, r.with)
	}

	out = numberToken.ReplaceAllStringFunc(out, func(tok string) string {
		spelled, ok := spellNumber(tok, loc.numbers)
		if !ok {
			return tok
		}
		return spelled
	})

	// Script rewrites run last so number words are normalized as well.
	for _, r := range loc.script {
		out = r.pattern.ReplaceAllString(out, r.with)
	}

	return out
}
