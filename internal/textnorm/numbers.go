package textnorm

import (
	"strconv"
	"strings"
)

// numberWords holds the vocabulary needed to spell numbers in one locale.
type numberWords struct {
	// ones covers 0..19, tens covers 20,30..90 at indices 2..9.
	ones [20]string
	tens [10]string

	// hundreds is used by locales with irregular hundred forms (Russian);
	// when empty, hundreds are composed as "<digit> <hundredWord>".
	hundreds    [10]string
	hundredWord string

	// scales are the thousand/million/billion group words, smallest first.
	// Each scale carries the three plural forms selected by pluralForm;
	// locales without grammatical number repeat the same word.
	scales []scaleWords

	// onesFeminine overrides ones[1] and ones[2] before feminine scale
	// words (Russian "одна тысяча", "две тысячи"). Empty = no override.
	onesFeminine map[int]string

	point string
	minus string
}

type scaleWords struct {
	value int64
	one   string
	few   string
	many  string
	// feminine marks scales that take feminine ones-forms (Russian тысяча).
	feminine bool
}

// pluralForm selects one/few/many by the standard Slavic %10 / %100 rule.
// Locales without plural agreement store identical forms, so the choice is
// harmless for them.
func (s scaleWords) pluralForm(n int64) string {
	mod100 := n % 100
	if mod100 >= 11 && mod100 <= 14 {
		return s.many
	}
	switch n % 10 {
	case 1:
		return s.one
	case 2, 3, 4:
		return s.few
	default:
		return s.many
	}
}

// spellNumber converts a numeric token ("42", "-3.14", "2,5") to words.
// Returns ok=false when the token cannot be parsed or is too large to spell,
// in which case the caller keeps the original token.
func spellNumber(tok string, w numberWords) (string, bool) {
	neg := strings.HasPrefix(tok, "-")
	body := strings.TrimPrefix(tok, "-")

	intPart := body
	var fracPart string
	if i := strings.IndexAny(body, ".,"); i >= 0 {
		intPart, fracPart = body[:i], body[i+1:]
	}

	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || n >= 1_000_000_000_000 {
		return "", false
	}

	var parts []string
	if neg {
		parts = append(parts, w.minus)
	}
	parts = append(parts, integerWords(n, w, false)...)

	if fracPart != "" {
		parts = append(parts, w.point)
		// Fractional digits are read one by one: 3.14 → "three point one four".
		for _, d := range fracPart {
			if d < '0' || d > '9' {
				return "", false
			}
			parts = append(parts, w.ones[d-'0'])
		}
	}

	return strings.Join(parts, " "), true
}

// integerWords decomposes n by magnitude group (billion/million/thousand)
// and spells each group followed by its correctly pluralized scale word.
func integerWords(n int64, w numberWords, feminine bool) []string {
	if n == 0 {
		return []string{w.ones[0]}
	}

	var parts []string
	rest := n
	for i := len(w.scales) - 1; i >= 0; i-- {
		sc := w.scales[i]
		group := rest / sc.value
		if group == 0 {
			continue
		}
		rest %= sc.value
		parts = append(parts, belowThousand(group, w, sc.feminine)...)
		parts = append(parts, sc.pluralForm(group))
	}
	if rest > 0 {
		parts = append(parts, belowThousand(rest, w, feminine)...)
	}
	return parts
}

// belowThousand spells 1..999.
func belowThousand(n int64, w numberWords, feminine bool) []string {
	var parts []string

	if h := n / 100; h > 0 {
		if w.hundreds[h] != "" {
			parts = append(parts, w.hundreds[h])
		} else {
			parts = append(parts, w.ones[h], w.hundredWord)
		}
		n %= 100
	}

	switch {
	case n == 0:
	case n < 20:
		parts = append(parts, onesWord(int(n), w, feminine))
	default:
		parts = append(parts, w.tens[n/10])
		if u := n % 10; u > 0 {
			parts = append(parts, onesWord(int(u), w, feminine))
		}
	}
	return parts
}

func onesWord(n int, w numberWords, feminine bool) string {
	if feminine {
		if f, ok := w.onesFeminine[n]; ok {
			return f
		}
	}
	return w.ones[n]
}
