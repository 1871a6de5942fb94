package textnorm

import "regexp"

// apostropheVariants are the apostrophe-like marks seen in Latin Uzbek text
// in the wild: typographic quotes, modifier letters, grave and acute accents.
// All collapse to the ASCII apostrophe before digraph mapping.
const apostropheVariants = "[‘’‛ʻʼʽ`´]"

// Uzbek digraphs oʻ and gʻ are mapped to ö and ğ: the synthesis engines in
// use treat Uzbek as Turkish-adjacent and render the Turkish characters
// correctly, while the apostrophe forms are read as glottal stops or dropped.
var uzbek = &locale{
	code: "uz",
	abbreviations: []replacement{
		{regexp.MustCompile(`\bAQSh\b`), "Amerika Qo'shma Shtatlari"},
		{regexp.MustCompile(`\bBMT\b`), "Birlashgan Millatlar Tashkiloti"},
		{regexp.MustCompile(`\bva h\.k\.`), "va hokazo"},
		{regexp.MustCompile(`\bkm\b`), "kilometr"},
		{regexp.MustCompile(`\bkg\b`), "kilogramm"},
		{regexp.MustCompile(`\bsm\b`), "santimetr"},
		{regexp.MustCompile(`\bmlrd\b`), "milliard"},
		{regexp.MustCompile(`\bmln\b`), "million"},
		{regexp.MustCompile(`%`), " foiz"},
	},
	script: []replacement{
		{regexp.MustCompile(apostropheVariants), "'"},
		{regexp.MustCompile(`o'`), "ö"},
		{regexp.MustCompile(`O'`), "Ö"},
		{regexp.MustCompile(`g'`), "ğ"},
		{regexp.MustCompile(`G'`), "Ğ"},
	},
	numbers: numberWords{
		ones: [20]string{
			"nol", "bir", "ikki", "uch", "to'rt", "besh", "olti", "yetti",
			"sakkiz", "to'qqiz", "o'n", "o'n bir", "o'n ikki", "o'n uch",
			"o'n to'rt", "o'n besh", "o'n olti", "o'n yetti", "o'n sakkiz",
			"o'n to'qqiz",
		},
		tens: [10]string{
			"", "", "yigirma", "o'ttiz", "qirq", "ellik", "oltmish",
			"yetmish", "sakson", "to'qson",
		},
		hundredWord: "yuz",
		scales: []scaleWords{
			{value: 1_000, one: "ming", few: "ming", many: "ming"},
			{value: 1_000_000, one: "million", few: "million", many: "million"},
			{value: 1_000_000_000, one: "milliard", few: "milliard", many: "milliard"},
		},
		point: "nuqta",
		minus: "minus",
	},
}

// Russian needs one/few/many agreement on the scale words and feminine
// forms before "тысяча". Go's \b is ASCII-only, so Cyrillic abbreviation
// boundaries are expressed with explicit non-letter groups.
var russian = &locale{
	code: "ru",
	abbreviations: []replacement{
		{regexp.MustCompile(`(^|[^а-яА-ЯёЁ])км($|[^а-яА-ЯёЁ])`), "${1}километров${2}"},
		{regexp.MustCompile(`(^|[^а-яА-ЯёЁ])кг($|[^а-яА-ЯёЁ])`), "${1}килограммов${2}"},
		{regexp.MustCompile(`(^|[^а-яА-ЯёЁ])т\.д\.`), "${1}так далее"},
		{regexp.MustCompile(`%`), " процентов"},
	},
	numbers: numberWords{
		ones: [20]string{
			"ноль", "один", "два", "три", "четыре", "пять", "шесть", "семь",
			"восемь", "девять", "десять", "одиннадцать", "двенадцать",
			"тринадцать", "четырнадцать", "пятнадцать", "шестнадцать",
			"семнадцать", "восемнадцать", "девятнадцать",
		},
		tens: [10]string{
			"", "", "двадцать", "тридцать", "сорок", "пятьдесят",
			"шестьдесят", "семьдесят", "восемьдесят", "девяносто",
		},
		hundreds: [10]string{
			"", "сто", "двести", "триста", "четыреста", "пятьсот",
			"шестьсот", "семьсот", "восемьсот", "девятьсот",
		},
		scales: []scaleWords{
			{value: 1_000, one: "тысяча", few: "тысячи", many: "тысяч", feminine: true},
			{value: 1_000_000, one: "миллион", few: "миллиона", many: "миллионов"},
			{value: 1_000_000_000, one: "миллиард", few: "миллиарда", many: "миллиардов"},
		},
		onesFeminine: map[int]string{1: "одна", 2: "две"},
		point:        "запятая",
		minus:        "минус",
	},
}

var english = &locale{
	code: "en",
	abbreviations: []replacement{
		{regexp.MustCompile(`\bMr\.`), "Mister"},
		{regexp.MustCompile(`\bMrs\.`), "Missus"},
		{regexp.MustCompile(`\bDr\.`), "Doctor"},
		{regexp.MustCompile(`\bUSA\b`), "United States"},
		{regexp.MustCompile(`\bkm\b`), "kilometers"},
		{regexp.MustCompile(`\bkg\b`), "kilograms"},
		{regexp.MustCompile(`\bcm\b`), "centimeters"},
		{regexp.MustCompile(`%`), " percent"},
	},
	numbers: numberWords{
		ones: [20]string{
			"zero", "one", "two", "three", "four", "five", "six", "seven",
			"eight", "nine", "ten", "eleven", "twelve", "thirteen",
			"fourteen", "fifteen", "sixteen", "seventeen", "eighteen",
			"nineteen",
		},
		tens: [10]string{
			"", "", "twenty", "thirty", "forty", "fifty", "sixty",
			"seventy", "eighty", "ninety",
		},
		hundredWord: "hundred",
		scales: []scaleWords{
			{value: 1_000, one: "thousand", few: "thousand", many: "thousand"},
			{value: 1_000_000, one: "million", few: "million", many: "million"},
			{value: 1_000_000_000, one: "billion", few: "billion", many: "billion"},
		},
		point: "point",
		minus: "minus",
	},
}
