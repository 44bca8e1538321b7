package operation

import (
	"strings"
	"unicode"
)

// hebrewToEnglish maps Hebrew letters to the key that produces them on the
// Israeli standard keyboard when the layout is set to English.
var hebrewToEnglish = map[rune]rune{
	// Top row
	'ק': 'e', 'ר': 'r', 'א': 't', 'ט': 'y', 'ו': 'u',
	'ן': 'i', 'ם': 'o', 'פ': 'p',
	// Home row
	'ש': 'a', 'ד': 's', 'ג': 'd', 'כ': 'f', 'ע': 'g',
	'י': 'h', 'ח': 'j', 'ל': 'k', 'ך': 'l',
	// Bottom row
	'ז': 'z', 'ס': 'x', 'ב': 'c', 'ה': 'v', 'נ': 'b',
	'מ': 'n', 'צ': 'm', 'ת': ',', 'ץ': '.',
}

var englishToHebrew = func() map[rune]rune {
	m := make(map[rune]rune, len(hebrewToEnglish))
	for heb, eng := range hebrewToEnglish {
		m[eng] = heb
	}
	return m
}()

var commonEnglishWords = toSet(
	"hello", "world", "the", "and", "you", "are", "have", "that", "for", "not",
	"with", "will", "can", "said", "what", "about", "out", "time", "there",
	"year", "work", "first", "way", "even", "new", "want", "because", "any",
	"these", "give", "day", "most", "us", "over", "think", "also", "your",
	"after", "use", "man", "now", "old", "see", "him", "two", "how",
	"its", "who", "did", "yes", "his", "has", "had", "let", "put", "say",
	"she", "may", "her", "one", "our", "get",
)

var commonHebrewWords = toSet(
	"שלום", "שלומות", "היי", "כן", "לא", "את", "אני", "הוא", "היא",
	"אנחנו", "אתם", "הם", "מה", "איך", "למה", "איפה", "מתי", "כמה",
	"בוא", "בואי", "לך", "לכי", "לכו", "תודה", "תודות", "סליחה",
	"בסדר", "טוב", "רע", "יפה", "גדול", "קטן", "חדש", "ישן",
	"בית", "בתים", "דלת", "חלון", "שולחן", "כיסא", "מיטה",
	"אוכל", "לחם", "מים", "חלב", "ביצה", "בשר", "דג", "פרי",
	"יום", "לילה", "בוקר", "ערב", "שבת", "חג", "דודו", "דעדע",
)

var commonHebrewLetters = func() map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range "אבגדהוזחטיכלמנסעפצקרשת" {
		set[r] = true
	}
	return set
}()

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func isHebrewRune(r rune) bool {
	return r >= 0x0590 && r <= 0x05ff
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// fixLayout corrects text typed with the wrong keyboard layout active, in
// either direction. Conversion only happens when every letter maps cleanly
// and the candidate passes a plausibility check; anything ambiguous is
// returned untouched.
func fixLayout(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	var hebrewChars, englishChars int
	for _, r := range text {
		switch {
		case isHebrewRune(r):
			hebrewChars++
		case isASCIILetter(r):
			englishChars++
		}
	}

	// Mixed scripts are assumed intentional.
	if hebrewChars > 0 && englishChars > 0 {
		return text
	}
	if len([]rune(strings.TrimSpace(text))) < 2 {
		return text
	}
	if hebrewChars == 0 && englishChars == 0 {
		return text
	}

	if hebrewChars > 0 {
		convertible := 0
		for _, r := range text {
			if _, ok := hebrewToEnglish[r]; ok {
				convertible++
			}
		}
		if convertible == hebrewChars && convertible >= 2 {
			var b strings.Builder
			for _, r := range text {
				if mapped, ok := hebrewToEnglish[r]; ok {
					b.WriteRune(mapped)
				} else {
					b.WriteRune(r)
				}
			}
			if candidate := b.String(); isReasonableEnglish(candidate) {
				return candidate
			}
		}
		return text
	}

	convertible := 0
	for _, r := range strings.ToLower(text) {
		if isASCIILetter(r) {
			if _, ok := englishToHebrew[r]; ok {
				convertible++
			}
		}
	}
	if convertible == englishChars && convertible >= 2 {
		var b strings.Builder
		for _, r := range text {
			if isASCIILetter(r) {
				if mapped, ok := englishToHebrew[unicode.ToLower(r)]; ok {
					b.WriteRune(mapped)
					continue
				}
			}
			b.WriteRune(r)
		}
		if candidate := b.String(); isReasonableHebrew(candidate) {
			return candidate
		}
	}
	return text
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// isReasonableEnglish accepts known common words, and for longer candidates
// applies a vowel-ratio plus consonant-run heuristic.
func isReasonableEnglish(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if commonEnglishWords[text] {
		return true
	}

	runes := []rune(text)
	if len(runes) < 3 {
		return false
	}

	var vowels, consonants int
	for _, r := range runes {
		switch {
		case isVowel(r):
			vowels++
		case isASCIILetter(r):
			consonants++
		}
	}
	if vowels+consonants == 0 {
		return false
	}
	ratio := float64(vowels) / float64(vowels+consonants)
	if ratio < 0.15 || ratio > 0.65 {
		return false
	}

	run, maxRun := 0, 0
	for _, r := range runes {
		if isASCIILetter(r) && !isVowel(r) {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return maxRun <= 3
}

// isReasonableHebrew accepts known common words, otherwise requires most
// letters to come from the base Hebrew alphabet.
func isReasonableHebrew(text string) bool {
	clean := strings.ReplaceAll(text, " ", "")
	runes := []rune(clean)
	if len(runes) == 0 {
		return false
	}
	for _, r := range runes {
		if !isHebrewRune(r) {
			return false
		}
	}
	if commonHebrewWords[clean] {
		return true
	}
	if len(runes) >= 2 {
		count := 0
		for _, r := range runes {
			if commonHebrewLetters[r] {
				count++
			}
		}
		return float64(count) >= float64(len(runes))*0.8
	}
	return true
}
