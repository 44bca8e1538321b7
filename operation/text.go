package operation

import (
	"regexp"
	"strings"
)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	underscoreRuns = regexp.MustCompile(`_{2,}`)
	ellipsisRuns   = regexp.MustCompile(`\.{3,}`)
	bangRuns       = regexp.MustCompile(`!{2,}`)
	questionRuns   = regexp.MustCompile(`\?{2,}`)
)

// cleanText strips formatting artifacts: collapsed whitespace, underline
// filler, and repeated punctuation.
func cleanText(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	cleaned := whitespaceRuns.ReplaceAllString(text, " ")
	cleaned = underscoreRuns.ReplaceAllString(cleaned, "")
	cleaned = ellipsisRuns.ReplaceAllString(cleaned, "...")
	cleaned = bangRuns.ReplaceAllString(cleaned, "!")
	cleaned = questionRuns.ReplaceAllString(cleaned, "?")
	return strings.TrimSpace(cleaned)
}

// normalizeWhitespace collapses every whitespace run to a single space and
// trims the ends.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// LanguageOf classifies text as primarily Hebrew or English by letter
// counts. Ties go to English.
func LanguageOf(text string) string {
	var hebrew, english int
	for _, r := range text {
		switch {
		case isHebrewRune(r):
			hebrew++
		case isASCIILetter(r):
			english++
		}
	}
	if hebrew > english {
		return "hebrew"
	}
	return "english"
}
