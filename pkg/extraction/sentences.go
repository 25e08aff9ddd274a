package extraction

import (
	"regexp"
	"strings"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// SplitSentences splits narrative text on sentence boundaries. The 0-based
// position in the returned slice is the join key between an extracted
// activity and its textual provenance.
func SplitSentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, match := range matches {
		trimmed := strings.TrimSpace(match)
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, trimmed)
	}
	return sentences
}

// snippetAround joins the sentence window around index into one bounded
// excerpt of the journey. Sentinel indexes are clamped into range so a row
// with unresolved provenance still yields a valid window.
func snippetAround(sentences []string, index int) string {
	if len(sentences) == 0 {
		return ""
	}
	if index < 0 {
		index = 0
	}
	if index >= len(sentences) {
		index = len(sentences) - 1
	}
	lo, hi := windowBounds(index, len(sentences))
	return strings.Join(sentences[lo:hi], " ")
}
