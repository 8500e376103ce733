// Package suggest infers a medical specialty from free-form reply text and
// resolves the matching doctors.
package suggest

import (
	"regexp"
	"strings"
)

// Specialties is the known vocabulary, in priority order.
var Specialties = []string{
	"Dermatology",
	"Cardiology",
	"Ophthalmology",
	"Dentistry",
	"General Medicine",
}

var cuePhrases = []string{"suggest", "we have:", "i suggest", "based on that"}

var suggestPattern = regexp.MustCompile(`(?i)suggest\s+([A-Za-z\s]+)`)

// Words that end a captured specialty ("Dermatology based on ...").
var stopWords = map[string]bool{
	"based": true, "because": true, "for": true, "given": true, "since": true,
	"as": true, "if": true, "and": true, "or": true, "to": true, "which": true,
	"doctor": true, "doctors": true, "specialist": true, "specialists": true,
	"department": true, "who": true, "that": true, "with": true, "in": true,
}

// Leading filler before the specialty ("suggest seeing a ...").
var fillerWords = map[string]bool{
	"a": true, "an": true, "the": true, "our": true, "you": true, "see": true,
	"seeing": true, "visit": true, "visiting": true, "consult": true,
	"consulting": true, "booking": true, "book": true, "with": true,
}

// ExtractSpecialty returns the specialty suggested by text. It only looks
// when a cue phrase is present; a specialty named right after "suggest" wins,
// otherwise the first vocabulary entry contained in the text.
func ExtractSpecialty(text string) (string, bool) {
	low := strings.ToLower(text)
	if !hasCue(low) {
		return "", false
	}

	if m := suggestPattern.FindStringSubmatch(text); len(m) > 1 {
		if s := normalizeCapture(m[1]); s != "" {
			return s, true
		}
	}

	for _, s := range Specialties {
		if strings.Contains(low, strings.ToLower(s)) {
			return s, true
		}
	}
	return "", false
}

func hasCue(low string) bool {
	for _, cue := range cuePhrases {
		if strings.Contains(low, cue) {
			return true
		}
	}
	return false
}

// normalizeCapture trims filler and trailing clauses from the words captured
// after "suggest" and maps them onto the vocabulary when possible.
func normalizeCapture(captured string) string {
	words := strings.Fields(captured)
	for len(words) > 0 && fillerWords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	for i, w := range words {
		if stopWords[strings.ToLower(w)] {
			words = words[:i]
			break
		}
	}
	if len(words) == 0 {
		return ""
	}

	phrase := strings.Join(words, " ")
	lowPhrase := strings.ToLower(phrase)
	for _, s := range Specialties {
		if strings.HasPrefix(lowPhrase, strings.ToLower(s)) {
			return s
		}
	}
	return phrase
}
