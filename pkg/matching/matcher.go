// Package matching pairs required column names with existing ones using
// layered normalization. It is pure string work, no storage involved.
package matching

import (
	"strings"
	"unicode"
)

// Confidence levels per normalization layer
const (
	ConfidenceExact      = 100
	ConfidenceWhitespace = 90
	ConfidenceLetters    = 80

	// MinConfidence is the floor below which no mapping is suggested
	MinConfidence = 60
)

// Match pairs one required column with an existing column. Existing is empty
// when nothing scored at or above MinConfidence.
type Match struct {
	Required   string
	Existing   string
	Confidence int
}

// Score rates how well an existing column name fits a required one.
// Layers are tried strongest first; 0 means no fit.
func Score(required, existing string) int {
	if strings.EqualFold(strings.TrimSpace(required), strings.TrimSpace(existing)) {
		return ConfidenceExact
	}
	if stripWhitespace(required) == stripWhitespace(existing) {
		return ConfidenceWhitespace
	}
	if stripNonAlnum(required) == stripNonAlnum(existing) {
		return ConfidenceLetters
	}
	return 0
}

// MatchColumns resolves each required column, in declared order, to its best
// still-unclaimed existing column. A claimed column is never offered twice,
// so the result only depends on the input ordering.
func MatchColumns(required, existing []string) []Match {
	claimed := make(map[int]bool, len(existing))
	results := make([]Match, 0, len(required))

	for _, req := range required {
		best := -1
		bestScore := 0
		for i, ex := range existing {
			if claimed[i] {
				continue
			}
			score := Score(req, ex)
			if score > bestScore {
				best = i
				bestScore = score
			}
		}

		m := Match{Required: req}
		if best >= 0 && bestScore >= MinConfidence {
			claimed[best] = true
			m.Existing = existing[best]
			m.Confidence = bestScore
		}
		results = append(results, m)
	}

	return results
}

func stripWhitespace(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
