package semantic

import (
	"strings"
	"unicode/utf8"
)

// Confidence tiers reported by BestMatch.
const (
	ConfidenceExact    = 1.0 // field equals a keyword, ignoring case
	ConfidenceContains = 0.8 // field contains a keyword longer than 2 characters
	ConfidencePartial  = 0.6 // keyword contains the field (field ≥ 4 chars, ≤ 3 chars shorter)
)

// BestMatch returns the unused field that best matches any of keywords,
// with its confidence. Fields are scored in declared order and a later field
// only wins with a strictly higher confidence. It returns ("", 0) when every
// field is used or nothing matches.
func BestMatch(fields []string, keywords []string, used map[string]bool) (string, float64) {
	best := ""
	bestScore := 0.0

	for _, field := range fields {
		if used[field] {
			continue
		}
		score := fieldScore(field, keywords)
		if score > bestScore {
			best = field
			bestScore = score
		}
	}
	return best, bestScore
}

// fieldScore is the highest confidence any keyword reaches for field.
func fieldScore(field string, keywords []string) float64 {
	lowerField := strings.ToLower(field)
	fieldLen := utf8.RuneCountInString(lowerField)

	score := 0.0
	for _, kw := range keywords {
		lowerKw := strings.ToLower(kw)
		if lowerField == lowerKw {
			return ConfidenceExact
		}
		kwLen := utf8.RuneCountInString(lowerKw)

		var s float64
		switch {
		case kwLen > 2 && strings.Contains(lowerField, lowerKw):
			s = ConfidenceContains
		case fieldLen >= 4 && kwLen-fieldLen <= 3 && strings.Contains(lowerKw, lowerField):
			s = ConfidencePartial
		}
		if s > score {
			score = s
		}
	}
	return score
}
