package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field purpose labels produced by ClassifyFieldContent.
const (
	LabelExpressions     = "English expressions or pronunciation"
	LabelPronunciation   = "Pronunciation or phonetic information"
	LabelExamples        = "Usage examples or sample sentences"
	LabelMeaning         = "Meanings or translations"
	LabelExplanation     = "Explanations or descriptions"
	LabelGrammar         = "Grammar notes"
	LabelSynonyms        = "Synonyms or related words"
	LabelCollocations    = "Collocations"
	LabelPhoneticSymbols = "Contains pronunciation symbols"
	LabelContentExamples = "Contains examples"
	LabelLongText        = "Contains long detailed explanations"
	LabelShortText       = "Contains short words or phrases"
	LabelUnclear         = "Content purpose unclear"
)

const (
	longSampleChars  = 100
	shortSampleChars = 20
)

var slashDelimited = regexp.MustCompile(`/[^/]+/`)

type nameRule struct {
	substrings []string
	label      string
}

// nameRules are evaluated in order; the first hit wins. "pronunciation"
// appears in the first two rules, so the second only fires for "phonetic".
var nameRules = []nameRule{
	{[]string{"expression", "pronunciation"}, LabelExpressions},
	{[]string{"phonetic", "pronunciation"}, LabelPronunciation},
	{[]string{"example", "sentence"}, LabelExamples},
	{[]string{"meaning", "translation"}, LabelMeaning},
	{[]string{"explanation", "description"}, LabelExplanation},
	{[]string{"grammar"}, LabelGrammar},
	{[]string{"synonym", "related"}, LabelSynonyms},
	{[]string{"collocation"}, LabelCollocations},
}

// ClassifyFieldContent guesses what a field holds from its name and, when
// the name is not telling, from its sampled values.
func ClassifyFieldContent(fieldName string, samples []string) string {
	name := strings.ToLower(fieldName)
	for _, rule := range nameRules {
		for _, s := range rule.substrings {
			if strings.Contains(name, s) {
				return rule.label
			}
		}
	}

	text := strings.ToLower(strings.Join(samples, " "))
	switch {
	case slashDelimited.MatchString(text):
		return LabelPhoneticSymbols
	case defaultMarkers.Contains(text):
		return LabelContentExamples
	case anySample(samples, func(n int) bool { return n > longSampleChars }):
		return LabelLongText
	case anySample(samples, func(n int) bool { return n < shortSampleChars }):
		return LabelShortText
	default:
		return LabelUnclear
	}
}

func anySample(samples []string, pred func(chars int) bool) bool {
	for _, s := range samples {
		if pred(utf8.RuneCountInString(s)) {
			return true
		}
	}
	return false
}
