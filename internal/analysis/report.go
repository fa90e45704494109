package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scrypster/ankimcp/pkg/types"
)

// NoMappingsSentinel is printed in place of the mapping list when no label
// could be mapped.
const NoMappingsSentinel = "No semantic mappings suggested"

// GenerateReport renders result as a fixed-layout text report. The layout is
// consumed by tools and must stay stable:
//
//	Deck Analysis Report
//	Deck: <name>
//	Sample size: <n> notes
//	Most common note type: <type>
//
//	Field Analysis:
//	- <field>: <label>
//
//	Suggested Semantic Mappings:
//	- <label> → <field>
func GenerateReport(result *types.DeckAnalysisResult) string {
	var b strings.Builder

	b.WriteString("Deck Analysis Report\n")
	fmt.Fprintf(&b, "Deck: %s\n", result.DeckName)
	fmt.Fprintf(&b, "Sample size: %d notes\n", result.SampleSize)
	fmt.Fprintf(&b, "Most common note type: %s\n", result.DominantTypeName)

	b.WriteString("\nField Analysis:\n")
	for _, f := range result.Fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.Field, f.Label)
	}

	b.WriteString("\nSuggested Semantic Mappings:\n")
	if len(result.SuggestedMapping) == 0 {
		b.WriteString(NoMappingsSentinel + "\n")
		return b.String()
	}
	for _, label := range orderedLabels(result.SuggestedMapping, result.LabelOrder) {
		fmt.Fprintf(&b, "- %s → %s\n", label, result.SuggestedMapping[label])
	}
	return b.String()
}

// orderedLabels lists the mapping's labels in order, then any remaining
// labels alphabetically.
func orderedLabels(mapping types.SemanticMapping, order []string) []string {
	labels := make([]string, 0, len(mapping))
	seen := make(map[string]bool, len(mapping))
	for _, l := range order {
		if _, ok := mapping[l]; ok && !seen[l] {
			labels = append(labels, l)
			seen[l] = true
		}
	}
	var rest []string
	for l := range mapping {
		if !seen[l] {
			rest = append(rest, l)
		}
	}
	sort.Strings(rest)
	return append(labels, rest...)
}
