package semantic

import "github.com/scrypster/ankimcp/pkg/types"

const (
	// exactThreshold admits only exact matches in the first pass.
	exactThreshold = 0.8
	// looseThreshold admits contains and partial matches in the second pass.
	looseThreshold = 0.5
	// fallbackConfidence is reported for positional fallback suggestions.
	fallbackConfidence = 0.3
)

// Mapper resolves semantic mappings against a fixed pattern table.
type Mapper struct {
	table PatternTable
}

// NewMapper returns a Mapper bound to table.
func NewMapper(table PatternTable) *Mapper {
	return &Mapper{table: table}
}

// Table returns the pattern table the mapper was built with.
func (m *Mapper) Table() PatternTable { return m.table }

// SuggestMappings assigns schema fields to semantic labels in two passes:
// exact matches first across every pattern, then looser matches for the
// patterns still unassigned. If "primary" or "secondary" remain unmapped
// they fall back to the fields at index 0 and 1 respectively, provided that
// exact position is still free.
func (m *Mapper) SuggestMappings(schema types.RecordSchema) types.SemanticMapping {
	mapping := make(types.SemanticMapping)
	used := make(map[string]bool)

	assign := func(threshold float64) {
		for _, p := range m.table.patterns {
			if _, ok := mapping[p.Label]; ok {
				continue
			}
			field, score := BestMatch(schema.Fields, p.Keywords, used)
			if field != "" && score > threshold {
				mapping[p.Label] = field
				used[field] = true
			}
		}
	}
	assign(exactThreshold)
	assign(looseThreshold)

	if _, ok := mapping[types.LabelPrimary]; !ok && len(schema.Fields) >= 1 && !used[schema.Fields[0]] {
		mapping[types.LabelPrimary] = schema.Fields[0]
		used[schema.Fields[0]] = true
	}
	if _, ok := mapping[types.LabelSecondary]; !ok && len(schema.Fields) >= 2 && !used[schema.Fields[1]] {
		mapping[types.LabelSecondary] = schema.Fields[1]
		used[schema.Fields[1]] = true
	}
	return mapping
}

// SuggestionDetails ranks fields for every pattern in a single pass and
// reports the confidence of each pick. Unlike SuggestMappings, a missing
// "primary" or "secondary" takes the first unused field in declared order,
// at a fixed confidence of 0.3.
func (m *Mapper) SuggestionDetails(schema types.RecordSchema) []types.SuggestionEntry {
	var entries []types.SuggestionEntry
	used := make(map[string]bool)
	seen := make(map[string]bool)

	for _, p := range m.table.patterns {
		field, score := BestMatch(schema.Fields, p.Keywords, used)
		if field == "" {
			continue
		}
		entries = append(entries, types.SuggestionEntry{Label: p.Label, Field: field, Confidence: score})
		used[field] = true
		seen[p.Label] = true
	}

	for _, label := range []string{types.LabelPrimary, types.LabelSecondary} {
		if seen[label] {
			continue
		}
		field := firstUnused(schema.Fields, used)
		if field == "" {
			continue
		}
		entries = append(entries, types.SuggestionEntry{Label: label, Field: field, Confidence: fallbackConfidence})
		used[field] = true
		seen[label] = true
	}
	return entries
}

func firstUnused(fields []string, used map[string]bool) string {
	for _, f := range fields {
		if !used[f] {
			return f
		}
	}
	return ""
}
