package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/ankimcp/internal/analysis"
	"github.com/scrypster/ankimcp/pkg/types"
)

func TestGenerateReport(t *testing.T) {
	result := &types.DeckAnalysisResult{
		DeckName:         "Japanese::Core",
		SampleSize:       2,
		DominantTypeName: "Japanese",
		Fields: []types.FieldClassification{
			{Field: "Expression", Label: analysis.LabelExpressions},
			{Field: "Meaning", Label: analysis.LabelMeaning},
		},
		SuggestedMapping: types.SemanticMapping{"secondary": "Meaning", "primary": "Expression", "custom": "X"},
		LabelOrder:       []string{"primary", "secondary"},
	}

	want := "Deck Analysis Report\n" +
		"Deck: Japanese::Core\n" +
		"Sample size: 2 notes\n" +
		"Most common note type: Japanese\n" +
		"\n" +
		"Field Analysis:\n" +
		"- Expression: English expressions or pronunciation\n" +
		"- Meaning: Meanings or translations\n" +
		"\n" +
		"Suggested Semantic Mappings:\n" +
		"- primary → Expression\n" +
		"- secondary → Meaning\n" +
		"- custom → X\n"

	assert.Equal(t, want, analysis.GenerateReport(result))
}

func TestGenerateReport_NoMappings(t *testing.T) {
	result := &types.DeckAnalysisResult{DeckName: "D", SampleSize: 1, DominantTypeName: "Basic"}

	report := analysis.GenerateReport(result)

	assert.Contains(t, report, "Suggested Semantic Mappings:\nNo semantic mappings suggested\n")
}
