package semantic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/ankimcp/internal/semantic"
	"github.com/scrypster/ankimcp/pkg/types"
)

func TestApplyMapping_MergesSharedTarget(t *testing.T) {
	mapping := types.SemanticMapping{"primary": "Front", "secondary": "Front"}
	content := []semantic.LabelledText{{Label: "primary", Text: "P"}, {Label: "secondary", Text: "S"}}

	got := semantic.ApplyMapping(mapping, content)

	assert.Equal(t, map[string]string{"Front": "P\nS"}, got)
}

func TestApplyMapping_MergeFollowsInputOrder(t *testing.T) {
	mapping := types.SemanticMapping{"primary": "Front", "secondary": "Front"}
	content := []semantic.LabelledText{{Label: "secondary", Text: "S"}, {Label: "primary", Text: "P"}}

	got := semantic.ApplyMapping(mapping, content)

	assert.Equal(t, map[string]string{"Front": "S\nP"}, got)
}

func TestApplyMapping_SkipsUnmappedAndBlank(t *testing.T) {
	mapping := types.SemanticMapping{"primary": "Front", "secondary": "Back", "reading": "Reading"}
	content := []semantic.LabelledText{
		{Label: "primary", Text: "猫"},
		{Label: "secondary", Text: "   "},
		{Label: "reading", Text: ""},
		{Label: "example", Text: "猫がいる"},
	}

	got := semantic.ApplyMapping(mapping, content)

	assert.Equal(t, map[string]string{"Front": "猫"}, got)
}

func TestApplyMapping_NothingMatchesReturnsEmpty(t *testing.T) {
	got := semantic.ApplyMapping(types.SemanticMapping{"primary": "Front"}, []semantic.LabelledText{{Label: "other", Text: "x"}})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApplyMapping_NeverEmitsEmptyValues(t *testing.T) {
	mapping := types.SemanticMapping{"primary": "Front", "secondary": "Front"}
	content := []semantic.LabelledText{{Label: "primary", Text: "\t"}, {Label: "secondary", Text: "S"}}

	got := semantic.ApplyMapping(mapping, content)

	assert.Equal(t, map[string]string{"Front": "S"}, got)
	for _, v := range got {
		assert.NotEmpty(t, v)
	}
}
