package mcp_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/ankimcp/internal/api/mcp"
	"github.com/scrypster/ankimcp/internal/semantic"
)

func TestAddCardArgs_ContentKeepsDocumentOrder(t *testing.T) {
	var args mcp.AddCardArgs
	err := json.Unmarshal([]byte(`{"content":{"secondary":"b","primary":"a","notes":"c","example":null,"count":3}}`), &args)
	require.NoError(t, err)

	assert.Equal(t, []semantic.LabelledText{
		{Label: "secondary", Text: "b"},
		{Label: "primary", Text: "a"},
		{Label: "notes", Text: "c"},
		{Label: "count", Text: "3"},
	}, args.Content)
}

func TestAddCardArgs_ContentAsArray(t *testing.T) {
	var args mcp.AddCardArgs
	err := json.Unmarshal([]byte(`{"content":[{"label":"primary","text":"x"},{"label":"notes","text":"y"}],"profile":"p"}`), &args)
	require.NoError(t, err)

	assert.Equal(t, "p", args.Profile)
	assert.Equal(t, []semantic.LabelledText{{Label: "primary", Text: "x"}, {Label: "notes", Text: "y"}}, args.Content)
}

func TestAddCardArgs_RejectsScalarContent(t *testing.T) {
	var args mcp.AddCardArgs
	assert.Error(t, json.Unmarshal([]byte(`{"content":"primary"}`), &args))
}

func TestAddCardArgs_Tags(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []string
	}{
		{"array", `{"tags":["a","b"]}`, []string{"a", "b"}},
		{"encoded array", `{"tags":"[\"a\",\"b\"]"}`, []string{"a", "b"}},
		{"comma separated", `{"tags":"a, b,"}`, []string{"a", "b"}},
		{"absent", `{}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args mcp.AddCardArgs
			require.NoError(t, json.Unmarshal([]byte(tt.json), &args))
			assert.Equal(t, tt.want, args.Tags)
		})
	}
}
