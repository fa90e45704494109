package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/ankimcp/internal/api/mcp"
	"github.com/scrypster/ankimcp/internal/cards"
	"github.com/scrypster/ankimcp/internal/storage/sqlite"
	"github.com/scrypster/ankimcp/pkg/types"
)

// mockAnki is an in-memory stand-in for the AnkiConnect client.
type mockAnki struct {
	decks  []string
	models map[string][]string
	notes  []types.NoteRecord
	added  []types.NoteDraft
}

func newMockAnki() *mockAnki {
	return &mockAnki{
		decks: []string{"Default", "Japanese"},
		models: map[string][]string{
			"Basic":    {"Front", "Back"},
			"Japanese": {"Expression", "Reading", "Meaning", "Notes"},
		},
	}
}

func (m *mockAnki) DeckNames(context.Context) ([]string, error) { return m.decks, nil }

func (m *mockAnki) ModelNames(context.Context) ([]string, error) {
	return []string{"Basic", "Japanese"}, nil
}

func (m *mockAnki) FieldNames(_ context.Context, noteType string) ([]string, error) {
	fields, ok := m.models[noteType]
	if !ok {
		return nil, errors.New("model was not found: " + noteType)
	}
	return fields, nil
}

func (m *mockAnki) AddNote(_ context.Context, draft types.NoteDraft) (int64, error) {
	m.added = append(m.added, draft)
	return 42, nil
}

func (m *mockAnki) FindIDs(context.Context, string) ([]int64, error) {
	ids := make([]int64, len(m.notes))
	for i, n := range m.notes {
		ids[i] = n.ID
	}
	return ids, nil
}

func (m *mockAnki) FetchRecords(_ context.Context, ids []int64) ([]types.NoteRecord, error) {
	return m.notes[:len(ids)], nil
}

func newTestServer(t *testing.T, anki *mockAnki, defaults cards.Defaults) *mcp.Server {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc := cards.NewService(anki, store, defaults)
	return mcp.NewServer(svc, mcp.WithBrowser(anki))
}

// call sends a JSON-RPC request and decodes the response envelope.
func call(t *testing.T, srv *mcp.Server, req string) map[string]interface{} {
	t.Helper()
	resp, err := srv.HandleRequest(context.Background(), []byte(req))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &out))
	return out
}

// callTool invokes tools/call and returns the tool result envelope.
func callTool(t *testing.T, srv *mcp.Server, name string, args string) mcp.MCPToolCallResult {
	t.Helper()
	req := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"` + name + `","arguments":` + args + `}}`
	resp, err := srv.HandleRequest(context.Background(), []byte(req))
	require.NoError(t, err)

	var envelope struct {
		Result mcp.MCPToolCallResult `json:"result"`
		Error  *mcp.JSONRPCError     `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp, &envelope))
	require.Nil(t, envelope.Error)
	return envelope.Result
}

func TestHandleRequest_ProtocolErrors(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	tests := []struct {
		name string
		req  string
		code float64
	}{
		{"parse error", `{not json`, mcp.ErrCodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"tools/list"}`, mcp.ErrCodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"store_memory"}`, mcp.ErrCodeMethodNotFound},
		{"native method failure", `{"jsonrpc":"2.0","id":1,"method":"get_note_type_fields","params":{}}`, mcp.ErrCodeServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := call(t, srv, tt.req)
			errObj, ok := out["error"].(map[string]interface{})
			require.True(t, ok, "expected an error response")
			assert.Equal(t, tt.code, errObj["code"])
		})
	}
}

func TestInitializeAndToolsList(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	out := call(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	result := out["result"].(map[string]interface{})
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	assert.Equal(t, "ankimcp", result["serverInfo"].(map[string]interface{})["name"])

	out = call(t, srv, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	tools := out["result"].(map[string]interface{})["tools"].([]interface{})
	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]interface{})["name"].(string))
	}
	assert.ElementsMatch(t, []string{
		"list_decks", "list_note_types", "get_note_type_fields", "suggest_field_mapping",
		"configure_profile", "list_profiles", "delete_profile", "add_card", "analyze_deck",
	}, names)
	assert.NotEmpty(t, srv.SessionID())
}

func TestToolsCall_ListDecksAndFields(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	res := callTool(t, srv, "list_decks", `{}`)
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"decks":["Default","Japanese"]}`, res.Content[0].Text)

	res = callTool(t, srv, "get_note_type_fields", `{"note_type":"Basic"}`)
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"note_type":"Basic","fields":["Front","Back"]}`, res.Content[0].Text)
}

func TestToolsCall_SuggestFieldMapping(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	res := callTool(t, srv, "suggest_field_mapping", `{"note_type":"Japanese"}`)
	require.False(t, res.IsError)

	var s cards.Suggestion
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &s))
	assert.Equal(t, "Expression", s.Mapping["primary"])
	assert.Equal(t, "Meaning", s.Mapping["secondary"])
	assert.Equal(t, "Reading", s.Mapping["reading"])
	assert.Equal(t, "Notes", s.Mapping["notes"])
}

func TestToolsCall_ErrorsAreInBand(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	res := callTool(t, srv, "no_such_tool", `{}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "unknown tool")

	res = callTool(t, srv, "configure_profile", `{"name":"bad","note_type":"Basic","mapping":{"primary":"Nope"}}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "invalid semantic mapping")

	res = callTool(t, srv, "add_card", `{"content":{}}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "content is required")
}

func TestToolsCall_ConfigureThenAddCard(t *testing.T) {
	anki := newMockAnki()
	srv := newTestServer(t, anki, cards.Defaults{})

	res := callTool(t, srv, "configure_profile",
		`{"name":"jp","deck":"Japanese","note_type":"Japanese","mapping":{"primary":"Expression","reading":"Reading","secondary":"Meaning","notes":"Notes"},"tags":"[\"jp\"]"}`)
	require.False(t, res.IsError, res.Content[0].Text)

	res = callTool(t, srv, "list_profiles", `{}`)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, `"total":1`)

	res = callTool(t, srv, "add_card",
		`{"profile":"jp","content":{"primary":"猫","reading":"ねこ","secondary":"cat"},"tags":["animals"]}`)
	require.False(t, res.IsError, res.Content[0].Text)

	var added cards.AddCardResult
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &added))
	assert.Equal(t, int64(42), added.NoteID)

	require.Len(t, anki.added, 1)
	assert.Equal(t, "Japanese", anki.added[0].Deck)
	assert.Equal(t, map[string]string{"Expression": "猫", "Reading": "ねこ", "Meaning": "cat"}, anki.added[0].Fields)
	assert.Equal(t, []string{"jp", "animals"}, anki.added[0].Tags)
}

func TestToolsCall_AddCardNoFieldsMapped(t *testing.T) {
	anki := newMockAnki()
	srv := newTestServer(t, anki, cards.Defaults{Deck: "Default", NoteType: "Basic"})

	res := callTool(t, srv, "add_card", `{"content":{"grammar":"noun"}}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, cards.ErrNoFieldsMapped.Error())
	assert.Empty(t, anki.added)
}

func TestToolsCall_AnalyzeDeck(t *testing.T) {
	anki := newMockAnki()
	anki.notes = []types.NoteRecord{
		{ID: 1, TypeName: "Basic", Fields: []types.FieldValue{{Name: "Front", Value: "dog"}, {Name: "Back", Value: "a loyal animal"}}},
	}
	srv := newTestServer(t, anki, cards.Defaults{})

	res := callTool(t, srv, "analyze_deck", `{"deck":"Animals","sample_size":3}`)
	require.False(t, res.IsError, res.Content[0].Text)
	require.Len(t, res.Content, 2)
	assert.Contains(t, res.Content[0].Text, "Deck Analysis Report")
	assert.Contains(t, res.Content[0].Text, "Sample size: 1 notes")
	assert.Contains(t, res.Content[1].Text, `"dominant_note_type":"Basic"`)

	anki.notes = nil
	res = callTool(t, srv, "analyze_deck", `{"deck":"Empty"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "deck contains no notes")
}

func TestToolsCall_DeleteProfile(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	res := callTool(t, srv, "configure_profile", `{"name":"basic","note_type":"Basic"}`)
	require.False(t, res.IsError)

	res = callTool(t, srv, "delete_profile", `{"name":"basic"}`)
	require.False(t, res.IsError)

	res = callTool(t, srv, "delete_profile", `{"name":"basic"}`)
	assert.True(t, res.IsError)
}

func TestListDecks_WithoutBrowser(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()
	srv := mcp.NewServer(cards.NewService(newMockAnki(), store, cards.Defaults{}))

	res := callTool(t, srv, "list_decks", `{}`)
	assert.True(t, res.IsError)
}
