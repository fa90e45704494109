// stdio_test.go runs the wired server end-to-end over in-memory pipes, with
// AnkiConnect replaced by an httptest server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/ankimcp/internal/api/mcp"
	"github.com/scrypster/ankimcp/internal/app"
)

// fakeAnkiConnect answers the handful of actions the tests use.
func fakeAnkiConnect(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action string          `json:"action"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var result interface{}
		switch req.Action {
		case "version":
			result = 6
		case "deckNames":
			result = []string{"Default"}
		case "modelFieldNames":
			result = []string{"Front", "Back"}
		case "addNote":
			result = 1700000000000
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": nil, "error": "unsupported action"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": result, "error": nil})
	}))
}

func TestServeStdio_EndToEnd(t *testing.T) {
	anki := fakeAnkiConnect(t)
	defer anki.Close()

	t.Setenv("ANKIMCP_ANKI_URL", anki.URL)
	t.Setenv("ANKIMCP_DATA_PATH", t.TempDir())
	t.Setenv("ANKIMCP_STORAGE_ENGINE", "sqlite")
	t.Setenv("ANKIMCP_TRANSPORT", "stdio")
	t.Setenv("ANKIMCP_DEFAULT_DECK", "Default")
	t.Setenv("ANKIMCP_DEFAULT_NOTE_TYPE", "Basic")

	ctx := context.Background()
	env, err := app.Setup(ctx)
	require.NoError(t, err)
	defer env.Close()

	srv := mcp.NewServer(env.Cards, mcp.WithConfig(env.Config), mcp.WithBrowser(env.Anki))

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_decks","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"add_card","arguments":{"content":{"primary":"hello","secondary":"world"}}}}`,
	}, "\n") + "\n")
	var out bytes.Buffer
	require.NoError(t, mcp.NewStdioTransport(srv, in, &out).Serve(ctx))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	for _, line := range lines {
		var resp struct {
			Result mcp.MCPToolCallResult `json:"result"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		require.False(t, resp.Result.IsError, resp.Result.Content[0].Text)
	}
	assert.Contains(t, lines[1], "1700000000000")
}
