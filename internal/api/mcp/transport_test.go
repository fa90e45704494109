package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/scrypster/ankimcp/internal/api/mcp"
	"github.com/scrypster/ankimcp/internal/cards"
)

func TestStdioTransport_OneResponsePerLine(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"list_decks","arguments":{}}}`,
		`garbage`,
	}, "\n") + "\n")
	var out bytes.Buffer

	err := mcp.NewStdioTransport(srv, in, &out).Serve(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var first, last mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, float64(1), first.ID)
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	require.NotNil(t, last.Error)
	assert.Equal(t, mcp.ErrCodeParseError, last.Error.Code)
}

func TestStdioTransport_NotificationsGetNoReply(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":null,"method":"tools/list"}`,
	}, "\n") + "\n")
	var out bytes.Buffer

	require.NoError(t, mcp.NewStdioTransport(srv, in, &out).Serve(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Nil(t, resp.ID)
	assert.Nil(t, resp.Error)
}

func TestStdioTransport_Batch(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	in := strings.NewReader(strings.Join([]string{
		`[{"jsonrpc":"2.0","id":1,"method":"tools/list"},{"jsonrpc":"2.0","method":"notifications/initialized"},{"jsonrpc":"2.0","id":2,"method":"no_such_method"}]`,
		`[]`,
		`[{"jsonrpc":"2.0","method":"notifications/initialized"}]`,
	}, "\n") + "\n")
	var out bytes.Buffer

	require.NoError(t, mcp.NewStdioTransport(srv, in, &out).Serve(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var batch []mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &batch))
	require.Len(t, batch, 2)
	assert.Equal(t, float64(1), batch[0].ID)
	assert.Nil(t, batch[0].Error)
	assert.Equal(t, float64(2), batch[1].ID)
	require.NotNil(t, batch[1].Error)
	assert.Equal(t, mcp.ErrCodeMethodNotFound, batch[1].Error.Code)

	var empty mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &empty))
	require.NotNil(t, empty.Error)
	assert.Equal(t, mcp.ErrCodeInvalidRequest, empty.Error.Code)
}

func TestStdioTransport_OversizedLineKeepsSessionAlive(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})

	big := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add_card","arguments":{"content":{"primary":"` +
		strings.Repeat("x", 512) + `"}}}}`
	in := strings.NewReader(big + "\n" + `{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n")
	var out bytes.Buffer

	tr := mcp.NewStdioTransport(srv, in, &out)
	tr.SetFrameLimit(128)
	require.NoError(t, tr.Serve(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var rejected, next mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rejected))
	require.NotNil(t, rejected.Error)
	assert.Equal(t, mcp.ErrCodeInvalidRequest, rejected.Error.Code)
	assert.Contains(t, rejected.Error.Message, "128 bytes")

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &next))
	assert.Equal(t, float64(2), next.ID)
	assert.Nil(t, next.Error)
}

func TestStdioTransport_LastLineWithoutNewline(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})
	var out bytes.Buffer

	in := strings.NewReader(`{"jsonrpc":"2.0","id":7,"method":"tools/list"}`)
	require.NoError(t, mcp.NewStdioTransport(srv, in, &out).Serve(context.Background()))

	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.Equal(t, float64(7), resp.ID)
}

func TestStdioTransport_StopsOnCancelledContext(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mcp.NewStdioTransport(srv, strings.NewReader(""), &bytes.Buffer{}).Serve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebSocketTransport_RoundTrip(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})
	httpSrv := httptest.NewServer(mcp.NewWebSocketTransport(srv))
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "test complete")

	for id, req := range []string{
		`{"jsonrpc":"2.0","id":0,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_note_type_fields","arguments":{"note_type":"Basic"}}}`,
	} {
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(req)))

		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, websocket.MessageText, typ)

		var resp mcp.JSONRPCResponse
		require.NoError(t, json.Unmarshal(data, &resp))
		assert.Equal(t, float64(id), resp.ID)
		assert.Nil(t, resp.Error)
	}
}

func TestWebSocketTransport_SkipsNotificationReplies(t *testing.T) {
	srv := newTestServer(t, newMockAnki(), cards.Defaults{})
	httpSrv := httptest.NewServer(mcp.NewWebSocketTransport(srv))
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "test complete")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","id":"next","method":"tools/list"}`)))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "next", resp.ID)
}
