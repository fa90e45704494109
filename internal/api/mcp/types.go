// Package mcp implements the Model Context Protocol (MCP) server for ankimcp.
// It exposes deck browsing, semantic field mapping, card creation and deck
// analysis as JSON-RPC 2.0 tools.
package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scrypster/ankimcp/internal/semantic"
	"github.com/scrypster/ankimcp/pkg/types"
)

// NoteTypeArgs is used by get_note_type_fields and suggest_field_mapping.
type NoteTypeArgs struct {
	NoteType string `json:"note_type"` // Note type (model) name (required)
}

// ListDecksResult contains the deck names.
type ListDecksResult struct {
	Decks []string `json:"decks"`
}

// ListNoteTypesResult contains the note type names.
type ListNoteTypesResult struct {
	NoteTypes []string `json:"note_types"`
}

// NoteTypeFieldsResult contains the ordered fields of a note type.
type NoteTypeFieldsResult struct {
	NoteType string   `json:"note_type"`
	Fields   []string `json:"fields"`
}

// ConfigureProfileArgs contains arguments for the configure_profile tool.
type ConfigureProfileArgs struct {
	Name     string            `json:"name"`              // Profile name (required)
	NoteType string            `json:"note_type"`         // Note type (required)
	Deck     string            `json:"deck,omitempty"`    // Target deck
	Mapping  map[string]string `json:"mapping,omitempty"` // label → field; suggested when omitted
	Tags     []string          `json:"tags,omitempty"`    // Tags added to every card
}

// UnmarshalJSON accepts tags either as an array or as a JSON-encoded string.
func (a *ConfigureProfileArgs) UnmarshalJSON(data []byte) error {
	type Alias ConfigureProfileArgs
	aux := &struct {
		Tags json.RawMessage `json:"tags,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	a.Tags = decodeTags(aux.Tags)
	return nil
}

// ConfigureProfileResult contains the saved profile.
type ConfigureProfileResult struct {
	Profile *types.CardProfile `json:"profile"`
	Message string             `json:"message"`
}

// ListProfilesResult contains every saved profile.
type ListProfilesResult struct {
	Profiles []*types.CardProfile `json:"profiles"`
	Total    int                  `json:"total"`
}

// DeleteProfileArgs contains arguments for the delete_profile tool.
type DeleteProfileArgs struct {
	Name string `json:"name"`
}

// DeleteProfileResult confirms a deletion.
type DeleteProfileResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AddCardArgs contains arguments for the add_card tool.
//
// Content is a JSON object of semantic label → text. Its key order is kept,
// so labels that share a field are joined in the order the caller wrote
// them. An array of {"label","text"} objects is accepted as well.
type AddCardArgs struct {
	Profile        string                  `json:"profile,omitempty"`
	Deck           string                  `json:"deck,omitempty"`
	Content        []semantic.LabelledText `json:"-"`
	Tags           []string                `json:"tags,omitempty"`
	AllowDuplicate bool                    `json:"allow_duplicate,omitempty"`
}

// UnmarshalJSON decodes content in document order and tolerates
// string-encoded tags.
func (a *AddCardArgs) UnmarshalJSON(data []byte) error {
	type Alias AddCardArgs
	aux := &struct {
		Content json.RawMessage `json:"content"`
		Tags    json.RawMessage `json:"tags,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	a.Tags = decodeTags(aux.Tags)

	content, err := decodeContent(aux.Content)
	if err != nil {
		return err
	}
	a.Content = content
	return nil
}

// AnalyzeDeckArgs contains arguments for the analyze_deck tool.
type AnalyzeDeckArgs struct {
	Deck       string `json:"deck"`                  // Deck name (required)
	SampleSize int    `json:"sample_size,omitempty"` // Notes to sample (default from config)
}

// AnalyzeDeckResult carries the structured result and the text report.
type AnalyzeDeckResult struct {
	Report string                    `json:"report"`
	Result *types.DeckAnalysisResult `json:"result"`
}

// decodeContent reads a label → text object preserving key order.
func decodeContent(raw json.RawMessage) ([]semantic.LabelledText, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var items []struct {
			Label string `json:"label"`
			Text  string `json:"text"`
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		out := make([]semantic.LabelledText, 0, len(items))
		for _, it := range items {
			out = append(out, semantic.LabelledText{Label: it.Label, Text: it.Text})
		}
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("content: expected an object of label to text")
	}

	var out []semantic.LabelledText
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		label, _ := keyTok.(string)

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("content %q: %w", label, err)
		}
		var text string
		switch v := value.(type) {
		case string:
			text = v
		case nil:
			continue
		default:
			text = fmt.Sprint(v)
		}
		out = append(out, semantic.LabelledText{Label: label, Text: text})
	}
	return out, nil
}

// decodeTags handles clients that send arrays as a JSON-encoded string
// ("[\"a\",\"b\"]") or a comma-separated list.
func decodeTags(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err == nil {
		return tags
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		_ = json.Unmarshal([]byte(s), &tags)
		return tags
	}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"` // Must be "2.0"
	Method  string          `json:"method"`  // Method name
	Params  json.RawMessage `json:"params"`  // Method parameters, decoded per method
	ID      interface{}     `json:"id"`      // Request ID (string, number, or null)
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`          // Must be "2.0"
	Result  interface{}   `json:"result,omitempty"` // Result (if successful)
	Error   *JSONRPCError `json:"error,omitempty"`  // Error (if failed)
	ID      interface{}   `json:"id"`               // Request ID
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional error data
}

// JSON-RPC error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrCodeServerError    = -32000 // Server error
)

// ---------------------------------------------------------------------------
// Standard MCP protocol types (initialize / tools/list / tools/call)
// ---------------------------------------------------------------------------

// MCPServerInfo identifies this MCP server.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerCapabilities describes what this server supports.
type MCPServerCapabilities struct {
	Tools *MCPToolsCapability `json:"tools,omitempty"`
}

// MCPToolsCapability signals that the server exposes tools.
type MCPToolsCapability struct{}

// MCPInitializeResult is the response to the initialize request.
type MCPInitializeResult struct {
	ProtocolVersion string                `json:"protocolVersion"`
	Capabilities    MCPServerCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo         `json:"serverInfo"`
}

// MCPTool describes a single tool exposed via the MCP tools/list endpoint.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPToolsListResult is the response to the tools/list request.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolCallParams holds the parameters sent in a tools/call request.
// Arguments stay raw so each tool decodes them with its own rules.
type MCPToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// MCPToolCallContent is a single content block in a tool call response.
type MCPToolCallContent struct {
	Type string `json:"type"` // always "text" for now
	Text string `json:"text"`
}

// MCPToolCallResult is the response to a tools/call request.
type MCPToolCallResult struct {
	Content []MCPToolCallContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}
