package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/scrypster/ankimcp/internal/cards"
	"github.com/scrypster/ankimcp/internal/config"
	"github.com/scrypster/ankimcp/pkg/types"
)

// cardService is the subset of cards.Service used by the MCP server.
type cardService interface {
	Schema(ctx context.Context, noteType string) (types.RecordSchema, error)
	Suggest(ctx context.Context, noteType string) (*cards.Suggestion, error)
	Configure(ctx context.Context, req cards.ConfigureRequest) (*types.CardProfile, error)
	Profiles(ctx context.Context) ([]*types.CardProfile, error)
	DeleteProfile(ctx context.Context, name string) error
	AddCard(ctx context.Context, req cards.AddCardRequest) (*cards.AddCardResult, error)
	AnalyzeDeck(ctx context.Context, deck string, sampleSize int) (*cards.Analysis, error)
}

// collectionBrowser lists what exists in the collection.
type collectionBrowser interface {
	DeckNames(ctx context.Context) ([]string, error)
	ModelNames(ctx context.Context) ([]string, error)
}

// Server implements the Model Context Protocol (MCP) for ankimcp.
type Server struct {
	cards     cardService
	browser   collectionBrowser
	config    *config.Config
	sessionID string // unique ID generated once per MCP server lifetime
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithConfig injects a *config.Config into the Server.
func WithConfig(cfg *config.Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithBrowser enables list_decks and list_note_types. Without it those
// tools report that listing is unavailable.
func WithBrowser(b collectionBrowser) ServerOption {
	return func(s *Server) {
		s.browser = b
	}
}

// NewServer creates a new MCP server instance.
//
//	srv := mcp.NewServer(svc, mcp.WithBrowser(client), mcp.WithConfig(cfg))
func NewServer(svc cardService, opts ...ServerOption) *Server {
	s := &Server{
		cards:     svc,
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Printf("ankimcp-mcp: session ID: %s", s.sessionID)
	return s
}

// Config returns the configuration that was injected via WithConfig, or nil.
func (s *Server) Config() *config.Config {
	return s.config
}

// SessionID returns the identifier of this server instance.
func (s *Server) SessionID() string {
	return s.sessionID
}

// HandleRequest processes a JSON-RPC 2.0 request and returns a response.
// This is the main entry point for MCP protocol handling.
func (s *Server) HandleRequest(ctx context.Context, requestJSON []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, "Parse error", err.Error())
	}

	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, ErrCodeInvalidRequest, "Invalid JSON-RPC version", nil)
	}

	var result interface{}
	var err error

	switch req.Method {
	// Standard MCP protocol methods
	case "initialize":
		result, err = s.handleInitialize(ctx, req.Params)
	case "initialized", "notifications/initialized":
		// Notification — no response body required; return empty object.
		result = map[string]interface{}{}
	case "tools/list":
		result, err = s.handleToolsList(ctx, req.Params)
	case "tools/call":
		result, err = s.handleToolsCall(ctx, req.Params)
	default:
		// Native JSON-RPC methods share the tool names.
		handler := s.toolHandler(req.Method)
		if handler == nil {
			return s.errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
		}
		result, err = handler(ctx, req.Params)
	}

	if err != nil {
		return s.errorResponse(req.ID, ErrCodeServerError, err.Error(), nil)
	}

	return s.successResponse(req.ID, result)
}

type toolFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// toolHandler returns the handler for a tool name, or nil.
func (s *Server) toolHandler(name string) toolFunc {
	switch name {
	case "list_decks":
		return s.handleListDecks
	case "list_note_types":
		return s.handleListNoteTypes
	case "get_note_type_fields":
		return s.handleGetNoteTypeFields
	case "suggest_field_mapping":
		return s.handleSuggestFieldMapping
	case "configure_profile":
		return s.handleConfigureProfile
	case "list_profiles":
		return s.handleListProfiles
	case "delete_profile":
		return s.handleDeleteProfile
	case "add_card":
		return s.handleAddCard
	case "analyze_deck":
		return s.handleAnalyzeDeck
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func (s *Server) handleListDecks(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	if s.browser == nil {
		return nil, errors.New("deck listing is not available")
	}
	decks, err := s.browser.DeckNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return &ListDecksResult{Decks: decks}, nil
}

func (s *Server) handleListNoteTypes(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	if s.browser == nil {
		return nil, errors.New("note type listing is not available")
	}
	models, err := s.browser.ModelNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list note types: %w", err)
	}
	return &ListNoteTypesResult{NoteTypes: models}, nil
}

func (s *Server) handleGetNoteTypeFields(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var args NoteTypeArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	if args.NoteType == "" {
		return nil, errors.New("note_type is required")
	}
	schema, err := s.cards.Schema(ctx, args.NoteType)
	if err != nil {
		return nil, err
	}
	return &NoteTypeFieldsResult{NoteType: schema.TypeName, Fields: schema.Fields}, nil
}

func (s *Server) handleSuggestFieldMapping(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var args NoteTypeArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	if args.NoteType == "" {
		return nil, errors.New("note_type is required")
	}
	return s.cards.Suggest(ctx, args.NoteType)
}

func (s *Server) handleConfigureProfile(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var args ConfigureProfileArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, errors.New("name is required")
	}
	if args.NoteType == "" {
		return nil, errors.New("note_type is required")
	}

	profile, err := s.cards.Configure(ctx, cards.ConfigureRequest{
		Name:     args.Name,
		Deck:     args.Deck,
		NoteType: args.NoteType,
		Mapping:  types.SemanticMapping(args.Mapping),
		Tags:     args.Tags,
	})
	if err != nil {
		return nil, err
	}
	return &ConfigureProfileResult{
		Profile: profile,
		Message: fmt.Sprintf("profile %q saved with %d mapped labels", profile.Name, len(profile.Mapping)),
	}, nil
}

func (s *Server) handleListProfiles(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	profiles, err := s.cards.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []*types.CardProfile{}
	}
	return &ListProfilesResult{Profiles: profiles, Total: len(profiles)}, nil
}

func (s *Server) handleDeleteProfile(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var args DeleteProfileArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, errors.New("name is required")
	}
	if err := s.cards.DeleteProfile(ctx, args.Name); err != nil {
		return nil, err
	}
	return &DeleteProfileResult{Success: true, Message: fmt.Sprintf("profile %q deleted", args.Name)}, nil
}

func (s *Server) handleAddCard(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var args AddCardArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	if len(args.Content) == 0 {
		return nil, errors.New("content is required")
	}
	return s.cards.AddCard(ctx, cards.AddCardRequest{
		Profile:        args.Profile,
		Deck:           args.Deck,
		Content:        args.Content,
		Tags:           args.Tags,
		AllowDuplicate: args.AllowDuplicate,
	})
}

func (s *Server) handleAnalyzeDeck(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var args AnalyzeDeckArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	if args.Deck == "" {
		return nil, errors.New("deck is required")
	}
	if args.SampleSize < 0 {
		return nil, fmt.Errorf("sample_size must be positive, got %d", args.SampleSize)
	}
	a, err := s.cards.AnalyzeDeck(ctx, args.Deck, args.SampleSize)
	if err != nil {
		return nil, err
	}
	return &AnalyzeDeckResult{Report: a.Report, Result: a.Result}, nil
}

// ---------------------------------------------------------------------------
// Standard MCP protocol handlers
// ---------------------------------------------------------------------------

// handleInitialize handles the MCP initialize handshake.
func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return MCPInitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: MCPServerCapabilities{
			Tools: &MCPToolsCapability{},
		},
		ServerInfo: MCPServerInfo{
			Name:    "ankimcp",
			Version: "1.0.0",
		},
	}, nil
}

// handleToolsList returns the list of all tools this server exposes.
func (s *Server) handleToolsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return MCPToolsListResult{Tools: s.buildToolsList()}, nil
}

// handleToolsCall dispatches a tools/call request to the appropriate handler
// and wraps the result in the MCP content envelope. Tool failures are
// reported in-band with isError rather than as JSON-RPC errors.
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p MCPToolCallParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	handler := s.toolHandler(p.Name)
	if handler == nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", p.Name)}},
			IsError: true,
		}, nil
	}

	result, handlerErr := handler(ctx, p.Arguments)
	if handlerErr != nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: handlerErr.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	content := []MCPToolCallContent{}
	// The report reads better as plain text than escaped inside JSON.
	if a, ok := result.(*AnalyzeDeckResult); ok {
		content = append(content, MCPToolCallContent{Type: "text", Text: a.Report})
	}
	content = append(content, MCPToolCallContent{Type: "text", Text: string(text)})
	return &MCPToolCallResult{Content: content}, nil
}

// buildToolsList returns the canonical list of MCP tool definitions.
func (s *Server) buildToolsList() []MCPTool {
	noteTypeOnly := map[string]interface{}{
		"type":     "object",
		"required": []string{"note_type"},
		"properties": map[string]interface{}{
			"note_type": map[string]interface{}{"type": "string", "description": "Note type (model) name"},
		},
	}
	empty := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}

	return []MCPTool{
		{
			Name:        "list_decks",
			Description: "List every deck in the Anki collection.",
			InputSchema: empty,
		},
		{
			Name:        "list_note_types",
			Description: "List every note type (model) in the Anki collection.",
			InputSchema: empty,
		},
		{
			Name:        "get_note_type_fields",
			Description: "Return the ordered field names of a note type.",
			InputSchema: noteTypeOnly,
		},
		{
			Name: "suggest_field_mapping",
			Description: "Suggest which note type field each semantic label (primary, secondary, reading, example, " +
				"explanation, grammar, synonyms, collocations, notes) should fill, with a confidence per suggestion.",
			InputSchema: noteTypeOnly,
		},
		{
			Name: "configure_profile",
			Description: "Save a named card profile: deck, note type and semantic mapping. " +
				"When mapping is omitted the suggested mapping is used. Mappings must reference existing fields " +
				"and may not send two labels to the same field.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"name", "note_type"},
				"properties": map[string]interface{}{
					"name":      map[string]interface{}{"type": "string", "description": "Profile name"},
					"note_type": map[string]interface{}{"type": "string", "description": "Note type the profile targets"},
					"deck":      map[string]interface{}{"type": "string", "description": "Deck new cards go to"},
					"mapping":   map[string]interface{}{"type": "object", "description": "Semantic label → field name", "additionalProperties": map[string]interface{}{"type": "string"}},
					"tags":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Tags added to every card"},
				},
			},
		},
		{
			Name:        "list_profiles",
			Description: "List the saved card profiles.",
			InputSchema: empty,
		},
		{
			Name:        "delete_profile",
			Description: "Delete a saved card profile.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"name"},
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "string", "description": "Profile name"},
				},
			},
		},
		{
			Name: "add_card",
			Description: "Add a card from semantic content, e.g. {\"primary\": \"猫\", \"reading\": \"ねこ\", \"secondary\": \"cat\"}. " +
				"Uses the named profile, or the default deck and note type with a suggested mapping. " +
				"Labels mapped to the same field are joined with a newline.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"content"},
				"properties": map[string]interface{}{
					"content":         map[string]interface{}{"type": "object", "description": "Semantic label → text", "additionalProperties": map[string]interface{}{"type": "string"}},
					"profile":         map[string]interface{}{"type": "string", "description": "Saved profile to use"},
					"deck":            map[string]interface{}{"type": "string", "description": "Override the target deck"},
					"tags":            map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Extra tags"},
					"allow_duplicate": map[string]interface{}{"type": "boolean", "description": "Add even if the first field duplicates an existing note"},
				},
			},
		},
		{
			Name: "analyze_deck",
			Description: "Sample notes from a deck, describe what each field appears to hold and suggest a semantic " +
				"mapping. Returns a text report followed by the structured result.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"deck"},
				"properties": map[string]interface{}{
					"deck":        map[string]interface{}{"type": "string", "description": "Deck name"},
					"sample_size": map[string]interface{}{"type": "integer", "description": "Notes to sample (default 10)"},
				},
			},
		},
	}
}

// unmarshalParams decodes JSON-RPC parameters into a typed struct. Absent
// params decode as an empty object.
func (s *Server) unmarshalParams(params json.RawMessage, dest interface{}) error {
	params = bytes.TrimSpace(params)
	if len(params) == 0 || bytes.Equal(params, []byte("null")) {
		params = []byte("{}")
	}
	if err := json.Unmarshal(params, dest); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}
	return nil
}

// successResponse creates a JSON-RPC success response.
func (s *Server) successResponse(id interface{}, result interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return json.Marshal(resp)
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	return json.Marshal(resp)
}
