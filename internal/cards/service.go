// Package cards ties the semantic mapping engine, deck analysis, the card
// backend and the profile store together into the operations exposed by the
// MCP server and the CLI.
package cards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scrypster/ankimcp/internal/analysis"
	"github.com/scrypster/ankimcp/internal/semantic"
	"github.com/scrypster/ankimcp/internal/storage"
	"github.com/scrypster/ankimcp/pkg/types"
)

var (
	// ErrNoFieldsMapped is returned when none of the supplied content maps
	// onto a field of the target note type.
	ErrNoFieldsMapped = errors.New("no content could be mapped to note fields")

	// ErrInvalidMapping is returned when a mapping references unknown fields
	// or assigns two labels to the same field.
	ErrInvalidMapping = errors.New("invalid semantic mapping")

	// ErrNoNoteType is returned when a card has neither a profile nor a
	// default note type to fall back on.
	ErrNoNoteType = errors.New("no note type configured")
)

// SchemaProvider looks up the field names of a note type.
type SchemaProvider interface {
	FieldNames(ctx context.Context, noteType string) ([]string, error)
}

// NoteAdder creates notes in the card backend.
type NoteAdder interface {
	AddNote(ctx context.Context, draft types.NoteDraft) (int64, error)
}

// Backend is everything the service needs from the card backend.
type Backend interface {
	SchemaProvider
	NoteAdder
	analysis.CardStore
}

// Defaults are used by AddCard when no profile is named.
type Defaults struct {
	Deck       string
	NoteType   string
	SampleSize int
}

// Service implements the card operations.
type Service struct {
	backend  Backend
	profiles storage.ProfileStore
	mapper   *semantic.Mapper
	analyzer *analysis.Analyzer
	defaults Defaults
}

// NewService creates a Service using the default pattern table.
func NewService(backend Backend, profiles storage.ProfileStore, defaults Defaults) *Service {
	mapper := semantic.NewMapper(semantic.DefaultPatternTable())
	if defaults.SampleSize < 1 {
		defaults.SampleSize = 10
	}
	return &Service{
		backend:  backend,
		profiles: profiles,
		mapper:   mapper,
		analyzer: analysis.NewAnalyzer(backend, mapper),
		defaults: defaults,
	}
}

// Defaults returns the configured card defaults.
func (s *Service) Defaults() Defaults { return s.defaults }

// Schema fetches the field list of noteType.
func (s *Service) Schema(ctx context.Context, noteType string) (types.RecordSchema, error) {
	if strings.TrimSpace(noteType) == "" {
		return types.RecordSchema{}, fmt.Errorf("cards: note type is required")
	}
	fields, err := s.backend.FieldNames(ctx, noteType)
	if err != nil {
		return types.RecordSchema{}, fmt.Errorf("cards: failed to load fields of %q: %w", noteType, err)
	}
	return types.RecordSchema{TypeName: noteType, Fields: fields}, nil
}

// Suggestion is the result of Suggest.
type Suggestion struct {
	NoteType string                  `json:"note_type"`
	Fields   []string                `json:"fields"`
	Mapping  types.SemanticMapping   `json:"mapping"`
	Details  []types.SuggestionEntry `json:"details"`
}

// Suggest proposes a mapping for noteType together with ranked details.
func (s *Service) Suggest(ctx context.Context, noteType string) (*Suggestion, error) {
	schema, err := s.Schema(ctx, noteType)
	if err != nil {
		return nil, err
	}
	return &Suggestion{
		NoteType: schema.TypeName,
		Fields:   schema.Fields,
		Mapping:  s.mapper.SuggestMappings(schema),
		Details:  s.mapper.SuggestionDetails(schema),
	}, nil
}

// ConfigureRequest describes a profile to create or replace.
type ConfigureRequest struct {
	Name     string
	Deck     string
	NoteType string
	Mapping  types.SemanticMapping // suggested when empty
	Tags     []string
}

// Configure validates the mapping against the note type and saves the
// profile. An empty mapping is replaced by the suggested one.
func (s *Service) Configure(ctx context.Context, req ConfigureRequest) (*types.CardProfile, error) {
	schema, err := s.Schema(ctx, req.NoteType)
	if err != nil {
		return nil, err
	}

	mapping := req.Mapping
	if len(mapping) == 0 {
		mapping = s.mapper.SuggestMappings(schema)
	}
	if problems := semantic.MappingProblems(schema, mapping); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMapping, strings.Join(problems, "; "))
	}

	profile := &types.CardProfile{
		Name:     req.Name,
		Deck:     req.Deck,
		NoteType: req.NoteType,
		Mapping:  mapping.Clone(),
		Tags:     req.Tags,
	}
	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("cards: failed to save profile %q: %w", req.Name, err)
	}
	return profile, nil
}

// Profiles lists the saved profiles.
func (s *Service) Profiles(ctx context.Context) ([]*types.CardProfile, error) {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("cards: failed to list profiles: %w", err)
	}
	return profiles, nil
}

// DeleteProfile removes a saved profile.
func (s *Service) DeleteProfile(ctx context.Context, name string) error {
	if err := s.profiles.DeleteProfile(ctx, name); err != nil {
		return fmt.Errorf("cards: failed to delete profile %q: %w", name, err)
	}
	return nil
}

// AddCardRequest is one card to add.
type AddCardRequest struct {
	Profile string                  // optional; defaults are used when empty
	Deck    string                  // overrides the profile or default deck
	Content []semantic.LabelledText // in caller order
	Tags    []string                // appended to the profile tags

	AllowDuplicate bool
}

// AddCardResult reports the created note.
type AddCardResult struct {
	NoteID   int64             `json:"note_id"`
	Deck     string            `json:"deck"`
	NoteType string            `json:"note_type"`
	Fields   map[string]string `json:"fields"`
}

// AddCard maps labelled content onto the note type's fields and creates the
// note. It fails with ErrNoFieldsMapped when nothing maps.
func (s *Service) AddCard(ctx context.Context, req AddCardRequest) (*AddCardResult, error) {
	deck, noteType, mapping, tags, err := s.resolveTarget(ctx, req.Profile)
	if err != nil {
		return nil, err
	}
	if req.Deck != "" {
		deck = req.Deck
	}
	if deck == "" {
		return nil, fmt.Errorf("cards: no deck given and no default deck configured")
	}

	fields := semantic.ApplyMapping(mapping, req.Content)
	if len(fields) == 0 {
		return nil, ErrNoFieldsMapped
	}

	draft := types.NoteDraft{
		Deck:     deck,
		NoteType: noteType,
		Fields:   fields,
		Tags:     mergeTags(tags, req.Tags),

		AllowDuplicate: req.AllowDuplicate,
	}
	id, err := s.backend.AddNote(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("cards: failed to add note: %w", err)
	}
	return &AddCardResult{NoteID: id, Deck: deck, NoteType: noteType, Fields: fields}, nil
}

// resolveTarget returns deck, note type, mapping and tags from the named
// profile, or from the defaults and a suggested mapping when name is empty.
func (s *Service) resolveTarget(ctx context.Context, name string) (string, string, types.SemanticMapping, []string, error) {
	if name != "" {
		p, err := s.profiles.GetProfile(ctx, name)
		if err != nil {
			return "", "", nil, nil, fmt.Errorf("cards: failed to load profile %q: %w", name, err)
		}
		deck := p.Deck
		if deck == "" {
			deck = s.defaults.Deck
		}
		return deck, p.NoteType, p.Mapping, p.Tags, nil
	}

	if s.defaults.NoteType == "" {
		return "", "", nil, nil, ErrNoNoteType
	}
	schema, err := s.Schema(ctx, s.defaults.NoteType)
	if err != nil {
		return "", "", nil, nil, err
	}
	return s.defaults.Deck, s.defaults.NoteType, s.mapper.SuggestMappings(schema), nil, nil
}

// Analysis bundles an analysis result with its rendered report.
type Analysis struct {
	Result *types.DeckAnalysisResult `json:"result"`
	Report string                    `json:"report"`
}

// AnalyzeDeck samples deck and renders the report. A sampleSize below 1
// uses the configured default.
func (s *Service) AnalyzeDeck(ctx context.Context, deck string, sampleSize int) (*Analysis, error) {
	if sampleSize < 1 {
		sampleSize = s.defaults.SampleSize
	}
	result, err := s.analyzer.AnalyzeDeck(ctx, deck, sampleSize)
	if err != nil {
		return nil, err
	}
	return &Analysis{Result: result, Report: analysis.GenerateReport(result)}, nil
}

func mergeTags(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	var out []string
	for _, list := range [][]string{base, extra} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
