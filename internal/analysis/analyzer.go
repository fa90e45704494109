// Package analysis reverse-engineers a semantic mapping from the notes
// already stored in a deck: it samples notes, classifies each field from its
// name and content, resolves a mapping and renders a text report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/scrypster/ankimcp/internal/semantic"
	"github.com/scrypster/ankimcp/pkg/types"
)

// ErrCollectionEmpty is returned when the analysed deck has no notes.
var ErrCollectionEmpty = errors.New("deck contains no notes")

// MaxSampleLength is the maximum number of characters kept per sampled value.
const MaxSampleLength = 50

// CardStore is the subset of the card backend the analyzer needs.
type CardStore interface {
	// FindIDs returns the ids of every note matching query, in store order.
	FindIDs(ctx context.Context, query string) ([]int64, error)

	// FetchRecords returns the notes with the given ids, in the same order.
	FetchRecords(ctx context.Context, ids []int64) ([]types.NoteRecord, error)
}

// Analyzer samples decks through a CardStore.
type Analyzer struct {
	store  CardStore
	mapper *semantic.Mapper
}

// NewAnalyzer returns an Analyzer that resolves mappings with mapper.
func NewAnalyzer(store CardStore, mapper *semantic.Mapper) *Analyzer {
	return &Analyzer{store: store, mapper: mapper}
}

// DeckQuery builds the card store search query selecting every note of deck.
func DeckQuery(deck string) string {
	return `"deck:` + strings.ReplaceAll(deck, `"`, `\"`) + `"`
}

// AnalyzeDeck samples up to sampleSize notes of deckName and infers what
// each field is for. It makes exactly two store calls (id lookup, then note
// fetch) and returns store errors unchanged. A deck without notes fails
// with ErrCollectionEmpty before any note is fetched.
func (a *Analyzer) AnalyzeDeck(ctx context.Context, deckName string, sampleSize int) (*types.DeckAnalysisResult, error) {
	if sampleSize < 1 {
		return nil, fmt.Errorf("analysis: sample size must be positive, got %d", sampleSize)
	}

	ids, err := a.store.FindIDs(ctx, DeckQuery(deckName))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrCollectionEmpty, deckName)
	}

	if sampleSize > len(ids) {
		sampleSize = len(ids)
	}
	records, err := a.store.FetchRecords(ctx, ids[:sampleSize])
	if err != nil {
		return nil, err
	}

	samples := SampleFields(records)

	classified := make([]types.FieldClassification, 0, len(samples.Names))
	for _, name := range samples.Names {
		classified = append(classified, types.FieldClassification{
			Field: name,
			Label: ClassifyFieldContent(name, samples.Samples[name]),
		})
	}

	schema := types.RecordSchema{TypeName: DominantType(records), Fields: samples.Names}

	return &types.DeckAnalysisResult{
		DeckName:         deckName,
		SampleSize:       sampleSize,
		DominantTypeName: schema.TypeName,
		Fields:           classified,
		SuggestedMapping: a.mapper.SuggestMappings(schema),
		LabelOrder:       a.mapper.Table().Labels(),
	}, nil
}

// DominantType returns the most frequent note type in records. On a tie the
// type that reached the winning count first is kept.
func DominantType(records []types.NoteRecord) string {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, r := range records {
		counts[r.TypeName]++
		if counts[r.TypeName] > bestCount {
			best, bestCount = r.TypeName, counts[r.TypeName]
		}
	}
	return best
}

// SampleFields collects every non-blank field value of records, truncated
// to MaxSampleLength characters. Field order is first-seen order.
func SampleFields(records []types.NoteRecord) *types.FieldSampleSet {
	set := types.NewFieldSampleSet()
	for _, r := range records {
		for _, f := range r.Fields {
			if strings.TrimSpace(f.Value) == "" {
				set.Declare(f.Name)
				continue
			}
			set.Add(f.Name, truncate(f.Value, MaxSampleLength))
		}
	}
	return set
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
