package anki

import (
	"context"
	"sort"

	"github.com/scrypster/ankimcp/pkg/types"
)

// Version returns the AnkiConnect protocol version of the running add-on.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	err := c.invoke(ctx, "version", nil, &v)
	return v, err
}

// DeckNames lists every deck.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "deckNames", nil, &names)
	return names, err
}

// ModelNames lists every note type.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "modelNames", nil, &names)
	return names, err
}

// FieldNames returns the ordered field names of a note type.
func (c *Client) FieldNames(ctx context.Context, noteType string) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "modelFieldNames", map[string]string{"modelName": noteType}, &names)
	return names, err
}

// CreateDeck creates deck if it does not exist and returns its id.
func (c *Client) CreateDeck(ctx context.Context, deck string) (int64, error) {
	var id int64
	err := c.invoke(ctx, "createDeck", map[string]string{"deck": deck}, &id)
	return id, err
}

// FindIDs returns the ids of notes matching an Anki search query.
func (c *Client) FindIDs(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	err := c.invoke(ctx, "findNotes", map[string]string{"query": query}, &ids)
	return ids, err
}

type noteInfo struct {
	NoteID    int64    `json:"noteId"`
	ModelName string   `json:"modelName"`
	Tags      []string `json:"tags"`
	Fields    map[string]struct {
		Value string `json:"value"`
		Order int    `json:"order"`
	} `json:"fields"`
}

// FetchRecords returns the notes with the given ids, in the same order, with
// each note's fields sorted by their position in the note type.
func (c *Client) FetchRecords(ctx context.Context, ids []int64) ([]types.NoteRecord, error) {
	var infos []noteInfo
	if err := c.invoke(ctx, "notesInfo", map[string][]int64{"notes": ids}, &infos); err != nil {
		return nil, err
	}

	records := make([]types.NoteRecord, 0, len(infos))
	for _, info := range infos {
		fields := make([]types.FieldValue, 0, len(info.Fields))
		order := make(map[string]int, len(info.Fields))
		for name, f := range info.Fields {
			fields = append(fields, types.FieldValue{Name: name, Value: f.Value})
			order[name] = f.Order
		}
		sort.Slice(fields, func(i, j int) bool {
			if order[fields[i].Name] != order[fields[j].Name] {
				return order[fields[i].Name] < order[fields[j].Name]
			}
			return fields[i].Name < fields[j].Name
		})
		records = append(records, types.NoteRecord{
			ID:       info.NoteID,
			TypeName: info.ModelName,
			Tags:     info.Tags,
			Fields:   fields,
		})
	}
	return records, nil
}

type addNoteParams struct {
	Note struct {
		DeckName  string            `json:"deckName"`
		ModelName string            `json:"modelName"`
		Fields    map[string]string `json:"fields"`
		Tags      []string          `json:"tags,omitempty"`
		Options   struct {
			AllowDuplicate bool `json:"allowDuplicate"`
		} `json:"options"`
	} `json:"note"`
}

// AddNote adds draft to Anki and returns the new note's id.
func (c *Client) AddNote(ctx context.Context, draft types.NoteDraft) (int64, error) {
	var p addNoteParams
	p.Note.DeckName = draft.Deck
	p.Note.ModelName = draft.NoteType
	p.Note.Fields = draft.Fields
	p.Note.Tags = draft.Tags
	p.Note.Options.AllowDuplicate = draft.AllowDuplicate

	var id int64
	err := c.invoke(ctx, "addNote", p, &id)
	return id, err
}
