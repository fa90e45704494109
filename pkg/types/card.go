package types

// SemanticPattern pairs a portable semantic label with the keywords that
// identify it in a note type's field names. Keywords cover English and
// Chinese field naming conventions.
type SemanticPattern struct {
	Label    string   `json:"label" yaml:"label"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// RecordSchema is a note type name plus its ordered field names.
type RecordSchema struct {
	TypeName string   `json:"type_name"`
	Fields   []string `json:"fields"`
}

// HasField reports whether name is one of the schema's fields.
func (s RecordSchema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// SemanticMapping maps a semantic label (e.g. "primary") to an actual field
// name of a note type. Labels that could not be mapped are absent.
type SemanticMapping map[string]string

// Clone returns an independent copy of the mapping.
func (m SemanticMapping) Clone() SemanticMapping {
	out := make(SemanticMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SuggestionEntry is a single ranked label → field suggestion.
type SuggestionEntry struct {
	Label      string  `json:"label"`
	Field      string  `json:"field"`
	Confidence float64 `json:"confidence"` // 0.0-1.0, advisory only
}

// FieldValue is one field of a stored note, in the note type's field order.
type FieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NoteRecord is a stored note as returned by the card store.
type NoteRecord struct {
	ID       int64        `json:"note_id"`
	TypeName string       `json:"model_name"`
	Tags     []string     `json:"tags,omitempty"`
	Fields   []FieldValue `json:"fields"`
}

// NoteDraft is a note ready to be added to the card store, with content
// already projected onto the note type's actual fields.
type NoteDraft struct {
	Deck     string            `json:"deck"`
	NoteType string            `json:"note_type"`
	Fields   map[string]string `json:"fields"`
	Tags     []string          `json:"tags,omitempty"`

	// AllowDuplicate disables the store's first-field duplicate check.
	AllowDuplicate bool `json:"allow_duplicate,omitempty"`
}
