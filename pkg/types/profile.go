package types

import "time"

// CardProfile is a persisted note configuration: which deck and note type a
// card goes to and how semantic labels map onto the note type's fields.
type CardProfile struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Deck      string          `json:"deck"`
	NoteType  string          `json:"note_type"`
	Mapping   SemanticMapping `json:"mapping"`
	Tags      []string        `json:"tags,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
