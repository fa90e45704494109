package types

// FieldSampleSet holds truncated, non-blank sample values per field.
// Names preserves first-seen order across the sampled notes; a field that
// only ever held blank values is still listed with an empty sample slice.
type FieldSampleSet struct {
	Names   []string            `json:"names"`
	Samples map[string][]string `json:"samples"`
}

// NewFieldSampleSet returns an empty sample set ready for use.
func NewFieldSampleSet() *FieldSampleSet {
	return &FieldSampleSet{Samples: make(map[string][]string)}
}

// Declare registers a field name without adding a sample.
func (s *FieldSampleSet) Declare(name string) {
	if _, ok := s.Samples[name]; ok {
		return
	}
	s.Names = append(s.Names, name)
	s.Samples[name] = []string{}
}

// Add registers the field (if new) and appends a sample to it.
func (s *FieldSampleSet) Add(name, sample string) {
	s.Declare(name)
	s.Samples[name] = append(s.Samples[name], sample)
}

// FieldClassification is the heuristic purpose label of one field.
type FieldClassification struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// DeckAnalysisResult is the outcome of sampling and classifying a deck.
type DeckAnalysisResult struct {
	DeckName         string                `json:"deck_name"`
	SampleSize       int                   `json:"sample_size"`
	DominantTypeName string                `json:"dominant_note_type"`
	Fields           []FieldClassification `json:"fields"`
	SuggestedMapping SemanticMapping       `json:"suggested_mapping"`

	// LabelOrder is the order in which mapping entries are reported. It
	// follows the pattern table the mapping was resolved with.
	LabelOrder []string `json:"-"`
}
