package analysis

import (
	"github.com/coregx/ahocorasick"
)

// exampleMarkers are the inline prefixes that flag a field as holding
// examples ("Example: ...", "Usage: ...").
var exampleMarkers = []string{"example:", "usage:"}

var defaultMarkers = mustMarkerSet(exampleMarkers)

// markerSet finds any of a fixed list of lowercase markers in a text.
type markerSet struct {
	ac *ahocorasick.Automaton
}

func newMarkerSet(markers []string) (*markerSet, error) {
	automaton, err := ahocorasick.NewBuilder().
		AddStrings(markers).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	return &markerSet{ac: automaton}, nil
}

func mustMarkerSet(markers []string) *markerSet {
	m, err := newMarkerSet(markers)
	if err != nil {
		panic("analysis: building marker automaton: " + err.Error())
	}
	return m
}

// Contains reports whether text holds at least one marker.
func (m *markerSet) Contains(text string) bool {
	if text == "" {
		return false
	}
	return len(m.ac.FindAllOverlapping([]byte(text))) > 0
}
