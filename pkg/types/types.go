// Package types defines the plain data records shared across ankimcp:
// note schemas, semantic label mappings, deck analysis results and the
// persisted card profiles that tie a deck and note type to a mapping.
package types

// Well-known semantic labels. Other labels come from the pattern table.
const (
	LabelPrimary   = "primary"
	LabelSecondary = "secondary"
)
