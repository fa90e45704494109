// Package importer moves card profiles between YAML files and a profile
// store, so a working setup can be shared or kept under version control.
package importer

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/ankimcp/internal/semantic"
	"github.com/scrypster/ankimcp/internal/storage"
	"github.com/scrypster/ankimcp/pkg/types"
)

// CurrentVersion is written to exported files.
const CurrentVersion = "1"

// ProfileFile is the on-disk YAML layout.
type ProfileFile struct {
	Version  string         `yaml:"version"`
	Profiles []ProfileEntry `yaml:"profiles"`
}

// ProfileEntry is one profile in a ProfileFile.
type ProfileEntry struct {
	Name     string            `yaml:"name"`
	Deck     string            `yaml:"deck,omitempty"`
	NoteType string            `yaml:"note_type"`
	Mapping  map[string]string `yaml:"mapping,omitempty"`
	Tags     []string          `yaml:"tags,omitempty"`
}

// ImportResult summarises an ImportProfiles call.
type ImportResult struct {
	Imported []string `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

// LoadFile reads and parses a profile file.
func LoadFile(path string) (*ProfileFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML profile data and rejects duplicate names.
func Parse(data []byte) (*ProfileFile, error) {
	var pf ProfileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	if pf.Version == "" {
		pf.Version = CurrentVersion
	}

	seen := make(map[string]bool, len(pf.Profiles))
	for i, p := range pf.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile #%d: name is required", i+1)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("profile %q: defined more than once", p.Name)
		}
		seen[p.Name] = true
	}
	return &pf, nil
}

// Marshal serializes a ProfileFile to YAML.
func Marshal(pf *ProfileFile) ([]byte, error) {
	return yaml.Marshal(pf)
}

// WriteFile writes pf to path.
func WriteFile(pf *ProfileFile, path string) error {
	data, err := Marshal(pf)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile file %s: %w", path, err)
	}
	return nil
}

// SchemaProvider looks up the field names of a note type.
type SchemaProvider interface {
	FieldNames(ctx context.Context, noteType string) ([]string, error)
}

// ImportProfiles saves every entry of pf into store. Each mapping is
// checked against the fields schemas reports for its note type. Entries
// that fail validation are reported in the result; the rest are still
// imported.
func ImportProfiles(ctx context.Context, store storage.ProfileStore, schemas SchemaProvider, pf *ProfileFile) (*ImportResult, error) {
	result := &ImportResult{Imported: []string{}}
	fields := make(map[string][]string)

	for _, entry := range pf.Profiles {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		p := entry.toProfile()
		if err := storage.ValidateProfile(p); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name, err))
			continue
		}

		if len(p.Mapping) > 0 {
			names, ok := fields[p.NoteType]
			if !ok {
				var err error
				names, err = schemas.FieldNames(ctx, p.NoteType)
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("%s: failed to load fields of %q: %v", entry.Name, p.NoteType, err))
					continue
				}
				fields[p.NoteType] = names
			}
			schema := types.RecordSchema{TypeName: p.NoteType, Fields: names}
			if problems := semantic.MappingProblems(schema, p.Mapping); len(problems) > 0 {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: invalid semantic mapping: %s", entry.Name, strings.Join(problems, "; ")))
				continue
			}
		}

		if err := store.SaveProfile(ctx, p); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name, err))
			continue
		}
		result.Imported = append(result.Imported, p.Name)
	}
	return result, nil
}

// ExportProfiles reads every profile from store into a ProfileFile.
func ExportProfiles(ctx context.Context, store storage.ProfileStore) (*ProfileFile, error) {
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	pf := &ProfileFile{Version: CurrentVersion, Profiles: make([]ProfileEntry, 0, len(profiles))}
	for _, p := range profiles {
		pf.Profiles = append(pf.Profiles, fromProfile(p))
	}
	sort.Slice(pf.Profiles, func(i, j int) bool { return pf.Profiles[i].Name < pf.Profiles[j].Name })
	return pf, nil
}

func (e ProfileEntry) toProfile() *types.CardProfile {
	return &types.CardProfile{
		Name:     e.Name,
		Deck:     e.Deck,
		NoteType: e.NoteType,
		Mapping:  types.SemanticMapping(e.Mapping).Clone(),
		Tags:     append([]string(nil), e.Tags...),
	}
}

func fromProfile(p *types.CardProfile) ProfileEntry {
	entry := ProfileEntry{
		Name:     p.Name,
		Deck:     p.Deck,
		NoteType: p.NoteType,
		Tags:     p.Tags,
	}
	if len(p.Mapping) > 0 {
		entry.Mapping = map[string]string(p.Mapping.Clone())
	}
	return entry
}
