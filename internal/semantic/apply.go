package semantic

import (
	"strings"

	"github.com/scrypster/ankimcp/pkg/types"
)

// LabelledText is one piece of semantic content, e.g. {"primary", "猫"}.
type LabelledText struct {
	Label string
	Text  string
}

// ApplyMapping projects labelled content onto actual field names. Labels
// without a mapping and blank texts are skipped. Several labels may land on
// the same field; their texts are joined with a newline in input order.
// The result may be empty, which is not an error here.
func ApplyMapping(mapping types.SemanticMapping, content []LabelledText) map[string]string {
	fields := make(map[string]string)
	for _, c := range content {
		field, ok := mapping[c.Label]
		if !ok {
			continue
		}
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if prev, ok := fields[field]; ok {
			fields[field] = prev + "\n" + c.Text
		} else {
			fields[field] = c.Text
		}
	}
	return fields
}
