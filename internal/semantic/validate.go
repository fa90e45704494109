package semantic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scrypster/ankimcp/pkg/types"
)

// ValidateMapping reports whether every mapped field exists in schema and
// no two labels target the same field. The empty mapping is always valid.
func ValidateMapping(schema types.RecordSchema, mapping types.SemanticMapping) bool {
	return len(MappingProblems(schema, mapping)) == 0
}

// MappingProblems lists what makes mapping invalid for schema, sorted for
// stable output. It is empty exactly when ValidateMapping returns true.
func MappingProblems(schema types.RecordSchema, mapping types.SemanticMapping) []string {
	var problems []string
	targets := make(map[string][]string)

	for label, field := range mapping {
		if !schema.HasField(field) {
			problems = append(problems, fmt.Sprintf("label %q: field %q does not exist in note type %q", label, field, schema.TypeName))
		}
		targets[field] = append(targets[field], label)
	}
	for field, labels := range targets {
		if len(labels) > 1 {
			sort.Strings(labels)
			problems = append(problems, fmt.Sprintf("field %q is mapped by more than one label: %s", field, strings.Join(labels, ", ")))
		}
	}
	sort.Strings(problems)
	return problems
}
