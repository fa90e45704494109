// Package semantic maps a note type's field names onto portable semantic
// labels ("primary", "reading", ...) and projects labelled content back onto
// actual fields.
//
// Everything in this package is pure and safe for concurrent use. The only
// shared state is the PatternTable, which is immutable once built.
package semantic

import "github.com/scrypster/ankimcp/pkg/types"

// PatternTable is an immutable, ordered list of semantic patterns. Order is
// significant: labels earlier in the table claim fields first.
type PatternTable struct {
	patterns []types.SemanticPattern
}

// NewPatternTable copies the given patterns into a new table.
func NewPatternTable(patterns ...types.SemanticPattern) PatternTable {
	out := make([]types.SemanticPattern, len(patterns))
	for i, p := range patterns {
		out[i] = types.SemanticPattern{
			Label:    p.Label,
			Keywords: append([]string(nil), p.Keywords...),
		}
	}
	return PatternTable{patterns: out}
}

// Len returns the number of patterns.
func (t PatternTable) Len() int { return len(t.patterns) }

// Pattern returns the i-th pattern. Its keyword slice must not be modified.
func (t PatternTable) Pattern(i int) types.SemanticPattern { return t.patterns[i] }

// Labels returns the table's labels in declared order.
func (t PatternTable) Labels() []string {
	labels := make([]string, len(t.patterns))
	for i, p := range t.patterns {
		labels[i] = p.Label
	}
	return labels
}

// DefaultPatternTable returns the built-in English/Chinese pattern table.
func DefaultPatternTable() PatternTable {
	return NewPatternTable(
		types.SemanticPattern{Label: types.LabelPrimary, Keywords: []string{
			"front", "word", "expression", "term", "question", "vocabulary", "vocab", "kanji",
			"正面", "单词", "词汇", "问题", "表达",
		}},
		types.SemanticPattern{Label: types.LabelSecondary, Keywords: []string{
			"back", "meaning", "answer", "definition", "translation",
			"背面", "意思", "答案", "释义", "翻译", "含义",
		}},
		types.SemanticPattern{Label: "reading", Keywords: []string{
			"reading", "pronunciation", "phonetic", "phonetics", "furigana", "kana", "pinyin", "ipa",
			"读音", "发音", "音标", "拼音",
		}},
		types.SemanticPattern{Label: "example", Keywords: []string{
			"example", "examples", "sentence", "sentences", "usage",
			"例句", "例子", "用法",
		}},
		types.SemanticPattern{Label: "explanation", Keywords: []string{
			"explanation", "description", "details",
			"解释", "说明", "详解",
		}},
		types.SemanticPattern{Label: "grammar", Keywords: []string{
			"grammar", "语法",
		}},
		types.SemanticPattern{Label: "synonyms", Keywords: []string{
			"synonym", "synonyms", "related",
			"近义词", "同义词", "相关",
		}},
		types.SemanticPattern{Label: "collocations", Keywords: []string{
			"collocation", "collocations",
			"搭配", "短语",
		}},
		types.SemanticPattern{Label: "notes", Keywords: []string{
			"notes", "note", "extra", "remarks", "comment",
			"备注", "笔记", "补充",
		}},
	)
}
