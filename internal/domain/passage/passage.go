package passage

import (
	"strconv"
	"strings"
)

// Well-known metadata keys written by the indexing pipeline.
const (
	KeyName           = "name"
	KeyTitle          = "title"
	KeyType           = "type"
	KeySection        = "section"
	KeyParentCategory = "parent_category_id"
	KeyQueryMust      = "query_must"
	KeyChunkPart      = "chunk_part"
	KeySpellSchool    = "spell_school"
)

// Reference material is exempt from query_must filtering.
const (
	TypeReference           = "reference"
	SectionExplanatoryNotes = "EXPLANATORY NOTES"
)

// Metadata maps keys to scalar values (string, float64, int64, bool).
type Metadata map[string]any

// String returns the value under key rendered as text, or "" when absent.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	default:
		return ""
	}
}

// Name returns the human-readable name, falling back to the title.
func (m Metadata) Name() string {
	if n := m.String(KeyName); n != "" {
		return n
	}
	return m.String(KeyTitle)
}

// Type returns the semantic type tag.
func (m Metadata) Type() string { return m.String(KeyType) }

// ParentCategoryID returns the parent category passage id, if any.
func (m Metadata) ParentCategoryID() string {
	return strings.TrimSpace(m.String(KeyParentCategory))
}

// RawPredicate returns the serialized query_must value as stored.
func (m Metadata) RawPredicate() any { return m[KeyQueryMust] }

// IsReference reports whether the passage is explanatory reference material.
func (m Metadata) IsReference() bool {
	return m.Type() == TypeReference && m.String(KeySection) == SectionExplanatoryNotes
}

// Passage is one indexed unit of text. The engine never mutates passages.
type Passage struct {
	id       string
	text     string
	metadata Metadata
}

// New creates a Passage (storage hydration, no validation).
func New(id, text string, metadata Metadata) Passage {
	return Passage{id: id, text: text, metadata: metadata}
}

// ID returns the passage identifier.
func (p Passage) ID() string { return p.id }

// Text returns the document text.
func (p Passage) Text() string { return p.text }

// Metadata returns the metadata mapping.
func (p Passage) Metadata() Metadata { return p.metadata }
