package answer

import (
	"sort"
	"strings"
)

// FieldType classifies the form control a question belongs to.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDropdown FieldType = "dropdown"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
)

// Question is a single form question as discovered by the driver. It is a
// value object, constructed fresh per field and never persisted.
type Question struct {
	Text    string
	Type    FieldType
	Options []string
}

// HasOptions reports whether the question constrains the answer to a fixed
// option list.
func (q Question) HasOptions() bool {
	return len(q.Options) > 0
}

// cacheKey builds a stable key from the question text, the field type and
// the sorted option list, so the same question produces the same key no
// matter how the options were ordered on the page.
func (q Question) cacheKey() string {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	sort.Strings(options)

	parts := append([]string{q.Text, string(q.Type)}, options...)

	return strings.Join(parts, "\x00")
}

// Source records which layer produced an answer.
type Source string

const (
	SourceCache    Source = "cache"
	SourceProvider Source = "provider"
	SourceRule     Source = "rule"
)

// ResolvedAnswer is the engine's result for one question. An empty Value
// means "cannot answer safely"; the caller decides whether that is
// acceptable for the field.
type ResolvedAnswer struct {
	Value  string
	Source Source
}
