package filter

import (
	"strings"

	"github.com/agenttrace/xray/internal/pkg/value"
)

// enumLimit is the distinct-value count below which a string field is an enum
const enumLimit = 10

// exampleCount is the number of sample values listed for non-enum strings
const exampleCount = 3

// Field describes one leaf path of the inferred schema
type Field struct {
	Path     string
	Kind     value.Kind
	Min      float64
	Max      float64
	Enum     []string
	Examples []string
}

// Describe renders the field the way it is shown to the Reasoner
func (f Field) Describe() string {
	switch {
	case f.Kind == value.KindNumber:
		return "number (min: " + value.Text(f.Min) + ", max: " + value.Text(f.Max) + ")"
	case f.Kind == value.KindString && f.Enum != nil:
		return "string (enum: " + strings.Join(f.Enum, ", ") + ")"
	case f.Kind == value.KindString:
		return "string (examples: " + strings.Join(f.Examples, ", ") + ")"
	}
	return string(f.Kind)
}

// Schema is the ordered set of fields inferred from a record list
type Schema struct {
	fields []Field
	index  map[string]int
}

// InferSchema derives a schema from items. Paths come from the first record;
// each field's kind is decided by the first record's value and its statistics
// are gathered across all records.
func InferSchema(items []any) Schema {
	s := Schema{index: map[string]int{}}
	if len(items) == 0 {
		return s
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return s
	}

	for _, path := range value.Flatten(first) {
		sample, _ := value.Resolve(first, path)
		field := Field{Path: path, Kind: value.KindOf(sample)}

		switch field.Kind {
		case value.KindNumber:
			numericStats(&field, items)
		case value.KindString:
			stringStats(&field, items)
		}

		s.index[path] = len(s.fields)
		s.fields = append(s.fields, field)
	}
	return s
}

func numericStats(f *Field, items []any) {
	seen := false
	for _, item := range items {
		v, _ := value.Resolve(item, f.Path)
		if value.KindOf(v) != value.KindNumber {
			continue
		}
		n, _ := value.ToFloat(v)
		if !seen || n < f.Min {
			f.Min = n
		}
		if !seen || n > f.Max {
			f.Max = n
		}
		seen = true
	}
}

func stringStats(f *Field, items []any) {
	var distinct []string
	seen := map[string]bool{}
	for _, item := range items {
		v, _ := value.Resolve(item, f.Path)
		str, ok := v.(string)
		if !ok || seen[str] {
			continue
		}
		seen[str] = true
		distinct = append(distinct, str)
	}

	if len(distinct) < enumLimit {
		f.Enum = append([]string{}, distinct...)
		return
	}
	f.Examples = distinct[:exampleCount]
}

// Fields returns the fields in path order
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the field at path
func (s Schema) Field(path string) (Field, bool) {
	i, ok := s.index[path]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether path is part of the schema
func (s Schema) Has(path string) bool {
	_, ok := s.index[path]
	return ok
}

// Len returns the number of fields
func (s Schema) Len() int {
	return len(s.fields)
}

// Describe returns the path to description map shown to the Reasoner
func (s Schema) Describe() map[string]string {
	out := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		out[f.Path] = f.Describe()
	}
	return out
}
