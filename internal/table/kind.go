package table

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the semantic type of a column. Every column has exactly one Kind,
// fixed when the table is built.
type Kind int

const (
	Invalid Kind = iota
	Numeric
	Text
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Timestamp:
		return "timestamp"
	default:
		return "invalid"
	}
}

// MarshalText lets kinds appear by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps a type name to a Kind. Besides the canonical names it accepts
// the dtype spellings commonly found in notebook exports (float64, int64,
// object, datetime64[ns]). Integer and float precisions are the same Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "numeric", "number", "float", "float32", "float64", "int", "int32", "int64", "integer", "double":
		return Numeric, nil
	case "text", "string", "str", "object", "category", "categorical":
		return Text, nil
	case "timestamp", "datetime", "datetime64", "datetime64[ns]", "date", "time":
		return Timestamp, nil
	default:
		return Invalid, fmt.Errorf("unknown column type %q (use numeric|text|timestamp)", name)
	}
}

// Field is one entry of a Schema.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Schema is an ordered list of column names and kinds.
type Schema []Field

// Lookup returns the kind recorded for name.
func (s Schema) Lookup(name string) (Kind, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Kind, true
		}
	}
	return Invalid, false
}

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// ParseSchema converts a name → type-name mapping into a Schema. Names listed
// in order come first, in that order; the remaining names follow sorted.
func ParseSchema(types map[string]string, order []string) (Schema, error) {
	seen := make(map[string]bool, len(types))
	var out Schema
	add := func(name string) error {
		if seen[name] {
			return nil
		}
		raw, ok := types[name]
		if !ok {
			return nil
		}
		k, err := ParseKind(raw)
		if err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		seen[name] = true
		out = append(out, Field{Name: name, Kind: k})
		return nil
	}
	for _, name := range order {
		if err := add(name); err != nil {
			return nil, err
		}
	}
	rest := make([]string, 0, len(types))
	for name := range types {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		if err := add(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}
