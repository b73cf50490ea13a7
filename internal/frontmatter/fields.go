package frontmatter

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when the frontmatter document is not a YAML mapping.
var ErrNotMapping = errors.New("frontmatter must be a YAML mapping")

// Fields is an ordered key/value mapping parsed from frontmatter.
// Key order follows the source document.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields builds Fields from alternating key/value pairs, mostly for tests
// and generated pages.
func NewFields(kv ...any) Fields {
	var f Fields
	for i := 0; i+1 < len(kv); i += 2 {
		f.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return f
}

// Parse decodes raw YAML frontmatter (without --- delimiters) preserving key order.
func Parse(raw []byte) (Fields, error) {
	var f Fields
	if len(raw) == 0 {
		return f, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return f, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return f, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return f, nil
	}
	if root.Kind != yaml.MappingNode {
		return f, ErrNotMapping
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		var value any
		if err := valNode.Decode(&value); err != nil {
			return Fields{}, fmt.Errorf("key %q (line %d): %w", keyNode.Value, keyNode.Line, err)
		}
		f.Set(keyNode.Value, value)
	}
	return f, nil
}

// ParseYAML parses raw YAML frontmatter into an unordered map.
func ParseYAML(raw []byte) (map[string]any, error) {
	f, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return f.Map(), nil
}

// Set adds or replaces a key. New keys are appended to the order.
func (f *Fields) Set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value for key.
func (f Fields) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Len returns the number of keys.
func (f Fields) Len() int { return len(f.keys) }

// Keys returns the keys in document order.
func (f Fields) Keys() []string { return slices.Clone(f.keys) }

// Map returns a shallow copy of the fields as a plain map.
func (f Fields) Map() map[string]any {
	out := make(map[string]any, len(f.values))
	maps.Copy(out, f.values)
	return out
}

// String returns the value for key when it is a string.
func (f Fields) String(key string) string {
	s, _ := f.values[key].(string)
	return s
}

// Bool returns the value for key when it is a bool.
func (f Fields) Bool(key string) bool {
	b, _ := f.values[key].(bool)
	return b
}

// Strings returns the value for key as a string list. A single string is
// treated as a one-element list.
func (f Fields) Strings(key string) []string {
	return AsStrings(f.values[key])
}

// Mapping returns the value for key when it is a nested mapping.
func (f Fields) Mapping(key string) (map[string]any, bool) {
	m, ok := f.values[key].(map[string]any)
	return m, ok
}

// AsStrings converts a decoded YAML value to a list of strings.
func AsStrings(v any) []string {
	switch vv := v.(type) {
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	case []string:
		return slices.Clone(vv)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
