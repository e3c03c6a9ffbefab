package age

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// agtype annotations following a value in its text form.
var annotations = []string{"::vertex", "::edge", "::path", "::numeric"}

// ParseAgtype decodes the text form of an agtype value. Vertices and edges
// decode to their property map, paths to the list of their entities,
// integers to int64 and other numbers to float64.
//
//	ParseAgtype(`{"id": 1, "label": "Person", "properties": {"age": 30}}::vertex`)
//	// map[string]any{"age": int64(30)}
func ParseAgtype(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(stripAnnotations(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse agtype: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse agtype: trailing data in %q", s)
	}
	return convert(v), nil
}

// stripAnnotations removes the type annotations outside of string literals.
func stripAnnotations(s string) string {
	if !strings.Contains(s, "::") {
		return s
	}
	var (
		b     bytes.Buffer
		inStr bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
			b.WriteByte(c)
		case c == ':' && strings.HasPrefix(s[i:], "::"):
			skipped := false
			for _, a := range annotations {
				if strings.HasPrefix(s[i:], a) {
					i += len(a) - 1
					skipped = true
					break
				}
			}
			if !skipped {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func convert(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		if props, ok := entityProps(v); ok {
			return convert(props)
		}
		for k, e := range v {
			v[k] = convert(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = convert(e)
		}
		return v
	default:
		return v
	}
}

// entityProps reports the properties of a decoded vertex or edge.
func entityProps(m map[string]any) (map[string]any, bool) {
	if _, ok := m["id"]; !ok {
		return nil, false
	}
	if _, ok := m["label"]; !ok {
		return nil, false
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		return nil, false
	}
	return props, true
}
