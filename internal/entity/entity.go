// Package entity declares the portfolio entity families. Each family is one
// declarative crud.Options value; there are no per-entity handlers anywhere.
package entity

import "strings"

// Kind classifies how a field's incoming value is shaped.
type Kind int

const (
	// Text is a trimmed string.
	Text Kind = iota
	// TextList is an array of trimmed strings; blanks are dropped.
	TextList
	// Flag is a boolean.
	Flag
	// Opaque is a string stored verbatim (base64 image payloads and the
	// like are exempt from trimming).
	Opaque
)

// Field describes one entity field for the payload builder.
type Field struct {
	Name string
	Kind Kind
}

// Payload returns a build function that shapes a raw JSON body according to
// the field specs. Only declared fields survive; a field absent from the raw
// input is absent from the output, so the update path can tell omission from
// an explicit value.
func Payload(specs []Field) func(raw map[string]any) map[string]any {
	return func(raw map[string]any) map[string]any {
		out := make(map[string]any, len(specs))
		for _, spec := range specs {
			val, ok := raw[spec.Name]
			if !ok {
				continue
			}
			switch spec.Kind {
			case Text:
				if s, ok := val.(string); ok {
					out[spec.Name] = strings.TrimSpace(s)
				}
			case TextList:
				if list, ok := stringList(val); ok {
					out[spec.Name] = list
				}
			case Flag:
				if b, ok := val.(bool); ok {
					out[spec.Name] = b
				}
			case Opaque:
				if s, ok := val.(string); ok {
					out[spec.Name] = s
				}
			}
		}
		return out
	}
}

// ListDefaults returns a defaults map giving every TextList field an empty
// slice, so array fields are never null.
func ListDefaults(specs []Field) map[string]any {
	out := map[string]any{}
	for _, spec := range specs {
		if spec.Kind == TextList {
			out[spec.Name] = []string{}
		}
	}
	return out
}

// stringList accepts both []string and the []any produced by JSON decoding.
// Entries are trimmed; blank entries are dropped.
func stringList(val any) ([]string, bool) {
	var items []any
	switch v := val.(type) {
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []any:
		items = v
	default:
		return nil, false
	}

	out := []string{}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}
