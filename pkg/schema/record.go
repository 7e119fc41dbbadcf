// Package schema defines the wire-level data structures shared by the Folio
// server and its clients.
package schema

import (
	"encoding/json"
	"time"
)

// Record is the generic entity record exchanged over the REST API.
// Entity-specific fields live in Fields and are flattened to the top level of
// the JSON object, next to the reserved id/createdAt/updatedAt keys.
type Record struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// reserved JSON keys that never come from Fields.
const (
	keyID        = "id"
	keyCreatedAt = "createdAt"
	keyUpdatedAt = "updatedAt"
)

// Field returns the named field value, or nil if absent.
func (r Record) Field(name string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// String returns the named field as a string ("" when absent or not a string).
func (r Record) String(name string) string {
	s, _ := r.Field(name).(string)
	return s
}

// Strings returns the named field as a string slice. Values decoded from JSON
// arrive as []any, so both representations are accepted.
func (r Record) Strings(name string) []string {
	switch v := r.Field(name).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Bool returns the named field as a bool (false when absent).
func (r Record) Bool(name string) bool {
	b, _ := r.Field(name).(bool)
	return b
}

// MarshalJSON flattens Fields into the top-level object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[keyID] = r.ID
	out[keyCreatedAt] = r.CreatedAt
	out[keyUpdatedAt] = r.UpdatedAt
	return json.Marshal(out)
}

// UnmarshalJSON splits the reserved keys back out of the flattened object.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Fields = make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case keyID:
			if err := json.Unmarshal(v, &r.ID); err != nil {
				return err
			}
		case keyCreatedAt:
			if err := json.Unmarshal(v, &r.CreatedAt); err != nil {
				return err
			}
		case keyUpdatedAt:
			if err := json.Unmarshal(v, &r.UpdatedAt); err != nil {
				return err
			}
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			r.Fields[k] = val
		}
	}
	return nil
}

// PageInfo describes one page of a paginated listing. Both the server list
// endpoint and client-side windowing produce this shape.
type PageInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Page is the response body of a paginated collection GET.
type Page struct {
	Items      []Record `json:"items"`
	Pagination PageInfo `json:"pagination"`
}

// ErrorResponse is the uniform error envelope for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
