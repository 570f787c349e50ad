package models

import (
	"encoding/json"
	"strings"
)

// AllowedMethods is the closed set of HTTP verbs a request template may use.
var AllowedMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// RequestTemplate is the authored request shape before any substitution.
// The URL may contain `{name}` tokens and `{$P<id>}` path-parameter tokens.
// Header values may themselves be placeholders or base64-encoded JSON objects
// whose leaf fields are individually mapped.
type RequestTemplate struct {
	Method  string            `json:"method" example:"POST"`
	URL     string            `json:"url" example:"https://api.example.com/users/{$PuserId}"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// NormalizedMethod returns the template's method uppercased, defaulting to GET.
func (t *RequestTemplate) NormalizedMethod() string {
	m := strings.ToUpper(strings.TrimSpace(t.Method))
	if m == "" {
		return "GET"
	}
	return m
}

// Record is one source document, held as raw JSON. The resolver only ever
// reads from it (dotted-path navigation); it is never mutated.
type Record []byte

// RecordFromJSON validates and wraps a raw JSON document.
func RecordFromJSON(raw json.RawMessage) Record {
	return Record(raw)
}

func (r Record) String() string {
	return string(r)
}

// MarshalJSON emits the held document verbatim, so records embed in API
// responses as the JSON they hold rather than as base64 bytes.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores the incoming JSON value verbatim.
func (r *Record) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// ResolvedRequest is a fully-substituted request descriptor. It is produced
// fresh per (template, mappings, record) resolution and has no identity beyond
// the single execution it feeds.
type ResolvedRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
}
