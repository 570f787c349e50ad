package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RequestTask is a persisted request template plus its field mappings.
// A task is authored once and reused across many records; each record pulled
// from a collection produces one resolved request.
type RequestTask struct {
	ID             int64         `json:"id" readOnly:"true"`
	Name           string        `json:"name" example:"Create users from export"`
	Method         string        `json:"method" example:"POST"`
	URL            string        `json:"url" example:"https://api.example.com/users/{$PuserId}"`
	Headers        string        `json:"headers"`  // JSON object of header name -> value
	Body           string        `json:"body"`     // literal string or JSON text
	Mappings       string        `json:"mappings"` // JSON object of dotted path -> mapping
	DisplayOrder   int           `json:"display_order"`
	CreatedAt      time.Time     `json:"created_at" readOnly:"true"`
	UpdatedAt      time.Time     `json:"updated_at" readOnly:"true"`
	SourceResultID sql.NullInt64 `json:"source_result_id,omitempty"` // set when created from a captured exchange
}

// Template decodes the task's stored template fields into a RequestTemplate.
func (t *RequestTask) Template() (*RequestTemplate, error) {
	tmpl := &RequestTemplate{
		Method: t.Method,
		URL:    t.URL,
		Body:   t.Body,
	}
	if t.Headers != "" {
		if err := json.Unmarshal([]byte(t.Headers), &tmpl.Headers); err != nil {
			return nil, fmt.Errorf("decoding stored headers for task %d: %w", t.ID, err)
		}
	}
	return tmpl, nil
}

// MappingSet decodes the task's stored mappings JSON.
func (t *RequestTask) MappingSet() (MappingSet, error) {
	set := MappingSet{}
	if t.Mappings == "" {
		return set, nil
	}
	if err := json.Unmarshal([]byte(t.Mappings), &set); err != nil {
		return nil, fmt.Errorf("decoding stored mappings for task %d: %w", t.ID, err)
	}
	return set, nil
}

// SaveTaskRequest is the payload for creating or updating a request task.
type SaveTaskRequest struct {
	Name     string            `json:"name"`
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     string            `json:"body,omitempty"`
	Mappings MappingSet        `json:"mappings,omitempty"`
}

// ImportCurlRequest carries a pasted curl command to turn into a task.
type ImportCurlRequest struct {
	Name    string `json:"name,omitempty"`
	Command string `json:"command"`
}

// TaskFromResultRequest creates a task whose template is seeded from a
// previously captured or executed exchange.
type TaskFromResultRequest struct {
	ResultID     int64  `json:"result_id"`
	NameOverride string `json:"name_override,omitempty"`
}
