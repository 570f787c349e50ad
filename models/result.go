package models

import (
	"database/sql"
	"time"
)

// Log sources for execution results.
const (
	SourceRunner = "runner" // batch run over a record collection
	SourceSingle = "single" // one-off execution from the API/CLI
	SourceProxy  = "proxy"  // captured by the MITM proxy
)

// ExecutionResult is one executed (or failed) request/response pair. Transport
// failures are recorded with Success=false and an error message; they are
// never surfaced as batch-level errors.
type ExecutionResult struct {
	ID                  int64          `json:"id" readOnly:"true"`
	TaskID              sql.NullInt64  `json:"task_id,omitempty"`
	RecordIndex         sql.NullInt64  `json:"record_index,omitempty"` // position of the record within the batch
	Timestamp           time.Time      `json:"timestamp" readOnly:"true"`
	RequestMethod       string         `json:"request_method" example:"POST"`
	RequestURL          string         `json:"request_url" example:"https://api.example.com/users/user123"`
	RequestHeaders      sql.NullString `json:"request_headers,omitempty"` // JSON object
	RequestBody         []byte         `json:"request_body,omitempty"`
	ResponseStatusCode  int            `json:"response_status_code,omitempty" example:"201"`
	ResponseHeaders     sql.NullString `json:"response_headers,omitempty"` // JSON object
	ResponseBody        []byte         `json:"response_body,omitempty"`
	ResponseContentType sql.NullString `json:"response_content_type,omitempty" example:"application/json"`
	ResponseBodySize    int64          `json:"response_body_size,omitempty"`
	DurationMs          int64          `json:"duration_ms,omitempty" example:"150"`
	Success             bool           `json:"success"`
	ErrorMessage        sql.NullString `json:"error_message,omitempty"`
	LogSource           string         `json:"log_source" example:"runner"`
}

// RunRequest is the payload for a batch run of a task over a collection.
type RunRequest struct {
	Collection  string `json:"collection"`
	Concurrency int    `json:"concurrency,omitempty"` // 0 = config default
	MaxRecords  int    `json:"max_records,omitempty"` // 0 = no cap
}

// RunSummary reports the outcome of a batch run.
type RunSummary struct {
	TaskID     int64 `json:"task_id"`
	Total      int   `json:"total"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"duration_ms"`
}

// ExecuteRequest is the payload for a single execution of a task, optionally
// against one inline record.
type ExecuteRequest struct {
	Record Record `json:"record,omitempty"`
}
