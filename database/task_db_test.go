package database

import (
	"testing"
	"time"

	"reqkit/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestCreateTaskFromResultFlattensCapturedHeaders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	defer db.Close()
	DB = db

	// The capture proxy stores headers as name -> list of values.
	capturedHeaders := `{"Accept":["*/*"],"X-Api-Key":["k1","k2"]}`
	flatHeaders := `{"Accept":"*/*","X-Api-Key":"k1, k2"}`

	resultRow := sqlmock.NewRows([]string{
		"id", "task_id", "record_index", "timestamp", "request_method", "request_url",
		"request_headers", "request_body", "response_status_code", "response_headers",
		"response_body", "response_content_type", "response_body_size", "duration_ms",
		"success", "error_message", "log_source",
	}).AddRow(5, nil, nil, time.Now(), "POST", "https://h/users",
		capturedHeaders, `{"n":1}`, 200, "{}", "", "application/json", 0, 10, true, nil, "proxy")

	mock.ExpectQuery(`FROM execution_results WHERE id = \?`).
		WithArgs(int64(5)).
		WillReturnRows(resultRow)

	mock.ExpectExec(`INSERT INTO request_tasks`).
		WithArgs("POST https://h/users", "POST", "https://h/users", flatHeaders,
			`{"n":1}`, "{}", 0, int64(5)).
		WillReturnResult(sqlmock.NewResult(9, 1))

	taskRow := sqlmock.NewRows([]string{
		"id", "name", "method", "url", "headers", "body", "mappings",
		"display_order", "source_result_id", "created_at", "updated_at",
	}).AddRow(9, "POST https://h/users", "POST", "https://h/users", flatHeaders,
		`{"n":1}`, "{}", 0, 5, time.Now(), time.Now())

	mock.ExpectQuery(`FROM request_tasks WHERE id = \?`).
		WithArgs(int64(9)).
		WillReturnRows(taskRow)

	task, err := CreateTaskFromResult(models.TaskFromResultRequest{ResultID: 5})
	if err != nil {
		t.Fatalf("CreateTaskFromResult: %v", err)
	}

	tmpl, err := task.Template()
	if err != nil {
		t.Fatalf("decoding template of created task: %v", err)
	}
	if tmpl.Headers["Accept"] != "*/*" {
		t.Errorf("Accept = %q, want %q", tmpl.Headers["Accept"], "*/*")
	}
	if tmpl.Headers["X-Api-Key"] != "k1, k2" {
		t.Errorf("X-Api-Key = %q, want %q", tmpl.Headers["X-Api-Key"], "k1, k2")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestFlattenCapturedHeadersPassesSingleValuedThrough(t *testing.T) {
	in := `{"Content-Type": "application/json"}`
	if got := flattenCapturedHeaders(in); got != in {
		t.Errorf("flattenCapturedHeaders(%q) = %q, want unchanged", in, got)
	}
}
