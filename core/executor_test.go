package core

import (
	"compress/gzip"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reqkit/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExecutor() *Executor {
	return NewExecutor(5*time.Second, false, true)
}

func TestExecuteSuccess(t *testing.T) {
	var gotMethod, gotPath, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resolved := &models.ResolvedRequest{
		Method:  "POST",
		URL:     srv.URL + "/users",
		Headers: map[string]string{"X-Api-Key": "k1", "Content-Type": "application/json"},
		Body:    `{"name":"alice"}`,
	}

	result := testExecutor().Execute(context.Background(), sql.NullInt64{Int64: 7, Valid: true}, sql.NullInt64{Int64: 0, Valid: true}, resolved, models.SourceRunner)
	require.True(t, result.Success)
	assert.Equal(t, http.StatusCreated, result.ResponseStatusCode)
	assert.Equal(t, `{"ok":true}`, string(result.ResponseBody))
	assert.Equal(t, "application/json", result.ResponseContentType.String)
	assert.Equal(t, int64(7), result.TaskID.Int64)
	assert.Equal(t, models.SourceRunner, result.LogSource)

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/users", gotPath)
	assert.Equal(t, "k1", gotHeader)
}

func TestExecuteServerErrorIsFailedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	resolved := &models.ResolvedRequest{Method: "GET", URL: srv.URL, Headers: map[string]string{}}
	result := testExecutor().Execute(context.Background(), sql.NullInt64{}, sql.NullInt64{}, resolved, models.SourceSingle)

	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.ResponseStatusCode)
	assert.True(t, result.ErrorMessage.Valid)
}

func TestExecuteTransportErrorIsFailedResult(t *testing.T) {
	// Closed server: connection refused must become a failed result, not an error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	resolved := &models.ResolvedRequest{Method: "GET", URL: url, Headers: map[string]string{}}
	result := testExecutor().Execute(context.Background(), sql.NullInt64{}, sql.NullInt64{}, resolved, models.SourceSingle)

	assert.False(t, result.Success)
	assert.Zero(t, result.ResponseStatusCode)
	assert.True(t, result.ErrorMessage.Valid)
}

func TestExecuteDoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	resolved := &models.ResolvedRequest{Method: "GET", URL: srv.URL, Headers: map[string]string{}}
	result := testExecutor().Execute(context.Background(), sql.NullInt64{}, sql.NullInt64{}, resolved, models.SourceSingle)

	assert.True(t, result.Success)
	assert.Equal(t, http.StatusFound, result.ResponseStatusCode)
}

func TestExecuteDecompressesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/json")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(`{"compressed":true}`))
		gz.Close()
	}))
	defer srv.Close()

	resolved := &models.ResolvedRequest{
		Method: "GET",
		URL:    srv.URL,
		// Ask for gzip explicitly so the transport does not transparently decode.
		Headers: map[string]string{"Accept-Encoding": "gzip"},
	}
	result := testExecutor().Execute(context.Background(), sql.NullInt64{}, sql.NullInt64{}, resolved, models.SourceSingle)

	require.True(t, result.Success)
	assert.Equal(t, `{"compressed":true}`, string(result.ResponseBody))
}

func TestExecuteLoopbackBlockedByDefault(t *testing.T) {
	blocked := NewExecutor(5*time.Second, false, false)
	resolved := &models.ResolvedRequest{Method: "GET", URL: "http://127.0.0.1:1/x", Headers: map[string]string{}}
	result := blocked.Execute(context.Background(), sql.NullInt64{}, sql.NullInt64{}, resolved, models.SourceSingle)

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage.String, "loopback")
}
