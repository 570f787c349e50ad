package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"reqkit/database"
	"reqkit/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySink collects results in memory so tests do not need a real database
// for result rows.
type memorySink struct {
	mu      sync.Mutex
	results []*models.ExecutionResult
}

func (s *memorySink) store(res *models.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

func runnerTask(t *testing.T, url string) *models.RequestTask {
	t.Helper()
	return &models.RequestTask{
		ID:       42,
		Name:     "create user",
		Method:   "POST",
		URL:      url + "/users/{$PuserId}",
		Headers:  `{"Content-Type": "application/json"}`,
		Body:     `{}`,
		Mappings: `{"url.pathParams.userId": "user_id", "body.name": "name"}`,
	}
}

func expectPagedRecords(mock sqlmock.Sqlmock, collection string, docs []string) {
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM records WHERE collection = \\?").
		WithArgs(collection).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(len(docs)))

	rows := sqlmock.NewRows([]string{"document"})
	for _, doc := range docs {
		rows.AddRow(doc)
	}
	mock.ExpectQuery("SELECT document FROM records WHERE collection = \\?").
		WillReturnRows(rows)
}

func TestRunExecutesEveryRecord(t *testing.T) {
	var mu sync.Mutex
	seenPaths := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seenPaths = append(seenPaths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	database.DB = db

	expectPagedRecords(mock, "users", []string{
		`{"user_id": "u1", "name": "alice"}`,
		`{"user_id": "u2", "name": "bob"}`,
		`{"user_id": "u3", "name": "carol"}`,
	})

	sink := &memorySink{}
	rn := NewRunnerWithSink(NewExecutor(5*time.Second, false, true), sink.store)

	summary, err := rn.Run(context.Background(), runnerTask(t, srv.URL), RunOptions{Collection: "users", Concurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, int64(42), summary.TaskID)
	assert.Len(t, sink.results, 3)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"/users/u1", "/users/u2", "/users/u3"}, seenPaths)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRecordsResolutionFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	database.DB = db

	expectPagedRecords(mock, "orders", []string{
		`{"order_id": "o1"}`,
		`{"order_id": "o2"}`,
	})

	// No url.pathParams mapping for the placeholder: resolution fails per
	// record and is recorded, never returned as a batch error.
	task := &models.RequestTask{
		ID:       43,
		Name:     "orders",
		Method:   "GET",
		URL:      "https://api.example.com/orders/{$PorderId}",
		Mappings: `{"query.verbose": {"type": "fixed", "value": "true"}}`,
	}

	sink := &memorySink{}
	rn := NewRunnerWithSink(NewExecutor(5*time.Second, false, true), sink.store)

	summary, err := rn.Run(context.Background(), task, RunOptions{Collection: "orders"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, sink.results, 2)
	for _, res := range sink.results {
		assert.False(t, res.Success)
		assert.Contains(t, res.ErrorMessage.String, "resolution failed")
		assert.Contains(t, res.ErrorMessage.String, "orderId")
	}
}

func TestRunHonorsMaxRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	database.DB = db

	expectPagedRecords(mock, "users", []string{
		`{"user_id": "u1", "name": "a"}`,
		`{"user_id": "u2", "name": "b"}`,
		`{"user_id": "u3", "name": "c"}`,
	})

	sink := &memorySink{}
	rn := NewRunnerWithSink(NewExecutor(5*time.Second, false, true), sink.store)

	summary, err := rn.Run(context.Background(), runnerTask(t, srv.URL), RunOptions{Collection: "users", MaxRecords: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Len(t, sink.results, 2)
}

func TestRunStopsBeforeConsumingRecordsWhenCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	database.DB = db

	// Only the count query may run; a cancelled run must not pull any record
	// page from the pager.
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM records WHERE collection = \\?").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memorySink{}
	rn := NewRunnerWithSink(NewExecutor(time.Second, false, true), sink.store)
	summary, err := rn.Run(ctx, runnerTask(t, "http://example.invalid"), RunOptions{
		Collection:  "users",
		Concurrency: 1,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, summary)
	assert.Empty(t, sink.results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRequiresCollection(t *testing.T) {
	rn := NewRunnerWithSink(NewExecutor(time.Second, false, true), (&memorySink{}).store)
	_, err := rn.Run(context.Background(), runnerTask(t, "http://example.invalid"), RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection")
}

func TestExecuteSingleWithInlineRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink := &memorySink{}
	rn := NewRunnerWithSink(NewExecutor(5*time.Second, false, true), sink.store)

	result, err := rn.ExecuteSingle(context.Background(), runnerTask(t, srv.URL), models.Record(`{"user_id": "u9", "name": "zoe"}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.SourceSingle, result.LogSource)
	assert.Len(t, sink.results, 1)
}
