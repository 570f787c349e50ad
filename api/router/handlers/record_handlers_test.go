package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"reqkit/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordRouter() chi.Router {
	r := chi.NewRouter()
	RegisterRecordRoutes(r)
	return r
}

func TestGetRecordsReturnsDocumentsVerbatim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	database.DB = db

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM records WHERE collection = \?`).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT document FROM records WHERE collection = \?`).
		WithArgs("users", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(`{"user_id": "u1", "name": "alice"}`).
			AddRow(`{"user_id": "u2", "name": "bob"}`))

	req := httptest.NewRequest(http.MethodGet, "/collections/users/records", nil)
	rec := httptest.NewRecorder()
	recordRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// Documents must come back as the JSON objects that were imported, not as
	// base64-encoded byte strings.
	assert.Contains(t, rec.Body.String(), `{"user_id": "u1", "name": "alice"}`)
	assert.Contains(t, rec.Body.String(), `{"user_id": "u2", "name": "bob"}`)
	assert.NotContains(t, rec.Body.String(), "eyJ")
	assert.NoError(t, mock.ExpectationsWereMet())
}
