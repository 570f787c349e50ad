package database

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestRecordPagerWalksPages(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	defer db.Close()
	DB = db

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM records WHERE collection = \?`).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	pager, err := NewRecordPager("users", 2)
	if err != nil {
		t.Fatalf("NewRecordPager: %v", err)
	}
	if pager.TotalCount() != 3 {
		t.Errorf("TotalCount = %d, want 3", pager.TotalCount())
	}

	mock.ExpectQuery(`SELECT document FROM records`).
		WithArgs("users", 2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(`{"id":1}`).
			AddRow(`{"id":2}`))
	mock.ExpectQuery(`SELECT document FROM records`).
		WithArgs("users", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(`{"id":3}`))

	want := []string{`{"id":1}`, `{"id":2}`, `{"id":3}`}
	for i, expected := range want {
		if !pager.HasMore() {
			t.Fatalf("HasMore() = false before record %d", i)
		}
		record, index, err := pager.Next()
		if err != nil {
			t.Fatalf("Next() record %d: %v", i, err)
		}
		if string(record) != expected {
			t.Errorf("record %d = %s, want %s", i, record, expected)
		}
		if index != int64(i) {
			t.Errorf("record index = %d, want %d", index, i)
		}
	}

	if pager.HasMore() {
		t.Error("HasMore() = true after all records served")
	}
	record, _, err := pager.Next()
	if err != nil {
		t.Fatalf("Next() after exhaustion: %v", err)
	}
	if record != nil {
		t.Errorf("Next() after exhaustion = %s, want nil", record)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestRecordPagerEmptyCollection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	defer db.Close()
	DB = db

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM records WHERE collection = \?`).
		WithArgs("empty").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	pager, err := NewRecordPager("empty", 100)
	if err != nil {
		t.Fatalf("NewRecordPager: %v", err)
	}
	if pager.HasMore() {
		t.Error("HasMore() = true for empty collection")
	}
	record, _, err := pager.Next()
	if err != nil {
		t.Fatalf("Next(): %v", err)
	}
	if record != nil {
		t.Errorf("Next() = %s, want nil", record)
	}
}
