package database

import (
	"encoding/json"
	"fmt"

	"reqkit/logger"
	"reqkit/models"
)

// CollectionInfo summarizes one record collection.
type CollectionInfo struct {
	Name        string `json:"name"`
	RecordCount int64  `json:"record_count"`
}

// ImportRecords stores every document of a JSON array under the named
// collection. The whole import is one transaction.
func ImportRecords(collection string, documents []json.RawMessage) (int, error) {
	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO records (collection, document) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare record insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i, doc := range documents {
		if !json.Valid(doc) {
			tx.Rollback()
			return 0, fmt.Errorf("document %d in import for collection %q is not valid JSON", i, collection)
		}
		if _, err := stmt.Exec(collection, string(doc)); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting record %d into collection %q: %w", i, collection, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing record import for collection %q: %w", collection, err)
	}
	logger.Info("Imported %d records into collection %q.", inserted, collection)
	return inserted, nil
}

// GetCollections lists all collections with their record counts.
func GetCollections() ([]CollectionInfo, error) {
	rows, err := DB.Query("SELECT collection, COUNT(*) FROM records GROUP BY collection ORDER BY collection ASC")
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var infos []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.Name, &info.RecordCount); err != nil {
			return nil, fmt.Errorf("scanning collection row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// CountRecords returns the number of records in a collection.
func CountRecords(collection string) (int64, error) {
	var count int64
	err := DB.QueryRow("SELECT COUNT(*) FROM records WHERE collection = ?", collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records in collection %q: %w", collection, err)
	}
	return count, nil
}

// GetRecordsPaginated returns one page of a collection's documents.
func GetRecordsPaginated(collection string, limit, offset int) ([]models.Record, int64, error) {
	totalRecords, err := CountRecords(collection)
	if err != nil {
		return nil, 0, err
	}
	if totalRecords == 0 {
		return nil, 0, nil
	}

	rows, err := DB.Query(
		"SELECT document FROM records WHERE collection = ? ORDER BY id ASC LIMIT ? OFFSET ?",
		collection, limit, offset,
	)
	if err != nil {
		return nil, totalRecords, fmt.Errorf("querying records for collection %q: %w", collection, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, totalRecords, fmt.Errorf("scanning record row for collection %q: %w", collection, err)
		}
		records = append(records, models.Record(doc))
	}
	return records, totalRecords, rows.Err()
}

// DeleteCollection removes all records of a collection and reports how many
// rows were deleted.
func DeleteCollection(collection string) (int64, error) {
	result, err := DB.Exec("DELETE FROM records WHERE collection = ?", collection)
	if err != nil {
		return 0, fmt.Errorf("deleting collection %q: %w", collection, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// RecordPager yields a collection's documents one at a time, loading them in
// pages behind the scenes. The cursor is advanced by the caller; the pager
// itself is not safe for concurrent use.
type RecordPager struct {
	collection string
	pageSize   int
	total      int64
	offset     int
	served     int64
	buffer     []models.Record
	bufPos     int
}

// NewRecordPager opens a pager over the named collection.
func NewRecordPager(collection string, pageSize int) (*RecordPager, error) {
	if pageSize < 1 {
		pageSize = 100
	}
	total, err := CountRecords(collection)
	if err != nil {
		return nil, err
	}
	return &RecordPager{
		collection: collection,
		pageSize:   pageSize,
		total:      total,
	}, nil
}

// TotalCount reports how many records the pager will yield in total.
func (p *RecordPager) TotalCount() int64 {
	return p.total
}

// HasMore reports whether another record is available.
func (p *RecordPager) HasMore() bool {
	return p.served < p.total
}

// Next returns the next record and its zero-based index within the
// collection, transparently loading the next page when the current one is
// exhausted. It returns a nil record when the collection is exhausted.
func (p *RecordPager) Next() (models.Record, int64, error) {
	if !p.HasMore() {
		return nil, 0, nil
	}
	if p.bufPos >= len(p.buffer) {
		if err := p.loadNextPage(); err != nil {
			return nil, 0, err
		}
		if len(p.buffer) == 0 {
			// Collection shrank underneath us; treat as exhausted.
			p.served = p.total
			return nil, 0, nil
		}
	}
	record := p.buffer[p.bufPos]
	index := p.served
	p.bufPos++
	p.served++
	return record, index, nil
}

func (p *RecordPager) loadNextPage() error {
	rows, err := DB.Query(
		"SELECT document FROM records WHERE collection = ? ORDER BY id ASC LIMIT ? OFFSET ?",
		p.collection, p.pageSize, p.offset,
	)
	if err != nil {
		return fmt.Errorf("loading page at offset %d for collection %q: %w", p.offset, p.collection, err)
	}
	defer rows.Close()

	p.buffer = p.buffer[:0]
	p.bufPos = 0
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return fmt.Errorf("scanning record at offset %d for collection %q: %w", p.offset, p.collection, err)
		}
		p.buffer = append(p.buffer, models.Record(doc))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	p.offset += len(p.buffer)
	return nil
}
