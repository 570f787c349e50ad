package database

import (
	"database/sql"
	"fmt"
	"strings"

	"reqkit/logger"
	"reqkit/models"
)

// InsertResult stores one execution result and returns its ID.
func InsertResult(res *models.ExecutionResult) (int64, error) {
	query := `INSERT INTO execution_results (
		task_id, record_index, timestamp, request_method, request_url, request_headers, request_body,
		response_status_code, response_headers, response_body, response_content_type,
		response_body_size, duration_ms, success, error_message, log_source
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := DB.Exec(query,
		res.TaskID, res.RecordIndex, res.Timestamp, res.RequestMethod, res.RequestURL,
		res.RequestHeaders, res.RequestBody,
		res.ResponseStatusCode, res.ResponseHeaders, res.ResponseBody, res.ResponseContentType,
		res.ResponseBodySize, res.DurationMs, res.Success, res.ErrorMessage, res.LogSource,
	)
	if err != nil {
		logger.Error("InsertResult: Error inserting execution result: %v", err)
		return 0, fmt.Errorf("inserting execution result: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert ID for execution result: %w", err)
	}
	return id, nil
}

// GetResultByID retrieves a single execution result. Returns nil when not found.
func GetResultByID(id int64) (*models.ExecutionResult, error) {
	var res models.ExecutionResult
	query := `SELECT id, task_id, record_index, timestamp, request_method, request_url,
	                 request_headers, request_body, response_status_code, response_headers,
	                 response_body, response_content_type, response_body_size, duration_ms,
	                 success, error_message, log_source
	          FROM execution_results WHERE id = ?`
	err := DB.QueryRow(query, id).Scan(
		&res.ID, &res.TaskID, &res.RecordIndex, &res.Timestamp, &res.RequestMethod, &res.RequestURL,
		&res.RequestHeaders, &res.RequestBody, &res.ResponseStatusCode, &res.ResponseHeaders,
		&res.ResponseBody, &res.ResponseContentType, &res.ResponseBodySize, &res.DurationMs,
		&res.Success, &res.ErrorMessage, &res.LogSource,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("GetResultByID: Error scanning result ID %d: %v", id, err)
		return nil, fmt.Errorf("querying execution result %d: %w", id, err)
	}
	return &res, nil
}

// GetResultsPaginated returns execution results matching the filters, plus the
// total record count. Response bodies are omitted from the list view.
func GetResultsPaginated(filters models.ResultFilters) ([]models.ExecutionResult, int64, error) {
	var conditions []string
	var args []interface{}

	if filters.TaskID != 0 {
		conditions = append(conditions, "task_id = ?")
		args = append(args, filters.TaskID)
	}
	if filters.FilterMethod != "" {
		conditions = append(conditions, "request_method = ?")
		args = append(args, strings.ToUpper(filters.FilterMethod))
	}
	if filters.FilterStatus != "" {
		conditions = append(conditions, "response_status_code = ?")
		args = append(args, filters.FilterStatus)
	}
	if filters.FilterSource != "" {
		conditions = append(conditions, "log_source = ?")
		args = append(args, filters.FilterSource)
	}
	if filters.FilterSearchText != "" {
		conditions = append(conditions, "request_url LIKE ?")
		args = append(args, "%"+filters.FilterSearchText+"%")
	}
	if filters.FailuresOnly {
		conditions = append(conditions, "success = 0")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalRecords int64
	countQuery := "SELECT COUNT(*) FROM execution_results" + whereClause
	if err := DB.QueryRow(countQuery, args...).Scan(&totalRecords); err != nil {
		return nil, 0, fmt.Errorf("counting execution results: %w", err)
	}
	if totalRecords == 0 {
		return nil, 0, nil
	}

	allowedSortColumns := map[string]bool{
		"id": true, "timestamp": true, "request_method": true,
		"response_status_code": true, "duration_ms": true,
	}
	sortBy := filters.SortBy
	if !allowedSortColumns[sortBy] {
		sortBy = "id"
	}
	sortOrder := strings.ToUpper(filters.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	limit := filters.Limit
	if limit < 1 {
		limit = 50
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT id, task_id, record_index, timestamp, request_method, request_url,
	                             request_headers, response_status_code, response_content_type,
	                             response_body_size, duration_ms, success, error_message, log_source
	                      FROM execution_results%s
	                      ORDER BY %s %s
	                      LIMIT ? OFFSET ?`, whereClause, sortBy, sortOrder)
	args = append(args, limit, offset)

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, totalRecords, fmt.Errorf("querying execution results: %w", err)
	}
	defer rows.Close()

	var results []models.ExecutionResult
	for rows.Next() {
		var res models.ExecutionResult
		if err := rows.Scan(&res.ID, &res.TaskID, &res.RecordIndex, &res.Timestamp,
			&res.RequestMethod, &res.RequestURL, &res.RequestHeaders,
			&res.ResponseStatusCode, &res.ResponseContentType, &res.ResponseBodySize,
			&res.DurationMs, &res.Success, &res.ErrorMessage, &res.LogSource); err != nil {
			return nil, totalRecords, fmt.Errorf("scanning execution result row: %w", err)
		}
		results = append(results, res)
	}
	return results, totalRecords, rows.Err()
}

// DeleteResultsByTaskID clears all stored results of a task.
func DeleteResultsByTaskID(taskID int64) (int64, error) {
	result, err := DB.Exec("DELETE FROM execution_results WHERE task_id = ?", taskID)
	if err != nil {
		return 0, fmt.Errorf("deleting execution results for task %d: %w", taskID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}
