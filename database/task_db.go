package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reqkit/logger"
	"reqkit/models"
)

// CreateTask inserts a new request task and returns it with its assigned ID.
func CreateTask(task models.RequestTask) (*models.RequestTask, error) {
	query := `INSERT INTO request_tasks (name, method, url, headers, body, mappings, display_order, source_result_id)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := DB.Exec(query,
		task.Name, task.Method, task.URL, task.Headers, task.Body, task.Mappings,
		task.DisplayOrder, task.SourceResultID,
	)
	if err != nil {
		logger.Error("CreateTask: Error inserting new task: %v", err)
		return nil, fmt.Errorf("inserting request task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting last insert ID for request task: %w", err)
	}
	return GetTaskByID(id)
}

// GetTaskByID retrieves a single request task. Returns nil when not found.
func GetTaskByID(id int64) (*models.RequestTask, error) {
	var task models.RequestTask
	query := `SELECT id, name, method, url, headers, body, mappings, display_order,
	                 source_result_id, created_at, updated_at
	          FROM request_tasks WHERE id = ?`
	err := DB.QueryRow(query, id).Scan(
		&task.ID, &task.Name, &task.Method, &task.URL, &task.Headers, &task.Body,
		&task.Mappings, &task.DisplayOrder, &task.SourceResultID, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("GetTaskByID: Error scanning task ID %d: %v", id, err)
		return nil, fmt.Errorf("querying request task %d: %w", id, err)
	}
	return &task, nil
}

// GetTasks retrieves all request tasks ordered for display.
func GetTasks() ([]models.RequestTask, error) {
	query := `SELECT id, name, method, url, headers, body, mappings, display_order,
	                 source_result_id, created_at, updated_at
	          FROM request_tasks
	          ORDER BY display_order ASC, created_at DESC LIMIT 200`

	rows, err := DB.Query(query)
	if err != nil {
		logger.Error("GetTasks: Error querying tasks: %v", err)
		return nil, fmt.Errorf("querying request tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.RequestTask
	for rows.Next() {
		var task models.RequestTask
		if err := rows.Scan(&task.ID, &task.Name, &task.Method, &task.URL, &task.Headers,
			&task.Body, &task.Mappings, &task.DisplayOrder, &task.SourceResultID,
			&task.CreatedAt, &task.UpdatedAt); err != nil {
			logger.Error("GetTasks: Error scanning task row: %v", err)
			return nil, fmt.Errorf("scanning request task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask updates a task's template fields and mappings.
func UpdateTask(task models.RequestTask) (*models.RequestTask, error) {
	stmt, err := DB.Prepare(`UPDATE request_tasks
	                         SET name = ?, method = ?, url = ?, headers = ?, body = ?, mappings = ?, updated_at = ?
	                         WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing task update statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.Exec(task.Name, task.Method, task.URL, task.Headers, task.Body,
		task.Mappings, time.Now(), task.ID)
	if err != nil {
		logger.Error("UpdateTask: Error executing statement for task ID %d: %v", task.ID, err)
		return nil, fmt.Errorf("updating request task %d: %w", task.ID, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, fmt.Errorf("task with ID %d not found for update", task.ID)
	}
	return GetTaskByID(task.ID)
}

// DeleteTask removes a task.
func DeleteTask(id int64) error {
	_, err := DB.Exec("DELETE FROM request_tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting request task %d: %w", id, err)
	}
	return nil
}

// CloneTask copies an existing task under a "(copy)" name.
func CloneTask(id int64) (*models.RequestTask, error) {
	original, err := GetTaskByID(id)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, fmt.Errorf("task with ID %d not found for cloning", id)
	}

	clone := *original
	clone.Name = original.Name + " (copy)"
	clone.DisplayOrder = original.DisplayOrder + 1
	return CreateTask(clone)
}

// UpdateTasksOrder updates the display_order for a set of tasks in one
// transaction. Keys are task IDs, values are their new display order.
func UpdateTasksOrder(taskOrders map[int64]int) error {
	tx, err := DB.Begin()
	if err != nil {
		logger.Error("UpdateTasksOrder: Failed to begin transaction: %v", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare("UPDATE request_tasks SET display_order = ?, updated_at = ? WHERE id = ?")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare order update statement: %w", err)
	}
	defer stmt.Close()

	updatedAt := time.Now()
	for taskID, order := range taskOrders {
		if _, err := stmt.Exec(order, updatedAt, taskID); err != nil {
			tx.Rollback()
			logger.Error("UpdateTasksOrder: Failed to update order for task ID %d: %v", taskID, err)
			return fmt.Errorf("failed to update order for task ID %d: %w", taskID, err)
		}
	}

	logger.Info("Successfully updated display order for %d request tasks.", len(taskOrders))
	return tx.Commit()
}

// CreateTaskFromResult seeds a new task's template from a stored execution
// result (typically a proxy capture).
func CreateTaskFromResult(req models.TaskFromResultRequest) (*models.RequestTask, error) {
	res, err := GetResultByID(req.ResultID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("execution result with ID %d not found", req.ResultID)
	}

	name := req.NameOverride
	if name == "" {
		name = fmt.Sprintf("%s %s", res.RequestMethod, res.RequestURL)
	}

	headers := res.RequestHeaders.String
	if headers == "" {
		headers = "{}"
	} else if !json.Valid([]byte(headers)) {
		logger.Warn("CreateTaskFromResult: stored request headers for result %d are not valid JSON, resetting.", req.ResultID)
		headers = "{}"
	} else {
		headers = flattenCapturedHeaders(headers)
	}

	task := models.RequestTask{
		Name:           name,
		Method:         res.RequestMethod,
		URL:            res.RequestURL,
		Headers:        headers,
		Body:           string(res.RequestBody),
		Mappings:       "{}",
		SourceResultID: sql.NullInt64{Int64: res.ID, Valid: true},
	}
	return CreateTask(task)
}

// flattenCapturedHeaders converts the multi-valued header JSON the capture
// proxy stores (header name -> list of values) into the single-valued map a
// request template expects. Header JSON that already is single-valued passes
// through untouched.
func flattenCapturedHeaders(raw string) string {
	var flat map[string]string
	if json.Unmarshal([]byte(raw), &flat) == nil {
		return raw
	}
	var multi map[string][]string
	if json.Unmarshal([]byte(raw), &multi) != nil {
		return raw
	}
	flat = make(map[string]string, len(multi))
	for name, values := range multi {
		flat[name] = strings.Join(values, ", ")
	}
	out, err := json.Marshal(flat)
	if err != nil {
		return raw
	}
	return string(out)
}
