package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"reqkit/curlparse"
	"reqkit/database"
	"reqkit/logger"
	"reqkit/models"
)

// taskFromSavePayload validates a save payload and converts it to the stored
// representation (headers and mappings as JSON text).
func taskFromSavePayload(payload models.SaveTaskRequest) (*models.RequestTask, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return nil, fmt.Errorf("task name is required")
	}
	if strings.TrimSpace(payload.URL) == "" {
		return nil, fmt.Errorf("task URL is required")
	}

	method := strings.ToUpper(strings.TrimSpace(payload.Method))
	if method == "" {
		method = "GET"
	}
	if !models.AllowedMethods[method] {
		return nil, fmt.Errorf("unsupported HTTP method %q", payload.Method)
	}

	task := &models.RequestTask{
		Name:   payload.Name,
		Method: method,
		URL:    payload.URL,
		Body:   payload.Body,
	}
	if len(payload.Headers) > 0 {
		headersJSON, err := json.Marshal(payload.Headers)
		if err != nil {
			return nil, fmt.Errorf("encoding headers: %w", err)
		}
		task.Headers = string(headersJSON)
	}
	if len(payload.Mappings) > 0 {
		mappingsJSON, err := json.Marshal(payload.Mappings)
		if err != nil {
			return nil, fmt.Errorf("encoding mappings: %w", err)
		}
		task.Mappings = string(mappingsJSON)
	}
	return task, nil
}

func createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var payload models.SaveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Error("createTaskHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	task, err := taskFromSavePayload(payload)
	if err != nil {
		logger.Error("createTaskHandler: Invalid payload: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := database.CreateTask(*task)
	if err != nil {
		logger.Error("createTaskHandler: Error inserting task '%s': %v", task.Name, err)
		writeError(w, http.StatusInternalServerError, "Internal server error while creating task")
		return
	}

	writeJSON(w, http.StatusCreated, created)
	logger.Info("Task created: ID %d, Name '%s'", created.ID, created.Name)
}

func getTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := database.GetTasks()
	if err != nil {
		logger.Error("getTasksHandler: Error querying tasks: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func getTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlParamInt64(w, r, "task_id")
	if !ok {
		return
	}

	task, err := database.GetTaskByID(taskID)
	if err != nil {
		logger.Error("getTaskHandler: Error querying task ID %d: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Task with ID %d not found", taskID))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlParamInt64(w, r, "task_id")
	if !ok {
		return
	}

	var payload models.SaveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Error("updateTaskHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	task, err := taskFromSavePayload(payload)
	if err != nil {
		logger.Error("updateTaskHandler: Invalid payload for task %d: %v", taskID, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	task.ID = taskID

	updated, err := database.UpdateTask(*task)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Task with ID %d not found", taskID))
			return
		}
		logger.Error("updateTaskHandler: Error updating task %d: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error while updating task")
		return
	}
	writeJSON(w, http.StatusOK, updated)
	logger.Info("Task updated: ID %d, Name '%s'", updated.ID, updated.Name)
}

func deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlParamInt64(w, r, "task_id")
	if !ok {
		return
	}

	if err := database.DeleteTask(taskID); err != nil {
		logger.Error("deleteTaskHandler: Error deleting task %d: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
	logger.Info("Task deleted: ID %d", taskID)
}

func cloneTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlParamInt64(w, r, "task_id")
	if !ok {
		return
	}

	cloned, err := database.CloneTask(taskID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Task with ID %d not found", taskID))
			return
		}
		logger.Error("cloneTaskHandler: Error cloning task %d: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "Failed to clone task")
		return
	}
	writeJSON(w, http.StatusCreated, cloned)
	logger.Info("Task %d cloned as %d", taskID, cloned.ID)
}

// updateTasksOrderHandler persists a new display order for the task list. The
// payload is a map of task ID to position.
func updateTasksOrderHandler(w http.ResponseWriter, r *http.Request) {
	var payload map[int64]int
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Error("updateTasksOrderHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "At least one task order entry is required")
		return
	}

	if err := database.UpdateTasksOrder(payload); err != nil {
		logger.Error("updateTasksOrderHandler: Error updating task order: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update task order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task order updated"})
	logger.Info("Task order updated for %d tasks", len(payload))
}

// importCurlHandler parses a curl command into a new task.
func importCurlHandler(w http.ResponseWriter, r *http.Request) {
	var payload models.ImportCurlRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Error("importCurlHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(payload.Command) == "" {
		writeError(w, http.StatusBadRequest, "curl command is required")
		return
	}

	tmpl, err := curlparse.Parse(payload.Command)
	if err != nil {
		logger.Error("importCurlHandler: Failed to parse curl command: %v", err)
		writeError(w, http.StatusBadRequest, "Failed to parse curl command: "+err.Error())
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = fmt.Sprintf("%s %s", tmpl.NormalizedMethod(), tmpl.URL)
	}

	task := models.RequestTask{
		Name:   name,
		Method: tmpl.NormalizedMethod(),
		URL:    tmpl.URL,
		Body:   tmpl.Body,
	}
	if len(tmpl.Headers) > 0 {
		headersJSON, err := json.Marshal(tmpl.Headers)
		if err != nil {
			logger.Error("importCurlHandler: Error encoding parsed headers: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		task.Headers = string(headersJSON)
	}

	created, err := database.CreateTask(task)
	if err != nil {
		logger.Error("importCurlHandler: Error inserting imported task '%s': %v", task.Name, err)
		writeError(w, http.StatusInternalServerError, "Internal server error while creating task")
		return
	}
	writeJSON(w, http.StatusCreated, created)
	logger.Info("Imported curl command as task ID %d ('%s')", created.ID, created.Name)
}

// taskFromResultHandler creates a task seeded from a stored execution result.
func taskFromResultHandler(w http.ResponseWriter, r *http.Request) {
	var payload models.TaskFromResultRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Error("taskFromResultHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if payload.ResultID == 0 {
		writeError(w, http.StatusBadRequest, "result_id is required")
		return
	}

	created, err := database.CreateTaskFromResult(payload)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Error("taskFromResultHandler: Error creating task from result %d: %v", payload.ResultID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create task from result")
		return
	}
	writeJSON(w, http.StatusCreated, created)
	logger.Info("Created task ID %d from result %d", created.ID, payload.ResultID)
}
