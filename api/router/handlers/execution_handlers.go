package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"reqkit/core"
	"reqkit/database"
	"reqkit/logger"
	"reqkit/models"
	"reqkit/resolver"
)

// executeTaskHandler resolves and executes a task once, optionally against an
// inline record supplied in the payload.
func executeTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlParamInt64(w, r, "task_id")
	if !ok {
		return
	}

	var payload models.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		logger.Error("executeTaskHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	task, err := database.GetTaskByID(taskID)
	if err != nil {
		logger.Error("executeTaskHandler: Error querying task %d: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Task with ID %d not found", taskID))
		return
	}

	rn := core.NewRunner(core.NewExecutorFromConfig())
	result, err := rn.ExecuteSingle(r.Context(), task, payload.Record)
	if err != nil {
		var unresolved *resolver.UnresolvedPathParameterError
		if errors.As(err, &unresolved) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.Error("executeTaskHandler: Failed to execute task %d: %v", taskID, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
	logger.Info("Executed task %d: %s %s -> %d", taskID, result.RequestMethod, result.RequestURL, result.ResponseStatusCode)
}

// runTaskHandler runs a task over every record of a collection and returns the
// batch summary.
func runTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlParamInt64(w, r, "task_id")
	if !ok {
		return
	}

	var payload models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Error("runTaskHandler: Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if payload.Collection == "" {
		writeError(w, http.StatusBadRequest, "collection is required")
		return
	}

	task, err := database.GetTaskByID(taskID)
	if err != nil {
		logger.Error("runTaskHandler: Error querying task %d: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Task with ID %d not found", taskID))
		return
	}

	rn := core.NewRunner(core.NewExecutorFromConfig())
	summary, err := rn.Run(r.Context(), task, core.RunOptions{
		Collection:  payload.Collection,
		Concurrency: payload.Concurrency,
		MaxRecords:  payload.MaxRecords,
	})
	if err != nil {
		logger.Error("runTaskHandler: Batch run failed for task %d: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "Batch run failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
