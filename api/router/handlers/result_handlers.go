package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"reqkit/core"
	"reqkit/database"
	"reqkit/logger"
	"reqkit/models"
)

// getResultsHandler retrieves paginated and filtered execution results. The
// list view omits request/response bodies; fetch a single result for those.
func getResultsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := models.ResultFilters{
		SortBy:           q.Get("sort_by"),
		SortOrder:        strings.ToUpper(q.Get("sort_order")),
		FilterMethod:     strings.ToUpper(q.Get("method")),
		FilterStatus:     q.Get("status"),
		FilterSource:     q.Get("source"),
		FilterSearchText: q.Get("search"),
	}

	if taskIDStr := q.Get("task_id"); taskIDStr != "" {
		taskID, err := strconv.ParseInt(taskIDStr, 10, 64)
		if err != nil {
			logger.Error("getResultsHandler: Invalid task_id parameter '%s': %v", taskIDStr, err)
			writeError(w, http.StatusBadRequest, "Invalid task_id parameter, must be an integer")
			return
		}
		filters.TaskID = taskID
	}

	filters.Page, _ = strconv.Atoi(q.Get("page"))
	if filters.Page < 1 {
		filters.Page = 1
	}
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	if filters.Limit < 1 {
		filters.Limit = 50
	} else if filters.Limit > 200 {
		filters.Limit = 200
	}

	if failOnly, err := strconv.ParseBool(q.Get("failures_only")); err == nil && failOnly {
		filters.FailuresOnly = true
	}

	results, totalRecords, err := database.GetResultsPaginated(filters)
	if err != nil {
		logger.Error("getResultsHandler: Error querying results: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	totalPages := int((totalRecords + int64(filters.Limit) - 1) / int64(filters.Limit))
	writeJSON(w, http.StatusOK, models.PaginatedResponse{
		Page:         filters.Page,
		Limit:        filters.Limit,
		TotalRecords: totalRecords,
		TotalPages:   totalPages,
		Records:      results,
	})
}

func getResultHandler(w http.ResponseWriter, r *http.Request) {
	resultID, ok := urlParamInt64(w, r, "result_id")
	if !ok {
		return
	}

	result, err := database.GetResultByID(resultID)
	if err != nil {
		logger.Error("getResultHandler: Error querying result %d: %v", resultID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Result with ID %d not found", resultID))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func deleteResultsByTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlParamInt64(w, r, "task_id")
	if !ok {
		return
	}

	deleted, err := database.DeleteResultsByTaskID(taskID)
	if err != nil {
		logger.Error("deleteResultsByTaskHandler: Error deleting results for task %d: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Results deleted successfully",
		"deleted": deleted,
	})
	logger.Info("Deleted %d results for task %d", deleted, taskID)
}

// analyzeResultHandler extracts URLs and potential secrets from a stored
// result's response body.
func analyzeResultHandler(w http.ResponseWriter, r *http.Request) {
	resultID, ok := urlParamInt64(w, r, "result_id")
	if !ok {
		return
	}

	finding, err := core.AnalyzeResult(resultID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if strings.Contains(err.Error(), "no response body") {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.Error("analyzeResultHandler: Analysis of result %d failed: %v", resultID, err)
		writeError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, finding)
}
