package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"reqkit/logger"
	"reqkit/models"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Message: message})
}

// urlParamInt64 parses a chi URL parameter as an int64. A false return means
// the error response has already been written.
func urlParamInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Error("Invalid %s in path '%s': %v", name, raw, err)
		writeError(w, http.StatusBadRequest, "Invalid "+name+" in path, must be an integer")
		return 0, false
	}
	return id, true
}
