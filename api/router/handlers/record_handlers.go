package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"reqkit/database"
	"reqkit/logger"
	"reqkit/models"

	"github.com/go-chi/chi/v5"
)

func getCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	collections, err := database.GetCollections()
	if err != nil {
		logger.Error("getCollectionsHandler: Error querying collections: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, collections)
}

// importRecordsHandler loads a JSON array of record documents into the named
// collection.
func importRecordsHandler(w http.ResponseWriter, r *http.Request) {
	collection := strings.TrimSpace(chi.URLParam(r, "name"))
	if collection == "" {
		writeError(w, http.StatusBadRequest, "Collection name is required")
		return
	}

	var documents []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&documents); err != nil {
		logger.Error("importRecordsHandler: Error decoding record array for %q: %v", collection, err)
		writeError(w, http.StatusBadRequest, "Request body must be a JSON array of objects: "+err.Error())
		return
	}
	defer r.Body.Close()

	if len(documents) == 0 {
		writeError(w, http.StatusBadRequest, "At least one record is required")
		return
	}

	imported, err := database.ImportRecords(collection, documents)
	if err != nil {
		logger.Error("importRecordsHandler: Error importing %d records into %q: %v", len(documents), collection, err)
		writeError(w, http.StatusInternalServerError, "Failed to import records: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"collection": collection,
		"imported":   imported,
	})
	logger.Info("Imported %d records into collection %q", imported, collection)
}

func getRecordsHandler(w http.ResponseWriter, r *http.Request) {
	collection := strings.TrimSpace(chi.URLParam(r, "name"))
	if collection == "" {
		writeError(w, http.StatusBadRequest, "Collection name is required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	} else if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	records, totalRecords, err := database.GetRecordsPaginated(collection, limit, offset)
	if err != nil {
		logger.Error("getRecordsHandler: Error querying records for %q: %v", collection, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	totalPages := int((totalRecords + int64(limit) - 1) / int64(limit))
	writeJSON(w, http.StatusOK, models.PaginatedResponse{
		Page:         page,
		Limit:        limit,
		TotalRecords: totalRecords,
		TotalPages:   totalPages,
		Records:      records,
	})
}

func deleteCollectionHandler(w http.ResponseWriter, r *http.Request) {
	collection := strings.TrimSpace(chi.URLParam(r, "name"))
	if collection == "" {
		writeError(w, http.StatusBadRequest, "Collection name is required")
		return
	}

	deleted, err := database.DeleteCollection(collection)
	if err != nil {
		logger.Error("deleteCollectionHandler: Error deleting collection %q: %v", collection, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete collection")
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Collection %q not found", collection))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Collection deleted successfully",
		"deleted": deleted,
	})
	logger.Info("Deleted collection %q (%d records)", collection, deleted)
}
