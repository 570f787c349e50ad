package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterRecordRoutes(r chi.Router) {
	r.Get("/collections", getCollectionsHandler)
	r.Post("/collections/{name}/records", importRecordsHandler)
	r.Get("/collections/{name}/records", getRecordsHandler)
	r.Delete("/collections/{name}", deleteCollectionHandler)
}
