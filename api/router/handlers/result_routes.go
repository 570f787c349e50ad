package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterResultRoutes(r chi.Router) {
	r.Get("/results", getResultsHandler)
	r.Get("/results/{result_id}", getResultHandler)
	r.Post("/results/{result_id}/analyze", analyzeResultHandler)
	r.Delete("/results/task/{task_id}", deleteResultsByTaskHandler)
}
