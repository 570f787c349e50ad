package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterExecutionRoutes(r chi.Router) {
	r.Post("/tasks/{task_id}/execute", executeTaskHandler)
	r.Post("/tasks/{task_id}/run", runTaskHandler)
}
