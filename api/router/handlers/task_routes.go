package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterTaskRoutes(r chi.Router) {
	r.Get("/tasks", getTasksHandler)
	r.Post("/tasks", createTaskHandler)
	r.Post("/tasks/order", updateTasksOrderHandler)
	r.Post("/tasks/import-curl", importCurlHandler)
	r.Post("/tasks/from-result", taskFromResultHandler)

	r.Get("/tasks/{task_id}", getTaskHandler)
	r.Put("/tasks/{task_id}", updateTaskHandler)
	r.Delete("/tasks/{task_id}", deleteTaskHandler)
	r.Post("/tasks/{task_id}/clone", cloneTaskHandler)
}
