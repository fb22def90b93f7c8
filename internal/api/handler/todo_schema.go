package handler

import (
	"time"

	"github.com/99minutos/todo-system/internal/core/domain"
	"github.com/99minutos/todo-system/internal/core/ports"
)

type todoRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Completed   bool   `json:"completed"`
}

type todoResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type listTodosResponse struct {
	Items      []todoResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	TotalPages int            `json:"total_pages,omitempty"`
}

func toTodoResponse(t *domain.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toListTodosResponse(r *ports.ListTodosResult) listTodosResponse {
	items := make([]todoResponse, 0, len(r.Items))
	for _, t := range r.Items {
		items = append(items, toTodoResponse(t))
	}
	return listTodosResponse{
		Items:      items,
		Total:      r.Total,
		Page:       r.Page,
		Limit:      r.Limit,
		TotalPages: r.TotalPages,
	}
}
