package ports

import (
	"context"

	"github.com/99minutos/todo-system/internal/core/domain"
)

// ListTodosFilter carries paging for the todo listing. Limit 0 means all rows.
type ListTodosFilter struct {
	Page  int // 1-based
	Limit int
}

// TodoRepository defines persistence operations for todos.
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id int64) (*domain.Todo, error)
	List(ctx context.Context, filter ListTodosFilter) ([]*domain.Todo, int64, error)
	Update(ctx context.Context, todo *domain.Todo) error
	Delete(ctx context.Context, id int64) error
}
