package ports

import (
	"context"

	"github.com/99minutos/todo-system/internal/core/domain"
)

// TodoInput is the writable part of a todo.
type TodoInput struct {
	Title       string
	Description string
	Completed   bool
}

// ListTodosInput carries the optional paging parameters of the list endpoint.
type ListTodosInput struct {
	Page  int
	Limit int
}

// ListTodosResult is returned by ListTodos.
type ListTodosResult struct {
	Items      []*domain.Todo
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type TodoService interface {
	AddTodo(ctx context.Context, input TodoInput) (*domain.Todo, error)
	GetTodo(ctx context.Context, id int64) (*domain.Todo, error)
	ListTodos(ctx context.Context, input ListTodosInput) (*ListTodosResult, error)
	UpdateTodo(ctx context.Context, id int64, input TodoInput) (*domain.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	ToggleCompleted(ctx context.Context, id int64) (*domain.Todo, error)
}
