package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/todo-system/internal/core/domain"
	"github.com/99minutos/todo-system/internal/core/ports"
)

const maxPageLimit = 100

type TodoService struct {
	repo   ports.TodoRepository
	logger zerolog.Logger
}

func NewTodoService(repo ports.TodoRepository, logger zerolog.Logger) *TodoService {
	return &TodoService{repo: repo, logger: logger}
}

func (s *TodoService) AddTodo(ctx context.Context, in ports.TodoInput) (*domain.Todo, error) {
	now := time.Now().UTC()
	todo := &domain.Todo{
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		s.logger.Error().Err(err).Msg("failed to create todo")
		return nil, err
	}
	s.logger.Info().Int64("todo_id", todo.ID).Msg("todo created")
	return todo, nil
}

func (s *TodoService) GetTodo(ctx context.Context, id int64) (*domain.Todo, error) {
	return s.repo.FindByID(ctx, id)
}

// ListTodos returns every todo when no page is requested, otherwise one
// page capped at maxPageLimit rows.
func (s *TodoService) ListTodos(ctx context.Context, in ports.ListTodosInput) (*ports.ListTodosResult, error) {
	filter := ports.ListTodosFilter{Page: in.Page, Limit: in.Limit}
	if filter.Page > 0 || filter.Limit > 0 {
		if filter.Page < 1 {
			filter.Page = 1
		}
		if filter.Limit < 1 {
			filter.Limit = 20
		}
		if filter.Limit > maxPageLimit {
			filter.Limit = maxPageLimit
		}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	res := &ports.ListTodosResult{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	if filter.Limit > 0 {
		res.TotalPages = int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	}
	return res, nil
}

func (s *TodoService) UpdateTodo(ctx context.Context, id int64, in ports.TodoInput) (*domain.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	todo.Title = in.Title
	todo.Description = in.Description
	todo.Completed = in.Completed
	todo.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

func (s *TodoService) DeleteTodo(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("todo_id", id).Msg("todo deleted")
	return nil
}

// ToggleCompleted flips the completed flag.
func (s *TodoService) ToggleCompleted(ctx context.Context, id int64) (*domain.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	todo.Completed = !todo.Completed
	todo.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}
