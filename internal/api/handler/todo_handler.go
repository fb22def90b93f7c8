package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/todo-system/internal/api/metrics"
	"github.com/99minutos/todo-system/internal/core/ports"
)

// TodoHandler handles HTTP requests for todo operations. Role checks are
// applied by the router before these handlers run.
type TodoHandler struct {
	service ports.TodoService
}

func NewTodoHandler(service ports.TodoService) *TodoHandler {
	return &TodoHandler{service: service}
}

// Create handles POST /api/v1/todos.
//
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      todoRequest  true  "Todo"
// @Success      201   {object}  todoResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /todos [post]
func (h *TodoHandler) Create(c echo.Context) error {
	var req todoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	todo, err := h.service.AddTodo(c.Request().Context(), ports.TodoInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		return err
	}

	metrics.TodoMutationsTotal.WithLabelValues("create").Inc()
	return c.JSON(http.StatusCreated, toTodoResponse(todo))
}

// List handles GET /api/v1/todos. Without page and limit every todo is returned.
//
// @Summary      List todos
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number, starting at 1"
// @Param        limit  query     int  false  "Page size, at most 100"
// @Success      200    {object}  listTodosResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /todos [get]
func (h *TodoHandler) List(c echo.Context) error {
	var page, limit int
	if err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "page and limit must be integers"})
	}
	if page < 0 || limit < 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "page and limit must not be negative"})
	}

	result, err := h.service.ListTodos(c.Request().Context(), ports.ListTodosInput{Page: page, Limit: limit})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListTodosResponse(result))
}

// Get handles GET /api/v1/todos/:id.
//
// @Summary      Get a todo
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Todo id"
// @Success      200  {object}  todoResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /todos/{id} [get]
func (h *TodoHandler) Get(c echo.Context) error {
	id, err := todoID(c)
	if err != nil {
		return err
	}

	todo, err := h.service.GetTodo(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTodoResponse(todo))
}

// Update handles PUT /api/v1/todos/:id.
//
// @Summary      Replace a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int          true  "Todo id"
// @Param        body  body      todoRequest  true  "Todo"
// @Success      200   {object}  todoResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /todos/{id} [put]
func (h *TodoHandler) Update(c echo.Context) error {
	id, err := todoID(c)
	if err != nil {
		return err
	}

	var req todoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	todo, err := h.service.UpdateTodo(c.Request().Context(), id, ports.TodoInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		return err
	}

	metrics.TodoMutationsTotal.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, toTodoResponse(todo))
}

// Delete handles DELETE /api/v1/todos/:id.
//
// @Summary      Delete a todo
// @Tags         todos
// @Security     BearerAuth
// @Param        id   path  int  true  "Todo id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /todos/{id} [delete]
func (h *TodoHandler) Delete(c echo.Context) error {
	id, err := todoID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTodo(c.Request().Context(), id); err != nil {
		return err
	}

	metrics.TodoMutationsTotal.WithLabelValues("delete").Inc()
	return c.NoContent(http.StatusNoContent)
}

// Toggle handles PATCH /api/v1/todos/:id by flipping the completed flag.
//
// @Summary      Toggle completion
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Todo id"
// @Success      200  {object}  todoResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /todos/{id} [patch]
func (h *TodoHandler) Toggle(c echo.Context) error {
	id, err := todoID(c)
	if err != nil {
		return err
	}

	todo, err := h.service.ToggleCompleted(c.Request().Context(), id)
	if err != nil {
		return err
	}

	metrics.TodoMutationsTotal.WithLabelValues("toggle").Inc()
	return c.JSON(http.StatusOK, toTodoResponse(todo))
}

func todoID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid todo id")
	}
	return id, nil
}
