package todo

import (
	"errors"
	"io"
	"net/http"

	"github.com/abduss/gotodo/internal/apierr"
	"github.com/abduss/gotodo/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRoutes mounts todo endpoints onto a group that already runs the auth gate.
func RegisterRoutes(group *gin.RouterGroup, service *Service, log *zap.Logger) {
	handler := &httpHandler{service: service, log: log}
	group.POST("/todos", handler.createTodo)
	group.GET("/todos", handler.listTodos)
	group.DELETE("/todos/completed", handler.clearCompleted)
	group.GET("/todos/:todoID", handler.getTodo)
	group.PATCH("/todos/:todoID", handler.updateTodo)
	group.DELETE("/todos/:todoID", handler.deleteTodo)
}

// RegisterAdminRoutes mounts admin-only endpoints onto a group guarded by auth.RequireAdmin.
func RegisterAdminRoutes(group *gin.RouterGroup, service *Service, log *zap.Logger) {
	handler := &httpHandler{service: service, log: log}
	group.GET("/todos/stats", handler.stats)
}

type httpHandler struct {
	service *Service
	log     *zap.Logger
}

type createTodoRequest struct {
	Title    string   `json:"title"`
	Priority Priority `json:"priority"`
	Category string   `json:"category"`
}

type updateTodoRequest struct {
	Title     *string   `json:"title"`
	Completed *bool     `json:"completed"`
	Priority  *Priority `json:"priority"`
	Category  *string   `json:"category"`
}

type listResponse struct {
	Todos []Todo `json:"todos"`
	Count int    `json:"count"`
}

var errInvalidBody = apierr.Validation("Invalid request body")

func (h *httpHandler) createTodo(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		apierr.Respond(c, h.log, auth.ErrUnauthenticated)
		return
	}

	var req createTodoRequest
	if err := bindJSON(c, &req); err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	todo, err := h.service.Create(c.Request.Context(), userID, NewTodo{
		Title:    req.Title,
		Priority: req.Priority,
		Category: req.Category,
	})
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, todo)
}

func (h *httpHandler) listTodos(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		apierr.Respond(c, h.log, auth.ErrUnauthenticated)
		return
	}

	todos, err := h.service.List(c.Request.Context(), userID, Filter{
		Status:   Status(c.Query("status")),
		Priority: Priority(c.Query("priority")),
		Query:    c.Query("q"),
		Sort:     SortOrder(c.Query("sort")),
	})
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, listResponse{Todos: todos, Count: len(todos)})
}

func (h *httpHandler) getTodo(c *gin.Context) {
	userID, todoID, ok := h.target(c)
	if !ok {
		return
	}

	todo, err := h.service.Get(c.Request.Context(), userID, todoID)
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, todo)
}

func (h *httpHandler) updateTodo(c *gin.Context) {
	userID, todoID, ok := h.target(c)
	if !ok {
		return
	}

	var req updateTodoRequest
	if err := bindJSON(c, &req); err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	todo, err := h.service.Update(c.Request.Context(), userID, todoID, Patch{
		Title:     req.Title,
		Completed: req.Completed,
		Priority:  req.Priority,
		Category:  req.Category,
	})
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, todo)
}

func (h *httpHandler) deleteTodo(c *gin.Context) {
	userID, todoID, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, todoID); err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) clearCompleted(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		apierr.Respond(c, h.log, auth.ErrUnauthenticated)
		return
	}

	removed, err := h.service.ClearCompleted(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *httpHandler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// target resolves the caller and the todo id path parameter, writing the error response itself.
func (h *httpHandler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		apierr.Respond(c, h.log, auth.ErrUnauthenticated)
		return uuid.Nil, uuid.Nil, false
	}

	todoID, err := uuid.Parse(c.Param("todoID"))
	if err != nil {
		apierr.Respond(c, h.log, ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, todoID, true
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}
