package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/abduss/gotodo/internal/todo"
	"github.com/google/uuid"
)

// CreateTodoRequest is the payload for CreateTodo.
type CreateTodoRequest struct {
	Title    string        `json:"title"`
	Priority todo.Priority `json:"priority,omitempty"`
	Category string        `json:"category,omitempty"`
}

// UpdateTodoRequest is a partial update; nil fields are left unchanged.
type UpdateTodoRequest struct {
	Title     *string        `json:"title,omitempty"`
	Completed *bool          `json:"completed,omitempty"`
	Priority  *todo.Priority `json:"priority,omitempty"`
	Category  *string        `json:"category,omitempty"`
}

func (c *Client) CreateTodo(ctx context.Context, req CreateTodoRequest) (todo.Todo, error) {
	var out todo.Todo
	err := c.authed(ctx, http.MethodPost, "/todos", req, &out)
	return out, err
}

// ListTodos returns the caller's todos narrowed by filter.
func (c *Client) ListTodos(ctx context.Context, filter todo.Filter) ([]todo.Todo, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Priority != "" {
		query.Set("priority", string(filter.Priority))
	}
	if filter.Query != "" {
		query.Set("q", filter.Query)
	}
	if filter.Sort != "" {
		query.Set("sort", string(filter.Sort))
	}
	path := "/todos"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out struct {
		Todos []todo.Todo `json:"todos"`
	}
	if err := c.authed(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Todos, nil
}

func (c *Client) GetTodo(ctx context.Context, id uuid.UUID) (todo.Todo, error) {
	var out todo.Todo
	err := c.authed(ctx, http.MethodGet, "/todos/"+id.String(), nil, &out)
	return out, err
}

func (c *Client) UpdateTodo(ctx context.Context, id uuid.UUID, req UpdateTodoRequest) (todo.Todo, error) {
	var out todo.Todo
	err := c.authed(ctx, http.MethodPatch, "/todos/"+id.String(), req, &out)
	return out, err
}

func (c *Client) DeleteTodo(ctx context.Context, id uuid.UUID) error {
	return c.authed(ctx, http.MethodDelete, "/todos/"+id.String(), nil, nil)
}

// ClearCompleted deletes every completed todo and reports how many were removed.
func (c *Client) ClearCompleted(ctx context.Context) (int64, error) {
	var out struct {
		Removed int64 `json:"removed"`
	}
	err := c.authed(ctx, http.MethodDelete, "/todos/completed", nil, &out)
	return out.Removed, err
}
