// Command smoke runs the register/login/refresh/logout workflow against a live
// gotodo deployment and exits non-zero on the first deviation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abduss/gotodo/internal/client"
	"github.com/abduss/gotodo/internal/todo"
)

func main() {
	log.SetFlags(0)

	baseURL := os.Getenv("GOTODO_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, baseURL); err != nil {
		log.Fatalf("smoke: %v", err)
	}
	log.Println("smoke: ok")
}

func run(ctx context.Context, baseURL string) error {
	c := client.New(baseURL)
	email := fmt.Sprintf("smoke_%d@example.com", time.Now().UnixNano())
	password := "password123"

	if err := c.Register(ctx, client.RegisterRequest{Email: email, Password: password, ConfirmPassword: password}); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	if _, err := c.Login(ctx, email, "wrong-password"); !errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("login with wrong password: expected 401, got %v", err)
	}

	user, err := c.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Printf("logged in as %s (%s)", user.Email, user.ID)

	created, err := c.CreateTodo(ctx, client.CreateTodoRequest{Title: "smoke check", Priority: todo.PriorityHigh})
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}

	stale, _ := c.Tokens()
	if _, err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	replay := client.NewMemoryStore()
	replay.Save(stale)
	if _, err := client.New(baseURL, client.WithTokenStore(replay)).Refresh(ctx); !errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("stale refresh token: expected 401, got %v", err)
	}

	todos, err := c.ListTodos(ctx, todo.Filter{Status: todo.StatusPending})
	if err != nil {
		return fmt.Errorf("list todos: %w", err)
	}
	if len(todos) != 1 || todos[0].ID != created.ID {
		return fmt.Errorf("list todos: expected the created todo, got %d items", len(todos))
	}

	if err := c.DeleteTodo(ctx, created.ID); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}

	final, _ := c.Tokens()
	if err := c.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	replay.Save(final)
	if _, err := client.New(baseURL, client.WithTokenStore(replay)).Refresh(ctx); !errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("refresh after logout: expected 401, got %v", err)
	}
	return nil
}
