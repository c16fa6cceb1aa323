package server

import (
	"context"
	"sync"
	"time"

	"github.com/abduss/gotodo/internal/auth"
	"github.com/abduss/gotodo/internal/todo"
	"github.com/google/uuid"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]auth.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[uuid.UUID]auth.User{}}
}

func (m *memoryUsers) CreateUser(_ context.Context, in auth.NewUser) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == in.Email {
			return auth.User{}, auth.ErrEmailAlreadyExists
		}
	}
	now := time.Now()
	u := auth.User{ID: uuid.New(), Email: in.Email, Name: in.Name, PasswordHash: in.PasswordHash, IsActive: true, IsAdmin: in.IsAdmin, CreatedAt: now, UpdatedAt: now}
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryUsers) FindUserByEmail(_ context.Context, email string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (m *memoryUsers) FindUserByID(_ context.Context, id uuid.UUID) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryUsers) StoreRefreshToken(_ context.Context, id uuid.UUID, fingerprint string, loginAt *time.Time) error {
	return m.update(id, func(u *auth.User) {
		u.RefreshTokenHash = &fingerprint
		if loginAt != nil {
			u.LastLogin = loginAt
		}
	})
}

func (m *memoryUsers) ClearRefreshToken(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(u *auth.User) { u.RefreshTokenHash = nil })
}

func (m *memoryUsers) SetAdmin(_ context.Context, id uuid.UUID, isAdmin bool) error {
	return m.update(id, func(u *auth.User) { u.IsAdmin = isAdmin })
}

func (m *memoryUsers) update(id uuid.UUID, fn func(*auth.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	fn(&u)
	m.users[id] = u
	return nil
}

// memoryTodos supports the subset of filtering the router tests exercise.
type memoryTodos struct {
	mu    sync.Mutex
	todos []todo.Todo
}

func (m *memoryTodos) Create(_ context.Context, userID uuid.UUID, in todo.NewTodo) (todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	t := todo.Todo{ID: uuid.New(), UserID: userID, Title: in.Title, Priority: in.Priority, Category: in.Category, CreatedAt: now, UpdatedAt: now}
	m.todos = append(m.todos, t)
	return t, nil
}

func (m *memoryTodos) List(_ context.Context, userID uuid.UUID, f todo.Filter) ([]todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []todo.Todo{}
	for _, t := range m.todos {
		if t.UserID != userID {
			continue
		}
		if f.Status == todo.StatusCompleted && !t.Completed || f.Status == todo.StatusPending && t.Completed {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryTodos) Get(_ context.Context, userID, id uuid.UUID) (todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.todos {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return todo.Todo{}, todo.ErrTodoNotFound
}

func (m *memoryTodos) Update(_ context.Context, userID, id uuid.UUID, p todo.Patch) (todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.todos {
		if t.ID != id || t.UserID != userID {
			continue
		}
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Completed != nil {
			t.Completed = *p.Completed
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
		}
		if p.Category != nil {
			t.Category = *p.Category
		}
		m.todos[i] = t
		return t, nil
	}
	return todo.Todo{}, todo.ErrTodoNotFound
}

func (m *memoryTodos) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.todos {
		if t.ID == id && t.UserID == userID {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			return nil
		}
	}
	return todo.ErrTodoNotFound
}

func (m *memoryTodos) DeleteCompleted(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.todos[:0]
	var removed int64
	for _, t := range m.todos {
		if t.UserID == userID && t.Completed {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	m.todos = kept
	return removed, nil
}

func (m *memoryTodos) Stats(_ context.Context) (todo.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := todo.Stats{ByPriority: map[todo.Priority]int64{}}
	users := map[uuid.UUID]bool{}
	for _, t := range m.todos {
		stats.Total++
		if t.Completed {
			stats.Completed++
		}
		stats.ByPriority[t.Priority]++
		users[t.UserID] = true
	}
	stats.Pending = stats.Total - stats.Completed
	stats.Users = int64(len(users))
	return stats, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }
