package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

const todoColumns = `id, user_id, title, completed, priority, category, created_at, updated_at`

// Repository allows access to todo persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a todo repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new todo for the user.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, input NewTodo) (Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO todos (id, user_id, title, priority, category)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + todoColumns + `;`

	todo, err := scanTodo(r.pool.QueryRow(ctx, query, uuid.New(), userID, input.Title, string(input.Priority), input.Category))
	if err != nil {
		return Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return todo, nil
}

// List returns the user's todos matching filter.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, filter Filter) ([]Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	conditions := []string{"user_id = $1"}
	args := []any{userID}

	switch filter.Status {
	case StatusCompleted:
		conditions = append(conditions, "completed")
	case StatusPending:
		conditions = append(conditions, "NOT completed")
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%[1]d OR category ILIKE $%[1]d)", len(args)))
	}

	query := `SELECT ` + todoColumns + ` FROM todos WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY ` + orderClause(filter.Sort) + `;`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := []Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return todos, nil
}

// Get fetches a single todo ensuring ownership.
func (r *Repository) Get(ctx context.Context, userID, todoID uuid.UUID) (Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1 AND user_id = $2;`

	todo, err := scanTodo(r.pool.QueryRow(ctx, query, todoID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Todo{}, ErrTodoNotFound
		}
		return Todo{}, fmt.Errorf("get todo: %w", err)
	}
	return todo, nil
}

// Update applies patch to a todo owned by the user.
func (r *Repository) Update(ctx context.Context, userID, todoID uuid.UUID, patch Patch) (Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
UPDATE todos
SET title      = COALESCE($3, title),
    completed  = COALESCE($4, completed),
    priority   = COALESCE($5, priority),
    category   = COALESCE($6, category),
    updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING ` + todoColumns + `;`

	var priority *string
	if patch.Priority != nil {
		p := string(*patch.Priority)
		priority = &p
	}

	todo, err := scanTodo(r.pool.QueryRow(ctx, query, todoID, userID, patch.Title, patch.Completed, priority, patch.Category))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Todo{}, ErrTodoNotFound
		}
		return Todo{}, fmt.Errorf("update todo: %w", err)
	}
	return todo, nil
}

// Delete removes a todo owned by the user.
func (r *Repository) Delete(ctx context.Context, userID, todoID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2;`, todoID, userID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// DeleteCompleted removes every completed todo of the user and reports how many were removed.
func (r *Repository) DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM todos WHERE user_id = $1 AND completed;`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete completed todos: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

// Stats aggregates counts across all users.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE completed),
       COUNT(DISTINCT user_id),
       COUNT(*) FILTER (WHERE priority = 'low'),
       COUNT(*) FILTER (WHERE priority = 'medium'),
       COUNT(*) FILTER (WHERE priority = 'high')
FROM todos;`

	var stats Stats
	var low, medium, high int64
	if err := r.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Completed, &stats.Users, &low, &medium, &high); err != nil {
		return Stats{}, fmt.Errorf("todo stats: %w", err)
	}
	stats.Pending = stats.Total - stats.Completed
	stats.ByPriority = map[Priority]int64{PriorityLow: low, PriorityMedium: medium, PriorityHigh: high}
	return stats, nil
}

func scanTodo(row pgx.Row) (Todo, error) {
	var todo Todo
	var priority string
	err := row.Scan(
		&todo.ID,
		&todo.UserID,
		&todo.Title,
		&todo.Completed,
		&priority,
		&todo.Category,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	todo.Priority = Priority(priority)
	return todo, err
}

func orderClause(sort SortOrder) string {
	switch sort {
	case SortTitle:
		return "LOWER(title) ASC, created_at DESC"
	case SortPriority:
		return "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
