package todo

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxTitleLength    = 255
	maxCategoryLength = 64
)

type repository interface {
	Create(ctx context.Context, userID uuid.UUID, input NewTodo) (Todo, error)
	List(ctx context.Context, userID uuid.UUID, filter Filter) ([]Todo, error)
	Get(ctx context.Context, userID, todoID uuid.UUID) (Todo, error)
	Update(ctx context.Context, userID, todoID uuid.UUID, patch Patch) (Todo, error)
	Delete(ctx context.Context, userID, todoID uuid.UUID) error
	DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

// Service orchestrates todo operations. Every call is scoped to the owning user.
type Service struct {
	repo repository
	log  *zap.Logger
}

// NewService constructs a todo service.
func NewService(repo repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

// Create validates input and stores a new pending todo.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input NewTodo) (Todo, error) {
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return Todo{}, err
	}
	input.Title = title

	if input.Priority == "" {
		input.Priority = PriorityMedium
	}
	if !input.Priority.valid() {
		return Todo{}, ErrInvalidPriority
	}

	category, err := normalizeCategory(input.Category)
	if err != nil {
		return Todo{}, err
	}
	if category == "" {
		category = DefaultCategory
	}
	input.Category = category

	todo, err := s.repo.Create(ctx, userID, input)
	if err != nil {
		return Todo{}, err
	}
	s.log.Debug("todo created", zap.String("todo_id", todo.ID.String()), zap.String("user_id", userID.String()))
	return todo, nil
}

// List returns the user's todos matching filter.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter Filter) ([]Todo, error) {
	switch filter.Status {
	case "", StatusAll, StatusCompleted, StatusPending:
	default:
		return nil, ErrInvalidStatus
	}
	if filter.Priority != "" && !filter.Priority.valid() {
		return nil, ErrInvalidPriority
	}
	switch filter.Sort {
	case "", SortCreated, SortTitle, SortPriority:
	default:
		return nil, ErrInvalidSort
	}
	filter.Query = strings.TrimSpace(filter.Query)

	return s.repo.List(ctx, userID, filter)
}

// Get returns a todo ensuring ownership.
func (s *Service) Get(ctx context.Context, userID, todoID uuid.UUID) (Todo, error) {
	return s.repo.Get(ctx, userID, todoID)
}

// Update applies a partial update to a todo owned by the user.
func (s *Service) Update(ctx context.Context, userID, todoID uuid.UUID, patch Patch) (Todo, error) {
	if patch.empty() {
		return Todo{}, ErrEmptyPatch
	}
	if patch.Title != nil {
		title, err := normalizeTitle(*patch.Title)
		if err != nil {
			return Todo{}, err
		}
		patch.Title = &title
	}
	if patch.Priority != nil && !patch.Priority.valid() {
		return Todo{}, ErrInvalidPriority
	}
	if patch.Category != nil {
		category, err := normalizeCategory(*patch.Category)
		if err != nil {
			return Todo{}, err
		}
		if category == "" {
			category = DefaultCategory
		}
		patch.Category = &category
	}

	return s.repo.Update(ctx, userID, todoID, patch)
}

// Delete removes a todo owned by the user.
func (s *Service) Delete(ctx context.Context, userID, todoID uuid.UUID) error {
	return s.repo.Delete(ctx, userID, todoID)
}

// ClearCompleted removes all of the user's completed todos.
func (s *Service) ClearCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	removed, err := s.repo.DeleteCompleted(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Debug("completed todos cleared", zap.String("user_id", userID.String()), zap.Int64("removed", removed))
	return removed, nil
}

// Stats returns counts across all users.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

func normalizeCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return "", ErrCategoryTooLong
	}
	return category, nil
}
