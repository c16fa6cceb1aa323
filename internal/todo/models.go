package todo

import (
	"time"

	"github.com/google/uuid"
)

// Priority ranks a todo.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultCategory is assigned when a todo is created without one.
const DefaultCategory = "Personal"

// Todo is a single task owned by a user.
type Todo struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Priority  Priority  `json:"priority"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Status filters todos by completion.
type Status string

const (
	StatusAll       Status = "all"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// SortOrder selects the list ordering.
type SortOrder string

const (
	SortCreated  SortOrder = "created"
	SortTitle    SortOrder = "title"
	SortPriority SortOrder = "priority"
)

// Filter narrows a todo listing. Zero values mean "no restriction".
type Filter struct {
	Status   Status
	Priority Priority
	Query    string
	Sort     SortOrder
}

// NewTodo carries the fields of a todo being created.
type NewTodo struct {
	Title    string
	Priority Priority
	Category string
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Title     *string
	Completed *bool
	Priority  *Priority
	Category  *string
}

func (p Patch) empty() bool {
	return p.Title == nil && p.Completed == nil && p.Priority == nil && p.Category == nil
}

// Stats aggregates todo counts across all users.
type Stats struct {
	Total      int64              `json:"total"`
	Completed  int64              `json:"completed"`
	Pending    int64              `json:"pending"`
	Users      int64              `json:"users"`
	ByPriority map[Priority]int64 `json:"byPriority"`
}

func (p Priority) valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}
