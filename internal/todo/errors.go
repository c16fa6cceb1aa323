package todo

import "github.com/abduss/gotodo/internal/apierr"

var (
	// ErrTodoNotFound indicates the todo does not exist for the user.
	ErrTodoNotFound = apierr.NotFound("Todo not found")
	// ErrInvalidID is returned for a malformed todo id in the path.
	ErrInvalidID = apierr.Validation("Invalid todo id")
	// ErrTitleRequired rejects a blank title.
	ErrTitleRequired = apierr.Validation("Title is required")
	// ErrTitleTooLong rejects titles over maxTitleLength characters.
	ErrTitleTooLong = apierr.Validation("Title must be at most 255 characters")
	// ErrCategoryTooLong rejects categories over maxCategoryLength characters.
	ErrCategoryTooLong = apierr.Validation("Category must be at most 64 characters")
	ErrInvalidPriority = apierr.Validation("Priority must be one of low, medium, high")
	ErrInvalidStatus   = apierr.Validation("Status must be one of all, completed, pending")
	ErrInvalidSort     = apierr.Validation("Sort must be one of created, title, priority")
	// ErrEmptyPatch is returned when an update carries no fields.
	ErrEmptyPatch = apierr.Validation("No fields to update")
)
