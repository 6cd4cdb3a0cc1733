package repository

import (
	"context"

	"github.com/splax/tasktrack/internal/domain"
)

// UserRepository persists users. Email lookups expect the address already
// normalized (trimmed, lowercased) by the caller.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// TaskPatch describes a partial task update. Nil fields are left untouched;
// a non-nil field overwrites the stored value, including with an empty string.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// TaskRepository persists tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTaskByID(ctx context.Context, id string) (*domain.Task, error)
	ListTasksByOwner(ctx context.Context, userID string) ([]domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}
