package task

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/google/uuid"

	"github.com/splax/tasktrack/internal/domain"
	"github.com/splax/tasktrack/internal/repository"
)

// Error strings double as response messages; handlers write them verbatim.
var (
	ErrInvalidID     = errors.New("Invalid task ID")
	ErrNotFound      = errors.New("Task not found")
	ErrForbidden     = errors.New("Forbidden: you do not own this task")
	ErrTitleRequired = errors.New("Title is required")
)

// ValidationError marks client-correctable input problems.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// Service handles owner-scoped task workflows. Every mutation re-reads the
// row and checks ownership before touching it.
type Service struct {
	tasks  repository.TaskRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(tasks repository.TaskRepository, logger *slog.Logger) Service {
	return Service{tasks: tasks, logger: logger}
}

// CreateInput carries the fields accepted at task creation.
type CreateInput struct {
	Title       string
	Description string
}

// Create stores a task owned by userID.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, &ValidationError{Reason: "Title must be at most 200 characters"}
	}
	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, &ValidationError{Reason: "Description must be at most 1000 characters"}
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "user_id", userID)
	return task, nil
}

// List returns userID's tasks, newest created first.
func (s Service) List(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.tasks.ListTasksByOwner(ctx, userID)
}

// UpdateInput carries a partial task update. Nil fields are left unchanged;
// provided strings are trimmed before storage.
type UpdateInput struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Update applies a partial update to a task owned by userID.
func (s Service) Update(ctx context.Context, userID, taskID string, input UpdateInput) (*domain.Task, error) {
	existing, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	patch := repository.TaskPatch{Completed: input.Completed}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if utf8.RuneCountInString(title) > maxTitleLen {
			return nil, &ValidationError{Reason: "Title must be at most 200 characters"}
		}
		patch.Title = &title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if utf8.RuneCountInString(description) > maxDescriptionLen {
			return nil, &ValidationError{Reason: "Description must be at most 1000 characters"}
		}
		patch.Description = &description
	}

	updated, err := s.tasks.UpdateTask(ctx, existing.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.logger.Info("task updated", "task_id", taskID, "user_id", userID)
	return updated, nil
}

// Delete removes a task owned by userID.
func (s Service) Delete(ctx context.Context, userID, taskID string) error {
	existing, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, existing.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("task deleted", "task_id", taskID, "user_id", userID)
	return nil
}

// getOwned fetches a task and enforces ownership. A valid id owned by someone
// else is reported as forbidden, not masked as missing.
func (s Service) getOwned(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, ErrInvalidID
	}
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrForbidden
	}
	return task, nil
}
