package task

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"log/slog"

	"github.com/google/uuid"

	"github.com/splax/tasktrack/internal/domain"
	"github.com/splax/tasktrack/internal/repository"
)

type stubTaskRepository struct {
	tasks map[string]*domain.Task
	order []string
}

func newStubTaskRepository() *stubTaskRepository {
	return &stubTaskRepository{tasks: make(map[string]*domain.Task)}
}

func (s *stubTaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	copied := *task
	s.tasks[task.ID] = &copied
	s.order = append(s.order, task.ID)
	return nil
}

func (s *stubTaskRepository) GetTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	if task, ok := s.tasks[id]; ok {
		copied := *task
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubTaskRepository) ListTasksByOwner(ctx context.Context, userID string) ([]domain.Task, error) {
	var owned []domain.Task
	for i := len(s.order) - 1; i >= 0; i-- {
		if t, ok := s.tasks[s.order[i]]; ok && t.UserID == userID {
			owned = append(owned, *t)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	return owned, nil
}

func (s *stubTaskRepository) UpdateTask(ctx context.Context, id string, patch repository.TaskPatch) (*domain.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	copied := *task
	return &copied, nil
}

func (s *stubTaskRepository) DeleteTask(ctx context.Context, id string) error {
	if _, ok := s.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func testService(repo repository.TaskRepository) Service {
	return New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateTrimsAndDefaults(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo)

	created, err := svc.Create(context.Background(), "user-a", CreateInput{Title: "  Buy milk  "})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Title != "Buy milk" {
		t.Fatalf("title not trimmed: %q", created.Title)
	}
	if created.Description != "" {
		t.Fatalf("description should default to empty, got %q", created.Description)
	}
	if created.Completed {
		t.Fatal("completed should default to false")
	}
	if created.UserID != "user-a" {
		t.Fatalf("owner not set from identity: %q", created.UserID)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	svc := testService(newStubTaskRepository())

	_, err := svc.Create(context.Background(), "user-a", CreateInput{Title: "   "})
	if !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestCreateRejectsOverlongFields(t *testing.T) {
	svc := testService(newStubTaskRepository())

	var ve *ValidationError
	_, err := svc.Create(context.Background(), "user-a", CreateInput{Title: strings.Repeat("x", 201)})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for long title, got %v", err)
	}
	_, err = svc.Create(context.Background(), "user-a", CreateInput{
		Title:       "ok",
		Description: strings.Repeat("x", 1001),
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for long description, got %v", err)
	}
}

func TestListIsOwnerScopedNewestFirst(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo)

	first, err := svc.Create(context.Background(), "user-a", CreateInput{Title: "first"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	second, err := svc.Create(context.Background(), "user-a", CreateInput{Title: "second"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(context.Background(), "user-b", CreateInput{Title: "other owner"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	tasks, err := svc.List(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks for user-a, got %d", len(tasks))
	}
	if tasks[0].ID != second.ID || tasks[1].ID != first.ID {
		t.Fatalf("tasks not ordered newest first: %q then %q", tasks[0].Title, tasks[1].Title)
	}
}

func TestUpdateDiscriminatesIDFailures(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo)

	owned, err := svc.Create(context.Background(), "user-a", CreateInput{Title: "mine"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	completed := true
	if _, err := svc.Update(context.Background(), "user-a", "not-a-uuid", UpdateInput{Completed: &completed}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("malformed id: expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.Update(context.Background(), "user-a", uuid.NewString(), UpdateInput{Completed: &completed}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
	}
	// Another user's well-formed id discloses existence via 403, not 404.
	if _, err := svc.Update(context.Background(), "user-b", owned.ID, UpdateInput{Completed: &completed}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign owner: expected ErrForbidden, got %v", err)
	}
}

func TestUpdatePartialFieldIsolation(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo)

	created, err := svc.Create(context.Background(), "user-a", CreateInput{Title: "Buy milk", Description: "2 liters"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	completed := true
	toggled, err := svc.Update(context.Background(), "user-a", created.ID, UpdateInput{Completed: &completed})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !toggled.Completed {
		t.Fatal("completed not applied")
	}
	if toggled.Title != "Buy milk" || toggled.Description != "2 liters" {
		t.Fatalf("untouched fields changed: %+v", toggled)
	}

	title := "  Buy oat milk  "
	renamed, err := svc.Update(context.Background(), "user-a", created.ID, UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if renamed.Title != "Buy oat milk" {
		t.Fatalf("title not trimmed on update: %q", renamed.Title)
	}
	if !renamed.Completed {
		t.Fatal("completed flag lost by title-only update")
	}
}

func TestUpdateRejectsEmptyTitle(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo)

	created, err := svc.Create(context.Background(), "user-a", CreateInput{Title: "mine"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	empty := "   "
	if _, err := svc.Update(context.Background(), "user-a", created.ID, UpdateInput{Title: &empty}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	repo := newStubTaskRepository()
	svc := testService(repo)

	created, err := svc.Create(context.Background(), "user-a", CreateInput{Title: "mine"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(context.Background(), "user-b", created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign owner: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), "user-a", created.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := svc.Delete(context.Background(), "user-a", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}
