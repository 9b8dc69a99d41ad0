package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harlequingg/project-tracker/internal/model"
	"github.com/harlequingg/project-tracker/internal/store"
	"github.com/harlequingg/project-tracker/internal/testutil"
)

var start = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	clock := testutil.NewClock(start)
	return testutil.NewTestStore(t, store.WithClock(clock.Now))
}

func mustUser(t *testing.T, s *store.Store, email string) *model.User {
	t.Helper()
	u := &model.User{Name: "U", Email: email, PasswordHash: []byte("hash"), Country: "NZ"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func mustProject(t *testing.T, s *store.Store, owner *model.User, title string) *model.Project {
	t.Helper()
	p := &model.Project{Title: title, OwnerID: owner.ID}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func mustTask(t *testing.T, s *store.Store, p *model.Project, task model.Task) *model.Task {
	t.Helper()
	task.ProjectID = p.ID
	task.CreatedBy = p.OwnerID
	if task.Title == "" {
		task.Title = "task"
	}
	if err := s.CreateTask(context.Background(), &task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := s.AddProjectTask(context.Background(), p.ID, task.ID); err != nil {
		t.Fatalf("AddProjectTask: %v", err)
	}
	return &task
}

func TestStore_UserEmailIsCaseInsensitiveAndUnique(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "  Ada@Example.COM ")
	if u.Email != "ada@example.com" {
		t.Fatalf("expected normalized email; got %q", u.Email)
	}
	if u.Theme != model.ThemeLight {
		t.Fatalf("expected default theme light; got %q", u.Theme)
	}

	got, err := s.GetUserByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID || string(got.PasswordHash) != "hash" {
		t.Fatalf("loaded user mismatch: %+v", got)
	}

	dup := &model.User{Name: "V", Email: "ada@EXAMPLE.com", PasswordHash: []byte("x"), Country: "NZ"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail; got %v", err)
	}

	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestStore_ThemeAndProjectCount(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")

	if err := s.UpdateUserTheme(ctx, u.ID, model.ThemeDark); err != nil {
		t.Fatalf("UpdateUserTheme: %v", err)
	}
	if err := s.AdjustProjectCount(ctx, u.ID, 1); err != nil {
		t.Fatalf("AdjustProjectCount: %v", err)
	}
	if err := s.AdjustProjectCount(ctx, u.ID, -3); err != nil {
		t.Fatalf("AdjustProjectCount: %v", err)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Theme != model.ThemeDark {
		t.Fatalf("expected dark theme; got %q", got.Theme)
	}
	if got.ProjectCount != 0 {
		t.Fatalf("expected project count clamped at 0; got %d", got.ProjectCount)
	}

	if err := s.UpdateUserTheme(ctx, "missing", model.ThemeDark); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestStore_UpdateProjectRejectsFieldsOutsideAllowList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")
	p := mustProject(t, s, u, "Launch")

	_, err := s.UpdateProject(ctx, p.ID, store.Fields{"title": "New", "owner_id": "someone-else"})
	if !errors.Is(err, store.ErrDisallowedField) {
		t.Fatalf("expected ErrDisallowedField; got %v", err)
	}

	got, err := s.GetProjectByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProjectByID: %v", err)
	}
	if got.Title != "Launch" || got.OwnerID != u.ID {
		t.Fatalf("rejected update must not write anything; got %+v", got)
	}

	updated, err := s.UpdateProject(ctx, p.ID, store.Fields{"title": "Launch v2", "progress": 40})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.Title != "Launch v2" || updated.Progress != 40 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("expected updated_at to move forward; created %v updated %v", updated.CreatedAt, updated.UpdatedAt)
	}

	if _, err := s.UpdateProject(ctx, "missing", store.Fields{"title": "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestStore_UpdateTaskRejectsFieldsOutsideAllowList(t *testing.T) {
	s := newStore(t)
	u := mustUser(t, s, "a@example.com")
	p := mustProject(t, s, u, "Launch")
	task := mustTask(t, s, p, model.Task{})

	for _, field := range []string{"project_id", "createdBy", "completedAt", "id"} {
		_, err := s.UpdateTask(context.Background(), task.ID, store.Fields{field: "x"})
		if !errors.Is(err, store.ErrDisallowedField) {
			t.Fatalf("field %s: expected ErrDisallowedField; got %v", field, err)
		}
	}
}

func TestStore_TaskDefaultsAndCompletedAt(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")
	p := mustProject(t, s, u, "Launch")
	task := mustTask(t, s, p, model.Task{Title: "Ship"})

	if task.Status != model.StatusToDo || task.Priority != model.PriorityMedium {
		t.Fatalf("expected defaults To Do/Medium; got %s/%s", task.Status, task.Priority)
	}

	done, err := s.UpdateTask(ctx, task.ID, store.Fields{"status": model.StatusDone})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatalf("expected completedAt set on transition to Done")
	}
	first := *done.CompletedAt

	again, err := s.UpdateTask(ctx, task.ID, store.Fields{"status": model.StatusDone})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if again.CompletedAt == nil || !again.CompletedAt.Equal(first) {
		t.Fatalf("same-status update must keep completedAt %v; got %v", first, again.CompletedAt)
	}

	reopened, err := s.UpdateTask(ctx, task.ID, store.Fields{"status": model.StatusInProgress})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Fatalf("expected completedAt cleared; got %v", *reopened.CompletedAt)
	}

	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	withDue, err := s.UpdateTask(ctx, task.ID, store.Fields{"dueDate": &due})
	if err != nil {
		t.Fatalf("UpdateTask dueDate: %v", err)
	}
	if withDue.DueDate == nil || !withDue.DueDate.Equal(due) {
		t.Fatalf("expected due date %v; got %v", due, withDue.DueDate)
	}

	var none *time.Time
	cleared, err := s.UpdateTask(ctx, task.ID, store.Fields{"dueDate": none})
	if err != nil {
		t.Fatalf("UpdateTask clear dueDate: %v", err)
	}
	if cleared.DueDate != nil {
		t.Fatalf("expected due date cleared; got %v", *cleared.DueDate)
	}
}

func TestStore_ProjectTaskListAndCounts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")
	p := mustProject(t, s, u, "Launch")

	a := mustTask(t, s, p, model.Task{Title: "a"})
	b := mustTask(t, s, p, model.Task{Title: "b", Status: model.StatusDone})
	c := mustTask(t, s, p, model.Task{Title: "c"})

	if err := s.AddProjectTask(ctx, p.ID, a.ID); err != nil {
		t.Fatalf("AddProjectTask twice: %v", err)
	}
	got, err := s.GetProjectByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProjectByID: %v", err)
	}
	if len(got.TaskIDs) != 3 {
		t.Fatalf("expected 3 task ids without duplicates; got %v", got.TaskIDs)
	}

	tasks, err := s.GetTasksByIDs(ctx, []string{c.ID, "missing", a.ID})
	if err != nil {
		t.Fatalf("GetTasksByIDs: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != c.ID || tasks[1].ID != a.ID {
		t.Fatalf("expected [c a] in requested order; got %+v", tasks)
	}

	total, done, err := s.CountProjectTasks(ctx, p.ID)
	if err != nil {
		t.Fatalf("CountProjectTasks: %v", err)
	}
	if total != 3 || done != 1 {
		t.Fatalf("expected 3 total / 1 done; got %d / %d", total, done)
	}

	if err := s.RemoveProjectTask(ctx, p.ID, b.ID); err != nil {
		t.Fatalf("RemoveProjectTask: %v", err)
	}
	got, _ = s.GetProjectByID(ctx, p.ID)
	if len(got.TaskIDs) != 2 || got.TaskIDs[0] != a.ID || got.TaskIDs[1] != c.ID {
		t.Fatalf("expected [a c] after removal; got %v", got.TaskIDs)
	}
}

func TestStore_DeleteProjectCascade(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")
	p := mustProject(t, s, u, "Launch")
	other := mustProject(t, s, u, "Other")

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, mustTask(t, s, p, model.Task{}).ID)
	}
	keep := mustTask(t, s, other, model.Task{})

	n, err := s.DeleteTasksByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteTasksByProject: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 tasks deleted; got %d", n)
	}
	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	for _, id := range ids {
		if _, err := s.GetTaskByID(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("task %s: expected ErrNotFound; got %v", id, err)
		}
	}
	if _, err := s.GetTaskByID(ctx, keep.ID); err != nil {
		t.Fatalf("task of another project must survive: %v", err)
	}
	if err := s.DeleteProject(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete; got %v", err)
	}
}

func TestStore_ProjectsByOwnerNewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")
	v := mustUser(t, s, "b@example.com")

	first := mustProject(t, s, u, "first")
	second := mustProject(t, s, u, "second")
	mustProject(t, s, v, "not mine")

	projects, err := s.GetProjectsByOwner(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetProjectsByOwner: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != second.ID || projects[1].ID != first.ID {
		t.Fatalf("expected [second first]; got %+v", projects)
	}

	n, err := s.CountProjectsByOwner(ctx, u.ID)
	if err != nil {
		t.Fatalf("CountProjectsByOwner: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 projects; got %d", n)
	}
}

func TestStore_OrphansAndCountReset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")
	p := mustProject(t, s, u, "Launch")
	orphan := mustTask(t, s, p, model.Task{})
	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if err := s.AdjustProjectCount(ctx, u.ID, 2); err != nil {
		t.Fatalf("AdjustProjectCount: %v", err)
	}

	n, err := s.DeleteOrphanTasks(ctx)
	if err != nil {
		t.Fatalf("DeleteOrphanTasks: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 orphan deleted; got %d", n)
	}
	if _, err := s.GetTaskByID(ctx, orphan.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected orphan gone; got %v", err)
	}

	reset, err := s.ResetProjectCounts(ctx)
	if err != nil {
		t.Fatalf("ResetProjectCounts: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 user reset; got %d", reset)
	}
	got, _ := s.GetUserByID(ctx, u.ID)
	if got.ProjectCount != 0 {
		t.Fatalf("expected project count 0; got %d", got.ProjectCount)
	}
}
