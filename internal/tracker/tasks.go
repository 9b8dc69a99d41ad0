package tracker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/harlequingg/project-tracker/internal/model"
	"github.com/harlequingg/project-tracker/internal/store"
)

// TaskInput is the data needed to create a task.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	ProjectID   string `json:"projectId"`
}

// ParseDueDate accepts RFC 3339 timestamps and plain dates. A plain date
// is midnight server-local time. An empty string is no due date.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a task in a project owned by u, appends it to the
// project's task list and recomputes the project's progress.
func (s *Service) CreateTask(ctx context.Context, u *model.User, in TaskInput) (*model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	v := newValidator()
	v.checkTitle(in.Title)
	v.checkCond(in.ProjectID != "", "projectId", "must be provided")
	v.checkCond(in.Priority == "" || model.ValidPriority(in.Priority), "priority", "must be High, Medium or Low")
	due, err := ParseDueDate(in.DueDate)
	v.checkCond(err == nil, "dueDate", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	if v.hasErrors() {
		return nil, v.toError()
	}

	project, err := s.repo.GetProjectByID(ctx, in.ProjectID)
	if err != nil {
		return nil, s.mapStoreErr(err, "Project")
	}
	if project.OwnerID != u.ID {
		return nil, notFound("Project")
	}

	t := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     due,
		ProjectID:   project.ID,
		CreatedBy:   u.ID,
	}
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	if err := s.repo.AddProjectTask(ctx, project.ID, t.ID); err != nil {
		s.logger.Printf("task %s created but not listed on project %s: %v", t.ID, project.ID, err)
	}
	s.recompute(ctx, project.ID)
	return t, nil
}

// GetTask returns a task whose project is owned by u.
func (s *Service) GetTask(ctx context.Context, u *model.User, id string) (*model.Task, error) {
	t, err := s.ownedTask(ctx, u, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTask applies a patch of title, description, status, priority and
// dueDate. A status change to a different value recomputes the project's
// progress after the task is saved.
func (s *Service) UpdateTask(ctx context.Context, u *model.User, id string, patch Patch) (*model.Task, error) {
	if err := patch.checkAllowed(store.TaskUpdatable); err != nil {
		return nil, err
	}
	fields, err := taskFields(patch)
	if err != nil {
		return nil, err
	}
	before, err := s.ownedTask(ctx, u, id)
	if err != nil {
		return nil, err
	}

	after, err := s.repo.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, s.mapStoreErr(err, "Task")
	}

	if _, ok := fields["status"]; ok && after.Status != before.Status {
		s.recompute(ctx, after.ProjectID)
	}
	return after, nil
}

func taskFields(patch Patch) (store.Fields, error) {
	fields := store.Fields{}
	v := newValidator()
	for name, raw := range patch {
		if name == "dueDate" {
			var s *string
			if err := json.Unmarshal(raw, &s); err != nil {
				v.checkCond(false, name, "must be a string or null")
				continue
			}
			var due *time.Time
			if s != nil {
				d, err := ParseDueDate(*s)
				if err != nil {
					v.checkCond(false, name, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
					continue
				}
				due = d
			}
			if due != nil {
				utc := due.UTC()
				due = &utc
			}
			fields[name] = due
			continue
		}

		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			v.checkCond(false, name, "must be a string")
			continue
		}
		value = strings.TrimSpace(value)
		switch name {
		case "title":
			v.checkTitle(value)
		case "status":
			v.checkCond(model.ValidStatus(value), name, "must be To Do, In Progress or Done")
		case "priority":
			v.checkCond(model.ValidPriority(value), name, "must be High, Medium or Low")
		}
		fields[name] = value
	}
	if v.hasErrors() {
		return nil, v.toError()
	}
	return fields, nil
}

// DeleteTask deletes a task, drops it from its project's task list and
// recomputes the project's progress.
func (s *Service) DeleteTask(ctx context.Context, u *model.User, id string) (*model.Task, error) {
	t, err := s.ownedTask(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteTask(ctx, t.ID); err != nil {
		return nil, s.mapStoreErr(err, "Task")
	}

	if err := s.repo.RemoveProjectTask(ctx, t.ProjectID, t.ID); err != nil {
		s.logger.Printf("task %s deleted but still listed on project %s: %v", t.ID, t.ProjectID, err)
	}
	s.recompute(ctx, t.ProjectID)
	return t, nil
}

// ownedTask resolves a task through its parent project. The task is
// visible only when the project exists and is owned by u; anything else
// is ErrNotFound.
func (s *Service) ownedTask(ctx context.Context, u *model.User, id string) (*model.Task, error) {
	t, err := s.repo.GetTaskByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(err, "Task")
	}
	p, err := s.repo.GetProjectByID(ctx, t.ProjectID)
	if err != nil {
		return nil, s.mapStoreErr(err, "Task")
	}
	if p.OwnerID != u.ID {
		return nil, notFound("Task")
	}
	return t, nil
}

// recompute refreshes a project's progress. Failures leave the stored
// value stale and are logged, not returned: the triggering task write has
// already succeeded.
func (s *Service) recompute(ctx context.Context, projectID string) {
	if _, err := s.progress.Recompute(ctx, projectID); err != nil {
		s.logger.Printf("progress of project %s left stale: %v", projectID, err)
	}
}
