package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harlequingg/project-tracker/internal/model"
)

const taskColumns = `id, title, description, status, priority, due_date, project_id, created_by, completed_at, created_at, updated_at`

// TaskUpdatable maps the fields a client may change on a task to their
// columns.
var TaskUpdatable = map[string]string{
	"title":       "title",
	"description": "description",
	"status":      "status",
	"priority":    "priority",
	"dueDate":     "due_date",
}

// CreateTask inserts a new task, defaulting status and priority.
func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.StatusToDo
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	now := s.timestamp()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == model.StatusDone {
		t.CompletedAt = &now
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC()
		t.DueDate = &due
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.DueDate,
		t.ProjectID, t.CreatedBy, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves a single task by ID.
func (s *Store) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var t model.Task
	err := s.db.GetContext(ctx, &t,
		s.db.Rebind("SELECT "+taskColumns+" FROM tasks WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// GetTasksByIDs returns the tasks with the given ids in the order given.
// Ids with no matching task are skipped.
func (s *Store) GetTasksByIDs(ctx context.Context, ids []string) ([]model.Task, error) {
	if len(ids) == 0 {
		return []model.Task{}, nil
	}

	query, args, err := sqlx.In("SELECT "+taskColumns+" FROM tasks WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("building task id query: %w", err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var found []model.Task
	if err := s.db.SelectContext(ctx, &found, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks by id: %w", err)
	}

	byID := make(map[string]model.Task, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	tasks := make([]model.Task, 0, len(found))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// GetTasks returns the tasks matching the filter.
func (s *Store) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query, args, err := buildTaskQuery(filter, s.now(), s.lowerFunc())
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tasks := []model.Task{}
	if err := s.db.SelectContext(ctx, &tasks, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask applies a partial update restricted to TaskUpdatable and
// returns the stored task. completed_at follows the status: it is set when
// the status moves to Done and cleared when it moves away.
func (s *Store) UpdateTask(ctx context.Context, id string, fields Fields) (*model.Task, error) {
	sets, args, err := setClause(fields, TaskUpdatable)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return s.GetTaskByID(ctx, id)
	}

	now := s.timestamp()
	if status, ok := fields["status"]; ok {
		current, err := s.GetTaskByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if status != current.Status {
			if status == model.StatusDone {
				sets = append(sets, "completed_at = ?")
				args = append(args, now)
			} else {
				sets = append(sets, "completed_at = NULL")
			}
		}
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)

	wctx, cancel := withTimeout(ctx)
	err = s.exec(wctx, "UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	cancel()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}
	return s.GetTaskByID(ctx, id)
}

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := s.exec(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return err
}

// DeleteTasksByProject removes every task that references the project.
func (s *Store) DeleteTasksByProject(ctx context.Context, projectID string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("DELETE FROM tasks WHERE project_id = ?"), projectID)
	if err != nil {
		return 0, fmt.Errorf("deleting tasks of project %s: %w", projectID, err)
	}
	return result.RowsAffected()
}

// DeleteOrphanTasks removes tasks whose project no longer exists.
func (s *Store) DeleteOrphanTasks(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks
		WHERE NOT EXISTS (SELECT 1 FROM projects WHERE projects.id = tasks.project_id)`)
	if err != nil {
		return 0, fmt.Errorf("deleting orphan tasks: %w", err)
	}
	return result.RowsAffected()
}

// CountProjectTasks counts all tasks referencing the project and the
// subset whose status is Done.
func (s *Store) CountProjectTasks(ctx context.Context, projectID string) (total, done int, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err = s.db.QueryRowxContext(ctx, s.db.Rebind(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE project_id = ?`),
		model.StatusDone, projectID,
	).Scan(&total, &done)
	if err != nil {
		return 0, 0, fmt.Errorf("counting tasks of project %s: %w", projectID, err)
	}
	return total, done, nil
}

// TaskIDsForProject lists the ids of tasks referencing the project,
// oldest first.
func (s *Store) TaskIDsForProject(ctx context.Context, projectID string) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ids := []string{}
	err := s.db.SelectContext(ctx, &ids,
		s.db.Rebind("SELECT id FROM tasks WHERE project_id = ? ORDER BY created_at, id"), projectID)
	if err != nil {
		return nil, fmt.Errorf("listing task ids of project %s: %w", projectID, err)
	}
	return ids, nil
}
