package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harlequingg/project-tracker/internal/model"
)

const projectColumns = `id, title, description, owner_id, task_ids, progress, created_at, updated_at`

// ProjectUpdatable maps the fields a client may change on a project to
// their columns.
var ProjectUpdatable = map[string]string{
	"title":       "title",
	"description": "description",
	"progress":    "progress",
}

type projectRow struct {
	model.Project
	TaskIDsJSON string `db:"task_ids"`
}

func (r projectRow) toModel() (model.Project, error) {
	p := r.Project
	p.TaskIDs = []string{}
	if r.TaskIDsJSON != "" {
		if err := json.Unmarshal([]byte(r.TaskIDsJSON), &p.TaskIDs); err != nil {
			return model.Project{}, fmt.Errorf("unmarshaling task_ids for project %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func encodeTaskIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshaling task_ids: %w", err)
	}
	return string(data), nil
}

// CreateProject inserts a new project owned by p.OwnerID.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("project title must not be empty")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.TaskIDs == nil {
		p.TaskIDs = []string{}
	}
	now := s.timestamp()
	p.CreatedAt = now
	p.UpdatedAt = now

	taskIDs, err := encodeTaskIDs(p.TaskIDs)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Title, p.Description, p.OwnerID, taskIDs, p.Progress, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves a single project by ID regardless of owner.
func (s *Store) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var row projectRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind("SELECT "+projectColumns+" FROM projects WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectsByOwner returns the owner's projects, newest first.
func (s *Store) GetProjectsByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	return s.selectProjects(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE owner_id = ? ORDER BY created_at DESC, id DESC",
		ownerID)
}

// GetAllProjects returns every project, oldest first.
func (s *Store) GetAllProjects(ctx context.Context) ([]model.Project, error) {
	return s.selectProjects(ctx,
		"SELECT "+projectColumns+" FROM projects ORDER BY created_at, id")
}

func (s *Store) selectProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}

	projects := make([]model.Project, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// CountProjectsByOwner returns how many projects the owner has.
func (s *Store) CountProjectsByOwner(ctx context.Context, ownerID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int
	err := s.db.GetContext(ctx, &n,
		s.db.Rebind("SELECT COUNT(*) FROM projects WHERE owner_id = ?"), ownerID)
	if err != nil {
		return 0, fmt.Errorf("counting projects for %s: %w", ownerID, err)
	}
	return n, nil
}

// UpdateProject applies a partial update restricted to ProjectUpdatable
// and returns the stored project.
func (s *Store) UpdateProject(ctx context.Context, id string, fields Fields) (*model.Project, error) {
	sets, args, err := setClause(fields, ProjectUpdatable)
	if err != nil {
		return nil, err
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, s.timestamp(), id)

		wctx, cancel := withTimeout(ctx)
		err = s.exec(wctx, "UPDATE projects SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		cancel()
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("updating project %s: %w", id, err)
		}
	}
	return s.GetProjectByID(ctx, id)
}

// SetProjectProgress stores a recomputed progress value.
func (s *Store) SetProjectProgress(ctx context.Context, id string, progress int) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := s.exec(ctx, "UPDATE projects SET progress = ?, updated_at = ? WHERE id = ?",
		progress, s.timestamp(), id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("setting progress for project %s: %w", id, err)
	}
	return err
}

// SetProjectTaskIDs replaces the project's task id list.
func (s *Store) SetProjectTaskIDs(ctx context.Context, id string, taskIDs []string) error {
	encoded, err := encodeTaskIDs(taskIDs)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err = s.exec(ctx, "UPDATE projects SET task_ids = ?, updated_at = ? WHERE id = ?",
		encoded, s.timestamp(), id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("setting task ids for project %s: %w", id, err)
	}
	return err
}

// AddProjectTask appends taskID to the project's task list. The read and
// the write are separate statements; a concurrent edit of the same list
// is overwritten.
func (s *Store) AddProjectTask(ctx context.Context, projectID, taskID string) error {
	p, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	for _, id := range p.TaskIDs {
		if id == taskID {
			return nil
		}
	}
	return s.SetProjectTaskIDs(ctx, projectID, append(p.TaskIDs, taskID))
}

// RemoveProjectTask drops taskID from the project's task list.
func (s *Store) RemoveProjectTask(ctx context.Context, projectID, taskID string) error {
	p, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(p.TaskIDs))
	for _, id := range p.TaskIDs {
		if id != taskID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(p.TaskIDs) {
		return nil
	}
	return s.SetProjectTaskIDs(ctx, projectID, kept)
}

// DeleteProject removes the project row only. Callers delete the
// project's tasks first with DeleteTasksByProject.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := s.exec(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return err
}
