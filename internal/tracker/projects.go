package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/harlequingg/project-tracker/internal/model"
	"github.com/harlequingg/project-tracker/internal/store"
)

// Patch is a partial update as received from a client, keyed by field name.
type Patch map[string]json.RawMessage

// checkAllowed rejects a patch naming any field outside allowed.
func (p Patch) checkAllowed(allowed map[string]string) error {
	var bad []string
	for name := range p {
		if _, ok := allowed[name]; !ok {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return &Error{Kind: ErrValidation, Msg: "Invalid updates: " + strings.Join(bad, ", ")}
	}
	return nil
}

// ProjectInput is the data needed to create a project.
type ProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateProject creates a project for u unless u already owns
// MaxProjectsPerUser projects. The count and the insert are separate
// statements, so concurrent creations by one user can exceed the limit.
func (s *Service) CreateProject(ctx context.Context, u *model.User, in ProjectInput) (*model.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	v := newValidator()
	v.checkTitle(in.Title)
	if v.hasErrors() {
		return nil, v.toError()
	}

	owned, err := s.repo.CountProjectsByOwner(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if owned >= model.MaxProjectsPerUser {
		return nil, validationf("Maximum project limit (%d) reached", model.MaxProjectsPerUser)
	}

	p := &model.Project{
		Title:       in.Title,
		Description: in.Description,
		OwnerID:     u.ID,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	p.Tasks = []model.Task{}

	if err := s.repo.AdjustProjectCount(ctx, u.ID, 1); err != nil {
		s.logger.Printf("project %s created but project count of user %s not updated: %v", p.ID, u.ID, err)
	} else {
		u.ProjectCount++
	}
	return p, nil
}

// ListProjects returns u's projects with their tasks, newest first.
func (s *Service) ListProjects(ctx context.Context, u *model.User) ([]model.Project, error) {
	projects, err := s.repo.GetProjectsByOwner(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if err := s.populate(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// GetProject returns a project owned by u with its tasks.
func (s *Service) GetProject(ctx context.Context, u *model.User, id string) (*model.Project, error) {
	p, err := s.ownedProject(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProject applies a patch of title, description and progress. A
// progress value here overrides the computed one until the next task
// event recomputes it.
func (s *Service) UpdateProject(ctx context.Context, u *model.User, id string, patch Patch) (*model.Project, error) {
	if err := patch.checkAllowed(store.ProjectUpdatable); err != nil {
		return nil, err
	}
	fields, err := projectFields(patch)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, u, id); err != nil {
		return nil, err
	}

	p, err := s.repo.UpdateProject(ctx, id, fields)
	if err != nil {
		return nil, s.mapStoreErr(err, "Project")
	}
	if err := s.populate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func projectFields(patch Patch) (store.Fields, error) {
	fields := store.Fields{}
	v := newValidator()
	for name, raw := range patch {
		switch name {
		case "title":
			var title string
			if err := json.Unmarshal(raw, &title); err != nil {
				v.checkCond(false, name, "must be a string")
				continue
			}
			title = strings.TrimSpace(title)
			v.checkTitle(title)
			fields[name] = title
		case "description":
			var desc string
			if err := json.Unmarshal(raw, &desc); err != nil {
				v.checkCond(false, name, "must be a string")
				continue
			}
			fields[name] = strings.TrimSpace(desc)
		case "progress":
			var p int
			if err := json.Unmarshal(raw, &p); err != nil {
				v.checkCond(false, name, "must be an integer")
				continue
			}
			v.checkCond(p >= 0 && p <= 100, name, "must be between 0 and 100")
			fields[name] = p
		}
	}
	if v.hasErrors() {
		return nil, v.toError()
	}
	return fields, nil
}

// DeleteProject deletes the project's tasks, then the project, then
// decrements the owner's project count. The steps are independent writes:
// if one fails after an earlier one succeeded, the leftovers are removed
// by Reconcile.
func (s *Service) DeleteProject(ctx context.Context, u *model.User, id string) (*model.Project, error) {
	p, err := s.ownedProject(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, p); err != nil {
		return nil, err
	}

	if _, err := s.repo.DeleteTasksByProject(ctx, p.ID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteProject(ctx, p.ID); err != nil {
		return nil, s.mapStoreErr(err, "Project")
	}

	if err := s.repo.AdjustProjectCount(ctx, u.ID, -1); err != nil {
		s.logger.Printf("project %s deleted but project count of user %s not updated: %v", p.ID, u.ID, err)
	} else if u.ProjectCount > 0 {
		u.ProjectCount--
	}
	return p, nil
}

// ownedProject loads a project and checks that u owns it. A project owned
// by someone else is ErrForbidden; a missing one is ErrNotFound.
func (s *Service) ownedProject(ctx context.Context, u *model.User, id string) (*model.Project, error) {
	p, err := s.repo.GetProjectByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(err, "Project")
	}
	if p.OwnerID != u.ID {
		return nil, forbidden("Not authorized to access this project")
	}
	return p, nil
}

// populate lists the tasks that reference p, oldest first. The stored
// task id list can miss an id after concurrent task creation, so it is
// not used here.
func (s *Service) populate(ctx context.Context, p *model.Project) error {
	ids, err := s.repo.TaskIDsForProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("listing tasks of project %s: %w", p.ID, err)
	}
	p.TaskIDs = ids
	tasks, err := s.repo.GetTasksByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading tasks of project %s: %w", p.ID, err)
	}
	p.Tasks = tasks
	return nil
}

// mapStoreErr turns repository sentinels into service error kinds.
func (s *Service) mapStoreErr(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound(what)
	case errors.Is(err, store.ErrDisallowedField):
		return &Error{Kind: ErrValidation, Msg: "Invalid updates"}
	case errors.Is(err, store.ErrDuplicateEmail):
		return conflict("Email already registered")
	}
	return err
}
