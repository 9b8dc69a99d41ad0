package tracker

import (
	"context"
	"strings"

	"github.com/harlequingg/project-tracker/internal/model"
	"github.com/harlequingg/project-tracker/internal/store"
)

// TaskQuery holds the raw task listing parameters. Empty values and "all"
// disable a clause.
type TaskQuery struct {
	Project  string
	Status   string
	Priority string
	DueDate  string // "today" or "week"
	Search   string
	SortBy   string // "<field>" or "<field>:<asc|desc>"
}

func active(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

// Filter validates q and turns it into a store filter scoped to ownerID.
func (q TaskQuery) Filter(ownerID string) (store.TaskFilter, error) {
	f := store.TaskFilter{
		OwnerID:   ownerID,
		ProjectID: active(q.Project),
		Status:    active(q.Status),
		Priority:  active(q.Priority),
		DueDate:   active(q.DueDate),
		Search:    strings.TrimSpace(q.Search),
	}

	v := newValidator()
	v.checkCond(f.Status == "" || model.ValidStatus(f.Status), "status", "must be To Do, In Progress, Done or all")
	v.checkCond(f.Priority == "" || model.ValidPriority(f.Priority), "priority", "must be High, Medium, Low or all")
	v.checkCond(f.DueDate == "" || f.DueDate == store.DueToday || f.DueDate == store.DueWeek,
		"dueDate", "must be today, week or all")

	if sortBy := strings.TrimSpace(q.SortBy); sortBy != "" {
		field, dir, _ := strings.Cut(sortBy, ":")
		_, ok := store.TaskSortable[field]
		v.checkCond(ok, "sortBy", "unknown sort field")
		v.checkCond(dir == "" || dir == "asc" || dir == "desc", "sortBy", "direction must be asc or desc")
		f.SortBy = field
		f.SortDesc = dir == "desc"
	}

	if v.hasErrors() {
		return store.TaskFilter{}, v.toError()
	}
	return f, nil
}

// ListTasks returns u's tasks matching q. Ownership scoping is applied
// before any of q's clauses and cannot be switched off.
func (s *Service) ListTasks(ctx context.Context, u *model.User, q TaskQuery) ([]model.Task, error) {
	f, err := q.Filter(u.ID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetTasks(ctx, f)
}
