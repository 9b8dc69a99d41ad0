package tracker

import (
	"context"
	"slices"

	"github.com/harlequingg/project-tracker/internal/progress"
)

// ReconcileReport counts what a Reconcile pass changed.
type ReconcileReport struct {
	OrphanTasksDeleted int64
	TaskListsRewritten int
	ProgressUpdated    int
	UserCountsReset    int64
}

// Reconcile repairs the leftovers of interrupted two-step writes:
//   - tasks whose project was deleted are removed
//   - each project's task list is rebuilt from the tasks referencing it
//   - each project's progress is recomputed
//   - each user's project count is reset to the projects they own
//
// Running it twice in a row changes nothing the second time.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	n, err := s.repo.DeleteOrphanTasks(ctx)
	if err != nil {
		return report, err
	}
	report.OrphanTasksDeleted = n

	projects, err := s.repo.GetAllProjects(ctx)
	if err != nil {
		return report, err
	}
	for _, p := range projects {
		ids, err := s.repo.TaskIDsForProject(ctx, p.ID)
		if err != nil {
			return report, err
		}
		if !sameSet(p.TaskIDs, ids) {
			if err := s.repo.SetProjectTaskIDs(ctx, p.ID, ids); err != nil {
				return report, err
			}
			report.TaskListsRewritten++
		}

		total, done, err := s.repo.CountProjectTasks(ctx, p.ID)
		if err != nil {
			return report, err
		}
		if want := progress.Percent(done, total); want != p.Progress {
			if err := s.repo.SetProjectProgress(ctx, p.ID, want); err != nil {
				return report, err
			}
			report.ProgressUpdated++
		}
	}

	report.UserCountsReset, err = s.repo.ResetProjectCounts(ctx)
	if err != nil {
		return report, err
	}

	s.logger.Printf("reconcile: %d orphan tasks deleted, %d task lists rewritten, %d progress values updated, %d user counts reset",
		report.OrphanTasksDeleted, report.TaskListsRewritten, report.ProgressUpdated, report.UserCountsReset)
	return report, nil
}

// sameSet reports whether a and b hold the same ids, ignoring order.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
