// Package progress keeps a project's completion percentage in line with
// the status of the tasks that reference it.
//
// A recompute runs after the task write that triggered it, as a separate
// operation. If the process stops in between, the stored value stays stale
// until the next recompute for that project.
package progress

import (
	"context"
	"fmt"
)

// Percent returns round-half-up(100 * done / total), or 0 when total is 0.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	if done < 0 {
		done = 0
	}
	if done > total {
		done = total
	}
	return (200*done + total) / (2 * total)
}

// Repository is the storage the aggregator reads counts from and writes
// the result to.
type Repository interface {
	CountProjectTasks(ctx context.Context, projectID string) (total, done int, err error)
	SetProjectProgress(ctx context.Context, projectID string, progress int) error
}

// Aggregator recomputes project progress.
type Aggregator struct {
	repo Repository
}

// New returns an Aggregator backed by repo.
func New(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Recompute counts the project's tasks, stores the new percentage and
// returns it.
func (a *Aggregator) Recompute(ctx context.Context, projectID string) (int, error) {
	total, done, err := a.repo.CountProjectTasks(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("recomputing progress of project %s: %w", projectID, err)
	}
	p := Percent(done, total)
	if err := a.repo.SetProjectProgress(ctx, projectID, p); err != nil {
		return 0, fmt.Errorf("recomputing progress of project %s: %w", projectID, err)
	}
	return p, nil
}
