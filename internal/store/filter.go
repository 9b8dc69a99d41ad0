package store

import (
	"fmt"
	"strings"
	"time"
)

// Due-date buckets understood by TaskFilter.
const (
	DueToday = "today"
	DueWeek  = "week"
)

// TaskFilter controls filtering and sorting for task listings. OwnerID is
// mandatory: only tasks whose project is owned by OwnerID are returned.
// Empty fields are no-ops.
type TaskFilter struct {
	OwnerID   string
	ProjectID string
	Status    string
	Priority  string
	DueDate   string // DueToday or DueWeek
	Search    string // case-insensitive substring of the title
	SortBy    string // API field name, see TaskSortable
	SortDesc  bool
}

// TaskSortable maps sortable API field names to SQL expressions.
var TaskSortable = map[string]string{
	"createdAt": "t.created_at",
	"updatedAt": "t.updated_at",
	"dueDate":   "t.due_date",
	"title":     "t.title",
	"status":    "t.status",
	"priority":  "CASE t.priority WHEN 'High' THEN 3 WHEN 'Medium' THEN 2 ELSE 1 END",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// dueRange returns the [from, to) window for a bucket in now's location.
func dueRange(bucket string, now time.Time) (time.Time, time.Time, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch bucket {
	case DueToday:
		return today, today.AddDate(0, 0, 1), nil
	case DueWeek:
		return today, today.AddDate(0, 0, 7), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown due date bucket %q", bucket)
}

// buildTaskQuery constructs the SQL query and args for a TaskFilter. lower
// names the SQL function that lowercases the title the same way
// strings.ToLower lowercases the search term.
func buildTaskQuery(filter TaskFilter, now time.Time, lower string) (string, []any, error) {
	if filter.OwnerID == "" {
		return "", nil, fmt.Errorf("task query requires an owner")
	}

	conditions := []string{"p.owner_id = ?"}
	args := []any{filter.OwnerID}

	if filter.ProjectID != "" {
		conditions = append(conditions, "t.project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "t.status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		conditions = append(conditions, "t.priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.DueDate != "" {
		from, to, err := dueRange(filter.DueDate, now)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, "t.due_date >= ? AND t.due_date < ?")
		args = append(args, from.UTC(), to.UTC())
	}
	if filter.Search != "" {
		conditions = append(conditions, lower+`(t.title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(filter.Search))+"%")
	}

	query := "SELECT " + prefixed("t", taskColumns) +
		" FROM tasks t INNER JOIN projects p ON p.id = t.project_id" +
		" WHERE " + strings.Join(conditions, " AND ")

	order := "t.created_at DESC, t.id DESC"
	if filter.SortBy != "" {
		expr, ok := TaskSortable[filter.SortBy]
		if !ok {
			return "", nil, fmt.Errorf("cannot sort tasks by %q", filter.SortBy)
		}
		direction := "ASC"
		if filter.SortDesc {
			direction = "DESC"
		}
		order = fmt.Sprintf("%s %s, %s", expr, direction, order)
		if filter.SortBy == "dueDate" {
			// Undated tasks go last on both engines.
			order = "t.due_date IS NULL, " + order
		}
	}
	query += " ORDER BY " + order

	return query, args, nil
}

func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
