package model

import "time"

// Project groups tasks owned by a single user. Progress is derived from
// the Done/total ratio of the tasks that reference the project.
type Project struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	OwnerID     string    `json:"owner" db:"owner_id"`
	TaskIDs     []string  `json:"-" db:"-"`
	Progress    int       `json:"progress" db:"progress"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// Tasks is populated from TaskIDs for API responses.
	Tasks []Task `json:"tasks" db:"-"`
}
