package model

import "time"

// Theme values accepted for a user's display preference.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// MaxProjectsPerUser is the ceiling mirrored by User.ProjectCount.
const MaxProjectsPerUser = 4

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	Country      string    `json:"country" db:"country"`
	Theme        string    `json:"theme" db:"theme"`
	ProjectCount int       `json:"projectCount" db:"project_count"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// ValidTheme reports whether t is a known theme.
func ValidTheme(t string) bool {
	return t == ThemeLight || t == ThemeDark
}
