package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harlequingg/project-tracker/internal/model"
)

const userColumns = `id, name, email, password_hash, country, theme, project_count, created_at, updated_at`

// NormalizeEmail is the canonical form used for uniqueness and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new user. ID and timestamps are assigned here.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Theme == "" {
		u.Theme = model.ThemeLight
	}
	now := s.timestamp()
	u.CreatedAt = now
	u.UpdatedAt = now

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Name, u.Email, u.PasswordHash, u.Country, u.Theme,
		u.ProjectCount, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, "email", NormalizeEmail(email))
}

func (s *Store) getUser(ctx context.Context, column, value string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u model.User
	err := s.db.GetContext(ctx, &u,
		s.db.Rebind("SELECT "+userColumns+" FROM users WHERE "+column+" = ?"), value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user by %s: %w", column, err)
	}
	return &u, nil
}

// UpdateUserTheme sets the user's theme preference.
func (s *Store) UpdateUserTheme(ctx context.Context, id, theme string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := s.exec(ctx, "UPDATE users SET theme = ?, updated_at = ? WHERE id = ?",
		theme, s.timestamp(), id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("updating theme for user %s: %w", id, err)
	}
	return err
}

// AdjustProjectCount adds delta to the user's mirrored project count,
// never going below zero.
func (s *Store) AdjustProjectCount(ctx context.Context, id string, delta int) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := s.exec(ctx, `
		UPDATE users SET
			project_count = CASE WHEN project_count + ? < 0 THEN 0 ELSE project_count + ? END,
			updated_at = ?
		WHERE id = ?`,
		delta, delta, s.timestamp(), id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("adjusting project count for user %s: %w", id, err)
	}
	return err
}

// ResetProjectCounts sets every user's project count to the number of
// projects they own.
func (s *Store) ResetProjectCounts(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET project_count = (
			SELECT COUNT(*) FROM projects WHERE projects.owner_id = users.id
		)
		WHERE project_count <> (
			SELECT COUNT(*) FROM projects WHERE projects.owner_id = users.id
		)`)
	if err != nil {
		return 0, fmt.Errorf("resetting project counts: %w", err)
	}
	return result.RowsAffected()
}
