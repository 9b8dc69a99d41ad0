// Package tracker holds the operations behind the HTTP API: accounts,
// ownership-scoped project and task access, and progress upkeep.
//
// The caller's identity is always an explicit *model.User parameter,
// resolved once per request by Authenticate.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/harlequingg/project-tracker/internal/auth"
	"github.com/harlequingg/project-tracker/internal/model"
	"github.com/harlequingg/project-tracker/internal/progress"
	"github.com/harlequingg/project-tracker/internal/store"
)

// Repository is the entity storage the service works against.
type Repository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUserTheme(ctx context.Context, id, theme string) error
	AdjustProjectCount(ctx context.Context, id string, delta int) error
	ResetProjectCounts(ctx context.Context) (int64, error)

	CreateProject(ctx context.Context, p *model.Project) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetProjectsByOwner(ctx context.Context, ownerID string) ([]model.Project, error)
	GetAllProjects(ctx context.Context) ([]model.Project, error)
	CountProjectsByOwner(ctx context.Context, ownerID string) (int, error)
	UpdateProject(ctx context.Context, id string, fields store.Fields) (*model.Project, error)
	SetProjectTaskIDs(ctx context.Context, id string, taskIDs []string) error
	AddProjectTask(ctx context.Context, projectID, taskID string) error
	RemoveProjectTask(ctx context.Context, projectID, taskID string) error
	DeleteProject(ctx context.Context, id string) error

	CreateTask(ctx context.Context, t *model.Task) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasksByIDs(ctx context.Context, ids []string) ([]model.Task, error)
	GetTasks(ctx context.Context, filter store.TaskFilter) ([]model.Task, error)
	UpdateTask(ctx context.Context, id string, fields store.Fields) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	DeleteTasksByProject(ctx context.Context, projectID string) (int64, error)
	DeleteOrphanTasks(ctx context.Context) (int64, error)
	TaskIDsForProject(ctx context.Context, projectID string) ([]string, error)

	progress.Repository
}

// Service implements the tracker operations.
type Service struct {
	repo     Repository
	tokens   *auth.Tokens
	progress *progress.Aggregator
	logger   *log.Logger
}

// New returns a Service. A nil logger uses the standard logger.
func New(repo Repository, tokens *auth.Tokens, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		progress: progress.New(repo),
		logger:   logger,
	}
}

// Session is the result of a successful registration or login.
type Session struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"-"`
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

const invalidCredentials = "Invalid email or password"

// Register creates an account and signs the caller in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = store.NormalizeEmail(in.Email)
	in.Country = strings.TrimSpace(in.Country)

	v := newValidator()
	v.checkCond(in.Name != "", "name", "must be provided")
	v.checkCond(len(in.Name) <= 255, "name", "must be at most 255 characters")
	v.checkEmail(in.Email)
	v.checkPassword(in.Password)
	v.checkCond(in.Country != "", "country", "must be provided")
	if v.hasErrors() {
		return nil, v.toError()
	}

	_, err := s.repo.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, conflict("Email already registered")
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Country:      in.Country,
		Theme:        model.ThemeLight,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, conflict("Email already registered")
		}
		return nil, err
	}

	return s.session(u)
}

// Login verifies the credentials and issues a token. An unknown email and
// a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var hash []byte
	if u != nil {
		hash = u.PasswordHash
	}
	ok, err := auth.CheckPassword(hash, password)
	if err != nil {
		return nil, fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		return nil, unauthorized(invalidCredentials)
	}

	return s.session(u)
}

func (s *Service) session(u *model.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to its user. Any failure, including
// a user that no longer exists, is ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, unauthorized("invalid or expired token")
	}
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, unauthorized("user no longer exists")
		}
		return nil, err
	}
	return u, nil
}

// SetTheme stores the user's theme preference.
func (s *Service) SetTheme(ctx context.Context, u *model.User, theme string) (string, error) {
	if !model.ValidTheme(theme) {
		return "", validationf("Invalid theme value")
	}
	if err := s.repo.UpdateUserTheme(ctx, u.ID, theme); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", unauthorized("user no longer exists")
		}
		return "", err
	}
	u.Theme = theme
	return theme, nil
}
