package tracker_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/harlequingg/project-tracker/internal/auth"
	"github.com/harlequingg/project-tracker/internal/model"
	"github.com/harlequingg/project-tracker/internal/store"
	"github.com/harlequingg/project-tracker/internal/testutil"
	"github.com/harlequingg/project-tracker/internal/tracker"
)

var start = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return testutil.NewTestStore(t, store.WithClock(testutil.NewClock(start).Now))
}

func newTestService(t *testing.T) (*tracker.Service, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	svc := tracker.New(st, auth.NewTokens([]byte("test-secret"), time.Hour), log.New(io.Discard, "", 0))
	return svc, st
}

func register(t *testing.T, svc *tracker.Service, email string) *model.User {
	t.Helper()
	sess, err := svc.Register(context.Background(), tracker.RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "secret123",
		Country:  "NZ",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return sess.User
}

func createProject(t *testing.T, svc *tracker.Service, u *model.User, title string) *model.Project {
	t.Helper()
	p, err := svc.CreateProject(context.Background(), u, tracker.ProjectInput{Title: title})
	if err != nil {
		t.Fatalf("CreateProject(%s): %v", title, err)
	}
	return p
}

func createTask(t *testing.T, svc *tracker.Service, u *model.User, p *model.Project, in tracker.TaskInput) *model.Task {
	t.Helper()
	in.ProjectID = p.ID
	if in.Title == "" {
		in.Title = "task"
	}
	task, err := svc.CreateTask(context.Background(), u, in)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func patch(kv ...string) tracker.Patch {
	p := tracker.Patch{}
	for i := 0; i+1 < len(kv); i += 2 {
		p[kv[i]] = json.RawMessage(kv[i+1])
	}
	return p
}

func setStatus(t *testing.T, svc *tracker.Service, u *model.User, taskID, status string) *model.Task {
	t.Helper()
	task, err := svc.UpdateTask(context.Background(), u, taskID, patch("status", `"`+status+`"`))
	if err != nil {
		t.Fatalf("UpdateTask(%s -> %s): %v", taskID, status, err)
	}
	return task
}

func progressOf(t *testing.T, svc *tracker.Service, u *model.User, projectID string) int {
	t.Helper()
	p, err := svc.GetProject(context.Background(), u, projectID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	return p.Progress
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), tracker.RegisterInput{
		Name:     "",
		Email:    "not-an-email",
		Password: "123",
		Country:  "NZ",
	})
	var te *tracker.Error
	if !errors.As(err, &te) || !errors.Is(err, tracker.ErrValidation) {
		t.Fatalf("expected validation error; got %v", err)
	}
	for _, field := range []string{"name", "email", "password"} {
		if _, ok := te.Fields[field]; !ok {
			t.Fatalf("expected a message for %s; got %v", field, te.Fields)
		}
	}
	if _, ok := te.Fields["country"]; ok {
		t.Fatalf("country was valid; got %v", te.Fields)
	}
}

func TestRegister_DuplicateEmailIgnoresCase(t *testing.T) {
	svc, _ := newTestService(t)
	u := register(t, svc, "Ada@Example.com")
	if u.Email != "ada@example.com" {
		t.Fatalf("expected normalized email; got %q", u.Email)
	}
	if u.Theme != model.ThemeLight {
		t.Fatalf("expected light theme by default; got %q", u.Theme)
	}

	_, err := svc.Register(context.Background(), tracker.RegisterInput{
		Name: "Other", Email: "ADA@example.com", Password: "secret123", Country: "NZ",
	})
	if !errors.Is(err, tracker.ErrConflict) {
		t.Fatalf("expected ErrConflict; got %v", err)
	}
	if err.Error() != "Email already registered" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRegister_SessionTokenAuthenticates(t *testing.T) {
	svc, _ := newTestService(t)
	sess, err := svc.Register(context.Background(), tracker.RegisterInput{
		Name: "Ada", Email: "ada@example.com", Password: "secret123", Country: "NZ",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.Token == "" {
		t.Fatalf("expected a token")
	}

	u, err := svc.Authenticate(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != sess.User.ID {
		t.Fatalf("token resolved to %s; want %s", u.ID, sess.User.ID)
	}

	if _, err := svc.Authenticate(context.Background(), sess.Token+"x"); !errors.Is(err, tracker.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for tampered token; got %v", err)
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	st := newTestStore(t)
	tokens := auth.NewTokens([]byte("test-secret"), time.Hour)
	svc := tracker.New(st, tokens, log.New(io.Discard, "", 0))

	token, _, err := tokens.Issue("ghost")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, tracker.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized; got %v", err)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailAreIdentical(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "ada@example.com")

	sess, err := svc.Login(context.Background(), "ADA@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token == "" || sess.User.Email != "ada@example.com" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	_, wrongPassword := svc.Login(context.Background(), "ada@example.com", "secret124")
	_, unknownEmail := svc.Login(context.Background(), "nobody@example.com", "secret123")

	for _, err := range []error{wrongPassword, unknownEmail} {
		if !errors.Is(err, tracker.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized; got %v", err)
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPassword.Error(), unknownEmail.Error())
	}
}

func TestSetTheme(t *testing.T) {
	svc, st := newTestService(t)
	u := register(t, svc, "ada@example.com")

	theme, err := svc.SetTheme(context.Background(), u, model.ThemeDark)
	if err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	if theme != model.ThemeDark || u.Theme != model.ThemeDark {
		t.Fatalf("expected dark; got %q / %q", theme, u.Theme)
	}
	stored, err := st.GetUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if stored.Theme != model.ThemeDark {
		t.Fatalf("expected stored theme dark; got %q", stored.Theme)
	}

	_, err = svc.SetTheme(context.Background(), u, "blue")
	if !errors.Is(err, tracker.ErrValidation) || err.Error() != "Invalid theme value" {
		t.Fatalf("expected Invalid theme value; got %v", err)
	}
}

type failingProgressRepo struct {
	*store.Store
}

func (failingProgressRepo) SetProjectProgress(ctx context.Context, id string, progress int) error {
	return errors.New("disk full")
}

func TestRecomputeFailureIsLoggedNotReturned(t *testing.T) {
	st := newTestStore(t)
	var buf bytes.Buffer
	svc := tracker.New(failingProgressRepo{st}, auth.NewTokens([]byte("test-secret"), time.Hour), log.New(&buf, "", 0))

	u := register(t, svc, "ada@example.com")
	p := createProject(t, svc, u, "Launch")
	task := createTask(t, svc, u, p, tracker.TaskInput{})

	if _, err := st.GetTaskByID(context.Background(), task.ID); err != nil {
		t.Fatalf("task write must survive a failed recompute: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("left stale")) {
		t.Fatalf("expected recompute failure to be logged; got %q", buf.String())
	}
}
