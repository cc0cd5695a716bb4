package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
	"github.com/sakif/gameratings/internal/repository/sqlstore"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================
//
// Services run against a real in-memory SQLite store: the SQL is already
// covered by the sqlstore tests, and a real store keeps transaction
// behaviour honest. Outbound collaborators (completion API, object
// storage, cache) are hand-written fakes.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), sqlstore.Options{
		Driver: sqlstore.DriverSQLite,
		DSN:    ":memory:",
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("sqlstore.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestAuthService(t *testing.T, store repository.Store) *AuthService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	// Cost 4 is the bcrypt minimum; keeps tests fast.
	return NewAuthService(store, ts, auth.NewPasswordServiceForTest(4), testLogger())
}

// registerUser creates an account (with its preference document) and
// returns the context of that user being logged in.
func registerUser(t *testing.T, store repository.Store, name string) (context.Context, *model.User) {
	t.Helper()
	res, err := newTestAuthService(t, store).Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register(%q) error = %v", name, err)
	}
	return auth.WithUser(context.Background(), res.User), res.User
}

func createGame(t *testing.T, store repository.Store, title string) int64 {
	t.Helper()
	g := &model.Game{Title: title, Genre: "Action", GameMode: model.GameModeSingle, ReviewRating: 8}
	if err := store.Games().Create(context.Background(), g); err != nil {
		t.Fatalf("Games().Create(%q) error = %v", title, err)
	}
	return g.ID
}

func ptr[T any](v T) *T { return &v }

// assertAppError fails unless err wraps sentinel and carries message.
// An empty message skips the message check.
func assertAppError(t *testing.T, err, sentinel error, message string) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want it to wrap %v", err, sentinel)
	}
	if message == "" {
		return
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %T, want *apperror.AppError", err)
	}
	if appErr.Message != message {
		t.Errorf("message = %q, want %q", appErr.Message, message)
	}
}

// fakeInvalidator records cache invalidations.
type fakeInvalidator struct {
	calls []int64
	err   error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, userID int64) error {
	f.calls = append(f.calls, userID)
	return f.err
}

// fakeUploader pretends to store avatars.
type fakeUploader struct {
	gotUser int64
	gotBody string
	err     error
}

func (f *fakeUploader) UploadAvatar(_ context.Context, userID int64, filename, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(body)
	f.gotUser, f.gotBody = userID, string(b)
	return "https://cdn.example.com/avatars/" + filename, nil
}
