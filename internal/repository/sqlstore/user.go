package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/dbx"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
)

const userColumns = `id, name, email, password, profile_pic, theme_preference,
	user_data_id, google_id, created_at, updated_at`

type userRepo struct {
	q dbx.DBTX
}

var _ repository.UserRepository = (*userRepo)(nil)

// Create inserts the user and fills in ID and timestamps.
func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.ThemePreference == "" {
		user.ThemePreference = model.ThemeLight
	}

	err := r.q.QueryRowxContext(ctx, r.q.Rebind(
		`INSERT INTO users (name, email, password, profile_pic, theme_preference,
			user_data_id, google_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.ProfilePic,
		user.ThemePreference,
		user.UserDataID,
		user.GoogleID,
		now,
		now,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: creating user %q: %w", user.Name, translate(err))
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getBy(ctx, "id", false, id, strconv.FormatInt(id, 10))
}

// GetByEmail matches case-insensitively, like the unique index on email.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", true, email, "")
}

// GetByName matches case-insensitively, like the unique index on name.
func (r *userRepo) GetByName(ctx context.Context, name string) (*model.User, error) {
	return r.getBy(ctx, "name", true, name, "")
}

func (r *userRepo) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.getBy(ctx, "google_id", false, googleID, "")
}

// getBy loads one user by a unique column. column is never user input.
// caseless compares LOWER(column) = LOWER(value).
func (r *userRepo) getBy(ctx context.Context, column string, caseless bool, value any, label string) (*model.User, error) {
	where := column + ` = ?`
	if caseless {
		where = `LOWER(` + column + `) = LOWER(?)`
	}

	var u model.User
	err := r.q.GetContext(ctx, &u, r.q.Rebind(
		`SELECT `+userColumns+` FROM users WHERE `+where), value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User", label)
		}
		return nil, fmt.Errorf("sqlstore: getting user by %s: %w", column, err)
	}
	return &u, nil
}

// Update writes only the non-nil fields of upd.
func (r *userRepo) Update(ctx context.Context, id int64, upd model.UserUpdate) error {
	var set setClause
	set.add("name", upd.Name)
	set.add("theme_preference", upd.ThemePreference)
	set.add("profile_pic", upd.ProfilePic)
	if set.empty() {
		return nil
	}
	return r.exec(ctx, id, "updating user", set.sql("users", "id"), set.args(id)...)
}

func (r *userRepo) SetGoogleID(ctx context.Context, id int64, googleID string) error {
	return r.exec(ctx, id, "linking google account",
		`UPDATE users SET google_id = ?, updated_at = ? WHERE id = ?`,
		googleID, time.Now().UTC(), id)
}

func (r *userRepo) SetUserDataID(ctx context.Context, id int64, userDataID *int64) error {
	return r.exec(ctx, id, "linking user data",
		`UPDATE users SET user_data_id = ?, updated_at = ? WHERE id = ?`,
		userDataID, time.Now().UTC(), id)
}

// exec runs an UPDATE that targets exactly one user and reports NotFound
// when no row matched.
func (r *userRepo) exec(ctx context.Context, id int64, op, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("sqlstore: %s %d: %w", op, id, translate(err))
	}
	return requireRow(res, apperror.NotFound("User", strconv.FormatInt(id, 10)))
}

// requireRow returns notFound when the statement matched no row.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// setClause builds the SET list of a partial UPDATE.
type setClause struct {
	cols []string
	vals []any
}

// add records column = *v. v must be a pointer; nil pointers are skipped.
func (s *setClause) add(column string, v any) {
	switch p := v.(type) {
	case *string:
		if p != nil {
			s.push(column, *p)
		}
	case *int:
		if p != nil {
			s.push(column, *p)
		}
	case *model.StringList:
		if p != nil {
			s.push(column, *p)
		}
	default:
		panic(fmt.Sprintf("sqlstore: unsupported update type %T", v))
	}
}

func (s *setClause) push(column string, v any) {
	s.cols = append(s.cols, column+" = ?")
	s.vals = append(s.vals, v)
}

func (s *setClause) empty() bool { return len(s.cols) == 0 }

// sql renders "UPDATE table SET a = ?, ..., updated_at = ? WHERE key = ?".
func (s *setClause) sql(table, key string) string {
	return `UPDATE ` + table + ` SET ` + strings.Join(s.cols, ", ") +
		`, updated_at = ? WHERE ` + key + ` = ?`
}

// args returns the SET values followed by updated_at and the row id.
func (s *setClause) args(id int64) []any {
	return append(append([]any{}, s.vals...), time.Now().UTC(), id)
}
