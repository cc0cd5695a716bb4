package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/dbx"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
)

const userDataColumns = `id, search_history, interests, view_history, review_history,
	genres, created_at, updated_at`

type userDataRepo struct {
	q dbx.DBTX
}

var _ repository.UserDataRepository = (*userDataRepo)(nil)

// Create inserts the document; nil lists are stored as "[]".
func (r *userDataRepo) Create(ctx context.Context, data *model.UserData) error {
	now := time.Now().UTC()
	err := r.q.QueryRowxContext(ctx, r.q.Rebind(
		`INSERT INTO user_data (search_history, interests, view_history, review_history,
			genres, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		data.SearchHistory,
		data.Interests,
		data.ViewHistory,
		data.ReviewHistory,
		data.Genres,
		now,
		now,
	).Scan(&data.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: creating user data: %w", translate(err))
	}

	data.CreatedAt = now
	data.UpdatedAt = now
	return nil
}

func (r *userDataRepo) GetByID(ctx context.Context, id int64) (*model.UserData, error) {
	var d model.UserData
	err := r.q.GetContext(ctx, &d, r.q.Rebind(
		`SELECT `+userDataColumns+` FROM user_data WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User data", "")
		}
		return nil, fmt.Errorf("sqlstore: getting user data %d: %w", id, err)
	}
	return &d, nil
}

// Update replaces each non-nil list wholesale.
func (r *userDataRepo) Update(ctx context.Context, id int64, upd model.UserDataUpdate) error {
	var set setClause
	set.add("search_history", upd.SearchHistory)
	set.add("interests", upd.Interests)
	set.add("view_history", upd.ViewHistory)
	set.add("review_history", upd.ReviewHistory)
	set.add("genres", upd.Genres)
	if set.empty() {
		return nil
	}

	res, err := r.q.ExecContext(ctx, r.q.Rebind(set.sql("user_data", "id")), set.args(id)...)
	if err != nil {
		return fmt.Errorf("sqlstore: updating user data %d: %w", id, err)
	}
	return requireRow(res, apperror.NotFound("User data", ""))
}

// Delete removes the document. Deleting a missing id is not an error.
func (r *userDataRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM user_data WHERE id = ?`), id); err != nil {
		return fmt.Errorf("sqlstore: deleting user data %d: %w", id, err)
	}
	return nil
}
