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

const reviewColumns = `review_id, user_id, game_id, rating, review_text, created_at, updated_at`

type reviewRepo struct {
	q dbx.DBTX
}

var _ repository.ReviewRepository = (*reviewRepo)(nil)

func (r *reviewRepo) Create(ctx context.Context, review *model.Review) error {
	now := time.Now().UTC()
	err := r.q.QueryRowxContext(ctx, r.q.Rebind(
		`INSERT INTO reviews (user_id, game_id, rating, review_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING review_id`),
		review.UserID,
		review.GameID,
		review.Rating,
		review.ReviewText,
		now,
		now,
	).Scan(&review.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: creating review for game %d: %w", review.GameID, err)
	}

	review.CreatedAt = now
	review.UpdatedAt = now
	return nil
}

func (r *reviewRepo) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	var rv model.Review
	err := r.q.GetContext(ctx, &rv, r.q.Rebind(
		`SELECT `+reviewColumns+` FROM reviews WHERE review_id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Review", "")
		}
		return nil, fmt.Errorf("sqlstore: getting review %d: %w", id, err)
	}
	return &rv, nil
}

// ListByGame returns the game's reviews, oldest first.
func (r *reviewRepo) ListByGame(ctx context.Context, gameID int64) ([]model.Review, error) {
	reviews := []model.Review{}
	err := r.q.SelectContext(ctx, &reviews, r.q.Rebind(
		`SELECT `+reviewColumns+` FROM reviews WHERE game_id = ? ORDER BY review_id`), gameID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing reviews for game %d: %w", gameID, err)
	}
	return reviews, nil
}

func (r *reviewRepo) Update(ctx context.Context, id int64, upd model.ReviewUpdate) error {
	var set setClause
	set.add("rating", upd.Rating)
	set.add("review_text", upd.ReviewText)
	if set.empty() {
		return nil
	}

	res, err := r.q.ExecContext(ctx, r.q.Rebind(set.sql("reviews", "review_id")), set.args(id)...)
	if err != nil {
		return fmt.Errorf("sqlstore: updating review %d: %w", id, err)
	}
	return requireRow(res, apperror.NotFound("Review", ""))
}

func (r *reviewRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM reviews WHERE review_id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting review %d: %w", id, err)
	}
	return requireRow(res, apperror.NotFound("Review", ""))
}
