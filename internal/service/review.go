package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
	"github.com/sakif/gameratings/internal/validation"
)

const (
	MsgReviewFieldsMissing = "Missing required fields: game_id, rating, or review_text"
	MsgNoReviews           = "No reviews found for this game"
)

// ReviewService manages reviews. Authors are always taken from the
// authenticated identity in the context.
type ReviewService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewReviewService(store repository.Store, logger *slog.Logger) *ReviewService {
	return &ReviewService{store: store, logger: logger}
}

// CreateReviewInput is the body of POST /api/reviews. Pointers tell a
// missing field apart from a zero value.
type CreateReviewInput struct {
	GameID     *int64  `json:"game_id"`
	Rating     *int    `json:"rating"      validate:"omitempty,min=1,max=10"`
	ReviewText *string `json:"review_text" validate:"omitempty,max=5000"`
}

// Create stores a review by the caller. In the same transaction the new
// review id is appended to the caller's review_history, when the caller
// has a preference document.
func (s *ReviewService) Create(ctx context.Context, in CreateReviewInput) (int64, error) {
	author, ok := auth.UserFromContext(ctx)
	if !ok {
		return 0, apperror.Unauthorized(auth.MsgNoToken)
	}
	if in.GameID == nil || in.Rating == nil || in.ReviewText == nil || strings.TrimSpace(*in.ReviewText) == "" {
		return 0, apperror.ValidationFailed("", MsgReviewFieldsMissing)
	}
	if err := validation.Struct(&in); err != nil {
		return 0, err
	}

	review := &model.Review{
		UserID:     author.ID,
		GameID:     *in.GameID,
		Rating:     *in.Rating,
		ReviewText: *in.ReviewText,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Games().GetByID(ctx, review.GameID); err != nil {
			return err
		}
		if err := tx.Reviews().Create(ctx, review); err != nil {
			return fmt.Errorf("creating review: %w", err)
		}

		user, err := tx.Users().GetByID(ctx, author.ID)
		if err != nil {
			return fmt.Errorf("loading author: %w", err)
		}
		if user.UserDataID == nil {
			return nil
		}
		data, err := tx.UserData().GetByID(ctx, *user.UserDataID)
		if err != nil {
			return fmt.Errorf("loading author preferences: %w", err)
		}
		history := append(data.ReviewHistory, strconv.FormatInt(review.ID, 10))
		return tx.UserData().Update(ctx, data.ID, model.UserDataUpdate{ReviewHistory: &history})
	})
	if err != nil {
		return 0, fmt.Errorf("service/review: creating review: %w", err)
	}

	s.logger.Info("review created",
		slog.Int64("reviewID", review.ID),
		slog.Int64("gameID", review.GameID),
		slog.Int64("userID", author.ID),
	)
	return review.ID, nil
}

func (s *ReviewService) Get(ctx context.Context, id int64) (*model.Review, error) {
	return s.store.Reviews().GetByID(ctx, id)
}

// ListByGame returns the reviews of gameID, oldest first.
func (s *ReviewService) ListByGame(ctx context.Context, gameID int64) ([]model.Review, error) {
	reviews, err := s.store.Reviews().ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("service/review: listing for game %d: %w", gameID, err)
	}
	if len(reviews) == 0 {
		return nil, apperror.NotFoundMessage(MsgNoReviews)
	}
	return reviews, nil
}

// UpdateReviewInput is the body of PUT /api/reviews/{id}.
type UpdateReviewInput struct {
	Rating     *int    `json:"rating"      validate:"omitempty,min=1,max=10"`
	ReviewText *string `json:"review_text" validate:"omitempty,min=1,max=5000"`
}

// Update changes a review the caller wrote.
func (s *ReviewService) Update(ctx context.Context, id int64, in UpdateReviewInput) error {
	if err := s.Authorize(ctx, id); err != nil {
		return err
	}
	if err := validation.Struct(&in); err != nil {
		return err
	}

	upd := model.ReviewUpdate{Rating: in.Rating, ReviewText: in.ReviewText}
	if upd.IsEmpty() {
		return apperror.ValidationFailed("", "No fields to update")
	}
	if err := s.store.Reviews().Update(ctx, id, upd); err != nil {
		return fmt.Errorf("service/review: updating %d: %w", id, err)
	}
	return nil
}

// Delete removes a review the caller wrote.
func (s *ReviewService) Delete(ctx context.Context, id int64) error {
	if err := s.Authorize(ctx, id); err != nil {
		return err
	}
	if err := s.store.Reviews().Delete(ctx, id); err != nil {
		return fmt.Errorf("service/review: deleting %d: %w", id, err)
	}
	s.logger.Info("review deleted", slog.Int64("reviewID", id))
	return nil
}

// Authorize loads review id and checks that the caller wrote it. A missing
// review is NotFound.
func (s *ReviewService) Authorize(ctx context.Context, id int64) error {
	review, err := s.store.Reviews().GetByID(ctx, id)
	if err != nil {
		return err
	}
	return auth.RequireOwner(ctx, review.UserID)
}
