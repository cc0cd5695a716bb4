package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
)

const (
	MsgUserDataNotFound = "User data not found"
	MsgUserDataExists   = "User data already exists for this user"
)

// CacheInvalidator drops cached derived data for a user.
// *recommend.Cache implements it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// UserDataService manages preference documents. Every operation is keyed
// by the owning user's id and restricted to that user.
type UserDataService struct {
	store  repository.Store
	cache  CacheInvalidator // nil when recommendations are not cached
	logger *slog.Logger
}

func NewUserDataService(store repository.Store, cache CacheInvalidator, logger *slog.Logger) *UserDataService {
	return &UserDataService{store: store, cache: cache, logger: logger}
}

// UserDataInput carries the lists of a preference document. On update a
// nil list is left unchanged.
type UserDataInput struct {
	SearchHistory *model.StringList `json:"search_history"`
	Interests     *model.StringList `json:"interests"`
	ViewHistory   *model.StringList `json:"view_history"`
	ReviewHistory *model.StringList `json:"review_history"`
	Genres        *model.StringList `json:"genres"`
}

func (in UserDataInput) toModel() model.UserDataUpdate {
	return model.UserDataUpdate{
		SearchHistory: in.SearchHistory,
		Interests:     in.Interests,
		ViewHistory:   in.ViewHistory,
		ReviewHistory: in.ReviewHistory,
		Genres:        in.Genres,
	}
}

// Authorize reports whether the caller may act on userID's document.
// Handlers call it before reading a request body.
func (s *UserDataService) Authorize(ctx context.Context, userID int64) error {
	return auth.RequireOwner(ctx, userID)
}

// Get returns the preference document of userID.
func (s *UserDataService) Get(ctx context.Context, userID int64) (*model.UserData, error) {
	if err := auth.RequireOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, s.store, userID)
}

// Create gives the caller a preference document if they have none.
func (s *UserDataService) Create(ctx context.Context, in UserDataInput) (int64, error) {
	caller, ok := auth.UserFromContext(ctx)
	if !ok {
		return 0, apperror.Unauthorized(auth.MsgNoToken)
	}

	data := &model.UserData{}
	if in.SearchHistory != nil {
		data.SearchHistory = *in.SearchHistory
	}
	if in.Interests != nil {
		data.Interests = *in.Interests
	}
	if in.ViewHistory != nil {
		data.ViewHistory = *in.ViewHistory
	}
	if in.ReviewHistory != nil {
		data.ReviewHistory = *in.ReviewHistory
	}
	if in.Genres != nil {
		data.Genres = *in.Genres
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, caller.ID)
		if err != nil {
			return err
		}
		if user.UserDataID != nil {
			return apperror.Conflict("user_data_id", MsgUserDataExists)
		}
		if err := tx.UserData().Create(ctx, data); err != nil {
			return fmt.Errorf("creating user data: %w", err)
		}
		return tx.Users().SetUserDataID(ctx, caller.ID, &data.ID)
	})
	if err != nil {
		return 0, fmt.Errorf("service/userdata: creating for user %d: %w", caller.ID, err)
	}

	s.logger.Info("user data created", slog.Int64("userID", caller.ID), slog.Int64("userDataID", data.ID))
	return data.ID, nil
}

// Update overwrites the given lists of userID's document.
func (s *UserDataService) Update(ctx context.Context, userID int64, in UserDataInput) error {
	if err := auth.RequireOwner(ctx, userID); err != nil {
		return err
	}
	upd := in.toModel()
	if upd.IsEmpty() {
		return apperror.ValidationFailed("", "No fields to update")
	}

	data, err := s.load(ctx, s.store, userID)
	if err != nil {
		return err
	}
	if err := s.store.UserData().Update(ctx, data.ID, upd); err != nil {
		return fmt.Errorf("service/userdata: updating %d: %w", data.ID, err)
	}

	s.invalidate(ctx, userID)
	return nil
}

// Delete removes userID's document and unlinks it from the user in one
// transaction. Deleting a document that does not exist succeeds.
func (s *UserDataService) Delete(ctx context.Context, userID int64) error {
	if err := auth.RequireOwner(ctx, userID); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.UserDataID == nil {
			return nil
		}
		if err := tx.Users().SetUserDataID(ctx, userID, nil); err != nil {
			return err
		}
		return tx.UserData().Delete(ctx, *user.UserDataID)
	})
	if err != nil {
		return fmt.Errorf("service/userdata: deleting for user %d: %w", userID, err)
	}

	s.invalidate(ctx, userID)
	return nil
}

// load resolves userID's document through users.user_data_id.
func (s *UserDataService) load(ctx context.Context, store repository.Store, userID int64) (*model.UserData, error) {
	user, err := store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.UserDataID == nil {
		return nil, apperror.NotFoundMessage(MsgUserDataNotFound)
	}
	data, err := store.UserData().GetByID(ctx, *user.UserDataID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFoundMessage(MsgUserDataNotFound)
	}
	return data, err
}

func (s *UserDataService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("dropping cached recommendations failed",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
	}
}
