// Package repository declares the persistence contracts the service layer
// depends on. Implementations live in subpackages (see sqlstore).
//
// Lookups that find nothing return an *apperror.AppError wrapping
// apperror.ErrNotFound, so handlers can map them straight to 404.
// Unique-key collisions return a *DuplicateError.
package repository

import (
	"context"

	"github.com/sakif/gameratings/internal/model"
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByName(ctx context.Context, name string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	Update(ctx context.Context, id int64, upd model.UserUpdate) error
	SetGoogleID(ctx context.Context, id int64, googleID string) error
	SetUserDataID(ctx context.Context, id int64, userDataID *int64) error
}

// UserDataRepository persists preference documents.
type UserDataRepository interface {
	Create(ctx context.Context, data *model.UserData) error
	GetByID(ctx context.Context, id int64) (*model.UserData, error)
	Update(ctx context.Context, id int64, upd model.UserDataUpdate) error
	Delete(ctx context.Context, id int64) error
}

// GameRepository persists the game catalog.
type GameRepository interface {
	Create(ctx context.Context, game *model.Game) error
	GetByID(ctx context.Context, id int64) (*model.Game, error)
	List(ctx context.Context, limit int) ([]model.Game, error)
	Search(ctx context.Context, filter model.GameFilter) ([]model.Game, error)
	Update(ctx context.Context, id int64, upd model.GameUpdate) error
	Delete(ctx context.Context, id int64) error
	TitleExists(ctx context.Context, title string) (bool, error)
}

// ReviewRepository persists reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id int64) (*model.Review, error)
	ListByGame(ctx context.Context, gameID int64) ([]model.Review, error)
	Update(ctx context.Context, id int64, upd model.ReviewUpdate) error
	Delete(ctx context.Context, id int64) error
}

// Store groups the repositories and owns the transaction boundary.
//
// WithinTx runs fn with a Store whose repositories all share one
// transaction. fn commits by returning nil; any error (or panic) rolls back.
// Calling WithinTx on a transaction-bound Store joins the outer transaction.
type Store interface {
	Users() UserRepository
	UserData() UserDataRepository
	Games() GameRepository
	Reviews() ReviewRepository
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
