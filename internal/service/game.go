// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services accept plain input structs (decoded by the handlers), validate
// them with the validation package and return *apperror.AppError values
// the handlers map to HTTP status codes. Nothing here knows about HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
	"github.com/sakif/gameratings/internal/validation"
)

// List limits for GET /api/games/all.
const (
	DefaultGameListLimit = 50
	MaxGameListLimit     = 200
)

const (
	MsgNoGames    = "No games found"
	MsgTitleTaken = "A game with this title already exists"
)

// GameService manages the game catalog.
type GameService struct {
	games  repository.GameRepository
	logger *slog.Logger
}

func NewGameService(games repository.GameRepository, logger *slog.Logger) *GameService {
	return &GameService{games: games, logger: logger}
}

// List returns up to limit games. Non-positive limits fall back to the
// default; large ones are capped.
func (s *GameService) List(ctx context.Context, limit int) ([]model.Game, error) {
	switch {
	case limit <= 0:
		limit = DefaultGameListLimit
	case limit > MaxGameListLimit:
		limit = MaxGameListLimit
	}

	games, err := s.games.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/game: listing: %w", err)
	}
	if len(games) == 0 {
		return nil, apperror.NotFoundMessage(MsgNoGames)
	}
	return games, nil
}

// Search applies the AND-chain of filters in f.
func (s *GameService) Search(ctx context.Context, f model.GameFilter) ([]model.Game, error) {
	if f.GameMode != "" && !model.ValidGameMode(f.GameMode) {
		return nil, apperror.ValidationFailed("game_mode",
			fmt.Sprintf("game_mode must be one of: %s, %s, %s", model.GameModeSingle, model.GameModeMulti, model.GameModeBoth))
	}
	f.Query = strings.TrimSpace(f.Query)

	games, err := s.games.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service/game: searching: %w", err)
	}
	if len(games) == 0 {
		return nil, apperror.NotFoundMessage(MsgNoGames)
	}
	return games, nil
}

func (s *GameService) Get(ctx context.Context, id int64) (*model.Game, error) {
	return s.games.GetByID(ctx, id)
}

// CreateGameInput is the body of POST /api/games/create.
type CreateGameInput struct {
	Title            string   `json:"title"             validate:"required,max=255"`
	Description      string   `json:"description"`
	Genre            string   `json:"genre"             validate:"required,max=255"`
	Tags             []string `json:"tags"`
	Platforms        []string `json:"platforms"`
	PlaytimeEstimate int      `json:"playtime_estimate" validate:"gte=0"`
	Developer        string   `json:"developer"`
	Publisher        string   `json:"publisher"`
	GameMode         string   `json:"game_mode"         validate:"omitempty,oneof=single-player multiplayer both"`
	ReleaseDate      *string  `json:"release_date"      validate:"omitempty,datetime=2006-01-02"`
	ReviewRating     int      `json:"review_rating"     validate:"min=1,max=10"`
	CoverImage       string   `json:"cover_image"`
}

// Create validates and inserts a game and returns its id. A missing
// game_mode means single-player.
func (s *GameService) Create(ctx context.Context, in CreateGameInput) (int64, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(&in); err != nil {
		return 0, err
	}

	game := &model.Game{
		Title:            in.Title,
		Description:      in.Description,
		Genre:            in.Genre,
		Tags:             model.StringList(in.Tags),
		Platforms:        model.StringList(in.Platforms),
		PlaytimeEstimate: in.PlaytimeEstimate,
		Developer:        in.Developer,
		Publisher:        in.Publisher,
		GameMode:         in.GameMode,
		ReleaseDate:      in.ReleaseDate,
		ReviewRating:     in.ReviewRating,
		CoverImage:       in.CoverImage,
	}
	if game.GameMode == "" {
		game.GameMode = model.GameModeSingle
	}

	if err := s.games.Create(ctx, game); err != nil {
		if _, dup := repository.DuplicateField(err); dup {
			return 0, apperror.Conflict("title", MsgTitleTaken)
		}
		return 0, fmt.Errorf("service/game: creating %q: %w", in.Title, err)
	}

	s.logger.Info("game created", slog.Int64("gameID", game.ID), slog.String("title", game.Title))
	return game.ID, nil
}

// UpdateGameInput is the body of PUT /api/games/{gameId}. Absent fields
// are left unchanged; id and timestamps cannot be set.
type UpdateGameInput struct {
	Title            *string   `json:"title"             validate:"omitempty,min=1,max=255"`
	Description      *string   `json:"description"`
	Genre            *string   `json:"genre"             validate:"omitempty,min=1,max=255"`
	Tags             *[]string `json:"tags"`
	Platforms        *[]string `json:"platforms"`
	PlaytimeEstimate *int      `json:"playtime_estimate" validate:"omitempty,gte=0"`
	Developer        *string   `json:"developer"`
	Publisher        *string   `json:"publisher"`
	GameMode         *string   `json:"game_mode"         validate:"omitempty,oneof=single-player multiplayer both"`
	ReleaseDate      *string   `json:"release_date"      validate:"omitempty,datetime=2006-01-02"`
	ReviewRating     *int      `json:"review_rating"     validate:"omitempty,min=1,max=10"`
	CoverImage       *string   `json:"cover_image"`
}

func (in UpdateGameInput) toModel() model.GameUpdate {
	return model.GameUpdate{
		Title:            in.Title,
		Description:      in.Description,
		Genre:            in.Genre,
		Tags:             (*model.StringList)(in.Tags),
		Platforms:        (*model.StringList)(in.Platforms),
		PlaytimeEstimate: in.PlaytimeEstimate,
		Developer:        in.Developer,
		Publisher:        in.Publisher,
		GameMode:         in.GameMode,
		ReleaseDate:      in.ReleaseDate,
		ReviewRating:     in.ReviewRating,
		CoverImage:       in.CoverImage,
	}
}

// Update applies a partial update to game id.
func (s *GameService) Update(ctx context.Context, id int64, in UpdateGameInput) error {
	if err := validation.Struct(&in); err != nil {
		return err
	}
	upd := in.toModel()
	if upd.IsEmpty() {
		return apperror.ValidationFailed("", "No fields to update")
	}

	if err := s.games.Update(ctx, id, upd); err != nil {
		if _, dup := repository.DuplicateField(err); dup {
			return apperror.Conflict("title", MsgTitleTaken)
		}
		return err
	}
	s.logger.Info("game updated", slog.Int64("gameID", id))
	return nil
}

// Delete removes game id and, by cascade, its reviews. Deleting a game
// that does not exist succeeds.
func (s *GameService) Delete(ctx context.Context, id int64) error {
	if err := s.games.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/game: deleting %d: %w", id, err)
	}
	s.logger.Info("game deleted", slog.Int64("gameID", id))
	return nil
}
