package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/dbx"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
)

const gameColumns = `game_id, title, description, genre, tags, platforms, playtime_estimate,
	developer, publisher, game_mode, release_date, review_rating, cover_image,
	created_at, updated_at`

type gameRepo struct {
	q dbx.DBTX
}

var _ repository.GameRepository = (*gameRepo)(nil)

// Create inserts the game. A title that already exists yields a
// *repository.DuplicateError with Field "title".
func (r *gameRepo) Create(ctx context.Context, game *model.Game) error {
	now := time.Now().UTC()
	if game.Tags == nil {
		game.Tags = model.StringList{}
	}
	if game.Platforms == nil {
		game.Platforms = model.StringList{}
	}

	err := r.q.QueryRowxContext(ctx, r.q.Rebind(
		`INSERT INTO games (title, description, genre, tags, platforms, playtime_estimate,
			developer, publisher, game_mode, release_date, review_rating, cover_image,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING game_id`),
		game.Title,
		game.Description,
		game.Genre,
		game.Tags,
		game.Platforms,
		game.PlaytimeEstimate,
		game.Developer,
		game.Publisher,
		game.GameMode,
		game.ReleaseDate,
		game.ReviewRating,
		game.CoverImage,
		now,
		now,
	).Scan(&game.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: creating game %q: %w", game.Title, translate(err))
	}

	game.CreatedAt = now
	game.UpdatedAt = now
	return nil
}

func (r *gameRepo) GetByID(ctx context.Context, id int64) (*model.Game, error) {
	var g model.Game
	err := r.q.GetContext(ctx, &g, r.q.Rebind(
		`SELECT `+gameColumns+` FROM games WHERE game_id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Game", "")
		}
		return nil, fmt.Errorf("sqlstore: getting game %d: %w", id, err)
	}
	return &g, nil
}

// List returns up to limit games in id order.
func (r *gameRepo) List(ctx context.Context, limit int) ([]model.Game, error) {
	games := []model.Game{}
	err := r.q.SelectContext(ctx, &games, r.q.Rebind(
		`SELECT `+gameColumns+` FROM games ORDER BY game_id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing games: %w", err)
	}
	return games, nil
}

// Search ANDs together whichever filters are set. Title and genre matches
// are case-insensitive substring matches; several genres are ORed.
func (r *gameRepo) Search(ctx context.Context, f model.GameFilter) ([]model.Game, error) {
	var (
		where []string
		args  []any
	)

	if f.Query != "" {
		where = append(where, `LOWER(title) LIKE LOWER(?)`)
		args = append(args, "%"+f.Query+"%")
	}

	var genres []string
	for _, g := range f.Genres {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, `LOWER(genre) LIKE LOWER(?)`)
			args = append(args, "%"+g+"%")
		}
	}
	if len(genres) > 0 {
		where = append(where, `(`+strings.Join(genres, ` OR `)+`)`)
	}

	if f.MinRating > 0 {
		where = append(where, `review_rating >= ?`)
		args = append(args, f.MinRating)
	}

	if f.GameMode != "" {
		where = append(where, `game_mode = ?`)
		args = append(args, f.GameMode)
	}

	query := `SELECT ` + gameColumns + ` FROM games`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY game_id`

	games := []model.Game{}
	if err := r.q.SelectContext(ctx, &games, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: searching games: %w", err)
	}
	return games, nil
}

// Update writes only the non-nil fields of upd.
func (r *gameRepo) Update(ctx context.Context, id int64, upd model.GameUpdate) error {
	var set setClause
	set.add("title", upd.Title)
	set.add("description", upd.Description)
	set.add("genre", upd.Genre)
	set.add("tags", upd.Tags)
	set.add("platforms", upd.Platforms)
	set.add("playtime_estimate", upd.PlaytimeEstimate)
	set.add("developer", upd.Developer)
	set.add("publisher", upd.Publisher)
	set.add("game_mode", upd.GameMode)
	set.add("release_date", upd.ReleaseDate)
	set.add("review_rating", upd.ReviewRating)
	set.add("cover_image", upd.CoverImage)
	if set.empty() {
		return nil
	}

	res, err := r.q.ExecContext(ctx, r.q.Rebind(set.sql("games", "game_id")), set.args(id)...)
	if err != nil {
		return fmt.Errorf("sqlstore: updating game %d: %w", id, translate(err))
	}
	return requireRow(res, apperror.NotFound("Game", ""))
}

// Delete removes the game and, through ON DELETE CASCADE, its reviews.
// Deleting a missing id is not an error.
func (r *gameRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM games WHERE game_id = ?`), id); err != nil {
		return fmt.Errorf("sqlstore: deleting game %d: %w", id, err)
	}
	return nil
}

// TitleExists reports whether a game with exactly this title is stored.
func (r *gameRepo) TitleExists(ctx context.Context, title string) (bool, error) {
	var n int
	err := r.q.GetContext(ctx, &n, r.q.Rebind(`SELECT COUNT(*) FROM games WHERE title = ?`), title)
	if err != nil {
		return false, fmt.Errorf("sqlstore: checking title %q: %w", title, err)
	}
	return n > 0, nil
}
