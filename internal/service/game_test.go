package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/model"
)

func validGameInput(title string) CreateGameInput {
	return CreateGameInput{
		Title:        title,
		Genre:        "RPG",
		Tags:         []string{"Singleplayer", "Open World"},
		Platforms:    []string{"PC"},
		ReviewRating: 9,
	}
}

// =========================================================================
// List TESTS
// =========================================================================

func TestGameList(t *testing.T) {
	store := newTestStore(t)
	svc := NewGameService(store.Games(), testLogger())
	ctx := context.Background()

	if _, err := svc.List(ctx, 0); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("List() on empty catalog error = %v, want ErrNotFound", err)
	}

	for i := range 3 {
		createGame(t, store, fmt.Sprintf("Game %d", i))
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default limit", limit: 0, want: 3},
		{name: "negative limit", limit: -5, want: 3},
		{name: "explicit limit", limit: 2, want: 2},
		{name: "limit above cap", limit: 10_000, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			games, err := svc.List(ctx, tt.limit)
			if err != nil {
				t.Fatalf("List(%d) error = %v", tt.limit, err)
			}
			if len(games) != tt.want {
				t.Errorf("List(%d) returned %d games, want %d", tt.limit, len(games), tt.want)
			}
		})
	}
}

// =========================================================================
// Search TESTS
// =========================================================================

func TestGameSearch(t *testing.T) {
	store := newTestStore(t)
	svc := NewGameService(store.Games(), testLogger())
	ctx := context.Background()

	seed := []CreateGameInput{
		{Title: "The Witcher 3", Genre: "RPG", ReviewRating: 10},
		{Title: "Witcher Gwent", Genre: "Card", ReviewRating: 6, GameMode: model.GameModeMulti},
		{Title: "Hades", Genre: "Action, Roguelike", ReviewRating: 9},
	}
	for _, in := range seed {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("Create(%q) error = %v", in.Title, err)
		}
	}

	tests := []struct {
		name   string
		filter model.GameFilter
		want   []string
	}{
		{name: "title substring is case-insensitive", filter: model.GameFilter{Query: "witcher"}, want: []string{"The Witcher 3", "Witcher Gwent"}},
		{name: "query is trimmed", filter: model.GameFilter{Query: "  hades "}, want: []string{"Hades"}},
		{name: "genres are ORed", filter: model.GameFilter{Genres: []string{"card", "rogue"}}, want: []string{"Witcher Gwent", "Hades"}},
		{name: "min rating", filter: model.GameFilter{MinRating: 9}, want: []string{"The Witcher 3", "Hades"}},
		{name: "filters are ANDed", filter: model.GameFilter{Query: "witcher", MinRating: 7}, want: []string{"The Witcher 3"}},
		{name: "game mode", filter: model.GameFilter{GameMode: model.GameModeMulti}, want: []string{"Witcher Gwent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			games, err := svc.Search(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(games) != len(tt.want) {
				t.Fatalf("Search() returned %d games, want %d", len(games), len(tt.want))
			}
			for i, g := range games {
				if g.Title != tt.want[i] {
					t.Errorf("games[%d].Title = %q, want %q", i, g.Title, tt.want[i])
				}
			}
		})
	}
}

func TestGameSearch_NoMatchesAndBadMode(t *testing.T) {
	store := newTestStore(t)
	svc := NewGameService(store.Games(), testLogger())
	createGame(t, store, "Celeste")

	_, err := svc.Search(context.Background(), model.GameFilter{Query: "zelda"})
	assertAppError(t, err, apperror.ErrNotFound, MsgNoGames)

	_, err = svc.Search(context.Background(), model.GameFilter{GameMode: "co-op"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Search(bad mode) error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// Create TESTS
// =========================================================================

func TestGameCreate(t *testing.T) {
	store := newTestStore(t)
	svc := NewGameService(store.Games(), testLogger())
	ctx := context.Background()

	id, err := svc.Create(ctx, validGameInput("  Elden Ring  "))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get(%d) error = %v", id, err)
	}
	if got.Title != "Elden Ring" {
		t.Errorf("Title = %q, want trimmed", got.Title)
	}
	if got.GameMode != model.GameModeSingle {
		t.Errorf("GameMode = %q, want default %q", got.GameMode, model.GameModeSingle)
	}
	if !got.Tags.Contains("Open World") || len(got.Platforms) != 1 {
		t.Errorf("Tags = %v, Platforms = %v", got.Tags, got.Platforms)
	}

	_, err = svc.Create(ctx, validGameInput("Elden Ring"))
	assertAppError(t, err, apperror.ErrConflict, MsgTitleTaken)
}

func TestGameCreate_Validation(t *testing.T) {
	svc := NewGameService(newTestStore(t).Games(), testLogger())

	tests := []struct {
		name      string
		mutate    func(*CreateGameInput)
		wantField string
	}{
		{name: "missing title", mutate: func(in *CreateGameInput) { in.Title = "   " }, wantField: "title"},
		{name: "missing genre", mutate: func(in *CreateGameInput) { in.Genre = "" }, wantField: "genre"},
		{name: "rating too low", mutate: func(in *CreateGameInput) { in.ReviewRating = 0 }, wantField: "review_rating"},
		{name: "rating too high", mutate: func(in *CreateGameInput) { in.ReviewRating = 11 }, wantField: "review_rating"},
		{name: "negative playtime", mutate: func(in *CreateGameInput) { in.PlaytimeEstimate = -1 }, wantField: "playtime_estimate"},
		{name: "unknown mode", mutate: func(in *CreateGameInput) { in.GameMode = "co-op" }, wantField: "game_mode"},
		{name: "bad date", mutate: func(in *CreateGameInput) { in.ReleaseDate = ptr("March 2022") }, wantField: "release_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validGameInput("Valid")
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

// =========================================================================
// Update / Delete TESTS
// =========================================================================

func TestGameUpdate(t *testing.T) {
	store := newTestStore(t)
	svc := NewGameService(store.Games(), testLogger())
	ctx := context.Background()
	id := createGame(t, store, "Portal")
	createGame(t, store, "Portal 2")

	if err := svc.Update(ctx, id, UpdateGameInput{ReviewRating: ptr(10), Tags: &[]string{"Puzzle"}}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ReviewRating != 10 || got.Title != "Portal" || !got.Tags.Contains("Puzzle") {
		t.Errorf("after Update() game = %+v", got)
	}

	err = svc.Update(ctx, id, UpdateGameInput{})
	assertAppError(t, err, apperror.ErrValidation, "No fields to update")

	err = svc.Update(ctx, id, UpdateGameInput{Title: ptr("Portal 2")})
	assertAppError(t, err, apperror.ErrConflict, MsgTitleTaken)

	if err := svc.Update(ctx, 9999, UpdateGameInput{ReviewRating: ptr(5)}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGameDelete(t *testing.T) {
	store := newTestStore(t)
	svc := NewGameService(store.Games(), testLogger())
	ctx := context.Background()
	id := createGame(t, store, "Braid")

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}
