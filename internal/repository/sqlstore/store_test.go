package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/model"
	"github.com/sakif/gameratings/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestStore returns a migrated in-memory store that is closed when the
// test ends. Every call gets its own empty database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: ":memory:", Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }

func createUser(t *testing.T, s repository.Store, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", PasswordHash: "hash"}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func createGame(t *testing.T, s repository.Store, title, genre string, rating int) *model.Game {
	t.Helper()
	g := &model.Game{Title: title, Genre: genre, GameMode: model.GameModeSingle, ReviewRating: rating}
	require.NoError(t, s.Games().Create(context.Background(), g))
	return g
}

// =========================================================================
// OPEN TESTS
// =========================================================================

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpen_MigratesTwice(t *testing.T) {
	path := t.TempDir() + "/ratings.db"
	ctx := context.Background()

	s1, err := Open(ctx, Options{Driver: DriverSQLite, DSN: path, Logger: testLogger()})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, Options{Driver: DriverSQLite, DSN: path, Logger: testLogger()})
	require.NoError(t, err, "re-opening an already migrated file must succeed")
	require.NoError(t, s2.Ping(ctx))
	require.NoError(t, s2.Close())
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", sqliteDSN(":memory:"))
	assert.Contains(t, sqliteDSN("data/app.db"), "_pragma=journal_mode(WAL)")
	assert.Contains(t, sqliteDSN("file:x.db?cache=shared"), "cache=shared&_pragma=foreign_keys(1)")
}

// =========================================================================
// USER TESTS
// =========================================================================

func TestUserCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createUser(t, s, "alice")
	if u.ID == 0 {
		t.Fatal("Create() did not set ID")
	}
	if u.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}
	if u.ThemePreference != model.ThemeLight {
		t.Errorf("ThemePreference = %q, want %q", u.ThemePreference, model.ThemeLight)
	}

	byID, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Name)
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := s.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byName, err := s.Users().GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
}

func TestUserGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Users().GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = s.Users().GetByGoogleID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserCreate_Duplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createUser(t, s, "alice")

	err := s.Users().Create(ctx, &model.User{Name: "other", Email: "alice@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrDuplicate)
	field, _ := repository.DuplicateField(err)
	assert.Equal(t, "email", field)

	err = s.Users().Create(ctx, &model.User{Name: "alice", Email: "new@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrDuplicate)
	field, _ = repository.DuplicateField(err)
	assert.Equal(t, "name", field)
}

func TestUser_NameAndEmailIgnoreCase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "alice")

	err := s.Users().Create(ctx, &model.User{Name: "other", Email: "ALICE@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrDuplicate)
	field, _ := repository.DuplicateField(err)
	assert.Equal(t, "email", field)

	err = s.Users().Create(ctx, &model.User{Name: "Alice", Email: "new@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrDuplicate)
	field, _ = repository.DuplicateField(err)
	assert.Equal(t, "name", field)

	byEmail, err := s.Users().GetByEmail(ctx, "Alice@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "alice@example.com", byEmail.Email)

	byName, err := s.Users().GetByName(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
}

func TestUserUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "alice")

	err := s.Users().Update(ctx, u.ID, model.UserUpdate{ThemePreference: strPtr(model.ThemeDark)})
	require.NoError(t, err)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, got.ThemePreference)
	assert.Equal(t, "alice", got.Name, "fields not in the update are untouched")

	err = s.Users().Update(ctx, 12345, model.UserUpdate{Name: strPtr("ghost")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserSetGoogleID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "alice")

	require.NoError(t, s.Users().SetGoogleID(ctx, u.ID, "g-1"))

	got, err := s.Users().GetByGoogleID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

// =========================================================================
// USER DATA TESTS
// =========================================================================

func TestUserDataLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &model.UserData{Interests: model.StringList{"space"}}
	require.NoError(t, s.UserData().Create(ctx, d))
	require.NotZero(t, d.ID)

	got, err := s.UserData().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"space"}, got.Interests)
	assert.Equal(t, model.StringList{}, got.Genres, "nil lists are stored as []")

	genres := model.StringList{"RPG", "Strategy"}
	require.NoError(t, s.UserData().Update(ctx, d.ID, model.UserDataUpdate{Genres: &genres}))

	got, err = s.UserData().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, genres, got.Genres)
	assert.Equal(t, model.StringList{"space"}, got.Interests)

	require.NoError(t, s.UserData().Delete(ctx, d.ID))
	_, err = s.UserData().GetByID(ctx, d.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, s.UserData().Delete(ctx, d.ID), "deleting twice is fine")
}

func TestUserDataDelete_UnlinksUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &model.UserData{}
	require.NoError(t, s.UserData().Create(ctx, d))
	u := createUser(t, s, "alice")
	require.NoError(t, s.Users().SetUserDataID(ctx, u.ID, &d.ID))

	require.NoError(t, s.UserData().Delete(ctx, d.ID))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.UserDataID, "ON DELETE SET NULL must clear the link")
}

// =========================================================================
// GAME TESTS
// =========================================================================

func TestGameCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := &model.Game{
		Title:        "Hades",
		Genre:        "Action, Roguelike",
		Tags:         model.StringList{"Singleplayer"},
		GameMode:     model.GameModeSingle,
		ReleaseDate:  strPtr("2020-09-17"),
		ReviewRating: 9,
	}
	require.NoError(t, s.Games().Create(ctx, g))

	got, err := s.Games().GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hades", got.Title)
	assert.Equal(t, model.StringList{"Singleplayer"}, got.Tags)
	assert.Equal(t, model.StringList{}, got.Platforms)
	require.NotNil(t, got.ReleaseDate)
	assert.Equal(t, "2020-09-17", *got.ReleaseDate)

	_, err = s.Games().GetByID(ctx, 9999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "Game not found")
}

func TestGameCreate_DuplicateTitle(t *testing.T) {
	s := newTestStore(t)
	createGame(t, s, "Celeste", "Platformer", 9)

	err := s.Games().Create(context.Background(), &model.Game{Title: "Celeste", Genre: "x", GameMode: model.GameModeSingle, ReviewRating: 1})
	require.ErrorIs(t, err, repository.ErrDuplicate)
	field, _ := repository.DuplicateField(err)
	assert.Equal(t, "title", field)

	exists, err := s.Games().TitleExists(context.Background(), "Celeste")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGameList_Limit(t *testing.T) {
	s := newTestStore(t)
	for _, title := range []string{"A", "B", "C"} {
		createGame(t, s, title, "Puzzle", 5)
	}

	games, err := s.Games().List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "A", games[0].Title)
}

func TestGameSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createGame(t, s, "Stardew Valley", "Simulation, RPG", 9)
	createGame(t, s, "Doom Eternal", "Shooter", 8)
	createGame(t, s, "Star Fox", "Shooter", 6)

	tests := []struct {
		name   string
		filter model.GameFilter
		want   []string
	}{
		{name: "no filters", filter: model.GameFilter{}, want: []string{"Stardew Valley", "Doom Eternal", "Star Fox"}},
		{name: "title case-insensitive", filter: model.GameFilter{Query: "STAR"}, want: []string{"Stardew Valley", "Star Fox"}},
		{name: "genre OR", filter: model.GameFilter{Genres: []string{"rpg", " shooter "}}, want: []string{"Stardew Valley", "Doom Eternal", "Star Fox"}},
		{name: "empty genre parts ignored", filter: model.GameFilter{Genres: []string{"", "rpg"}}, want: []string{"Stardew Valley"}},
		{name: "min rating inclusive", filter: model.GameFilter{MinRating: 8}, want: []string{"Stardew Valley", "Doom Eternal"}},
		{name: "AND of filters", filter: model.GameFilter{Query: "star", Genres: []string{"shooter"}}, want: []string{"Star Fox"}},
		{name: "game mode", filter: model.GameFilter{GameMode: model.GameModeMulti}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			games, err := s.Games().Search(ctx, tt.filter)
			require.NoError(t, err)
			var titles []string
			for _, g := range games {
				titles = append(titles, g.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestGameUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := createGame(t, s, "Portal", "Puzzle", 8)

	platforms := model.StringList{"PC", "Xbox"}
	err := s.Games().Update(ctx, g.ID, model.GameUpdate{ReviewRating: intPtr(10), Platforms: &platforms})
	require.NoError(t, err)

	got, err := s.Games().GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ReviewRating)
	assert.Equal(t, platforms, got.Platforms)
	assert.Equal(t, "Puzzle", got.Genre)

	err = s.Games().Update(ctx, 4242, model.GameUpdate{Title: strPtr("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGameDelete_CascadesReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "alice")
	g := createGame(t, s, "Portal", "Puzzle", 8)

	r := &model.Review{UserID: u.ID, GameID: g.ID, Rating: 9, ReviewText: "great"}
	require.NoError(t, s.Reviews().Create(ctx, r))

	require.NoError(t, s.Games().Delete(ctx, g.ID))
	require.NoError(t, s.Games().Delete(ctx, g.ID), "deleting a missing game is not an error")

	_, err := s.Reviews().GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// REVIEW TESTS
// =========================================================================

func TestReviewLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "alice")
	g := createGame(t, s, "Portal", "Puzzle", 8)

	r1 := &model.Review{UserID: u.ID, GameID: g.ID, Rating: 7, ReviewText: "good"}
	r2 := &model.Review{UserID: u.ID, GameID: g.ID, Rating: 9, ReviewText: "better on replay"}
	require.NoError(t, s.Reviews().Create(ctx, r1))
	require.NoError(t, s.Reviews().Create(ctx, r2))

	list, err := s.Reviews().ListByGame(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r1.ID, list[0].ID)

	require.NoError(t, s.Reviews().Update(ctx, r1.ID, model.ReviewUpdate{Rating: intPtr(8)}))
	got, err := s.Reviews().GetByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Rating)
	assert.Equal(t, "good", got.ReviewText)

	require.NoError(t, s.Reviews().Delete(ctx, r1.ID))
	assert.ErrorIs(t, s.Reviews().Delete(ctx, r1.ID), apperror.ErrNotFound)

	empty, err := s.Reviews().ListByGame(ctx, 777)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReviewCreate_UnknownGameViolatesForeignKey(t *testing.T) {
	s := newTestStore(t)
	u := createUser(t, s, "alice")

	err := s.Reviews().Create(context.Background(), &model.Review{UserID: u.ID, GameID: 404, Rating: 5, ReviewText: "?"})
	assert.Error(t, err)
}

// =========================================================================
// TRANSACTION TESTS
// =========================================================================

func TestWithinTx_CommitsAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var userID int64
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		d := &model.UserData{}
		if err := tx.UserData().Create(ctx, d); err != nil {
			return err
		}
		u := &model.User{Name: "bob", Email: "bob@example.com", PasswordHash: "h", UserDataID: &d.ID}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		userID = u.ID
		return nil
	})
	require.NoError(t, err)

	u, err := s.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, u.UserDataID)
	_, err = s.UserData().GetByID(ctx, *u.UserDataID)
	require.NoError(t, err)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createUser(t, s, "taken")

	var dataID int64
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		d := &model.UserData{}
		if err := tx.UserData().Create(ctx, d); err != nil {
			return err
		}
		dataID = d.ID
		// collides on name, so the user data insert above must be undone
		return tx.Users().Create(ctx, &model.User{Name: "taken", Email: "x@example.com", PasswordHash: "h"})
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = s.UserData().GetByID(ctx, dataID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestWithinTx_Nested(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return tx.WithinTx(ctx, func(ctx context.Context, inner repository.Store) error {
			return inner.UserData().Create(ctx, &model.UserData{})
		})
	})
	require.NoError(t, err)
}

// =========================================================================
// SQLMOCK TESTS
// =========================================================================

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sdb := sqlx.NewDb(db, "sqlmock")
	return &Store{db: sdb, q: sdb, logger: testLogger()}, mock
}

func TestWithinTx_Mock_RollbackOnStoreError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO user_data").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		return tx.UserData().Create(ctx, &model.UserData{})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmail_Mock_ComparesLowercased(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER(?)")).
		WithArgs("Bob@Example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Users().GetByEmail(context.Background(), "Bob@Example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreError_IsWrappedNotNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM games").WillReturnError(sql.ErrConnDone)

	_, err := s.Games().GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// =========================================================================
// CONSTRAINT NAME TESTS
// =========================================================================

func TestConstraintFields(t *testing.T) {
	assert.Equal(t, "email", sqliteConstraintField("constraint failed: UNIQUE constraint failed: users.email (2067)"))
	assert.Equal(t, "title", sqliteConstraintField("UNIQUE constraint failed: games.title"))
	assert.Equal(t, "", sqliteConstraintField("NOT NULL constraint failed: users.name"))

	assert.Equal(t, "email", pgConstraintField("users_email_key"))
	assert.Equal(t, "google_id", pgConstraintField("users_google_id_key"))
	assert.Equal(t, "title", pgConstraintField("games_title_key"))
}
