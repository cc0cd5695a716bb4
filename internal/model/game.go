package model

import "time"

// Game modes accepted for Game.GameMode.
const (
	GameModeSingle = "single-player"
	GameModeMulti  = "multiplayer"
	GameModeBoth   = "both"
)

// ValidGameMode reports whether mode is one of the known game modes.
func ValidGameMode(mode string) bool {
	switch mode {
	case GameModeSingle, GameModeMulti, GameModeBoth:
		return true
	}
	return false
}

// Game is a catalog entry. Tags and Platforms are stored as JSON text.
type Game struct {
	ID               int64      `json:"game_id"           db:"game_id"`
	Title            string     `json:"title"             db:"title"`
	Description      string     `json:"description"       db:"description"`
	Genre            string     `json:"genre"             db:"genre"`
	Tags             StringList `json:"tags"              db:"tags"`
	Platforms        StringList `json:"platforms"         db:"platforms"`
	PlaytimeEstimate int        `json:"playtime_estimate" db:"playtime_estimate"`
	Developer        string     `json:"developer"         db:"developer"`
	Publisher        string     `json:"publisher"         db:"publisher"`
	GameMode         string     `json:"game_mode"         db:"game_mode"`
	ReleaseDate      *string    `json:"release_date"      db:"release_date"`
	ReviewRating     int        `json:"review_rating"     db:"review_rating"`
	CoverImage       string     `json:"cover_image"       db:"cover_image"`
	CreatedAt        time.Time  `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"        db:"updated_at"`
}

// GameUpdate is a partial update; nil fields are left untouched.
type GameUpdate struct {
	Title            *string
	Description      *string
	Genre            *string
	Tags             *StringList
	Platforms        *StringList
	PlaytimeEstimate *int
	Developer        *string
	Publisher        *string
	GameMode         *string
	ReleaseDate      *string
	ReviewRating     *int
	CoverImage       *string
}

// IsEmpty reports whether the update changes nothing.
func (u GameUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Genre == nil && u.Tags == nil &&
		u.Platforms == nil && u.PlaytimeEstimate == nil && u.Developer == nil &&
		u.Publisher == nil && u.GameMode == nil && u.ReleaseDate == nil &&
		u.ReviewRating == nil && u.CoverImage == nil
}

// GameFilter holds the optional search filters. Zero values disable a filter.
type GameFilter struct {
	Query     string   // case-insensitive title substring
	Genres    []string // OR of genre substrings
	MinRating int      // inclusive
	GameMode  string   // exact match
}
