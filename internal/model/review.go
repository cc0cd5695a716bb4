package model

import "time"

// Review is a user's rating of a game. Only its author may change it.
type Review struct {
	ID         int64     `json:"review_id"   db:"review_id"`
	UserID     int64     `json:"user_id"     db:"user_id"`
	GameID     int64     `json:"game_id"     db:"game_id"`
	Rating     int       `json:"rating"      db:"rating"`
	ReviewText string    `json:"review_text" db:"review_text"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"  db:"updated_at"`
}

// ReviewUpdate is a partial update; nil fields are left untouched.
type ReviewUpdate struct {
	Rating     *int
	ReviewText *string
}

// IsEmpty reports whether the update changes nothing.
func (u ReviewUpdate) IsEmpty() bool {
	return u.Rating == nil && u.ReviewText == nil
}
