// Package model defines the data structures used throughout the application.
//
// Struct tags serve two audiences: `json` shapes the REST wire format and
// `db` names the column sqlx scans into.
package model

import "time"

// Theme preferences accepted for User.ThemePreference.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// User is a registered account.
//
// PasswordHash and GoogleID never leave the server: both carry `json:"-"`.
// Accounts created through Google sign-in get an unusable random hash so
// password login can never match them.
type User struct {
	ID              int64     `json:"id"               db:"id"`
	Name            string    `json:"name"             db:"name"`
	Email           string    `json:"email"            db:"email"`
	PasswordHash    string    `json:"-"                db:"password"`
	ProfilePic      *string   `json:"profile_pic"      db:"profile_pic"`
	ThemePreference string    `json:"theme_preference" db:"theme_preference"`
	UserDataID      *int64    `json:"user_data_id"     db:"user_data_id"`
	GoogleID        *string   `json:"-"                db:"google_id"`
	CreatedAt       time.Time `json:"created_at"       db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"       db:"updated_at"`
}

// Profile is the public projection of a User returned by the user and auth
// endpoints.
type Profile struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ProfilePic      *string   `json:"profile_pic"`
	ThemePreference string    `json:"theme_preference"`
	UserDataID      *int64    `json:"user_data_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Profile returns the user's public projection.
func (u *User) Profile() Profile {
	return Profile{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		ProfilePic:      u.ProfilePic,
		ThemePreference: u.ThemePreference,
		UserDataID:      u.UserDataID,
		CreatedAt:       u.CreatedAt,
	}
}

// UserUpdate carries the profile fields a user may change. Nil means
// "leave unchanged".
type UserUpdate struct {
	Name            *string
	ThemePreference *string
	ProfilePic      *string
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.ThemePreference == nil && u.ProfilePic == nil
}
