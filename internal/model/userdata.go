package model

import "time"

// UserData is a user's preference document. It is created empty at
// registration, changed only by its owner and read by the recommender.
type UserData struct {
	ID            int64      `json:"id"             db:"id"`
	SearchHistory StringList `json:"search_history" db:"search_history"`
	Interests     StringList `json:"interests"      db:"interests"`
	ViewHistory   StringList `json:"view_history"   db:"view_history"`
	ReviewHistory StringList `json:"review_history" db:"review_history"`
	Genres        StringList `json:"genres"         db:"genres"`
	CreatedAt     time.Time  `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"     db:"updated_at"`
}

// UserDataUpdate replaces whole lists; a nil pointer leaves the list as is.
type UserDataUpdate struct {
	SearchHistory *StringList
	Interests     *StringList
	ViewHistory   *StringList
	ReviewHistory *StringList
	Genres        *StringList
}

// IsEmpty reports whether the update changes nothing.
func (u UserDataUpdate) IsEmpty() bool {
	return u.SearchHistory == nil && u.Interests == nil && u.ViewHistory == nil &&
		u.ReviewHistory == nil && u.Genres == nil
}
