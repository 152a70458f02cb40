package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Profile is the anonymous campus profile of a user.
// It is keyed by the stable anonymous user id issued at /anonid.
type Profile struct {
	UserID    string         `gorm:"primaryKey" json:"user_id"`
	Nickname  string         `gorm:"type:text;not null" json:"nickname"`
	Gender    string         `gorm:"type:text;not null" json:"gender"`
	Year      string         `gorm:"type:text" json:"year"`
	Bio       string         `gorm:"type:text" json:"bio"`
	Interests pq.StringArray `gorm:"type:text[]" json:"interests"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Summary returns the public part of the profile shown to a match.
func (p *Profile) Summary() UserSummary {
	return UserSummary{UserID: p.UserID, Nickname: p.Nickname, Gender: p.Gender}
}

// IsValidGender reports whether g is one of the genders the matchers understand.
func IsValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

// UserSummary is the minimal identity carried by queues and rooms.
type UserSummary struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Gender   string `json:"gender"`
}
