package models

import "time"

// DirectRoom is a 1-on-1 room created by the pairwise matchmaker.
// Active=false is terminal: the row is kept for history but never listed or entered again.
type DirectRoom struct {
	// RoomID is the unique identifier of the room ("dm_" + UUIDv7).
	RoomID        string    `gorm:"primaryKey" json:"room_id"`
	User1ID       string    `gorm:"type:text;not null;index" json:"user1_id"`
	User2ID       string    `gorm:"type:text;not null;index" json:"user2_id"`
	User1Nickname string    `gorm:"type:text" json:"user1_nickname"`
	User2Nickname string    `gorm:"type:text" json:"user2_nickname"`
	CreatedAt     time.Time `json:"created_at"`

	User1Entered   bool       `json:"user1_entered"`
	User2Entered   bool       `json:"user2_entered"`
	User1EnteredAt *time.Time `json:"user1_entered_at,omitempty"`
	User2EnteredAt *time.Time `json:"user2_entered_at,omitempty"`

	// Active becomes false once any participant leaves.
	Active bool       `gorm:"index" json:"active"`
	LeftAt *time.Time `json:"left_at,omitempty"`
	LeftBy string     `gorm:"type:text" json:"left_by,omitempty"`
}

// HasParticipant reports whether userID is one of the two participants.
func (r *DirectRoom) HasParticipant(userID string) bool {
	return r.User1ID == userID || r.User2ID == userID
}

// Partner returns the id and nickname of the participant that is not userID.
func (r *DirectRoom) Partner(userID string) (string, string) {
	if r.User1ID == userID {
		return r.User2ID, r.User2Nickname
	}
	return r.User1ID, r.User1Nickname
}

// Nickname returns the nickname of the given participant.
func (r *DirectRoom) Nickname(userID string) string {
	if r.User1ID == userID {
		return r.User1Nickname
	}
	return r.User2Nickname
}

// MarkEntered flips the participant's slot to entered. It returns false when
// the slot was already entered.
func (r *DirectRoom) MarkEntered(userID string, at time.Time) bool {
	switch userID {
	case r.User1ID:
		if r.User1Entered {
			return false
		}
		r.User1Entered = true
		r.User1EnteredAt = &at
	case r.User2ID:
		if r.User2Entered {
			return false
		}
		r.User2Entered = true
		r.User2EnteredAt = &at
	default:
		return false
	}
	return true
}

// PartnerEntered reports whether the participant other than userID has entered.
func (r *DirectRoom) PartnerEntered(userID string) bool {
	if r.User1ID == userID {
		return r.User2Entered
	}
	return r.User1Entered
}

// GroupRoom is a room created by the group matchmaker.
type GroupRoom struct {
	RoomID       string        `gorm:"primaryKey" json:"room_id"`
	RoomName     string        `gorm:"type:text;not null" json:"room_name"`
	Members      []GroupMember `gorm:"foreignKey:RoomID;references:RoomID" json:"members"`
	CreatedAt    time.Time     `json:"created_at"`
	Active       bool          `gorm:"index" json:"active"`
	MessageCount int           `json:"message_count"`
	LeftAt       *time.Time    `json:"left_at,omitempty"`
	LeftBy       string        `gorm:"type:text" json:"left_by,omitempty"`
}

// GroupMember is one seat of a GroupRoom. Position keeps the formation order.
type GroupMember struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	RoomID   string `gorm:"type:text;not null;index;uniqueIndex:idx_group_member" json:"-"`
	UserID   string `gorm:"type:text;not null;index;uniqueIndex:idx_group_member" json:"user_id"`
	Position int    `json:"-"`
	Nickname string `gorm:"type:text" json:"nickname"`
	Gender   string `gorm:"type:text" json:"gender"`
}

// Member returns the seat held by userID, if any.
func (r *GroupRoom) Member(userID string) (GroupMember, bool) {
	for _, m := range r.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return GroupMember{}, false
}
