package models

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeEnter = "enter"
	MessageTypeWait  = "wait"
	MessageTypeLeave = "leave"
	MessageTypeGroup = "group"

	SystemSenderID = "system"
)

// Message is one entry of a room's message log.
type Message struct {
	// ID is a UUIDv7, so ids sort by creation time.
	ID             string `gorm:"primaryKey" json:"id"`
	RoomID         string `gorm:"type:text;not null;index:idx_room_position" json:"room_id"`
	Position       int    `gorm:"index:idx_room_position" json:"-"`
	SenderID       string `gorm:"type:text;not null" json:"sender_id"`
	SenderNickname string `gorm:"type:text" json:"sender_nickname"`
	Content        string `gorm:"type:text;not null" json:"content"`
	// Timestamp is the display time ("15:04") shown next to the bubble.
	Timestamp string    `gorm:"type:text" json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `gorm:"type:text;not null" json:"type"`
}

// IsSystem reports whether the message is a wait/enter/leave notice.
func (m *Message) IsSystem() bool {
	switch m.Type {
	case MessageTypeWait, MessageTypeEnter, MessageTypeLeave:
		return true
	}
	return false
}

// ReadStatus is the last message a user has acknowledged in a room.
type ReadStatus struct {
	UserID            string    `gorm:"primaryKey" json:"user_id"`
	RoomID            string    `gorm:"primaryKey" json:"room_id"`
	LastReadMessageID string    `gorm:"type:text;not null" json:"last_read_message_id"`
	UpdatedAt         time.Time `json:"updated_at"`
}
