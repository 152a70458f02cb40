package chathub

import (
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// MessageLog appends to the per-room message logs and keeps each one capped.
type MessageLog struct {
	Storage storage.Storage
	// Limit is the number of most recent messages kept per room.
	Limit int
}

// NewMessageLog creates a MessageLog capped at config.MaxMessagesPerRoom.
func NewMessageLog(s storage.Storage) *MessageLog {
	return &MessageLog{Storage: s, Limit: config.MaxMessagesPerRoom}
}

// AppendMessage appends msg to the room's log under the room lock.
func (l *MessageLog) AppendMessage(ctx context.Context, roomID string, msg models.Message) (models.Message, error) {
	unlock, err := l.Storage.Lock(ctx, storage.RoomLockKey(roomID))
	if err != nil {
		return models.Message{}, persistErr("lock room", err)
	}
	defer unlock()
	return l.appendLocked(ctx, roomID, msg)
}

// appendLocked expects the caller to hold the room lock.
func (l *MessageLog) appendLocked(ctx context.Context, roomID string, msg models.Message) (models.Message, error) {
	messages, err := l.Storage.LoadMessages(ctx, roomID)
	if err != nil {
		return models.Message{}, persistErr("load messages", err)
	}
	msg = stamp(roomID, msg)
	messages = appendCapped(messages, msg, l.Limit)
	if err := l.Storage.SaveMessages(ctx, roomID, messages); err != nil {
		return models.Message{}, persistErr("save messages", err)
	}
	l.publish(ctx, roomID, msg)
	return msg, nil
}

// publish is best effort: live delivery never fails the write.
func (l *MessageLog) publish(ctx context.Context, roomID string, msg models.Message) {
	if err := l.Storage.PublishMessage(ctx, roomID, msg); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("chathub: failed to publish message")
	}
}

// stamp fills the id and time fields a caller left empty.
func stamp(roomID string, msg models.Message) models.Message {
	if msg.ID == "" {
		msg.ID = newID(messagePrefix)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.Timestamp == "" {
		msg.Timestamp = msg.CreatedAt.Format("15:04")
	}
	if msg.Type == "" {
		msg.Type = models.MessageTypeText
	}
	msg.RoomID = roomID
	return msg
}

// appendCapped appends msg and drops the oldest entries beyond limit.
func appendCapped(messages []models.Message, msg models.Message, limit int) []models.Message {
	messages = append(messages, msg)
	if limit > 0 && len(messages) > limit {
		messages = append([]models.Message(nil), messages[len(messages)-limit:]...)
	}
	return messages
}

// countUnread counts the messages after lastReadID. An unknown or evicted
// pointer means everything is unread.
func countUnread(messages []models.Message, lastReadID string, found bool) int {
	if !found {
		return len(messages)
	}
	for i := range messages {
		if messages[i].ID == lastReadID {
			return len(messages) - i - 1
		}
	}
	return len(messages)
}
