package chathub

import (
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"context"

	"github.com/sirupsen/logrus"
)

// ReadTracker keeps each user's last-read pointer per room.
type ReadTracker struct {
	Storage storage.Storage
}

func NewReadTracker(s storage.Storage) *ReadTracker {
	return &ReadTracker{Storage: s}
}

// MarkRead moves the user's pointer to the newest message of the room and
// returns its id. It is a no-op returning "" when the room has no messages.
func (t *ReadTracker) MarkRead(ctx context.Context, userID, roomID string) (string, error) {
	unlock, err := t.Storage.Lock(ctx, storage.ReadLockKey(userID))
	if err != nil {
		return "", persistErr("lock read status", err)
	}
	defer unlock()

	messages, err := t.Storage.LoadMessages(ctx, roomID)
	if err != nil {
		return "", persistErr("load messages", err)
	}
	if len(messages) == 0 {
		return "", nil
	}

	newest := messages[len(messages)-1].ID
	if err := t.Storage.SetLastRead(ctx, userID, roomID, newest); err != nil {
		return "", persistErr("save read status", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID, "message_id": newest}).Debug("chathub: marked read")
	return newest, nil
}

// UnreadCount returns how many messages of the room the user has not read.
func (t *ReadTracker) UnreadCount(ctx context.Context, userID, roomID string) (int, error) {
	messages, err := t.Storage.LoadMessages(ctx, roomID)
	if err != nil {
		return 0, persistErr("load messages", err)
	}
	return t.unreadIn(ctx, userID, roomID, messages)
}

func (t *ReadTracker) unreadIn(ctx context.Context, userID, roomID string, messages []models.Message) (int, error) {
	lastRead, found, err := t.Storage.GetLastRead(ctx, userID, roomID)
	if err != nil {
		return 0, persistErr("load read status", err)
	}
	return countUnread(messages, lastRead, found), nil
}
