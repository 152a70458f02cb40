package storage

import (
	"campusmatch/backend/internal/models"
	"context"
	"errors"
)

// ErrNotFound is returned by lookups for a record that does not exist.
var ErrNotFound = errors.New("storage: record not found")

// ProfileDirectory maps a stable user id to its anonymous profile.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error
}

// RoomStore persists direct and group rooms. Rooms are never deleted.
type RoomStore interface {
	SaveDirectRoom(ctx context.Context, room *models.DirectRoom) error
	GetDirectRoom(ctx context.Context, roomID string) (*models.DirectRoom, error)
	// FindActiveDirectRoomForUser returns nil, nil when the user has no active room.
	FindActiveDirectRoomForUser(ctx context.Context, userID string) (*models.DirectRoom, error)
	ListActiveDirectRooms(ctx context.Context, userID string) ([]models.DirectRoom, error)

	SaveGroupRoom(ctx context.Context, room *models.GroupRoom) error
	GetGroupRoom(ctx context.Context, roomID string) (*models.GroupRoom, error)
	ListActiveGroupRooms(ctx context.Context, userID string) ([]models.GroupRoom, error)

	ListActiveRoomIDs(ctx context.Context) ([]string, error)
}

// MessageLog stores the ordered message list of each room.
// SaveMessages replaces the whole list.
type MessageLog interface {
	LoadMessages(ctx context.Context, roomID string) ([]models.Message, error)
	SaveMessages(ctx context.Context, roomID string, messages []models.Message) error
}

// QueueStore persists the waiting queues of both matchmakers.
type QueueStore interface {
	LoadWaiting(ctx context.Context) ([]models.WaitingEntry, error)
	SaveWaiting(ctx context.Context, waiting []models.WaitingEntry) error
	LoadGroupQueues(ctx context.Context) (*models.GroupQueues, error)
	SaveGroupQueues(ctx context.Context, queues *models.GroupQueues) error
}

// ReadStatusStore keeps the last-read message id per (user, room).
type ReadStatusStore interface {
	GetLastRead(ctx context.Context, userID, roomID string) (string, bool, error)
	SetLastRead(ctx context.Context, userID, roomID, messageID string) error
	LoadReadStatus(ctx context.Context, userID string) (map[string]string, error)
}

// Locker serializes read-modify-write cycles on one resource key.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Publisher fans newly appended messages out to live room subscribers.
type Publisher interface {
	PublishMessage(ctx context.Context, roomID string, msg models.Message) error
	SubscribeRoom(ctx context.Context, roomID string) (<-chan models.Message, func(), error)
}

// Storage is everything the chat engine needs from persistence.
type Storage interface {
	ProfileDirectory
	RoomStore
	MessageLog
	QueueStore
	ReadStatusStore
	Locker
	Publisher
}

// Lock keys shared by every Locker implementation.
const (
	PairQueueLockKey  = "queue:pair"
	GroupQueueLockKey = "queue:group"
)

func RoomLockKey(roomID string) string { return "room:" + roomID }
func ReadLockKey(userID string) string { return "read:" + userID }
