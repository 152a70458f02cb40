package chathub_test

import (
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if p, ok := args.Get(0).(*models.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) SaveProfile(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockStorage) SaveDirectRoom(ctx context.Context, room *models.DirectRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockStorage) GetDirectRoom(ctx context.Context, roomID string) (*models.DirectRoom, error) {
	args := m.Called(ctx, roomID)
	if r, ok := args.Get(0).(*models.DirectRoom); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) FindActiveDirectRoomForUser(ctx context.Context, userID string) (*models.DirectRoom, error) {
	args := m.Called(ctx, userID)
	if r, ok := args.Get(0).(*models.DirectRoom); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) ListActiveDirectRooms(ctx context.Context, userID string) ([]models.DirectRoom, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.DirectRoom), args.Error(1)
}

func (m *MockStorage) SaveGroupRoom(ctx context.Context, room *models.GroupRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockStorage) GetGroupRoom(ctx context.Context, roomID string) (*models.GroupRoom, error) {
	args := m.Called(ctx, roomID)
	if r, ok := args.Get(0).(*models.GroupRoom); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) ListActiveGroupRooms(ctx context.Context, userID string) ([]models.GroupRoom, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.GroupRoom), args.Error(1)
}

func (m *MockStorage) ListActiveRoomIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) LoadMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) SaveMessages(ctx context.Context, roomID string, messages []models.Message) error {
	args := m.Called(ctx, roomID, messages)
	return args.Error(0)
}

func (m *MockStorage) LoadWaiting(ctx context.Context) ([]models.WaitingEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.WaitingEntry), args.Error(1)
}

func (m *MockStorage) SaveWaiting(ctx context.Context, waiting []models.WaitingEntry) error {
	args := m.Called(ctx, waiting)
	return args.Error(0)
}

func (m *MockStorage) LoadGroupQueues(ctx context.Context) (*models.GroupQueues, error) {
	args := m.Called(ctx)
	if q, ok := args.Get(0).(*models.GroupQueues); ok {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) SaveGroupQueues(ctx context.Context, queues *models.GroupQueues) error {
	args := m.Called(ctx, queues)
	return args.Error(0)
}

func (m *MockStorage) GetLastRead(ctx context.Context, userID, roomID string) (string, bool, error) {
	args := m.Called(ctx, userID, roomID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStorage) SetLastRead(ctx context.Context, userID, roomID, messageID string) error {
	args := m.Called(ctx, userID, roomID, messageID)
	return args.Error(0)
}

func (m *MockStorage) LoadReadStatus(ctx context.Context, userID string) (map[string]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(map[string]string), args.Error(1)
}

// Lock is not recorded: every test gets a no-op lock.
func (m *MockStorage) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

func (m *MockStorage) PublishMessage(ctx context.Context, roomID string, msg models.Message) error {
	args := m.Called(ctx, roomID, msg)
	return args.Error(0)
}

func (m *MockStorage) SubscribeRoom(ctx context.Context, roomID string) (<-chan models.Message, func(), error) {
	args := m.Called(ctx, roomID)
	ch, _ := args.Get(0).(<-chan models.Message)
	return ch, func() {}, args.Error(1)
}
