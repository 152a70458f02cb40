// Package memory is an in-process implementation of storage.Storage.
// It backs the test suites and STORAGE_BACKEND=memory development runs.
package memory

import (
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"context"
	"sort"
	"sync"
)

// Store keeps every collection in maps guarded by one RWMutex. Values are
// copied on the way in and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	profiles    map[string]models.Profile
	directRooms map[string]models.DirectRoom
	groupRooms  map[string]models.GroupRoom
	messages    map[string][]models.Message
	readStatus  map[string]map[string]string
	waiting     []models.WaitingEntry
	groupQueues models.GroupQueues

	locks *keyedMutex
	hub   *roomHub
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		profiles:    make(map[string]models.Profile),
		directRooms: make(map[string]models.DirectRoom),
		groupRooms:  make(map[string]models.GroupRoom),
		messages:    make(map[string][]models.Message),
		readStatus:  make(map[string]map[string]string),
		locks:       newKeyedMutex(),
		hub:         newRoomHub(),
	}
}

// --- Profiles ---

func (s *Store) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p.Interests = append([]string(nil), p.Interests...)
	return &p, nil
}

func (s *Store) SaveProfile(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	p.Interests = append([]string(nil), profile.Interests...)
	s.profiles[p.UserID] = p
	return nil
}

// --- Direct rooms ---

func (s *Store) SaveDirectRoom(_ context.Context, room *models.DirectRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directRooms[room.RoomID] = *room
	return nil
}

func (s *Store) GetDirectRoom(_ context.Context, roomID string) (*models.DirectRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.directRooms[roomID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (s *Store) FindActiveDirectRoomForUser(ctx context.Context, userID string) (*models.DirectRoom, error) {
	rooms, _ := s.ListActiveDirectRooms(ctx, userID)
	if len(rooms) == 0 {
		return nil, nil
	}
	return &rooms[0], nil
}

func (s *Store) ListActiveDirectRooms(_ context.Context, userID string) ([]models.DirectRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DirectRoom
	for _, r := range s.directRooms {
		if r.Active && r.HasParticipant(userID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- Group rooms ---

func (s *Store) SaveGroupRoom(_ context.Context, room *models.GroupRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupRooms[room.RoomID] = copyGroupRoom(*room)
	return nil
}

func (s *Store) GetGroupRoom(_ context.Context, roomID string) (*models.GroupRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.groupRooms[roomID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	r = copyGroupRoom(r)
	return &r, nil
}

func (s *Store) ListActiveGroupRooms(_ context.Context, userID string) ([]models.GroupRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.GroupRoom
	for _, r := range s.groupRooms {
		if _, ok := r.Member(userID); r.Active && ok {
			out = append(out, copyGroupRoom(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListActiveRoomIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, r := range s.directRooms {
		if r.Active {
			ids = append(ids, id)
		}
	}
	for id, r := range s.groupRooms {
		if r.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func copyGroupRoom(r models.GroupRoom) models.GroupRoom {
	r.Members = append([]models.GroupMember(nil), r.Members...)
	return r
}

// --- Message log ---

func (s *Store) LoadMessages(_ context.Context, roomID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages[roomID]...), nil
}

func (s *Store) SaveMessages(_ context.Context, roomID string, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]models.Message, len(messages))
	for i, m := range messages {
		m.RoomID = roomID
		m.Position = i
		stored[i] = m
	}
	s.messages[roomID] = stored
	return nil
}

// --- Queues ---

func (s *Store) LoadWaiting(_ context.Context) ([]models.WaitingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WaitingEntry(nil), s.waiting...), nil
}

func (s *Store) SaveWaiting(_ context.Context, waiting []models.WaitingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting = append([]models.WaitingEntry(nil), waiting...)
	return nil
}

func (s *Store) LoadGroupQueues(_ context.Context) (*models.GroupQueues, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := copyGroupQueues(s.groupQueues)
	return &q, nil
}

func (s *Store) SaveGroupQueues(_ context.Context, queues *models.GroupQueues) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupQueues = copyGroupQueues(*queues)
	return nil
}

func copyGroupQueues(q models.GroupQueues) models.GroupQueues {
	return models.GroupQueues{
		Male:   append([]models.GroupWaitingEntry(nil), q.Male...),
		Female: append([]models.GroupWaitingEntry(nil), q.Female...),
		Groups: append([]string(nil), q.Groups...),
	}
}

// --- Read status ---

func (s *Store) GetLastRead(_ context.Context, userID, roomID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.readStatus[userID][roomID]
	return id, ok, nil
}

func (s *Store) SetLastRead(_ context.Context, userID, roomID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readStatus[userID] == nil {
		s.readStatus[userID] = make(map[string]string)
	}
	s.readStatus[userID][roomID] = messageID
	return nil
}

func (s *Store) LoadReadStatus(_ context.Context, userID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.readStatus[userID]))
	for room, id := range s.readStatus[userID] {
		out[room] = id
	}
	return out, nil
}

// --- Locks and live delivery ---

func (s *Store) Lock(ctx context.Context, key string) (func(), error) {
	return s.locks.Lock(ctx, key)
}

func (s *Store) PublishMessage(_ context.Context, roomID string, msg models.Message) error {
	s.hub.publish(roomID, msg)
	return nil
}

func (s *Store) SubscribeRoom(ctx context.Context, roomID string) (<-chan models.Message, func(), error) {
	ch, cancel := s.hub.subscribe(ctx, roomID)
	return ch, cancel, nil
}

var _ storage.Storage = (*Store)(nil)
