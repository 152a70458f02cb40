package chathub

import (
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// MatcherService відповідає за алгоритм пошуку співрозмовників.
// It pairs opposite-gender users from one FIFO waiting list. Every call runs
// load-modify-save under the pairwise queue lock.
type MatcherService struct {
	Storage storage.Storage
	now     func() time.Time
}

// NewMatcherService створює новий Matcher.
func NewMatcherService(s storage.Storage) *MatcherService {
	return &MatcherService{Storage: s, now: time.Now}
}

// MatchResult is the outcome of StartMatching.
type MatchResult struct {
	Matched   bool                `json:"matched"`
	RoomID    string              `json:"room_id,omitempty"`
	User1     *models.UserSummary `json:"user1,omitempty"`
	User2     *models.UserSummary `json:"user2,omitempty"`
	QueueSize int                 `json:"queue_size"`
}

// MatchingStatus reports where a user stands in pairwise matching.
type MatchingStatus struct {
	Waiting         bool   `json:"waiting"`
	QueueSize       int    `json:"queue_size"`
	ActiveRoomID    string `json:"active_room_id,omitempty"`
	PartnerNickname string `json:"partner_nickname,omitempty"`
}

// StartMatching queues the user and immediately tries to form a pair.
func (m *MatcherService) StartMatching(ctx context.Context, userID string) (*MatchResult, error) {
	logCtx := logrus.WithField("user_id", userID)

	profile, err := requireProfile(ctx, m.Storage, userID)
	if err != nil {
		return nil, err
	}

	unlock, err := m.Storage.Lock(ctx, storage.PairQueueLockKey)
	if err != nil {
		return nil, persistErr("lock waiting queue", err)
	}
	defer unlock()

	waiting, err := m.Storage.LoadWaiting(ctx)
	if err != nil {
		return nil, persistErr("load waiting queue", err)
	}
	for _, e := range waiting {
		if e.UserID == userID {
			logCtx.Warn("StartMatching: user already waiting")
			return nil, ErrAlreadyWaiting
		}
	}

	if err := activeRoomGuard(ctx, m.Storage, userID); err != nil {
		logCtx.WithError(err).Warn("StartMatching: user already in an active room")
		return nil, err
	}

	waiting = append(waiting, models.WaitingEntry{
		UserID:   profile.UserID,
		Nickname: profile.Nickname,
		Gender:   profile.Gender,
		JoinedAt: m.now(),
	})

	i, j, ok := findPair(waiting)
	if !ok {
		if err := m.Storage.SaveWaiting(ctx, waiting); err != nil {
			return nil, persistErr("save waiting queue", err)
		}
		logCtx.WithField("queue_size", len(waiting)).Info("StartMatching: user queued")
		return &MatchResult{Matched: false, QueueSize: len(waiting)}, nil
	}

	a, b := waiting[i], waiting[j]
	room := &models.DirectRoom{
		RoomID:        newID(directRoomPrefix),
		User1ID:       a.UserID,
		User2ID:       b.UserID,
		User1Nickname: a.Nickname,
		User2Nickname: b.Nickname,
		CreatedAt:     m.now(),
		Active:        true,
	}
	if err := m.Storage.SaveDirectRoom(ctx, room); err != nil {
		logCtx.WithError(err).Error("StartMatching: failed to save new room")
		return nil, persistErr("save room", err)
	}

	rest := removeAt(waiting, i, j)
	if err := m.Storage.SaveWaiting(ctx, rest); err != nil {
		logCtx.WithError(err).WithField("room_id", room.RoomID).Error("StartMatching: queue update failed, closing new room")
		m.discardRoom(ctx, room)
		return nil, persistErr("save waiting queue", err)
	}

	logCtx.WithFields(logrus.Fields{
		"room_id": room.RoomID,
		"user1":   a.UserID,
		"user2":   b.UserID,
	}).Info("StartMatching: match found")

	return &MatchResult{
		Matched:   true,
		RoomID:    room.RoomID,
		User1:     &models.UserSummary{UserID: a.UserID, Nickname: a.Nickname, Gender: a.Gender},
		User2:     &models.UserSummary{UserID: b.UserID, Nickname: b.Nickname, Gender: b.Gender},
		QueueSize: len(rest),
	}, nil
}

// CancelMatching removes the user from the waiting list. It reports whether
// an entry was removed; a missing entry is not an error.
func (m *MatcherService) CancelMatching(ctx context.Context, userID string) (bool, error) {
	unlock, err := m.Storage.Lock(ctx, storage.PairQueueLockKey)
	if err != nil {
		return false, persistErr("lock waiting queue", err)
	}
	defer unlock()

	waiting, err := m.Storage.LoadWaiting(ctx)
	if err != nil {
		return false, persistErr("load waiting queue", err)
	}

	kept := waiting[:0:0]
	for _, e := range waiting {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(waiting) {
		return false, nil
	}
	if err := m.Storage.SaveWaiting(ctx, kept); err != nil {
		return false, persistErr("save waiting queue", err)
	}
	logrus.WithField("user_id", userID).Info("CancelMatching: user left the queue")
	return true, nil
}

// GetMatchingStatus lets a queued user find the room a later caller matched them into.
func (m *MatcherService) GetMatchingStatus(ctx context.Context, userID string) (*MatchingStatus, error) {
	waiting, err := m.Storage.LoadWaiting(ctx)
	if err != nil {
		return nil, persistErr("load waiting queue", err)
	}
	status := &MatchingStatus{QueueSize: len(waiting)}
	for _, e := range waiting {
		if e.UserID == userID {
			status.Waiting = true
			break
		}
	}

	active, err := m.Storage.FindActiveDirectRoomForUser(ctx, userID)
	if err != nil {
		return nil, persistErr("find active room", err)
	}
	if active != nil {
		status.ActiveRoomID = active.RoomID
		_, status.PartnerNickname = active.Partner(userID)
	}
	return status, nil
}

// discardRoom deactivates a room whose queue update failed, so neither user
// is left holding an active room while still queued.
func (m *MatcherService) discardRoom(ctx context.Context, room *models.DirectRoom) {
	now := m.now()
	room.Active = false
	room.LeftAt = &now
	room.LeftBy = models.SystemSenderID
	if err := m.Storage.SaveDirectRoom(ctx, room); err != nil {
		logrus.WithError(err).WithField("room_id", room.RoomID).Error("StartMatching: failed to close orphaned room")
	}
}

// activeRoomGuard returns an *ActiveRoomError when the user is in any active
// room. For a group room the counterpart is the room name.
func activeRoomGuard(ctx context.Context, s storage.RoomStore, userID string) error {
	direct, err := s.FindActiveDirectRoomForUser(ctx, userID)
	if err != nil {
		return persistErr("find active room", err)
	}
	if direct != nil {
		_, partnerNickname := direct.Partner(userID)
		return &ActiveRoomError{RoomID: direct.RoomID, PartnerNickname: partnerNickname}
	}

	groups, err := s.ListActiveGroupRooms(ctx, userID)
	if err != nil {
		return persistErr("list group rooms", err)
	}
	if len(groups) > 0 {
		return &ActiveRoomError{RoomID: groups[0].RoomID, PartnerNickname: groups[0].RoomName}
	}
	return nil
}

// findPair returns the first pair (by insertion order) whose genders differ.
func findPair(waiting []models.WaitingEntry) (int, int, bool) {
	if len(waiting) < 2 {
		return 0, 0, false
	}
	for i := 0; i < len(waiting); i++ {
		for j := i + 1; j < len(waiting); j++ {
			if waiting[i].Gender != waiting[j].Gender {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// removeAt returns a copy of waiting without the entries at i and j.
func removeAt(waiting []models.WaitingEntry, i, j int) []models.WaitingEntry {
	out := make([]models.WaitingEntry, 0, len(waiting))
	for k, e := range waiting {
		if k != i && k != j {
			out = append(out, e)
		}
	}
	return out
}

// requireProfile loads the caller's profile, mapping a missing one to ErrProfileRequired.
func requireProfile(ctx context.Context, s storage.ProfileDirectory, userID string) (*models.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProfileRequired
	}
	if err != nil {
		return nil, persistErr("load profile", err)
	}
	if !models.IsValidGender(profile.Gender) {
		return nil, validationErr("validation.gender", "profile gender must be male or female")
	}
	return profile, nil
}
