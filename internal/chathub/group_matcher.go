package chathub

import (
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/localization"
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// GroupMatcherService forms 3-6 person mixed groups from two gender queues.
type GroupMatcherService struct {
	Storage   storage.Storage
	Localizer *localization.Localizer
	Lang      string
	now       func() time.Time
}

func NewGroupMatcherService(s storage.Storage, loc *localization.Localizer) *GroupMatcherService {
	return &GroupMatcherService{
		Storage:   s,
		Localizer: loc,
		Lang:      config.DefaultLanguage,
		now:       time.Now,
	}
}

// GroupFormation is the outcome of StartGroupMatching.
type GroupFormation struct {
	Formed        bool              `json:"formed"`
	Room          *models.GroupRoom `json:"room,omitempty"`
	MaleWaiting   int               `json:"male_waiting"`
	FemaleWaiting int               `json:"female_waiting"`
}

// GroupMatchingStatus reports whether the user is queued and the queue sizes.
type GroupMatchingStatus struct {
	Queued        bool   `json:"queued"`
	Gender        string `json:"gender,omitempty"`
	MaleWaiting   int    `json:"male_waiting"`
	FemaleWaiting int    `json:"female_waiting"`
}

// StartGroupMatching enqueues the user in the queue of their gender and then
// forms at most one group.
func (g *GroupMatcherService) StartGroupMatching(ctx context.Context, userID string) (*GroupFormation, error) {
	logCtx := logrus.WithField("user_id", userID)

	profile, err := requireProfile(ctx, g.Storage, userID)
	if err != nil {
		return nil, err
	}

	unlock, err := g.Storage.Lock(ctx, storage.GroupQueueLockKey)
	if err != nil {
		return nil, persistErr("lock group queues", err)
	}
	defer unlock()

	queues, err := g.Storage.LoadGroupQueues(ctx)
	if err != nil {
		return nil, persistErr("load group queues", err)
	}
	if queues.Contains(userID) {
		logCtx.Warn("StartGroupMatching: user already queued")
		return nil, ErrAlreadyQueued
	}

	entry := models.GroupWaitingEntry{
		UserID:   profile.UserID,
		Nickname: profile.Nickname,
		Gender:   profile.Gender,
		JoinTime: g.now(),
	}
	if profile.Gender == models.GenderMale {
		queues.Male = append(queues.Male, entry)
	} else {
		queues.Female = append(queues.Female, entry)
	}

	males, females, ok := planGroup(len(queues.Male), len(queues.Female))
	if !ok {
		if err := g.Storage.SaveGroupQueues(ctx, queues); err != nil {
			return nil, persistErr("save group queues", err)
		}
		logCtx.WithFields(logrus.Fields{"male": len(queues.Male), "female": len(queues.Female)}).Info("StartGroupMatching: user queued")
		return &GroupFormation{MaleWaiting: len(queues.Male), FemaleWaiting: len(queues.Female)}, nil
	}

	picked := make([]models.GroupWaitingEntry, 0, males+females)
	picked = append(picked, queues.Male[:males]...)
	picked = append(picked, queues.Female[:females]...)

	room := &models.GroupRoom{
		RoomID:    newID(groupRoomPrefix),
		RoomName:  g.Localizer.Format(g.Lang, "group.room_name", len(queues.Groups)+1),
		Members:   make([]models.GroupMember, len(picked)),
		CreatedAt: g.now(),
		Active:    true,
	}
	for i, e := range picked {
		room.Members[i] = models.GroupMember{
			RoomID:   room.RoomID,
			UserID:   e.UserID,
			Position: i,
			Nickname: e.Nickname,
			Gender:   e.Gender,
		}
	}

	if err := g.Storage.SaveGroupRoom(ctx, room); err != nil {
		logCtx.WithError(err).Error("StartGroupMatching: failed to save group room")
		return nil, persistErr("save group room", err)
	}

	queues.Male = append([]models.GroupWaitingEntry(nil), queues.Male[males:]...)
	queues.Female = append([]models.GroupWaitingEntry(nil), queues.Female[females:]...)
	queues.Groups = append(queues.Groups, room.RoomID)
	if err := g.Storage.SaveGroupQueues(ctx, queues); err != nil {
		logCtx.WithError(err).WithField("room_id", room.RoomID).Error("StartGroupMatching: room saved but queue update failed")
		return nil, persistErr("save group queues", err)
	}

	logCtx.WithFields(logrus.Fields{
		"room_id": room.RoomID,
		"male":    males,
		"female":  females,
	}).Info("StartGroupMatching: group formed")

	return &GroupFormation{
		Formed:        true,
		Room:          room,
		MaleWaiting:   len(queues.Male),
		FemaleWaiting: len(queues.Female),
	}, nil
}

// CancelGroupMatching removes the user from whichever queue holds them.
func (g *GroupMatcherService) CancelGroupMatching(ctx context.Context, userID string) (bool, error) {
	unlock, err := g.Storage.Lock(ctx, storage.GroupQueueLockKey)
	if err != nil {
		return false, persistErr("lock group queues", err)
	}
	defer unlock()

	queues, err := g.Storage.LoadGroupQueues(ctx)
	if err != nil {
		return false, persistErr("load group queues", err)
	}
	if !queues.Contains(userID) {
		return false, nil
	}
	queues.Male = withoutUser(queues.Male, userID)
	queues.Female = withoutUser(queues.Female, userID)
	if err := g.Storage.SaveGroupQueues(ctx, queues); err != nil {
		return false, persistErr("save group queues", err)
	}
	logrus.WithField("user_id", userID).Info("CancelGroupMatching: user left the group queue")
	return true, nil
}

func (g *GroupMatcherService) GetGroupMatchingStatus(ctx context.Context, userID string) (*GroupMatchingStatus, error) {
	queues, err := g.Storage.LoadGroupQueues(ctx)
	if err != nil {
		return nil, persistErr("load group queues", err)
	}
	status := &GroupMatchingStatus{MaleWaiting: len(queues.Male), FemaleWaiting: len(queues.Female)}
	for _, e := range queues.Male {
		if e.UserID == userID {
			status.Queued, status.Gender = true, models.GenderMale
		}
	}
	for _, e := range queues.Female {
		if e.UserID == userID {
			status.Queued, status.Gender = true, models.GenderFemale
		}
	}
	return status, nil
}

// planGroup picks the group composition: smallest size first, then the
// smallest male count, such that both genders are present, the majority is at
// most MaxGenderRatio times the minority and the queues hold enough users.
func planGroup(males, females int) (int, int, bool) {
	if males+females < config.GroupMinSize {
		return 0, 0, false
	}
	for size := config.GroupMinSize; size <= config.GroupMaxSize; size++ {
		for m := 1; m < size; m++ {
			f := size - m
			if m > males || f > females {
				continue
			}
			if max(m, f) > config.MaxGenderRatio*min(m, f) {
				continue
			}
			return m, f, true
		}
	}
	return 0, 0, false
}

func withoutUser(entries []models.GroupWaitingEntry, userID string) []models.GroupWaitingEntry {
	out := make([]models.GroupWaitingEntry, 0, len(entries))
	for _, e := range entries {
		if e.UserID != userID {
			out = append(out, e)
		}
	}
	return out
}
