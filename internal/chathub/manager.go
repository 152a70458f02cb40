package chathub

import (
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/localization"
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	RoomKindDirect = "direct"
	RoomKindGroup  = "group"

	maxMessageRunes = 1000
)

// ManagerService owns the room lifecycle: entry, leaving, listings and the
// messages exchanged inside a room.
type ManagerService struct {
	Storage   storage.Storage
	Log       *MessageLog
	Reads     *ReadTracker
	Localizer *localization.Localizer
	Lang      string
	now       func() time.Time
}

func NewManagerService(s storage.Storage, loc *localization.Localizer) *ManagerService {
	return &ManagerService{
		Storage:   s,
		Log:       NewMessageLog(s),
		Reads:     NewReadTracker(s),
		Localizer: loc,
		Lang:      config.DefaultLanguage,
		now:       time.Now,
	}
}

// EnterResult describes the room state after EnterRoom.
type EnterResult struct {
	RoomID         string             `json:"room_id"`
	Kind           string             `json:"kind"`
	Direct         *models.DirectRoom `json:"direct,omitempty"`
	Group          *models.GroupRoom  `json:"group,omitempty"`
	FirstJoin      bool               `json:"first_join"`
	PartnerEntered bool               `json:"partner_entered"`
	Notice         *models.Message    `json:"notice,omitempty"`
}

// RoomSummary is one row of a user's room list.
type RoomSummary struct {
	RoomID          string               `json:"room_id"`
	Kind            string               `json:"kind"`
	Name            string               `json:"name"`
	PartnerNickname string               `json:"partner_nickname,omitempty"`
	Members         []models.UserSummary `json:"members"`
	UnreadCount     int                  `json:"unread_count"`
	LastMessage     *models.Message      `json:"last_message,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// roomRef is either a direct or a group room.
type roomRef struct {
	direct *models.DirectRoom
	group  *models.GroupRoom
}

func (r roomRef) id() string {
	if r.direct != nil {
		return r.direct.RoomID
	}
	return r.group.RoomID
}

func (r roomRef) active() bool {
	if r.direct != nil {
		return r.direct.Active
	}
	return r.group.Active
}

func (r roomRef) nickname(userID string) (string, bool) {
	if r.direct != nil {
		if !r.direct.HasParticipant(userID) {
			return "", false
		}
		return r.direct.Nickname(userID), true
	}
	m, ok := r.group.Member(userID)
	return m.Nickname, ok
}

func (m *ManagerService) loadRoom(ctx context.Context, roomID string) (roomRef, error) {
	direct, err := m.Storage.GetDirectRoom(ctx, roomID)
	if err == nil {
		return roomRef{direct: direct}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return roomRef{}, persistErr("load room", err)
	}
	group, err := m.Storage.GetGroupRoom(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return roomRef{}, ErrRoomNotFound
	}
	if err != nil {
		return roomRef{}, persistErr("load room", err)
	}
	return roomRef{group: group}, nil
}

// loadForParticipant loads the room and checks that userID is a member.
// When requireActive is set an inactive room is rejected first.
func (m *ManagerService) loadForParticipant(ctx context.Context, roomID, userID string, requireActive bool) (roomRef, string, error) {
	ref, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return roomRef{}, "", err
	}
	if requireActive && !ref.active() {
		return roomRef{}, "", ErrRoomInactive
	}
	nickname, ok := ref.nickname(userID)
	if !ok {
		return roomRef{}, "", ErrNotAParticipant
	}
	return ref, nickname, nil
}

// EnterRoom marks the user as entered. The first entry into a direct room
// posts one system notice: "wait" while the partner is absent, "enter" once
// both are in, replacing a trailing "wait" notice in place.
func (m *ManagerService) EnterRoom(ctx context.Context, roomID, userID string) (*EnterResult, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	unlock, err := m.Storage.Lock(ctx, storage.RoomLockKey(roomID))
	if err != nil {
		return nil, persistErr("lock room", err)
	}
	defer unlock()

	ref, _, err := m.loadForParticipant(ctx, roomID, userID, true)
	if err != nil {
		logCtx.WithError(err).Warn("EnterRoom: rejected")
		return nil, err
	}

	if ref.group != nil {
		return &EnterResult{RoomID: roomID, Kind: RoomKindGroup, Group: ref.group}, nil
	}

	room := ref.direct
	res := &EnterResult{RoomID: roomID, Kind: RoomKindDirect, Direct: room}
	res.FirstJoin = room.MarkEntered(userID, m.now())
	res.PartnerEntered = room.PartnerEntered(userID)
	if !res.FirstJoin {
		return res, nil
	}

	// The notice goes first: if the room save then fails, a retry still sees a
	// first join and the duplicate suppression keeps the log unchanged.
	notice, err := m.postEntryNotice(ctx, roomID, res.PartnerEntered)
	if err != nil {
		logCtx.WithError(err).Error("EnterRoom: failed to post entry notice")
		return nil, err
	}
	res.Notice = notice

	if err := m.Storage.SaveDirectRoom(ctx, room); err != nil {
		logCtx.WithError(err).Error("EnterRoom: failed to save room")
		return nil, persistErr("save room", err)
	}

	logCtx.WithField("partner_entered", res.PartnerEntered).Info("EnterRoom: first join")
	return res, nil
}

// postEntryNotice expects the caller to hold the room lock. It returns nil
// when no notice was needed.
func (m *ManagerService) postEntryNotice(ctx context.Context, roomID string, partnerEntered bool) (*models.Message, error) {
	messages, err := m.Storage.LoadMessages(ctx, roomID)
	if err != nil {
		return nil, persistErr("load messages", err)
	}
	var last *models.Message
	if len(messages) > 0 {
		last = &messages[len(messages)-1]
	}

	var notice models.Message
	if !partnerEntered {
		if last != nil && (last.Type == models.MessageTypeWait || last.Type == models.MessageTypeEnter) {
			return nil, nil
		}
		notice = m.systemMessage(roomID, models.MessageTypeWait, m.Localizer.GetString(m.Lang, "system.wait"))
		messages = appendCapped(messages, notice, m.Log.Limit)
	} else {
		// An enter notice is only ever last when an earlier attempt posted it.
		if last != nil && last.Type == models.MessageTypeEnter {
			return nil, nil
		}
		notice = m.systemMessage(roomID, models.MessageTypeEnter, m.Localizer.GetString(m.Lang, "system.enter"))
		if last != nil && last.Type == models.MessageTypeWait {
			messages[len(messages)-1] = notice
		} else {
			messages = appendCapped(messages, notice, m.Log.Limit)
		}
	}

	if err := m.Storage.SaveMessages(ctx, roomID, messages); err != nil {
		return nil, persistErr("save messages", err)
	}
	m.Log.publish(ctx, roomID, notice)
	return &notice, nil
}

func (m *ManagerService) systemMessage(roomID, typ, content string) models.Message {
	return stamp(roomID, models.Message{
		SenderID:       models.SystemSenderID,
		SenderNickname: models.SystemSenderID,
		Content:        content,
		Type:           typ,
		CreatedAt:      m.now(),
	})
}

// LeaveRoom deactivates the room for every participant. It is permanent.
func (m *ManagerService) LeaveRoom(ctx context.Context, roomID, userID string) (*RoomSummary, error) {
	unlock, err := m.Storage.Lock(ctx, storage.RoomLockKey(roomID))
	if err != nil {
		return nil, persistErr("lock room", err)
	}
	defer unlock()

	ref, nickname, err := m.loadForParticipant(ctx, roomID, userID, true)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID}).WithError(err).Warn("LeaveRoom: rejected")
		return nil, err
	}
	notice := m.Localizer.Format(m.Lang, "system.leave", nickname)
	if err := m.deactivate(ctx, ref, userID, notice); err != nil {
		return nil, err
	}
	return m.summarize(ref, userID, nil, 0), nil
}

// CloseRoom deactivates a room on behalf of an operator, without a membership check.
func (m *ManagerService) CloseRoom(ctx context.Context, roomID, by string) error {
	unlock, err := m.Storage.Lock(ctx, storage.RoomLockKey(roomID))
	if err != nil {
		return persistErr("lock room", err)
	}
	defer unlock()

	ref, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !ref.active() {
		return ErrRoomInactive
	}
	return m.deactivate(ctx, ref, by, m.Localizer.GetString(m.Lang, "system.closed"))
}

// deactivate expects the caller to hold the room lock. content is the text of
// the leave notice posted once the room is closed.
func (m *ManagerService) deactivate(ctx context.Context, ref roomRef, by, content string) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": ref.id(), "left_by": by})
	now := m.now()

	if ref.direct != nil {
		ref.direct.Active = false
		ref.direct.LeftAt = &now
		ref.direct.LeftBy = by
		if err := m.Storage.SaveDirectRoom(ctx, ref.direct); err != nil {
			logCtx.WithError(err).Error("LeaveRoom: failed to save room")
			return persistErr("save room", err)
		}
	} else {
		ref.group.Active = false
		ref.group.LeftAt = &now
		ref.group.LeftBy = by
		if err := m.Storage.SaveGroupRoom(ctx, ref.group); err != nil {
			logCtx.WithError(err).Error("LeaveRoom: failed to save room")
			return persistErr("save room", err)
		}
	}

	// The room is closed at this point; a missing notice is only logged.
	notice := m.systemMessage(ref.id(), models.MessageTypeLeave, content)
	if _, err := m.Log.appendLocked(ctx, ref.id(), notice); err != nil {
		logCtx.WithError(err).Error("LeaveRoom: room closed but leave notice was not saved")
	}

	logCtx.Info("LeaveRoom: room deactivated")
	return nil
}

// SendMessage appends a user message to an active room the user belongs to.
func (m *ManagerService) SendMessage(ctx context.Context, roomID, userID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationErr("validation.message_empty", "message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return nil, validationErr("validation.message_too_long", "message content is too long")
	}

	unlock, err := m.Storage.Lock(ctx, storage.RoomLockKey(roomID))
	if err != nil {
		return nil, persistErr("lock room", err)
	}
	defer unlock()

	ref, nickname, err := m.loadForParticipant(ctx, roomID, userID, true)
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		SenderID:       userID,
		SenderNickname: nickname,
		Content:        content,
		Type:           models.MessageTypeText,
		CreatedAt:      m.now(),
	}
	if ref.group != nil {
		msg.Type = models.MessageTypeGroup
	}

	saved, err := m.Log.appendLocked(ctx, roomID, msg)
	if err != nil {
		return nil, err
	}

	if ref.group != nil {
		ref.group.MessageCount++
		if err := m.Storage.SaveGroupRoom(ctx, ref.group); err != nil {
			return nil, persistErr("save group room", err)
		}
	}
	return &saved, nil
}

// GetMessages returns the room's log. Closed rooms stay readable for their members.
func (m *ManagerService) GetMessages(ctx context.Context, roomID, userID string) ([]models.Message, error) {
	if _, _, err := m.loadForParticipant(ctx, roomID, userID, false); err != nil {
		return nil, err
	}
	messages, err := m.Storage.LoadMessages(ctx, roomID)
	if err != nil {
		return nil, persistErr("load messages", err)
	}
	return messages, nil
}

// MarkRead acknowledges every message currently in the room.
func (m *ManagerService) MarkRead(ctx context.Context, roomID, userID string) (string, error) {
	if _, _, err := m.loadForParticipant(ctx, roomID, userID, false); err != nil {
		return "", err
	}
	return m.Reads.MarkRead(ctx, userID, roomID)
}

func (m *ManagerService) UnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	if _, _, err := m.loadForParticipant(ctx, roomID, userID, false); err != nil {
		return 0, err
	}
	return m.Reads.UnreadCount(ctx, userID, roomID)
}

// Subscribe streams new messages of a room the user belongs to.
func (m *ManagerService) Subscribe(ctx context.Context, roomID, userID string) (<-chan models.Message, func(), error) {
	if _, _, err := m.loadForParticipant(ctx, roomID, userID, true); err != nil {
		return nil, nil, err
	}
	ch, cancel, err := m.Storage.SubscribeRoom(ctx, roomID)
	if err != nil {
		return nil, nil, persistErr("subscribe room", err)
	}
	return ch, cancel, nil
}

// ListRoomsFor returns the user's active rooms, most recently active first,
// each with its unread count.
func (m *ManagerService) ListRoomsFor(ctx context.Context, userID string) ([]RoomSummary, error) {
	directs, err := m.Storage.ListActiveDirectRooms(ctx, userID)
	if err != nil {
		return nil, persistErr("list direct rooms", err)
	}
	groups, err := m.Storage.ListActiveGroupRooms(ctx, userID)
	if err != nil {
		return nil, persistErr("list group rooms", err)
	}
	reads, err := m.Storage.LoadReadStatus(ctx, userID)
	if err != nil {
		return nil, persistErr("load read status", err)
	}

	refs := make([]roomRef, 0, len(directs)+len(groups))
	for i := range directs {
		refs = append(refs, roomRef{direct: &directs[i]})
	}
	for i := range groups {
		refs = append(refs, roomRef{group: &groups[i]})
	}

	out := make([]RoomSummary, 0, len(refs))
	for _, ref := range refs {
		messages, err := m.Storage.LoadMessages(ctx, ref.id())
		if err != nil {
			return nil, persistErr("load messages", err)
		}
		lastRead, found := reads[ref.id()]
		var last *models.Message
		if len(messages) > 0 {
			last = &messages[len(messages)-1]
		}
		out = append(out, *m.summarize(ref, userID, last, countUnread(messages, lastRead, found)))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return activity(out[i]).After(activity(out[j]))
	})
	return out, nil
}

func activity(s RoomSummary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.CreatedAt
}

func (m *ManagerService) summarize(ref roomRef, userID string, last *models.Message, unread int) *RoomSummary {
	if ref.direct != nil {
		r := ref.direct
		partnerID, partnerNickname := r.Partner(userID)
		return &RoomSummary{
			RoomID:          r.RoomID,
			Kind:            RoomKindDirect,
			Name:            partnerNickname,
			PartnerNickname: partnerNickname,
			Members:         []models.UserSummary{{UserID: partnerID, Nickname: partnerNickname}},
			UnreadCount:     unread,
			LastMessage:     last,
			CreatedAt:       r.CreatedAt,
		}
	}
	r := ref.group
	members := make([]models.UserSummary, 0, len(r.Members))
	for _, mem := range r.Members {
		members = append(members, models.UserSummary{UserID: mem.UserID, Nickname: mem.Nickname, Gender: mem.Gender})
	}
	return &RoomSummary{
		RoomID:      r.RoomID,
		Kind:        RoomKindGroup,
		Name:        r.RoomName,
		Members:     members,
		UnreadCount: unread,
		LastMessage: last,
		CreatedAt:   r.CreatedAt,
	}
}

// RecoverActiveRooms logs how many rooms are still active after a restart.
func (m *ManagerService) RecoverActiveRooms(ctx context.Context) (int, error) {
	ids, err := m.Storage.ListActiveRoomIDs(ctx)
	if err != nil {
		logrus.WithError(err).Error("RecoverActiveRooms: failed to list active rooms")
		return 0, persistErr("list active rooms", err)
	}
	logrus.WithField("active_rooms", len(ids)).Info("RecoverActiveRooms: recovery complete")
	return len(ids), nil
}
