package chathub_test

import (
	"campusmatch/backend/internal/chathub"
	"campusmatch/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestEnterRoomScenario walks the wait/enter notice flow of a fresh direct room.
func TestEnterRoomScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	res, err := env.manager.EnterRoom(ctx, roomID, "A")
	require.NoError(t, err)
	assert.True(t, res.FirstJoin)
	assert.False(t, res.PartnerEntered)
	require.NotNil(t, res.Notice)
	assert.Equal(t, models.MessageTypeWait, res.Notice.Type)

	msgs := env.messages(t, roomID)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageTypeWait, msgs[0].Type)

	res, err = env.manager.EnterRoom(ctx, roomID, "B")
	require.NoError(t, err)
	assert.True(t, res.FirstJoin)
	assert.True(t, res.PartnerEntered)
	assert.True(t, res.Direct.User1Entered)
	assert.True(t, res.Direct.User2Entered)

	msgs = env.messages(t, roomID)
	require.Len(t, msgs, 1, "the wait notice is replaced, not duplicated")
	assert.Equal(t, models.MessageTypeEnter, msgs[0].Type)
	assert.True(t, msgs[0].IsSystem())
}

func TestEnterRoomIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	first, err := env.manager.EnterRoom(ctx, roomID, "A")
	require.NoError(t, err)
	again, err := env.manager.EnterRoom(ctx, roomID, "A")
	require.NoError(t, err)

	assert.False(t, again.FirstJoin)
	assert.Nil(t, again.Notice)
	assert.Equal(t, first.Direct.User1Entered, again.Direct.User1Entered)
	assert.Equal(t, 1, countType(env.messages(t, roomID), models.MessageTypeWait))

	_, err = env.manager.EnterRoom(ctx, roomID, "B")
	require.NoError(t, err)
	_, err = env.manager.EnterRoom(ctx, roomID, "B")
	require.NoError(t, err)

	msgs := env.messages(t, roomID)
	assert.Equal(t, 1, countType(msgs, models.MessageTypeEnter))
	assert.Equal(t, 0, countType(msgs, models.MessageTypeWait))
}

func TestEnterRoomAppendsEnterAfterConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	_, err := env.manager.EnterRoom(ctx, roomID, "A")
	require.NoError(t, err)
	_, err = env.manager.SendMessage(ctx, roomID, "A", "anyone here?")
	require.NoError(t, err)
	_, err = env.manager.EnterRoom(ctx, roomID, "B")
	require.NoError(t, err)

	msgs := env.messages(t, roomID)
	require.Len(t, msgs, 3)
	assert.Equal(t, models.MessageTypeWait, msgs[0].Type)
	assert.Equal(t, models.MessageTypeText, msgs[1].Type)
	assert.Equal(t, models.MessageTypeEnter, msgs[2].Type)
}

func TestEnterRoomErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	_, err := env.manager.EnterRoom(ctx, "dm_missing", "A")
	assert.ErrorIs(t, err, chathub.ErrRoomNotFound)

	_, err = env.manager.EnterRoom(ctx, roomID, "C")
	assert.ErrorIs(t, err, chathub.ErrNotAParticipant)

	_, err = env.manager.LeaveRoom(ctx, roomID, "A")
	require.NoError(t, err)
	_, err = env.manager.EnterRoom(ctx, roomID, "B")
	assert.ErrorIs(t, err, chathub.ErrRoomInactive)
}

func TestLeaveRoomIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	_, err := env.manager.LeaveRoom(ctx, roomID, "A")
	require.NoError(t, err)

	room, err := env.store.GetDirectRoom(ctx, roomID)
	require.NoError(t, err)
	assert.False(t, room.Active)
	assert.Equal(t, "A", room.LeftBy)
	assert.NotNil(t, room.LeftAt)

	msgs := env.messages(t, roomID)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, models.MessageTypeLeave, last.Type)
	assert.Contains(t, last.Content, "nick-A")

	_, err = env.manager.LeaveRoom(ctx, roomID, "B")
	assert.ErrorIs(t, err, chathub.ErrRoomInactive)
	_, err = env.manager.SendMessage(ctx, roomID, "B", "hello?")
	assert.ErrorIs(t, err, chathub.ErrRoomInactive)

	// History stays readable.
	history, err := env.manager.GetMessages(ctx, roomID, "B")
	require.NoError(t, err)
	assert.Len(t, history, len(msgs))

	rooms, err := env.manager.ListRoomsFor(ctx, "B")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestLeaveRoomSucceedsWhenNoticeFails(t *testing.T) {
	storageMock := new(MockStorage)
	env := newTestEnv(t)
	manager := chathub.NewManagerService(storageMock, env.manager.Localizer)
	ctx := context.Background()

	room := &models.DirectRoom{RoomID: "dm_1", User1ID: "A", User2ID: "B", User1Nickname: "a", Active: true}
	storageMock.On("GetDirectRoom", mock.Anything, "dm_1").Return(room, nil)
	storageMock.On("SaveDirectRoom", mock.Anything, room).Return(nil)
	storageMock.On("LoadMessages", mock.Anything, "dm_1").Return([]models.Message(nil), errors.New("timeout"))

	summary, err := manager.LeaveRoom(ctx, "dm_1", "A")
	require.NoError(t, err)
	assert.Equal(t, "dm_1", summary.RoomID)
	assert.False(t, room.Active)
	storageMock.AssertNotCalled(t, "SaveMessages", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	_, err := env.manager.SendMessage(ctx, roomID, "A", "   ")
	assert.ErrorIs(t, err, chathub.ErrValidation)
	var invalid *chathub.ValidationError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "validation.message_empty", invalid.Key)

	_, err = env.manager.SendMessage(ctx, roomID, "C", "hi")
	assert.ErrorIs(t, err, chathub.ErrNotAParticipant)

	msg, err := env.manager.SendMessage(ctx, roomID, "A", "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "nick-A", msg.SenderNickname)
	assert.Equal(t, models.MessageTypeText, msg.Type)
}

func TestMessageLogCappedAt100(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	for i := 1; i <= 101; i++ {
		_, err := env.manager.SendMessage(ctx, roomID, "A", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	msgs := env.messages(t, roomID)
	require.Len(t, msgs, 100)
	assert.Equal(t, "msg 2", msgs[0].Content)
	assert.Equal(t, "msg 101", msgs[99].Content)
}

func TestGroupRoomMessaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, p := range []struct{ id, gender string }{
		{"m1", models.GenderMale}, {"f1", models.GenderFemale}, {"f2", models.GenderFemale},
	} {
		env.addProfile(t, p.id, p.gender)
	}
	var formed *chathub.GroupFormation
	for _, id := range []string{"m1", "f1", "f2"} {
		res, err := env.group.StartGroupMatching(ctx, id)
		require.NoError(t, err)
		formed = res
	}
	require.True(t, formed.Formed)
	roomID := formed.Room.RoomID

	res, err := env.manager.EnterRoom(ctx, roomID, "f1")
	require.NoError(t, err)
	assert.Equal(t, chathub.RoomKindGroup, res.Kind)
	assert.Empty(t, env.messages(t, roomID), "group rooms post no entry notices")

	msg, err := env.manager.SendMessage(ctx, roomID, "f1", "hello all")
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeGroup, msg.Type)

	room, err := env.store.GetGroupRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, room.MessageCount)

	rooms, err := env.manager.ListRoomsFor(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "그룹 1", rooms[0].Name)
	assert.Len(t, rooms[0].Members, 3)
	assert.Equal(t, 1, rooms[0].UnreadCount)

	_, err = env.manager.LeaveRoom(ctx, roomID, "m1")
	require.NoError(t, err)
	_, err = env.manager.SendMessage(ctx, roomID, "f2", "still here?")
	assert.ErrorIs(t, err, chathub.ErrRoomInactive)
}

func TestListRoomsForAnnotatesUnread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	older := env.matchPair(t, "A", "B")

	_, err := env.manager.SendMessage(ctx, older, "B", "hey")
	require.NoError(t, err)

	rooms, err := env.manager.ListRoomsFor(ctx, "A")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, chathub.RoomKindDirect, rooms[0].Kind)
	assert.Equal(t, "nick-B", rooms[0].PartnerNickname)
	assert.Equal(t, 1, rooms[0].UnreadCount)
	require.NotNil(t, rooms[0].LastMessage)
	assert.Equal(t, "hey", rooms[0].LastMessage.Content)

	_, err = env.manager.MarkRead(ctx, older, "A")
	require.NoError(t, err)
	rooms, err = env.manager.ListRoomsFor(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, rooms[0].UnreadCount)
}

func TestSubscribeReceivesNewMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	roomID := env.matchPair(t, "A", "B")

	_, _, err := env.manager.Subscribe(ctx, roomID, "C")
	assert.ErrorIs(t, err, chathub.ErrNotAParticipant)

	ch, stop, err := env.manager.Subscribe(ctx, roomID, "B")
	require.NoError(t, err)
	defer stop()

	_, err = env.manager.SendMessage(ctx, roomID, "A", "ping")
	require.NoError(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, "ping", msg.Content)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}

func TestCloseRoomAndRecover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")
	env.matchPair(t, "C", "D")

	n, err := env.manager.RecoverActiveRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, env.manager.CloseRoom(ctx, roomID, "admin"))
	assert.ErrorIs(t, env.manager.CloseRoom(ctx, roomID, "admin"), chathub.ErrRoomInactive)

	n, err = env.manager.RecoverActiveRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnterRoomRetryAfterLogFailure(t *testing.T) {
	env, flaky := newFlakyEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	flaky.failSaveMessages = 1
	_, err := env.manager.EnterRoom(ctx, roomID, "A")
	require.ErrorIs(t, err, chathub.ErrPersistence)

	room, err := env.store.GetDirectRoom(ctx, roomID)
	require.NoError(t, err)
	assert.False(t, room.User1Entered, "a failed entry leaves the slot untouched")

	res, err := env.manager.EnterRoom(ctx, roomID, "A")
	require.NoError(t, err)
	assert.True(t, res.FirstJoin)
	require.NotNil(t, res.Notice)

	msgs := env.messages(t, roomID)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageTypeWait, msgs[0].Type)
}

func TestEnterRoomRetryAfterRoomSaveFailure(t *testing.T) {
	env, flaky := newFlakyEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	flaky.failSaveDirectRoom = 1
	_, err := env.manager.EnterRoom(ctx, roomID, "A")
	require.ErrorIs(t, err, chathub.ErrPersistence)
	res, err := env.manager.EnterRoom(ctx, roomID, "A")
	require.NoError(t, err)
	assert.True(t, res.FirstJoin)
	assert.Nil(t, res.Notice, "the wait notice from the failed attempt is kept")

	flaky.failSaveDirectRoom = 1
	_, err = env.manager.EnterRoom(ctx, roomID, "B")
	require.ErrorIs(t, err, chathub.ErrPersistence)
	res, err = env.manager.EnterRoom(ctx, roomID, "B")
	require.NoError(t, err)
	assert.True(t, res.FirstJoin)
	assert.True(t, res.Direct.User1Entered)
	assert.True(t, res.Direct.User2Entered)

	msgs := env.messages(t, roomID)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageTypeEnter, msgs[0].Type)
}

func TestCloseRoomPostsOperatorNotice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	require.NoError(t, env.manager.CloseRoom(ctx, roomID, "admin"))

	msgs := env.messages(t, roomID)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, models.MessageTypeLeave, last.Type)
	assert.Equal(t, "운영자가 채팅방을 종료했습니다.", last.Content)
	assert.NotContains(t, last.Content, "admin")

	room, err := env.store.GetDirectRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "admin", room.LeftBy)
}
