package chathub_test

import (
	"campusmatch/backend/internal/chathub"
	"campusmatch/backend/internal/models"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreadCountBeforeAndAfterMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	newest, err := env.manager.MarkRead(ctx, roomID, "A")
	require.NoError(t, err)
	assert.Empty(t, newest, "marking an empty room is a no-op")

	for i := 0; i < 3; i++ {
		_, err := env.manager.SendMessage(ctx, roomID, "B", fmt.Sprintf("hi %d", i))
		require.NoError(t, err)
	}

	count, err := env.manager.UnreadCount(ctx, roomID, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	newest, err = env.manager.MarkRead(ctx, roomID, "A")
	require.NoError(t, err)
	assert.NotEmpty(t, newest)

	count, err = env.manager.UnreadCount(ctx, roomID, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = env.manager.SendMessage(ctx, roomID, "B", "one more")
	require.NoError(t, err)
	count, err = env.manager.UnreadCount(ctx, roomID, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnreadCountFallsBackWhenPointerEvicted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	_, err := env.manager.SendMessage(ctx, roomID, "B", "first")
	require.NoError(t, err)
	_, err = env.manager.MarkRead(ctx, roomID, "A")
	require.NoError(t, err)

	// Push the acknowledged message out of the capped log.
	for i := 0; i < 100; i++ {
		_, err := env.manager.SendMessage(ctx, roomID, "B", fmt.Sprintf("spam %d", i))
		require.NoError(t, err)
	}

	count, err := env.manager.UnreadCount(ctx, roomID, "A")
	require.NoError(t, err)
	assert.Equal(t, 100, count)
}

func TestReadOperationsRequireMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := env.matchPair(t, "A", "B")

	_, err := env.manager.MarkRead(ctx, roomID, "C")
	assert.ErrorIs(t, err, chathub.ErrNotAParticipant)
	_, err = env.manager.UnreadCount(ctx, "dm_missing", "A")
	assert.ErrorIs(t, err, chathub.ErrRoomNotFound)
}

func TestReadTrackerDirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tracker := chathub.NewReadTracker(env.store)

	count, err := tracker.UnreadCount(ctx, "A", "dm_none")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMessageLogAppendMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	log := chathub.NewMessageLog(env.store)
	log.Limit = 3

	for i := 1; i <= 4; i++ {
		msg, err := log.AppendMessage(ctx, "dm_log", models.Message{SenderID: "A", Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "dm_log", msg.RoomID)
	}

	msgs := env.messages(t, "dm_log")
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].Content)
	assert.Equal(t, "m4", msgs[2].Content)
}
