package chathub_test

import (
	"campusmatch/backend/internal/chathub"
	"campusmatch/backend/internal/localization"
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"campusmatch/backend/internal/storage/memory"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store   *memory.Store
	matcher *chathub.MatcherService
	group   *chathub.GroupMatcherService
	manager *chathub.ManagerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	return newTestEnvWith(t, store, store)
}

// newTestEnvWith builds the services on s while test assertions read mem directly.
func newTestEnvWith(t *testing.T, mem *memory.Store, s storage.Storage) *testEnv {
	t.Helper()
	loc, err := localization.Default()
	require.NoError(t, err)

	return &testEnv{
		store:   mem,
		matcher: chathub.NewMatcherService(s),
		group:   chathub.NewGroupMatcherService(s, loc),
		manager: chathub.NewManagerService(s, loc),
	}
}

var errDiskFull = errors.New("disk full")

// flakyStore fails the next N calls of selected writes.
type flakyStore struct {
	*memory.Store
	failSaveWaiting    int
	failSaveMessages   int
	failSaveDirectRoom int
}

func newFlakyEnv(t *testing.T) (*testEnv, *flakyStore) {
	t.Helper()
	flaky := &flakyStore{Store: memory.NewStore()}
	return newTestEnvWith(t, flaky.Store, flaky), flaky
}

func (f *flakyStore) SaveWaiting(ctx context.Context, waiting []models.WaitingEntry) error {
	if f.failSaveWaiting > 0 {
		f.failSaveWaiting--
		return errDiskFull
	}
	return f.Store.SaveWaiting(ctx, waiting)
}

func (f *flakyStore) SaveMessages(ctx context.Context, roomID string, messages []models.Message) error {
	if f.failSaveMessages > 0 {
		f.failSaveMessages--
		return errDiskFull
	}
	return f.Store.SaveMessages(ctx, roomID, messages)
}

func (f *flakyStore) SaveDirectRoom(ctx context.Context, room *models.DirectRoom) error {
	if f.failSaveDirectRoom > 0 {
		f.failSaveDirectRoom--
		return errDiskFull
	}
	return f.Store.SaveDirectRoom(ctx, room)
}

func (e *testEnv) addProfile(t *testing.T, userID, gender string) {
	t.Helper()
	require.NoError(t, e.store.SaveProfile(context.Background(), &models.Profile{
		UserID:   userID,
		Nickname: "nick-" + userID,
		Gender:   gender,
	}))
}

// matchPair queues a male and a female user and returns the room they were matched into.
func (e *testEnv) matchPair(t *testing.T, male, female string) string {
	t.Helper()
	ctx := context.Background()
	e.addProfile(t, male, models.GenderMale)
	e.addProfile(t, female, models.GenderFemale)

	_, err := e.matcher.StartMatching(ctx, male)
	require.NoError(t, err)
	res, err := e.matcher.StartMatching(ctx, female)
	require.NoError(t, err)
	require.True(t, res.Matched)
	return res.RoomID
}

func (e *testEnv) messages(t *testing.T, roomID string) []models.Message {
	t.Helper()
	msgs, err := e.store.LoadMessages(context.Background(), roomID)
	require.NoError(t, err)
	return msgs
}

func countType(msgs []models.Message, typ string) int {
	n := 0
	for _, m := range msgs {
		if m.Type == typ {
			n++
		}
	}
	return n
}
