package storage

import (
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrLockTimeout is returned when a resource lock could not be acquired in time.
var ErrLockTimeout = errors.New("storage: lock acquisition timed out")

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *Service) waitingKey() string      { return s.keyPrefix + "queue:waiting" }
func (s *Service) groupQueueKey() string   { return s.keyPrefix + "queue:group" }
func (s *Service) lockKey(k string) string { return s.keyPrefix + "lock:" + k }
func (s *Service) roomChannel(roomID string) string {
	return s.keyPrefix + "room:" + roomID
}

// --- Queues ---

func (s *Service) LoadWaiting(ctx context.Context) ([]models.WaitingEntry, error) {
	var waiting []models.WaitingEntry
	if err := s.getJSON(ctx, s.waitingKey(), &waiting); err != nil {
		return nil, err
	}
	return waiting, nil
}

func (s *Service) SaveWaiting(ctx context.Context, waiting []models.WaitingEntry) error {
	if waiting == nil {
		waiting = []models.WaitingEntry{}
	}
	return s.setJSON(ctx, s.waitingKey(), waiting)
}

func (s *Service) LoadGroupQueues(ctx context.Context) (*models.GroupQueues, error) {
	queues := &models.GroupQueues{}
	if err := s.getJSON(ctx, s.groupQueueKey(), queues); err != nil {
		return nil, err
	}
	return queues, nil
}

func (s *Service) SaveGroupQueues(ctx context.Context, queues *models.GroupQueues) error {
	return s.setJSON(ctx, s.groupQueueKey(), queues)
}

// getJSON leaves dst untouched when the key does not exist.
func (s *Service) getJSON(ctx context.Context, key string, dst any) error {
	raw, err := s.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis: failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("redis: failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *Service) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: failed to encode %s: %w", key, err)
	}
	if err := s.Redis.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to set %s: %w", key, err)
	}
	return nil
}

// --- Locks ---

// Lock takes a SET NX PX lock on key, retrying until it is acquired, the
// context is done or config.LockAcquireMax elapses. The lock expires on its
// own after config.LockTTL so a crashed holder cannot wedge the resource.
func (s *Service) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := s.lockKey(key)
	token := uuid.NewString()
	deadline := time.Now().Add(config.LockAcquireMax)

	for {
		ok, err := s.Redis.SetNX(ctx, redisKey, token, config.LockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: failed to lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(config.LockRetry):
		}
	}

	return func() {
		// The request context may already be cancelled; release anyway.
		if err := releaseScript.Run(context.Background(), s.Redis, []string{redisKey}, token).Err(); err != nil {
			logrus.WithError(err).WithField("lock", key).Warn("redis: failed to release lock")
		}
	}, nil
}

// --- Pub/Sub ---

// PublishMessage публікує повідомлення в Redis Pub/Sub
func (s *Service) PublishMessage(ctx context.Context, roomID string, msg models.Message) error {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, s.roomChannel(roomID), msgBytes).Err()
}

// SubscribeRoom streams messages published to the room until the returned
// cancel func is called or ctx is done.
func (s *Service) SubscribeRoom(ctx context.Context, roomID string) (<-chan models.Message, func(), error) {
	pubsub := s.Redis.Subscribe(ctx, s.roomChannel(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("redis: failed to subscribe to room %s: %w", roomID, err)
	}

	out := make(chan models.Message, 16)
	go func() {
		defer close(out)
		for raw := range pubsub.Channel() {
			var msg models.Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				logrus.WithError(err).WithField("room_id", roomID).Warn("redis: dropping undecodable room message")
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { pubsub.Close() }, nil
}

var _ Storage = (*Service)(nil)
