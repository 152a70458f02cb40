package memory

import (
	"campusmatch/backend/internal/models"
	"context"
	"sync"
)

// keyedMutex hands out one lock per key. A lock is a 1-buffered channel so
// waiting for it can be abandoned when the context is done. Entries are
// reference counted and dropped once nobody holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *keyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// roomHub fans published messages out to the subscribers of a room.
type roomHub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan models.Message
}

func newRoomHub() *roomHub {
	return &roomHub{subs: make(map[string]map[int]chan models.Message)}
}

func (h *roomHub) subscribe(ctx context.Context, roomID string) (<-chan models.Message, func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	ch := make(chan models.Message, 16)
	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[int]chan models.Message)
	}
	h.subs[roomID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[roomID], id)
			h.mu.Unlock()
			close(ch)
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel
}

// publish never blocks: a subscriber whose buffer is full misses the message.
func (h *roomHub) publish(roomID string, msg models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[roomID] {
		select {
		case ch <- msg:
		default:
		}
	}
}
