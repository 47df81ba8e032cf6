package server

import (
	"context"
	"sync"
)

// RoomUpdate signals that a room's log grew to Seq.
type RoomUpdate struct {
	RoomID string
	Seq    int64
}

// RoomNotifier fans out append signals to long-polling readers of a room.
// Signals are hints: a slow subscriber may miss one and re-reads the log anyway.
type RoomNotifier struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*roomSubscriber
	nextID      int64
	bufferSize  int
}

type roomSubscriber struct {
	id     int64
	stream chan RoomUpdate
}

func NewRoomNotifier() *RoomNotifier {
	return &RoomNotifier{
		subscribers: make(map[string]map[int64]*roomSubscriber),
		bufferSize:  1,
	}
}

// Subscribe registers interest in roomID until ctx is done or the returned cleanup runs.
func (n *RoomNotifier) Subscribe(ctx context.Context, roomID string) (<-chan RoomUpdate, func()) {
	if roomID == "" {
		ch := make(chan RoomUpdate)
		close(ch)
		return ch, func() {}
	}
	subscriber := &roomSubscriber{
		id:     n.nextSequence(),
		stream: make(chan RoomUpdate, n.bufferSize),
	}
	n.registerSubscriber(roomID, subscriber)

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			n.unregisterSubscriber(roomID, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (n *RoomNotifier) Publish(update RoomUpdate) {
	if update.RoomID == "" {
		return
	}
	n.mu.RLock()
	subscribers := n.subscribers[update.RoomID]
	if len(subscribers) == 0 {
		n.mu.RUnlock()
		return
	}
	copies := make([]*roomSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	n.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- update:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscriptions for roomID.
func (n *RoomNotifier) SubscriberCount(roomID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers[roomID])
}

func (n *RoomNotifier) nextSequence() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	return n.nextID
}

func (n *RoomNotifier) registerSubscriber(roomID string, subscriber *roomSubscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.subscribers[roomID]; !ok {
		n.subscribers[roomID] = make(map[int64]*roomSubscriber)
	}
	n.subscribers[roomID][subscriber.id] = subscriber
}

func (n *RoomNotifier) unregisterSubscriber(roomID string, subscriberID int64) {
	n.mu.Lock()
	subscribers := n.subscribers[roomID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(n.subscribers, roomID)
		}
	}
	n.mu.Unlock()
}
