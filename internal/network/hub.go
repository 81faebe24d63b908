package network

import (
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/pkg/api"
	"pillarhunt-server/pkg/logger"
	"sync"
)

// DefaultBuffer is the per-participant queue length.
const DefaultBuffer = 256

// Broadcaster fans frames out to per-participant channels.
//
// Delivery is ordered and never lossy: a subscriber whose buffer is full is
// evicted (its channel is closed) instead of silently missing a frame. The
// transport then closes the socket and the participant reconnects.
type Broadcaster struct {
	mu sync.Mutex
	// ParticipantID -> personal channel
	subscribers map[domain.ParticipantID]chan api.ServerMessage
	buffer      int

	// OnEvict is called outside the lock for every evicted subscriber.
	OnEvict func(id domain.ParticipantID)
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subscribers: make(map[domain.ParticipantID]chan api.ServerMessage),
		buffer:      buffer,
	}
}

// Register creates the personal channel for id, closing any previous one.
func (b *Broadcaster) Register(id domain.ParticipantID) <-chan api.ServerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscribers[id]; ok {
		close(old)
	}
	ch := make(chan api.ServerMessage, b.buffer)
	b.subscribers[id] = ch
	return ch
}

// Unregister closes and removes the channel of id.
func (b *Broadcaster) Unregister(id domain.ParticipantID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// SendTo delivers msg to one participant (unicast). It reports false when
// id has no channel or was evicted.
func (b *Broadcaster) SendTo(id domain.ParticipantID, msg api.ServerMessage) bool {
	b.mu.Lock()
	_, registered := b.subscribers[id]
	ok := registered && b.deliver(id, msg)
	b.mu.Unlock()

	if registered && !ok {
		b.notifyEvicted([]domain.ParticipantID{id})
	}
	return ok
}

// Broadcast delivers msg to everyone and returns the evicted ids.
func (b *Broadcaster) Broadcast(msg api.ServerMessage) []domain.ParticipantID {
	var evicted []domain.ParticipantID

	b.mu.Lock()
	for id := range b.subscribers {
		if !b.deliver(id, msg) {
			evicted = append(evicted, id)
		}
	}
	b.mu.Unlock()

	b.notifyEvicted(evicted)
	return evicted
}

// deliver must be called with the lock held and id registered.
// A false return means id was evicted.
func (b *Broadcaster) deliver(id domain.ParticipantID, msg api.ServerMessage) bool {
	ch := b.subscribers[id]
	select {
	case ch <- msg:
		return true
	default:
		close(ch)
		delete(b.subscribers, id)
		logger.Log.WithField("participant_id", id).Warn("Hub: send buffer full, evicting subscriber")
		return false
	}
}

func (b *Broadcaster) notifyEvicted(ids []domain.ParticipantID) {
	if b.OnEvict == nil {
		return
	}
	for _, id := range ids {
		b.OnEvict(id)
	}
}

// CloseAll closes every channel. Used on shutdown after the final frame.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

// HasSubscriber reports whether id currently has a channel.
func (b *Broadcaster) HasSubscriber(id domain.ParticipantID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subscribers[id]
	return ok
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
