package transcript

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Broadcaster provides in-memory pub/sub for transcript events.
// Subscribers register for a conversation id and receive events as they
// are committed. Non-blocking: events are dropped for subscribers whose
// channels are full.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // conversationID -> subID -> ch
	logger      *zap.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for nop.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Event),
		logger:      logger.With(zap.String("component", "broadcaster")),
	}
}

// Subscribe registers a subscriber for events on the given conversation.
// The subscription is cleaned up automatically when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, conversationID string) (<-chan Event, string) {
	subID := uuid.NewString()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[conversationID]; !ok {
		b.subscribers[conversationID] = make(map[string]chan Event)
	}
	b.subscribers[conversationID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		zap.String("conversation_id", conversationID),
		zap.String("sub_id", subID))

	go func() {
		<-ctx.Done()
		b.Unsubscribe(conversationID, subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(conversationID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[conversationID]
	if !ok {
		return
	}
	ch, ok := subs[subID]
	if !ok {
		return
	}
	delete(subs, subID)
	if len(subs) == 0 {
		delete(b.subscribers, conversationID)
	}
	close(ch)
}

// Publish sends an event to all subscribers of the event's conversation.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	subs, ok := b.subscribers[event.ConversationID]
	if !ok || len(subs) == 0 {
		b.mu.RUnlock()
		return
	}
	// Copy channels under the read lock so sends happen outside it.
	targets := make([]chan Event, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber",
				zap.String("conversation_id", event.ConversationID),
				zap.String("type", string(event.Type)))
		}
	}
}

// SubscriberCount returns the number of active subscribers for a
// conversation.
func (b *Broadcaster) SubscriberCount(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[conversationID])
}
