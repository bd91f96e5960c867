package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/swarmchat/types"
)

func TestBroadcaster_PublishReachesSubscribers(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1, _ := b.Subscribe(ctx, "conv1")
	ch2, _ := b.Subscribe(ctx, "conv1")
	other, _ := b.Subscribe(ctx, "conv2")

	b.Publish(Event{Type: EventTyping, ConversationID: "conv1", PersonaID: "einstein", Typing: true})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventTyping, ev.Type)
			assert.Equal(t, "einstein", ev.PersonaID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}

	select {
	case ev := <-other:
		t.Fatalf("conv2 subscriber received conv1 event: %+v", ev)
	default:
	}
}

func TestBroadcaster_UnsubscribeOnContextCancel(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := b.Subscribe(ctx, "conv1")
	require.Equal(t, 1, b.SubscriberCount("conv1"))

	cancel()
	require.Eventually(t, func() bool {
		return b.SubscriberCount("conv1") == 0
	}, time.Second, 5*time.Millisecond)

	// Channel is closed after cleanup.
	_, open := <-ch
	assert.False(t, open)
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, subID := b.Subscribe(ctx, "conv1")
	_ = subID

	done := make(chan struct{})
	go func() {
		// Nobody drains the channel; publishing more than the buffer
		// must still return.
		for i := 0; i < subscriberBufferSize*2; i++ {
			b.Publish(Event{Type: EventMessageAppended, ConversationID: "conv1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestStore_AppendPublishesEvent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, defaultLimits())
	conv := createConv(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := s.Events().Subscribe(ctx, conv.ID)

	_, err := s.Append(types.NewHumanMessage(conv.ID, "Hello"))
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, EventMessageAppended, ev.Type)
		require.NotNil(t, ev.Message)
		assert.Equal(t, "Hello", ev.Message.Text)
	case <-time.After(time.Second):
		t.Fatal("no event for append")
	}
}
