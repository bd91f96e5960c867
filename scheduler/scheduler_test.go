package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/swarmchat/config"
	"github.com/BaSui01/swarmchat/transcript"
	"github.com/BaSui01/swarmchat/types"
)

func fastPacing() config.PacingConfig {
	return config.PacingConfig{
		TypingBase:     time.Millisecond,
		TypingPerChar:  0,
		TypingCap:      5 * time.Millisecond,
		InterTurnPause: time.Millisecond,
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *transcript.Store, types.Conversation) {
	t.Helper()
	store := transcript.New(config.Default().Limits, zap.NewNop())
	conv, err := store.CreateConversation("test", []string{"einstein", "sagan"})
	require.NoError(t, err)
	return New(store, fastPacing(), nil, zap.NewNop()), store, conv
}

func textTurn(speaker, text string) types.DiscussionTurn {
	return types.DiscussionTurn{SpeakerID: speaker, Kind: types.KindText, Text: text}
}

func TestPlayAppendsTurnsInOrder(t *testing.T) {
	sched, store, conv := newTestScheduler(t)

	res := sched.Play(context.Background(), conv.ID, []types.DiscussionTurn{
		textTurn("einstein", "Hello"),
		textTurn("sagan", "Hi!"),
	})

	assert.Equal(t, 2, res.Played)
	assert.Zero(t, res.Dropped)
	assert.False(t, res.PlayedPoll)
	assert.False(t, res.Aborted)

	snap, err := store.Snapshot(conv.ID)
	require.NoError(t, err)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "einstein", snap.Messages[0].SenderID)
	assert.Equal(t, "Hello", snap.Messages[0].Text)
	assert.Equal(t, "sagan", snap.Messages[1].SenderID)
}

func TestPlayDropsInvalidAndUnknownSpeakers(t *testing.T) {
	sched, store, conv := newTestScheduler(t)

	res := sched.Play(context.Background(), conv.ID, []types.DiscussionTurn{
		{SpeakerID: "", Kind: types.KindText, Text: "no speaker"},
		textTurn("jobs", "not in this roster"),
		textTurn("einstein", "valid"),
	})

	assert.Equal(t, 1, res.Played)
	assert.Equal(t, 2, res.Dropped)

	snap, err := store.Snapshot(conv.ID)
	require.NoError(t, err)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "einstein", snap.Messages[0].SenderID)
}

func TestPlayBuildsPollMessage(t *testing.T) {
	sched, store, conv := newTestScheduler(t)

	res := sched.Play(context.Background(), conv.ID, []types.DiscussionTurn{{
		SpeakerID:    "einstein",
		Kind:         types.KindPoll,
		Text:         "Let's vote on this.",
		PollQuestion: "Relative or absolute?",
		PollOptions:  []string{"Relative", "Absolute"},
	}})

	assert.Equal(t, 1, res.Played)
	assert.True(t, res.PlayedPoll)

	snap, err := store.Snapshot(conv.ID)
	require.NoError(t, err)
	require.Len(t, snap.Messages, 1)
	poll := snap.Messages[0].Poll
	require.NotNil(t, poll)
	assert.Equal(t, "Relative or absolute?", poll.Question)
	require.Len(t, poll.Options, 2)
	assert.Equal(t, "0", poll.Options[0].ID)
	assert.Equal(t, "Relative", poll.Options[0].Text)
	assert.Zero(t, poll.Options[0].Votes)
	assert.True(t, poll.Active)
	assert.False(t, poll.HumanVoted)
}

func TestPlayReentrantCallQueues(t *testing.T) {
	sched, store, conv := newTestScheduler(t)
	sched.pacing.InterTurnPause = 30 * time.Millisecond

	done := make(chan Result, 1)
	go func() {
		done <- sched.Play(context.Background(), conv.ID, []types.DiscussionTurn{
			textTurn("einstein", "first"),
			textTurn("sagan", "second"),
		})
	}()

	// Wait for the first pass to start draining, then enqueue more.
	require.Eventually(t, func() bool {
		n, err := store.MessageCount(conv.ID)
		return err == nil && n >= 1
	}, time.Second, time.Millisecond)

	queued := sched.Play(context.Background(), conv.ID, []types.DiscussionTurn{
		textTurn("einstein", "third"),
	})
	assert.True(t, queued.Queued)
	assert.Zero(t, queued.Played)

	first := <-done
	assert.False(t, first.Queued)
	assert.Equal(t, 3, first.Played, "active pass drains the enqueued turn too")
}

func TestPlayAbortsOnContextCancel(t *testing.T) {
	sched, _, conv := newTestScheduler(t)
	sched.pacing.TypingBase = time.Second
	sched.pacing.TypingCap = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res := sched.Play(ctx, conv.ID, []types.DiscussionTurn{
		textTurn("einstein", "never lands"),
		textTurn("sagan", "discarded"),
	})

	assert.True(t, res.Aborted)
	assert.Zero(t, res.Played)
	assert.Equal(t, 2, res.Dropped)
}

func TestPlayAbortsOnTeardown(t *testing.T) {
	sched, store, conv := newTestScheduler(t)
	sched.pacing.TypingBase = 20 * time.Millisecond
	sched.pacing.TypingCap = 20 * time.Millisecond

	go func() {
		time.Sleep(5 * time.Millisecond)
		store.Teardown(conv.ID)
	}()

	res := sched.Play(context.Background(), conv.ID, []types.DiscussionTurn{
		textTurn("einstein", "never lands"),
	})

	assert.True(t, res.Aborted)
	assert.Zero(t, res.Played)
	n, err := store.MessageCount(conv.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPlayStopsAtMessageCeiling(t *testing.T) {
	limits := config.Default().Limits
	limits.MaxMessagesPerConversation = 2
	store := transcript.New(limits, zap.NewNop())
	conv, err := store.CreateConversation("capped", []string{"einstein", "sagan"})
	require.NoError(t, err)
	sched := New(store, fastPacing(), nil, zap.NewNop())

	res := sched.Play(context.Background(), conv.ID, []types.DiscussionTurn{
		textTurn("einstein", "one"),
		textTurn("sagan", "two"),
		textTurn("einstein", "three"),
		textTurn("sagan", "four"),
	})

	assert.Equal(t, 2, res.Played)
	assert.True(t, res.Aborted)
	n, err := store.MessageCount(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPlaySystemTurnBypassesRoster(t *testing.T) {
	sched, store, conv := newTestScheduler(t)

	res := sched.Play(context.Background(), conv.ID, []types.DiscussionTurn{{
		SpeakerID: types.SenderSystem,
		Kind:      types.KindSystem,
		Text:      "The discussion pauses here.",
	}})

	assert.Equal(t, 1, res.Played)
	snap, err := store.Snapshot(conv.ID)
	require.NoError(t, err)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, types.SenderSystem, snap.Messages[0].SenderID)
	assert.Equal(t, types.KindSystem, snap.Messages[0].Kind)
}

func TestTypingDelaySaturates(t *testing.T) {
	sched := New(nil, config.PacingConfig{
		TypingBase:    600 * time.Millisecond,
		TypingPerChar: 12 * time.Millisecond,
		TypingCap:     2500 * time.Millisecond,
	}, nil, zap.NewNop())

	assert.Equal(t, 600*time.Millisecond, sched.typingDelay(""))
	assert.Equal(t, 720*time.Millisecond, sched.typingDelay("0123456789"))
	assert.Equal(t, 2500*time.Millisecond, sched.typingDelay(string(make([]byte, 500))))
}
