// Package poll implements voting on transcript polls and the checkpoint
// poll that lets the human decide whether a discussion continues.
package poll

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/swarmchat/internal/metrics"
	"github.com/BaSui01/swarmchat/transcript"
	"github.com/BaSui01/swarmchat/types"
)

// Checkpoint poll text. Option order is fixed: index 0 concludes, index 1
// continues.
const (
	CheckpointQuestion       = "We have covered a lot of ground. Should we conclude the discussion here?"
	CheckpointOptionConclude = "Yes, conclude now"
	CheckpointOptionContinue = "No, continue discussing"
)

// Outcome of resolving an end-discussion poll.
type Outcome string

const (
	OutcomeEnd      Outcome = "end"
	OutcomeContinue Outcome = "continue"
)

// Resumer restarts autonomous generation after a poll resolves with
// "continue". Satisfied by the orchestrator.
type Resumer interface {
	RunDiscussionCycle(ctx context.Context, conversationID string)
}

// Engine casts votes and resolves end-discussion polls.
type Engine struct {
	store       *transcript.Store
	resumer     Resumer
	resumeDelay time.Duration
	metrics     *metrics.Collector
	logger      *zap.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// New creates an engine. The resumer may be set later with SetResumer to
// break the construction cycle with the orchestrator.
func New(store *transcript.Store, resumeDelay time.Duration, collector *metrics.Collector, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:       store,
		resumeDelay: resumeDelay,
		metrics:     collector,
		logger:      logger.With(zap.String("component", "poll")),
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetResumer wires the orchestrator in after both are constructed.
func (e *Engine) SetResumer(r Resumer) { e.resumer = r }

// NewCheckpointTurn builds the system end-discussion poll turn injected at
// message milestones.
func NewCheckpointTurn() types.DiscussionTurn {
	return types.DiscussionTurn{
		SpeakerID:    types.SenderSystem,
		Kind:         types.KindPoll,
		Text:         "Checkpoint: the group pauses for a vote.",
		PollQuestion: CheckpointQuestion,
		PollOptions:  []string{CheckpointOptionConclude, CheckpointOptionContinue},
	}
}

// IsCheckpoint reports whether the message is an end-discussion system poll.
func IsCheckpoint(msg types.Message) bool {
	return msg.Kind == types.KindPoll &&
		msg.SenderID == types.SenderSystem &&
		msg.Poll != nil &&
		msg.Poll.Question == CheckpointQuestion
}

// CastHumanVote records the human's vote on a poll in a single atomic
// patch: the chosen option is incremented, the human-voted latch set, and
// every roster member casts one uniform random synthetic vote. If the poll
// is the end-discussion checkpoint it is then resolved.
func (e *Engine) CastHumanVote(ctx context.Context, conversationID, messageID, optionID string) (types.Message, error) {
	snap, err := e.store.Snapshot(conversationID)
	if err != nil {
		return types.Message{}, err
	}
	rosterSize := len(snap.PersonaIDs)

	patched, err := e.store.PatchPoll(conversationID, messageID, func(p *types.Poll) error {
		if state := p.State(); state != types.PollOpen {
			return types.NewErrorf(types.ErrInvalidState, "poll is %s, vote requires OPEN", state)
		}
		idx := optionIndex(p, optionID)
		if idx < 0 {
			return types.NewErrorf(types.ErrNotFound, "poll has no option %q", optionID)
		}
		p.Options[idx].Votes++
		p.HumanVoted = true
		for i := 0; i < rosterSize; i++ {
			e.mu.Lock()
			pick := e.rand.Intn(len(p.Options))
			e.mu.Unlock()
			p.Options[pick].Votes++
		}
		return nil
	})
	if err != nil {
		return types.Message{}, err
	}

	if IsCheckpoint(patched) {
		patched, err = e.resolve(ctx, conversationID, patched)
		if err != nil {
			return types.Message{}, err
		}
	}
	return patched, nil
}

// resolve closes the checkpoint poll and applies its outcome. Strict-max
// option wins; any tie for the lead continues the discussion.
func (e *Engine) resolve(ctx context.Context, conversationID string, msg types.Message) (types.Message, error) {
	closed, err := e.store.PatchPoll(conversationID, msg.ID, func(p *types.Poll) error {
		p.Active = false
		return nil
	})
	if err != nil {
		return types.Message{}, err
	}

	outcome := decide(closed.Poll)
	e.metrics.PollResolved(string(outcome))
	e.logger.Info("checkpoint poll resolved",
		zap.String("conversation_id", conversationID),
		zap.String("outcome", string(outcome)))

	switch outcome {
	case OutcomeEnd:
		if err := e.store.CloseConversation(conversationID); err != nil {
			return types.Message{}, err
		}
		e.metrics.ConversationClosed()
		if _, err := e.store.Append(types.NewSystemMessage(conversationID,
			"The group has voted to conclude the discussion. Thanks for participating!")); err != nil {
			e.logger.Warn("closure announcement failed", zap.Error(err))
		}
	case OutcomeContinue:
		if _, err := e.store.Append(types.NewSystemMessage(conversationID,
			"The group has voted to continue the discussion.")); err != nil {
			e.logger.Warn("continuation announcement failed", zap.Error(err))
		}
		e.scheduleResume(ctx, conversationID)
	}
	return closed, nil
}

// decide picks the winning outcome. Index 0 is conclude; it must strictly
// lead every other option, otherwise the discussion continues.
func decide(p *types.Poll) Outcome {
	if p == nil || len(p.Options) == 0 {
		return OutcomeContinue
	}
	conclude := p.Options[0].Votes
	for _, opt := range p.Options[1:] {
		if opt.Votes >= conclude {
			return OutcomeContinue
		}
	}
	return OutcomeEnd
}

func (e *Engine) scheduleResume(ctx context.Context, conversationID string) {
	if e.resumer == nil {
		return
	}
	// The vote usually arrives on a request-scoped context; the resume
	// must outlive the request but still stop on teardown.
	ctx = context.WithoutCancel(ctx)
	go func() {
		timer := time.NewTimer(e.resumeDelay)
		defer timer.Stop()
		<-timer.C
		if !e.store.Alive(conversationID) {
			return
		}
		e.resumer.RunDiscussionCycle(ctx, conversationID)
	}()
}

func optionIndex(p *types.Poll, optionID string) int {
	for i, opt := range p.Options {
		if opt.ID == optionID {
			return i
		}
	}
	return -1
}
