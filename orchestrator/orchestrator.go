// Package orchestrator runs the top-level discussion loop: it decides when
// to ask the generation service for turns, when to inject checkpoint
// polls, and when a conversation stops accepting new activity.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/swarmchat/config"
	"github.com/BaSui01/swarmchat/generation"
	"github.com/BaSui01/swarmchat/internal/metrics"
	"github.com/BaSui01/swarmchat/poll"
	"github.com/BaSui01/swarmchat/scheduler"
	"github.com/BaSui01/swarmchat/transcript"
	"github.com/BaSui01/swarmchat/types"
)

// Orchestrator coordinates generation cycles for every conversation in the
// store. It is safe for concurrent use; per-conversation exclusion is the
// store's PROCESSING state.
type Orchestrator struct {
	store   *transcript.Store
	client  generation.Client
	sched   *scheduler.Scheduler
	limits  config.LimitsConfig
	pacing  config.PacingConfig
	loop    config.OrchestratorConfig
	metrics *metrics.Collector
	logger  *zap.Logger
	tracer  trace.Tracer

	mu sync.Mutex
	// Highest checkpoint milestone already injected, per conversation.
	checkpoints map[string]int
}

// New wires the orchestrator over its collaborators.
func New(store *transcript.Store, client generation.Client, sched *scheduler.Scheduler, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:       store,
		client:      client,
		sched:       sched,
		limits:      cfg.Limits,
		pacing:      cfg.Pacing,
		loop:        cfg.Orchestrator,
		metrics:     collector,
		logger:      logger.With(zap.String("component", "orchestrator")),
		tracer:      otel.Tracer("swarmchat/orchestrator"),
		checkpoints: make(map[string]int),
	}
}

// CreateConversation creates a conversation and, when configured, plays the
// roster's opening greetings in the background.
func (o *Orchestrator) CreateConversation(ctx context.Context, name string, personaIDs []string) (types.Conversation, error) {
	conv, err := o.store.CreateConversation(name, personaIDs)
	if err != nil {
		return types.Conversation{}, err
	}
	o.metrics.ConversationOpened()

	if o.pacing.InitialGreetings {
		turns := make([]types.DiscussionTurn, len(conv.PersonaIDs))
		for i, id := range conv.PersonaIDs {
			turns[i] = types.DiscussionTurn{
				SpeakerID: id,
				Kind:      types.KindText,
				Text:      types.InitialGreetings[i%len(types.InitialGreetings)],
			}
		}
		bg := context.WithoutCancel(ctx)
		go o.sched.Play(bg, conv.ID, turns)
	}
	return conv, nil
}

// SendHumanMessage appends the human's message and triggers a discussion
// cycle in the background. Refusals (closed conversation, message ceiling)
// surface as errors before any state changes; a cycle already in flight is
// not an error, the trigger simply no-ops.
func (o *Orchestrator) SendHumanMessage(ctx context.Context, conversationID, text string) (types.Message, error) {
	if text == "" {
		return types.Message{}, types.NewError(types.ErrInvalidTurn, "message text is empty")
	}
	committed, err := o.store.Append(types.NewHumanMessage(conversationID, text))
	if err != nil {
		return types.Message{}, err
	}
	o.metrics.MessageAppended(string(committed.Kind))

	go o.RunDiscussionCycle(context.WithoutCancel(ctx), conversationID)
	return committed, nil
}

// Retry re-runs the discussion loop, e.g. after a generation outage. It
// blocks until the loop finishes.
func (o *Orchestrator) Retry(ctx context.Context, conversationID string) {
	o.RunDiscussionCycle(ctx, conversationID)
}

// RunDiscussionCycle runs the generation loop until the response stops it,
// a poll yields control to the human, a cap is hit, or MaxCycles passes
// complete. It is a silent no-op when the conversation is already
// PROCESSING or CLOSED. The PROCESSING marker is cleared exactly once on
// every exit path.
func (o *Orchestrator) RunDiscussionCycle(ctx context.Context, conversationID string) {
	if err := o.store.BeginProcessing(conversationID); err != nil {
		return
	}
	defer o.store.EndProcessing(conversationID)

	ctx, span := o.tracer.Start(ctx, "discussion_cycle",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	for cycle := 0; cycle < o.loop.MaxCycles; cycle++ {
		if ctx.Err() != nil || !o.store.Alive(conversationID) {
			return
		}

		count, err := o.store.MessageCount(conversationID)
		if err != nil {
			return
		}
		if count >= o.limits.MaxMessagesPerConversation {
			o.closeAtCeiling(conversationID)
			return
		}

		if o.injectCheckpoint(ctx, conversationID) {
			// A poll always yields control back to the human.
			return
		}

		resp := o.generate(ctx, conversationID)
		if resp.Empty() {
			return
		}
		o.metrics.CycleRun()

		res := o.sched.Play(ctx, conversationID, resp.Turns)
		if res.Aborted || res.Queued || res.PlayedPoll {
			return
		}

		if o.injectCheckpoint(ctx, conversationID) {
			return
		}

		if !resp.ShouldContinue {
			return
		}
		if !o.pause(ctx, conversationID, o.pacing.InterCyclePause) {
			return
		}
	}
}

// generate snapshots the conversation and asks the client for the next
// turn batch. Failures are absorbed into an empty response.
func (o *Orchestrator) generate(ctx context.Context, conversationID string) *types.DiscussionResponse {
	snap, err := o.store.Snapshot(conversationID)
	if err != nil {
		return generation.EmptyResponse()
	}
	roster, err := o.store.RosterPersonas(conversationID)
	if err != nil {
		return generation.EmptyResponse()
	}

	start := time.Now()
	resp, err := o.client.Generate(ctx, generation.Request{
		ConversationID: conversationID,
		History:        snap.Messages,
		Roster:         roster,
	})
	o.metrics.GenerationObserved(time.Since(start))
	if err != nil {
		o.logger.Warn("generation failed, ending cycle",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		return generation.EmptyResponse()
	}
	return resp
}

// injectCheckpoint plays a checkpoint poll when the message count has
// crossed a configured milestone that has not yet been served. The
// immediately preceding message must not itself be an unanswered system
// checkpoint poll.
func (o *Orchestrator) injectCheckpoint(ctx context.Context, conversationID string) bool {
	snap, err := o.store.Snapshot(conversationID)
	if err != nil || snap.State == types.StateClosed {
		return false
	}
	count := len(snap.Messages)

	milestone := 0
	for _, m := range o.limits.CheckpointMilestones {
		if m <= count {
			milestone = m
		}
	}
	o.mu.Lock()
	served := o.checkpoints[conversationID]
	if milestone == 0 || milestone <= served {
		o.mu.Unlock()
		return false
	}
	o.checkpoints[conversationID] = milestone
	o.mu.Unlock()

	if count > 0 {
		last := snap.Messages[count-1]
		if poll.IsCheckpoint(last) && last.Poll.AwaitingHumanVote() {
			return false
		}
	}

	o.logger.Info("injecting checkpoint poll",
		zap.String("conversation_id", conversationID),
		zap.Int("milestone", milestone))
	res := o.sched.Play(ctx, conversationID, []types.DiscussionTurn{poll.NewCheckpointTurn()})
	return res.PlayedPoll
}

// closeAtCeiling marks a conversation at the message cap as closed so it
// stops accepting sends. No message is appended.
func (o *Orchestrator) closeAtCeiling(conversationID string) {
	if err := o.store.CloseConversation(conversationID); err != nil {
		return
	}
	o.metrics.ConversationClosed()
	o.logger.Info("conversation closed at message ceiling",
		zap.String("conversation_id", conversationID))
}

// pause reports true when the delay elapsed with the conversation still
// live.
func (o *Orchestrator) pause(ctx context.Context, conversationID string, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil && o.store.Alive(conversationID)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return o.store.Alive(conversationID)
	}
}

// Forget drops per-conversation orchestration state after a teardown.
func (o *Orchestrator) Forget(conversationID string) {
	o.mu.Lock()
	delete(o.checkpoints, conversationID)
	o.mu.Unlock()
}
