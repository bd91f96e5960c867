// Package scheduler turns generated discussion batches into paced,
// validated transcript appends: typing indicator, length-proportional
// delay, append, inter-turn pause.
package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/swarmchat/config"
	"github.com/BaSui01/swarmchat/internal/metrics"
	"github.com/BaSui01/swarmchat/transcript"
	"github.com/BaSui01/swarmchat/types"
)

// Result summarizes one playback pass.
type Result struct {
	// Played is the number of turns materialized into messages.
	Played int
	// Dropped counts turns discarded for validation, roster or conflict
	// reasons.
	Dropped int
	// PlayedPoll is true when at least one poll turn was played back; the
	// orchestrator stops its loop after such a pass.
	PlayedPoll bool
	// Queued is true when another pass was already draining this
	// conversation; the turns were enqueued and this call did nothing else.
	Queued bool
	// Aborted is true when the pass stopped early (teardown, closure or
	// the message ceiling).
	Aborted bool
}

// Scheduler paces turn playback per conversation. Only one playback pass
// runs per conversation at a time; re-entrant calls enqueue and return.
type Scheduler struct {
	store   *transcript.Store
	pacing  config.PacingConfig
	metrics *metrics.Collector
	logger  *zap.Logger

	mu     sync.Mutex
	queues map[string][]types.DiscussionTurn
	active map[string]bool
}

// New creates a scheduler over the given store.
func New(store *transcript.Store, pacing config.PacingConfig, collector *metrics.Collector, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:   store,
		pacing:  pacing,
		metrics: collector,
		logger:  logger.With(zap.String("component", "scheduler")),
		queues:  make(map[string][]types.DiscussionTurn),
		active:  make(map[string]bool),
	}
}

// Play enqueues the turns and, unless a pass is already draining this
// conversation, runs the playback pass to completion. Every suspension
// point re-checks liveness so a torn-down conversation is never mutated.
func (s *Scheduler) Play(ctx context.Context, conversationID string, turns []types.DiscussionTurn) Result {
	s.mu.Lock()
	s.queues[conversationID] = append(s.queues[conversationID], turns...)
	if s.active[conversationID] {
		s.mu.Unlock()
		return Result{Queued: true}
	}
	s.active[conversationID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active[conversationID] = false
		s.mu.Unlock()
	}()

	return s.drain(ctx, conversationID)
}

func (s *Scheduler) drain(ctx context.Context, conversationID string) Result {
	var res Result
	for {
		turn, ok := s.pop(conversationID)
		if !ok {
			return res
		}
		if !s.alive(ctx, conversationID) {
			res.Dropped++
			s.discardQueue(conversationID, &res)
			res.Aborted = true
			return res
		}

		if err := turn.Validate(); err != nil {
			s.logger.Debug("dropping malformed turn",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
			s.metrics.TurnDropped("invalid")
			res.Dropped++
			continue
		}

		// Roster may have changed since generation was requested; check
		// against the latest snapshot and drop silently on mismatch.
		snap, err := s.store.Snapshot(conversationID)
		if err != nil {
			res.Aborted = true
			return res
		}
		if snap.State == types.StateClosed {
			res.Dropped++
			s.discardQueue(conversationID, &res)
			res.Aborted = true
			return res
		}
		// System turns (checkpoint polls, announcements) bypass the
		// roster check and the typing simulation.
		systemTurn := turn.SpeakerID == types.SenderSystem
		if !systemTurn && !snap.InRoster(turn.SpeakerID) {
			s.metrics.TurnDropped("roster")
			res.Dropped++
			continue
		}

		if !systemTurn {
			s.store.PublishTyping(conversationID, turn.SpeakerID, true)
			if aborted := s.pause(ctx, conversationID, s.typingDelay(turn.Text)); aborted {
				s.store.PublishTyping(conversationID, turn.SpeakerID, false)
				res.Dropped++
				s.discardQueue(conversationID, &res)
				res.Aborted = true
				return res
			}
		}

		msg := s.buildMessage(conversationID, turn)
		committed, err := s.store.Append(msg)
		if !systemTurn {
			s.store.PublishTyping(conversationID, turn.SpeakerID, false)
		}
		if err != nil {
			switch types.GetErrorCode(err) {
			case types.ErrCapacityExceeded:
				// Ceiling reached mid-pass: nothing else can land.
				s.discardQueue(conversationID, &res)
				res.Aborted = true
				return res
			default:
				// Poll conflict or closure race: drop this turn.
				s.logger.Debug("append rejected, dropping turn",
					zap.String("conversation_id", conversationID),
					zap.String("speaker_id", turn.SpeakerID),
					zap.Error(err))
				s.metrics.TurnDropped("conflict")
				res.Dropped++
				continue
			}
		}

		s.metrics.MessageAppended(string(committed.Kind))
		res.Played++
		if committed.Kind == types.KindPoll {
			res.PlayedPoll = true
		}

		if aborted := s.pause(ctx, conversationID, s.pacing.InterTurnPause); aborted {
			res.Aborted = true
			return res
		}
	}
}

// typingDelay is a monotonic, saturating function of message length.
func (s *Scheduler) typingDelay(text string) time.Duration {
	d := s.pacing.TypingBase + time.Duration(len(text))*s.pacing.TypingPerChar
	if d > s.pacing.TypingCap {
		return s.pacing.TypingCap
	}
	return d
}

// pause waits for d, aborting early when the context is cancelled or the
// conversation view is torn down.
func (s *Scheduler) pause(ctx context.Context, conversationID string, d time.Duration) (aborted bool) {
	if d <= 0 {
		return !s.alive(ctx, conversationID)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return !s.alive(ctx, conversationID)
	}
}

func (s *Scheduler) alive(ctx context.Context, conversationID string) bool {
	return ctx.Err() == nil && s.store.Alive(conversationID)
}

func (s *Scheduler) buildMessage(conversationID string, turn types.DiscussionTurn) types.Message {
	text := turn.Text
	if text == "" {
		text = "..."
	}
	msg := types.NewMessage(conversationID, turn.SpeakerID, turn.Kind, text)
	if turn.Kind == types.KindPoll {
		options := make([]types.PollOption, len(turn.PollOptions))
		for i, opt := range turn.PollOptions {
			options[i] = types.PollOption{ID: strconv.Itoa(i), Text: opt, Votes: 0}
		}
		msg = msg.WithPoll(&types.Poll{
			ID:         uuid.NewString(),
			Question:   turn.PollQuestion,
			Options:    options,
			CreatedBy:  turn.SpeakerID,
			Active:     true,
			HumanVoted: false,
		})
	}
	return msg
}

func (s *Scheduler) pop(conversationID string) (types.DiscussionTurn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[conversationID]
	if len(q) == 0 {
		return types.DiscussionTurn{}, false
	}
	turn := q[0]
	s.queues[conversationID] = q[1:]
	return turn, true
}

func (s *Scheduler) discardQueue(conversationID string, res *Result) {
	s.mu.Lock()
	res.Dropped += len(s.queues[conversationID])
	s.queues[conversationID] = nil
	s.mu.Unlock()
}
