package types

// Poll option count bounds enforced on generated poll turns.
const (
	MinPollOptions = 2
	MaxPollOptions = 4
)

// DiscussionTurn is one proposed utterance or poll-creation action from the
// generation service. Transient: it is never persisted, only materialized
// into a Message by the turn scheduler after validation.
type DiscussionTurn struct {
	SpeakerID   string      `json:"speaker_id"`
	Text        string      `json:"text"`
	Kind        MessageKind `json:"kind"`
	PollQuestion string     `json:"poll_question,omitempty"`
	PollOptions  []string   `json:"poll_options,omitempty"`
}

// Validate checks the structural constraints of the generation contract:
// TEXT turns need non-empty text, POLL turns need a question and 2-4
// options. Roster membership is checked separately by the scheduler
// against the latest snapshot.
func (t DiscussionTurn) Validate() error {
	if t.SpeakerID == "" {
		return NewError(ErrInvalidTurn, "turn has no speaker id")
	}
	switch t.Kind {
	case KindText:
		if t.Text == "" {
			return NewError(ErrInvalidTurn, "text turn has empty text")
		}
	case KindSystem:
		if t.Text == "" {
			return NewError(ErrInvalidTurn, "system turn has empty text")
		}
	case KindPoll:
		if t.PollQuestion == "" {
			return NewError(ErrInvalidTurn, "poll turn has no question")
		}
		if n := len(t.PollOptions); n < MinPollOptions || n > MaxPollOptions {
			return NewErrorf(ErrInvalidTurn, "poll turn has %d options, want %d-%d", n, MinPollOptions, MaxPollOptions)
		}
		for _, opt := range t.PollOptions {
			if opt == "" {
				return NewError(ErrInvalidTurn, "poll turn has an empty option")
			}
		}
	default:
		return NewErrorf(ErrInvalidTurn, "unknown turn kind %q", t.Kind)
	}
	return nil
}

// DiscussionResponse is the generation service output: a batch of proposed
// turns plus the continuation flag for the orchestrator loop.
type DiscussionResponse struct {
	Turns          []DiscussionTurn `json:"turns"`
	ShouldContinue bool             `json:"should_continue"`
}

// Empty reports whether the response carries nothing to play back.
func (r *DiscussionResponse) Empty() bool {
	return r == nil || len(r.Turns) == 0
}
