package types

import "time"

// Well-known sender ids. Everything else is a persona id.
const (
	SenderHuman  = "human"
	SenderSystem = "system"
)

// MessageKind distinguishes plain text, poll-bearing and system messages.
type MessageKind string

const (
	KindText   MessageKind = "TEXT"
	KindPoll   MessageKind = "POLL"
	KindSystem MessageKind = "SYSTEM"
)

// PollOption is one choice in a poll with its running tally.
type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollState is the poll lifecycle: open and awaiting the human vote,
// resolving (human voted, synthetic votes being cast), or closed with a
// final tally.
type PollState string

const (
	PollOpen      PollState = "OPEN"
	PollResolving PollState = "RESOLVING"
	PollClosed    PollState = "CLOSED"
)

// Poll is the structured sub-record embedded in a KindPoll message.
// Vote counts are monotonically non-decreasing and HumanVoted never
// reverts once set.
type Poll struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	CreatedBy  string       `json:"created_by"`
	Active     bool         `json:"active"`
	HumanVoted bool         `json:"human_voted"`
}

// Clone returns a deep copy so poll mutations never alias a published poll.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Options = make([]PollOption, len(p.Options))
	copy(cp.Options, p.Options)
	return &cp
}

// TotalVotes sums the option tallies.
func (p *Poll) TotalVotes() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

// AwaitingHumanVote reports whether the poll still blocks on the human.
func (p *Poll) AwaitingHumanVote() bool {
	return p != nil && p.Active && !p.HumanVoted
}

// State derives the lifecycle state from the latch flags. RESOLVING is
// only ever observed mid-patch: the human vote and the synthetic votes
// commit as one mutation.
func (p *Poll) State() PollState {
	switch {
	case p == nil || !p.Active:
		return PollClosed
	case p.HumanVoted:
		return PollResolving
	default:
		return PollOpen
	}
}

// Message is one immutable transcript record. Only the embedded poll's
// tally and human-voted flag may change after creation, and only through
// a functional patch in the transcript store.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Text           string      `json:"text"`
	Timestamp      time.Time   `json:"timestamp"`
	Seq            uint64      `json:"seq"`
	Kind           MessageKind `json:"kind"`
	Poll           *Poll       `json:"poll,omitempty"`
}

// NewMessage creates a message with the given sender, kind and text.
// ID, Seq and Timestamp are assigned by the transcript store on append.
func NewMessage(conversationID, senderID string, kind MessageKind, text string) Message {
	return Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Kind:           kind,
		Text:           text,
	}
}

// NewHumanMessage creates a plain text message from the human participant.
func NewHumanMessage(conversationID, text string) Message {
	return NewMessage(conversationID, SenderHuman, KindText, text)
}

// NewSystemMessage creates a system announcement.
func NewSystemMessage(conversationID, text string) Message {
	return NewMessage(conversationID, SenderSystem, KindSystem, text)
}

// WithPoll attaches a poll to the message.
func (m Message) WithPoll(poll *Poll) Message {
	m.Poll = poll
	return m
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	m.Poll = m.Poll.Clone()
	return m
}
