package types

import "time"

// ConversationState is the conversation-level state machine:
// IDLE -> PROCESSING -> IDLE for the cycle loop, with CLOSED as a terminal
// state reachable from either. No transition leaves CLOSED.
type ConversationState string

const (
	StateIdle       ConversationState = "IDLE"
	StateProcessing ConversationState = "PROCESSING"
	StateClosed     ConversationState = "CLOSED"
)

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to ConversationState) bool {
	if from == StateClosed {
		return false
	}
	switch to {
	case StateIdle, StateProcessing, StateClosed:
		return from != to
	default:
		return false
	}
}

// Conversation is one bounded group chat: an ordered roster of persona ids
// plus the ordered message sequence. Mutated exclusively through the
// transcript store.
type Conversation struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	CreatedAt     time.Time         `json:"created_at"`
	LastMessageAt time.Time         `json:"last_message_at"`
	PersonaIDs    []string          `json:"persona_ids"`
	Messages      []Message         `json:"messages"`
	State         ConversationState `json:"state"`
}

// InRoster reports whether the persona id is on the conversation roster.
func (c *Conversation) InRoster(personaID string) bool {
	for _, id := range c.PersonaIDs {
		if id == personaID {
			return true
		}
	}
	return false
}
