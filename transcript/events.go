package transcript

import (
	"time"

	"github.com/BaSui01/swarmchat/types"
)

// EventType identifies what changed in a conversation.
type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventPollUpdated     EventType = "poll_updated"
	EventStateChanged    EventType = "state_changed"
	EventTyping          EventType = "typing"
)

// Event is one transcript change notification fanned out to subscribers.
type Event struct {
	Type           EventType               `json:"type"`
	ConversationID string                  `json:"conversation_id"`
	Message        *types.Message          `json:"message,omitempty"`
	PersonaID      string                  `json:"persona_id,omitempty"`
	Typing         bool                    `json:"typing,omitempty"`
	State          types.ConversationState `json:"state,omitempty"`
	Timestamp      time.Time               `json:"timestamp"`
}
