package transcript

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/swarmchat/config"
	"github.com/BaSui01/swarmchat/types"
)

// Store is the transcript store for one workspace: the persona registry
// plus every conversation and its append-only message log.
//
// All mutations run to completion under the store mutex; the lock is never
// held across a pacing delay or service call. Readers get deep copies.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger
	limits config.LimitsConfig
	events *Broadcaster

	personas     map[string]types.Persona
	personaOrder []string

	conversations map[string]*conversation
	order         []string // creation order
}

// conversation pairs the shared record with store-internal bookkeeping.
type conversation struct {
	conv *types.Conversation
	seq  uint64
	// alive is cleared when the conversation view is torn down; pending
	// playback suspensions check it before their eventual mutation.
	alive bool
}

// New creates a store seeded with the predefined persona library.
func New(limits config.LimitsConfig, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		logger:        logger.With(zap.String("component", "transcript")),
		limits:        limits,
		events:        NewBroadcaster(logger),
		personas:      make(map[string]types.Persona),
		conversations: make(map[string]*conversation),
	}
	for _, p := range types.PredefinedPersonas {
		s.personas[p.ID] = p
		s.personaOrder = append(s.personaOrder, p.ID)
	}
	return s
}

// Events returns the event broadcaster for this store.
func (s *Store) Events() *Broadcaster {
	return s.events
}

// RegisterPersona adds a custom persona to the registry.
func (s *Store) RegisterPersona(p types.Persona) error {
	if !p.Valid() {
		return types.NewError(types.ErrInvalidState, "persona is missing required fields")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.personas[p.ID]; ok {
		return types.NewErrorf(types.ErrInvalidState, "persona %q already registered", p.ID)
	}
	s.personas[p.ID] = p
	s.personaOrder = append(s.personaOrder, p.ID)
	s.logger.Info("persona registered", zap.String("persona_id", p.ID), zap.String("name", p.Name))
	return nil
}

// Persona looks up a persona by id.
func (s *Store) Persona(id string) (types.Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[id]
	return p, ok
}

// Personas returns the registry in registration order.
func (s *Store) Personas() []types.Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Persona, 0, len(s.personaOrder))
	for _, id := range s.personaOrder {
		out = append(out, s.personas[id])
	}
	return out
}

// CreateConversation creates a conversation with the given roster,
// honoring the workspace and roster size limits. Returns a snapshot.
func (s *Store) CreateConversation(name string, personaIDs []string) (types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conversations) >= s.limits.MaxConversations {
		return types.Conversation{}, types.NewErrorf(types.ErrCapacityExceeded,
			"workspace limit reached: at most %d conversations", s.limits.MaxConversations)
	}
	if len(personaIDs) < s.limits.MinPersonasPerGroup {
		return types.Conversation{}, types.NewErrorf(types.ErrCapacityExceeded,
			"roster too small: need at least %d personas", s.limits.MinPersonasPerGroup)
	}
	if len(personaIDs) > s.limits.MaxPersonasPerGroup {
		return types.Conversation{}, types.NewErrorf(types.ErrCapacityExceeded,
			"roster too large: at most %d personas", s.limits.MaxPersonasPerGroup)
	}
	seen := make(map[string]struct{}, len(personaIDs))
	for _, id := range personaIDs {
		if _, ok := s.personas[id]; !ok {
			return types.Conversation{}, types.NewErrorf(types.ErrNotFound, "unknown persona %q", id)
		}
		if _, dup := seen[id]; dup {
			return types.Conversation{}, types.NewErrorf(types.ErrInvalidState, "duplicate persona %q in roster", id)
		}
		seen[id] = struct{}{}
	}

	if name == "" {
		name = fmt.Sprintf("Swarm %d", len(s.conversations)+1)
	}
	now := time.Now()
	conv := &types.Conversation{
		ID:            uuid.NewString(),
		Name:          name,
		CreatedAt:     now,
		LastMessageAt: now,
		PersonaIDs:    append([]string(nil), personaIDs...),
		State:         types.StateIdle,
	}
	s.conversations[conv.ID] = &conversation{conv: conv, alive: true}
	s.order = append(s.order, conv.ID)
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("name", name),
		zap.Int("roster", len(personaIDs)))
	return snapshotOf(conv), nil
}

// Conversations returns snapshots of every conversation, most recently
// active first.
func (s *Store) Conversations() []types.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, snapshotOf(s.conversations[id].conv))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

// Snapshot returns a deep copy of the latest committed conversation state.
func (s *Store) Snapshot(conversationID string) (types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return types.Conversation{}, types.NewErrorf(types.ErrNotFound, "conversation %q not found", conversationID)
	}
	return snapshotOf(c.conv), nil
}

// RosterPersonas resolves the conversation roster to persona records,
// keeping roster order.
func (s *Store) RosterPersonas(conversationID string) ([]types.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, types.NewErrorf(types.ErrNotFound, "conversation %q not found", conversationID)
	}
	out := make([]types.Persona, 0, len(c.conv.PersonaIDs))
	for _, id := range c.conv.PersonaIDs {
		if p, ok := s.personas[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// MessageCount returns the current message count.
func (s *Store) MessageCount(conversationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return 0, types.NewErrorf(types.ErrNotFound, "conversation %q not found", conversationID)
	}
	return len(c.conv.Messages), nil
}

// Append adds a message to the end of the conversation's sequence and
// bumps the last-activity timestamp. The message ceiling is enforced
// before any mutation; system messages are exempt so that closure and
// poll-resolution announcements always land. A poll message is rejected
// while another poll is still awaiting the human vote.
func (s *Store) Append(msg types.Message) (types.Message, error) {
	s.mu.Lock()
	c, ok := s.conversations[msg.ConversationID]
	if !ok {
		s.mu.Unlock()
		return types.Message{}, types.NewErrorf(types.ErrNotFound, "conversation %q not found", msg.ConversationID)
	}
	systemMsg := msg.SenderID == types.SenderSystem
	if c.conv.State == types.StateClosed && !systemMsg {
		s.mu.Unlock()
		return types.Message{}, types.NewError(types.ErrInvalidState, "conversation is closed")
	}
	if !systemMsg && len(c.conv.Messages) >= s.limits.MaxMessagesPerConversation {
		s.mu.Unlock()
		return types.Message{}, types.NewErrorf(types.ErrCapacityExceeded,
			"conversation limit reached: at most %d messages", s.limits.MaxMessagesPerConversation)
	}
	if msg.Poll.AwaitingHumanVote() {
		for i := range c.conv.Messages {
			if c.conv.Messages[i].Poll.AwaitingHumanVote() {
				s.mu.Unlock()
				return types.Message{}, types.NewError(types.ErrInvalidState, "another poll is still awaiting the human vote")
			}
		}
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	c.seq++
	msg.Seq = c.seq
	msg.Poll = msg.Poll.Clone()

	c.conv.Messages = append(c.conv.Messages, msg)
	c.conv.LastMessageAt = msg.Timestamp
	committed := msg.Clone()
	s.mu.Unlock()

	s.events.Publish(Event{
		Type:           EventMessageAppended,
		ConversationID: committed.ConversationID,
		Message:        &committed,
		Timestamp:      committed.Timestamp,
	})
	out := committed.Clone()
	return out, nil
}

// PatchPoll locates the message by id and replaces its poll with a mutated
// copy. The mutation is functional: the old poll is never edited in place,
// so snapshots taken before the patch keep their old tally.
func (s *Store) PatchPoll(conversationID, messageID string, mutate func(*types.Poll) error) (types.Message, error) {
	s.mu.Lock()
	c, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return types.Message{}, types.NewErrorf(types.ErrNotFound, "conversation %q not found", conversationID)
	}
	idx := -1
	for i := range c.conv.Messages {
		if c.conv.Messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return types.Message{}, types.NewErrorf(types.ErrNotFound, "message %q not found", messageID)
	}
	if c.conv.Messages[idx].Poll == nil {
		s.mu.Unlock()
		return types.Message{}, types.NewErrorf(types.ErrNotFound, "message %q has no poll", messageID)
	}

	patched := c.conv.Messages[idx].Poll.Clone()
	if err := mutate(patched); err != nil {
		s.mu.Unlock()
		return types.Message{}, err
	}
	c.conv.Messages[idx].Poll = patched
	committed := c.conv.Messages[idx].Clone()
	s.mu.Unlock()

	s.events.Publish(Event{
		Type:           EventPollUpdated,
		ConversationID: conversationID,
		Message:        &committed,
		Timestamp:      time.Now(),
	})
	out := committed.Clone()
	return out, nil
}

// State returns the conversation state.
func (s *Store) State(conversationID string) (types.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return "", types.NewErrorf(types.ErrNotFound, "conversation %q not found", conversationID)
	}
	return c.conv.State, nil
}

// BeginProcessing transitions IDLE -> PROCESSING. Returns InvalidState if
// a cycle is already running or the conversation is closed; callers treat
// that as a silent no-op.
func (s *Store) BeginProcessing(conversationID string) error {
	return s.transition(conversationID, types.StateIdle, types.StateProcessing)
}

// EndProcessing transitions PROCESSING -> IDLE. A conversation that was
// closed mid-cycle stays closed.
func (s *Store) EndProcessing(conversationID string) {
	_ = s.transition(conversationID, types.StateProcessing, types.StateIdle)
}

// CloseConversation moves the conversation to the terminal CLOSED state.
// Closing an already-closed conversation is a no-op.
func (s *Store) CloseConversation(conversationID string) error {
	s.mu.Lock()
	c, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return types.NewErrorf(types.ErrNotFound, "conversation %q not found", conversationID)
	}
	if c.conv.State == types.StateClosed {
		s.mu.Unlock()
		return nil
	}
	c.conv.State = types.StateClosed
	s.mu.Unlock()

	s.logger.Info("conversation closed", zap.String("conversation_id", conversationID))
	s.events.Publish(Event{
		Type:           EventStateChanged,
		ConversationID: conversationID,
		State:          types.StateClosed,
		Timestamp:      time.Now(),
	})
	return nil
}

func (s *Store) transition(conversationID string, from, to types.ConversationState) error {
	s.mu.Lock()
	c, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return types.NewErrorf(types.ErrNotFound, "conversation %q not found", conversationID)
	}
	if c.conv.State != from || !types.CanTransition(from, to) {
		state := c.conv.State
		s.mu.Unlock()
		return types.NewErrorf(types.ErrInvalidState, "cannot transition %s -> %s", state, to)
	}
	c.conv.State = to
	s.mu.Unlock()

	s.events.Publish(Event{
		Type:           EventStateChanged,
		ConversationID: conversationID,
		State:          to,
		Timestamp:      time.Now(),
	})
	return nil
}

// Alive reports whether the conversation view is still attached. Pending
// playback suspensions check this before their eventual mutation.
func (s *Store) Alive(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	return ok && c.alive
}

// Teardown detaches the conversation view. In-flight playback and
// generation abort without side effects at their next suspension point.
func (s *Store) Teardown(conversationID string) {
	s.mu.Lock()
	if c, ok := s.conversations[conversationID]; ok {
		c.alive = false
	}
	s.mu.Unlock()
}

// Attach re-attaches a previously torn down conversation view.
func (s *Store) Attach(conversationID string) {
	s.mu.Lock()
	if c, ok := s.conversations[conversationID]; ok {
		c.alive = true
	}
	s.mu.Unlock()
}

// PublishTyping fans out a typing-indicator change. Typing state is
// ephemeral and never stored.
func (s *Store) PublishTyping(conversationID, personaID string, typing bool) {
	s.events.Publish(Event{
		Type:           EventTyping,
		ConversationID: conversationID,
		PersonaID:      personaID,
		Typing:         typing,
		Timestamp:      time.Now(),
	})
}

// snapshotOf deep-copies a conversation. Callers must hold at least the
// read lock.
func snapshotOf(conv *types.Conversation) types.Conversation {
	cp := *conv
	cp.PersonaIDs = append([]string(nil), conv.PersonaIDs...)
	cp.Messages = make([]types.Message, len(conv.Messages))
	for i := range conv.Messages {
		cp.Messages[i] = conv.Messages[i].Clone()
	}
	return cp
}
