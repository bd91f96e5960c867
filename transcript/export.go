package transcript

import (
	"fmt"
	"strings"

	"github.com/BaSui01/swarmchat/types"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// Export renders a conversation as deterministic plain text: one line per
// message with sender label and timestamp, polls expanded into question
// plus per-option vote counts. Pure read-only transform of the latest
// snapshot.
func (s *Store) Export(conversationID string) (string, error) {
	snap, err := s.Snapshot(conversationID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", snap.Name)
	fmt.Fprintf(&b, "Created: %s\n\n", snap.CreatedAt.UTC().Format(exportTimeLayout))

	for _, msg := range snap.Messages {
		label := s.senderLabel(msg.SenderID)
		ts := msg.Timestamp.UTC().Format(exportTimeLayout)
		switch {
		case msg.Kind == types.KindPoll && msg.Poll != nil:
			fmt.Fprintf(&b, "[%s] %s started a poll: %s\n", ts, label, msg.Poll.Question)
			for _, opt := range msg.Poll.Options {
				fmt.Fprintf(&b, "    - %s: %d\n", opt.Text, opt.Votes)
			}
		default:
			fmt.Fprintf(&b, "[%s] %s: %s\n", ts, label, msg.Text)
		}
	}
	return b.String(), nil
}

func (s *Store) senderLabel(senderID string) string {
	switch senderID {
	case types.SenderHuman:
		return "You"
	case types.SenderSystem:
		return "System"
	}
	if p, ok := s.Persona(senderID); ok {
		return p.Name
	}
	return senderID
}
