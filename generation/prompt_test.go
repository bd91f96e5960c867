package generation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/swarmchat/types"
)

var testRoster = []types.Persona{
	{ID: "einstein", Name: "Albert Einstein", Expertise: "Physics", CommunicationStyle: "Analogies"},
	{ID: "curie", Name: "Marie Curie", Expertise: "Chemistry", CommunicationStyle: "Direct"},
}

func TestPromptBuilder_RegistryAndHistory(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(40, 0)
	out := b.Build(Request{
		ConversationID: "c1",
		Roster:         testRoster,
		History: []types.Message{
			{SenderID: types.SenderHuman, Kind: types.KindText, Text: "Hello"},
			{SenderID: "einstein", Kind: types.KindText, Text: "Guten Tag"},
			{SenderID: types.SenderSystem, Kind: types.KindSystem, Text: "Checkpoint reached"},
			{SenderID: "ghost", Kind: types.KindText, Text: "boo"},
		},
	})

	assert.Contains(t, out, "AGENT_ID: einstein | NAME: Albert Einstein | EXPERT: Physics | STYLE: Analogies")
	assert.Contains(t, out, "[USER]: Hello")
	assert.Contains(t, out, "[Albert Einstein]: Guten Tag")
	assert.Contains(t, out, "[SYSTEM]: Checkpoint reached")
	assert.Contains(t, out, "[UNKNOWN]: boo", "off-roster sender is labeled unknown")
	assert.Contains(t, out, "--- START HISTORY ---")
}

func TestPromptBuilder_WindowBounds(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(3, 0)
	history := make([]types.Message, 10)
	for i := range history {
		history[i] = types.Message{SenderID: types.SenderHuman, Kind: types.KindText, Text: fmt.Sprintf("msg-%d", i)}
	}

	out := b.Build(Request{Roster: testRoster, History: history})
	assert.NotContains(t, out, "msg-6")
	assert.Contains(t, out, "msg-7")
	assert.Contains(t, out, "msg-9")
}

func TestPromptBuilder_TokenBudgetTrimsOldest(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(40, 20)
	long := strings.Repeat("lorem ipsum dolor ", 30)
	history := []types.Message{
		{SenderID: types.SenderHuman, Kind: types.KindText, Text: long},
		{SenderID: types.SenderHuman, Kind: types.KindText, Text: long},
		{SenderID: "einstein", Kind: types.KindText, Text: "final word"},
	}

	out := b.Build(Request{Roster: testRoster, History: history})
	// Budget leaves room for the newest line only.
	assert.Contains(t, out, "final word")
	assert.NotContains(t, out, long[:30], "oldest long lines trimmed to fit budget")
}

func TestFormatHistoryLine_PollSummaries(t *testing.T) {
	t.Parallel()

	names := map[string]string{"einstein": "Albert Einstein"}
	poll := &types.Poll{
		Question: "Continue?",
		Options:  []types.PollOption{{Text: "Yes", Votes: 0}, {Text: "No", Votes: 0}},
	}
	msg := types.Message{SenderID: "einstein", Kind: types.KindPoll, Poll: poll}

	assert.Equal(t, `[Albert Einstein]: POLL "Continue?" (no votes yet)`, formatHistoryLine(msg, names))

	poll.Options[0].Votes = 3
	poll.Options[1].Votes = 1
	assert.Equal(t, `[Albert Einstein]: POLL "Continue?" (Yes=3, No=1)`, formatHistoryLine(msg, names))
}
