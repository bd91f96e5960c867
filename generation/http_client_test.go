package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/swarmchat/config"
	"github.com/BaSui01/swarmchat/types"
)

func newHTTPClientForTest(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	cfg := config.Default().Generation
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.RequestsPerMinute = 0
	return NewHTTPClient(cfg, config.Default().Orchestrator, zaptest.NewLogger(t))
}

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestHTTPClient_ParsesDiscussionResponse(t *testing.T) {
	t.Parallel()

	inner := `{"turns":[{"speaker_id":"einstein","text":"Hi!","kind":"TEXT"},{"speaker_id":"curie","text":"Vote!","kind":"POLL","poll_question":"Which?","poll_options":["A","B"]}],"should_continue":true}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[0].Content, "AGENT REGISTRY")

		fmt.Fprint(w, completionBody(inner))
	}))
	defer srv.Close()

	c := newHTTPClientForTest(t, srv.URL)
	resp, err := c.Generate(context.Background(), Request{ConversationID: "c1", Roster: testRoster})
	require.NoError(t, err)

	require.Len(t, resp.Turns, 2)
	assert.True(t, resp.ShouldContinue)
	assert.Equal(t, "einstein", resp.Turns[0].SpeakerID)
	assert.Equal(t, types.KindText, resp.Turns[0].Kind)
	assert.Equal(t, types.KindPoll, resp.Turns[1].Kind)
	assert.Equal(t, []string{"A", "B"}, resp.Turns[1].PollOptions)
}

func TestHTTPClient_StripsMarkdownFences(t *testing.T) {
	t.Parallel()

	inner := "```json\n{\"turns\":[{\"speaker_id\":\"einstein\",\"text\":\"Hi\",\"kind\":\"TEXT\"}],\"should_continue\":false}\n```"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(inner))
	}))
	defer srv.Close()

	c := newHTTPClientForTest(t, srv.URL)
	resp, err := c.Generate(context.Background(), Request{Roster: testRoster})
	require.NoError(t, err)
	require.Len(t, resp.Turns, 1)
	assert.False(t, resp.ShouldContinue)
}

func TestHTTPClient_FailuresNormalizeToEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusInternalServerError)
			},
		},
		{
			name: "garbage payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, completionBody("not json at all"))
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[]}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newHTTPClientForTest(t, srv.URL)
			resp, err := c.Generate(context.Background(), Request{Roster: testRoster})
			require.NoError(t, err, "boundary failures never surface as errors")
			assert.True(t, resp.Empty())
			assert.False(t, resp.ShouldContinue)
		})
	}
}

func TestHTTPClient_UnreachableServer(t *testing.T) {
	t.Parallel()

	c := newHTTPClientForTest(t, "http://127.0.0.1:1")
	resp, err := c.Generate(context.Background(), Request{Roster: testRoster})
	require.NoError(t, err)
	assert.True(t, resp.Empty())
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
}

func TestStaticClient_ReplaysThenEmpty(t *testing.T) {
	t.Parallel()

	c := NewStaticClient(
		&types.DiscussionResponse{Turns: []types.DiscussionTurn{{SpeakerID: "a", Kind: types.KindText, Text: "1"}}, ShouldContinue: true},
	)

	resp, err := c.Generate(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, resp.Turns, 1)

	resp, err = c.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, resp.Empty())
	assert.Equal(t, 2, c.Calls())
}
