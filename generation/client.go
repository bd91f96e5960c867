package generation

import (
	"context"
	"sync"

	"github.com/BaSui01/swarmchat/types"
)

// Request carries the generation inputs: the latest transcript snapshot
// (bounded to a recent window by the prompt builder) and the active roster.
type Request struct {
	ConversationID string
	History        []types.Message
	Roster         []types.Persona
}

// Client is the generation service contract.
type Client interface {
	Generate(ctx context.Context, req Request) (*types.DiscussionResponse, error)
}

// EmptyResponse is what boundary failures normalize to.
func EmptyResponse() *types.DiscussionResponse {
	return &types.DiscussionResponse{Turns: nil, ShouldContinue: false}
}

// StaticClient replays a scripted sequence of responses, one per Generate
// call, then empty responses forever. Used in tests and demo mode.
type StaticClient struct {
	mu        sync.Mutex
	responses []*types.DiscussionResponse
	calls     int
}

// NewStaticClient creates a client that replays the given responses in order.
func NewStaticClient(responses ...*types.DiscussionResponse) *StaticClient {
	return &StaticClient{responses: responses}
}

// Generate pops the next scripted response.
func (c *StaticClient) Generate(ctx context.Context, req Request) (*types.DiscussionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.responses) == 0 {
		return EmptyResponse(), nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	if resp == nil {
		return EmptyResponse(), nil
	}
	return resp, nil
}

// Calls returns how many times Generate was invoked.
func (c *StaticClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
