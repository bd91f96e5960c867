package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/swarmchat/config"
	"github.com/BaSui01/swarmchat/types"
)

// HTTPClient calls an OpenAI-compatible chat-completions endpoint in JSON
// mode. Any transport, status or parsing failure is absorbed: Generate
// logs the cause and returns the empty response, never an error.
type HTTPClient struct {
	cfg     config.GenerationConfig
	orchCfg config.OrchestratorConfig
	client  *http.Client
	limiter *rate.Limiter
	prompt  *PromptBuilder
	logger  *zap.Logger
}

// NewHTTPClient creates the client. A zero RequestsPerMinute disables
// client-side rate limiting.
func NewHTTPClient(cfg config.GenerationConfig, orchCfg config.OrchestratorConfig, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return &HTTPClient{
		cfg:     cfg,
		orchCfg: orchCfg,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		prompt:  NewPromptBuilder(orchCfg.HistoryWindow, orchCfg.HistoryTokenBudget),
		logger:  logger.With(zap.String("component", "generation")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature,omitempty"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// wireResponse is the JSON contract the system instruction asks for.
type wireResponse struct {
	Turns []struct {
		SpeakerID    string   `json:"speaker_id"`
		Text         string   `json:"text"`
		Kind         string   `json:"kind"`
		PollQuestion string   `json:"poll_question"`
		PollOptions  []string `json:"poll_options"`
	} `json:"turns"`
	ShouldContinue bool `json:"should_continue"`
}

// Generate runs one generation round trip.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (*types.DiscussionResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return EmptyResponse(), nil
		}
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.prompt.Build(req)},
			{Role: "user", Content: "Evaluate discussion state and execute next turns."},
		},
		Temperature:    c.cfg.Temperature,
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		c.logger.Warn("generation call failed, returning empty response",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(types.NewError(types.ErrServiceUnavailable, "generation boundary failure").WithCause(err)))
		return EmptyResponse(), nil
	}
	return resp, nil
}

func (c *HTTPClient) post(ctx context.Context, body chatRequest) (*types.DiscussionResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call generation service: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service status %d: %s", httpResp.StatusCode, truncate(string(raw), 200))
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("parse completion envelope: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("completion has no choices")
	}

	content := stripFences(chat.Choices[0].Message.Content)
	var wire wireResponse
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return nil, fmt.Errorf("parse discussion payload: %w", err)
	}

	out := &types.DiscussionResponse{ShouldContinue: wire.ShouldContinue}
	for _, t := range wire.Turns {
		kind := types.KindText
		if t.Kind == string(types.KindPoll) {
			kind = types.KindPoll
		}
		out.Turns = append(out.Turns, types.DiscussionTurn{
			SpeakerID:    t.SpeakerID,
			Text:         t.Text,
			Kind:         kind,
			PollQuestion: t.PollQuestion,
			PollOptions:  t.PollOptions,
		})
	}
	return out, nil
}

// stripFences removes a markdown code fence wrapping the JSON payload,
// which some models emit despite JSON mode.
func stripFences(content string) string {
	if i := strings.Index(content, "```json"); i >= 0 {
		rest := content[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(content, "```"); i >= 0 {
		rest := content[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
