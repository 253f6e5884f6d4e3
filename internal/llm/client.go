package llm

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

	"github.com/roundtable-ai/orchestrator/internal/config"
	"github.com/roundtable-ai/orchestrator/internal/metrics"
	"github.com/roundtable-ai/orchestrator/internal/research"
)

// Validator is implemented by structured-output targets that can check their own
// shape after decoding.
type Validator interface {
	Validate() error
}

// Client talks to an OpenAI-compatible chat-completions gateway. Every call
// returns the total token usage for that call; callers are responsible for
// propagating it into the session's running usage list.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a gateway client from config.
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends the message sequence and returns the free-text response plus
// the call's token usage.
func (c *Client) Complete(ctx context.Context, messages []research.Message) (string, int, error) {
	content, usage, err := c.invoke(ctx, messages, nil)
	c.observe("complete", err)
	return content, usage, err
}

// CompleteStructured constrains the response to JSON, decodes it into out, and
// validates the result. A response that cannot be coerced to the target shape
// fails with SchemaViolation.
func (c *Client) CompleteStructured(ctx context.Context, messages []research.Message, out interface{}) (int, error) {
	content, usage, err := c.invoke(ctx, messages, &responseFormat{Type: "json_object"})
	if err != nil {
		c.observe("structured", err)
		return usage, err
	}

	if err := json.Unmarshal([]byte(stripCodeFence(content)), out); err != nil {
		err = research.WrapError(research.KindSchemaViolation, err,
			"gateway output is not valid JSON for target shape")
		c.observe("structured", err)
		return usage, err
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			err = research.WrapError(research.KindSchemaViolation, err,
				"gateway output failed shape validation")
			c.observe("structured", err)
			return usage, err
		}
	}
	c.observe("structured", nil)
	return usage, nil
}

func (c *Client) invoke(ctx context.Context, messages []research.Message, format *responseFormat) (string, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", 0, research.WrapError(research.KindUpstreamUnavailable, err, "rate limiter wait")
	}

	req := chatRequest{
		Model:          c.model,
		Messages:       toChatMessages(messages),
		ResponseFormat: format,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", 0, fmt.Errorf("marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", 0, research.WrapError(research.KindUpstreamUnavailable, err, "gateway call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", 0, research.NewError(research.KindUpstreamUnavailable,
			"gateway returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, research.WrapError(research.KindUpstreamUnavailable, err, "decode gateway response")
	}
	if len(parsed.Choices) == 0 {
		return "", 0, research.NewError(research.KindUpstreamUnavailable, "gateway returned no choices")
	}

	usage := parsed.Usage.TotalTokens
	metrics.GatewayTokensUsed.Add(float64(usage))
	return parsed.Choices[0].Message.Content, usage, nil
}

func (c *Client) observe(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		c.logger.Warn("Gateway call failed", zap.String("kind", kind), zap.Error(err))
	}
	metrics.GatewayCalls.WithLabelValues(kind, status).Inc()
}

// toChatMessages maps interview roles onto the wire roles the gateway expects.
func toChatMessages(messages []research.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		role := "user"
		switch m.Role {
		case research.RoleSystem:
			role = "system"
		case research.RoleAI:
			role = "assistant"
		}
		out = append(out, chatMessage{Role: role, Content: m.Content, Name: m.Name})
	}
	return out
}

// stripCodeFence unwraps ```json fenced blocks some models emit around JSON.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
