package activities

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/research"
)

const maxSessionNameLength = 60

// GenerateSessionNameInput labels the research session after its topic.
type GenerateSessionNameInput struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
}

// GenerateSessionNameResult carries the label and the call's token usage.
type GenerateSessionNameResult struct {
	Name       string `json:"name"`
	TokensUsed int    `json:"tokens_used"`
}

// GenerateSessionName produces a short memorable label for the session, with a
// topic-truncation fallback when the gateway is unavailable. A label is nice to
// have; it never fails the workflow.
func (a *Activities) GenerateSessionName(ctx context.Context, input GenerateSessionNameInput) (GenerateSessionNameResult, error) {
	messages := []research.Message{
		{Role: research.RoleSystem, Content: research.SessionNameInstructions},
		{Role: research.RoleHuman, Content: "Generate a session name about this topic: " + input.Topic},
	}

	name, usage, err := a.gateway.Complete(ctx, messages)
	if err != nil {
		a.logger.Warn("Session name generation failed, using fallback",
			zap.String("session_id", input.SessionID), zap.Error(err))
		return GenerateSessionNameResult{Name: fallbackSessionName(input.Topic)}, nil
	}

	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if name == "" {
		name = fallbackSessionName(input.Topic)
	}
	if runes := []rune(name); len(runes) > maxSessionNameLength {
		name = string(runes[:maxSessionNameLength-3]) + "..."
	}

	if err := a.sessions.SetName(ctx, input.SessionID, name); err != nil {
		a.logger.Warn("Failed to store session name",
			zap.String("session_id", input.SessionID), zap.Error(err))
	}

	a.logger.Info("Session name generated",
		zap.String("session_id", input.SessionID), zap.String("name", name))
	return GenerateSessionNameResult{Name: name, TokensUsed: usage}, nil
}

// fallbackSessionName truncates the topic at a word boundary.
func fallbackSessionName(topic string) string {
	name := strings.TrimSpace(topic)
	if idx := strings.Index(name, "\n"); idx > 0 {
		name = name[:idx]
	}
	runes := []rune(name)
	if len(runes) > 40 {
		truncated := string(runes[:40])
		if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 20 {
			truncated = truncated[:lastSpace]
		}
		name = truncated + "..."
	}
	return name
}
