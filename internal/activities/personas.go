package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/metrics"
	"github.com/roundtable-ai/orchestrator/internal/research"
)

// GeneratePersonasInput asks for a fresh analyst batch. Feedback is empty on
// the first round and carries the human critique on regeneration.
type GeneratePersonasInput struct {
	Topic       string `json:"topic"`
	Feedback    string `json:"feedback"`
	MaxAnalysts int    `json:"max_analysts"`
}

// GeneratePersonasResult carries the batch and the call's token usage.
type GeneratePersonasResult struct {
	Analysts   []research.Analyst `json:"analysts"`
	TokensUsed int                `json:"tokens_used"`
}

// GeneratePersonas synthesizes one persona batch via the gateway's structured
// output. The prompt asks for the top N themes; the bound is enforced here by
// truncation so the batch-size invariant holds regardless of model behavior.
func (a *Activities) GeneratePersonas(ctx context.Context, input GeneratePersonasInput) (GeneratePersonasResult, error) {
	a.logger.Info("Generating analyst personas",
		zap.String("topic", input.Topic),
		zap.Int("max_analysts", input.MaxAnalysts),
		zap.Bool("has_feedback", input.Feedback != ""),
	)

	messages := []research.Message{
		{Role: research.RoleSystem, Content: research.AnalystInstructions(input.Topic, input.Feedback, input.MaxAnalysts)},
		{Role: research.RoleHuman, Content: `Generate the set of analysts. Respond with a JSON object of the form {"analysts": [{"affiliation": "...", "name": "...", "role": "...", "description": "..."}]}.`},
	}

	var batch research.PersonaBatch
	usage, err := a.gateway.CompleteStructured(ctx, messages, &batch)
	if err != nil {
		return GeneratePersonasResult{TokensUsed: usage}, err
	}

	batch = batch.Truncate(input.MaxAnalysts)
	if err := batch.Validate(); err != nil {
		return GeneratePersonasResult{TokensUsed: usage},
			research.WrapError(research.KindSchemaViolation, err, "generated persona batch is invalid")
	}

	metrics.PersonaBatchesGenerated.Inc()
	a.logger.Info("Persona batch generated", zap.Int("analysts", len(batch.Analysts)))
	return GeneratePersonasResult{Analysts: batch.Analysts, TokensUsed: usage}, nil
}
