package activities

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/db"
	"github.com/roundtable-ai/orchestrator/internal/metrics"
	"github.com/roundtable-ai/orchestrator/internal/research"
	"github.com/roundtable-ai/orchestrator/internal/session"
)

// UpdateSessionPersonasInput publishes a persona batch to the session record so
// the boundary can read it while the workflow is suspended.
type UpdateSessionPersonasInput struct {
	SessionID string             `json:"session_id"`
	Analysts  []research.Analyst `json:"analysts"`
}

// UpdateSessionPersonas replaces the visible persona batch (bumping revision).
func (a *Activities) UpdateSessionPersonas(ctx context.Context, input UpdateSessionPersonasInput) error {
	return a.sessions.SetPersonas(ctx, input.SessionID, input.Analysts)
}

// UpdateSessionPhaseInput records a lifecycle transition.
type UpdateSessionPhaseInput struct {
	SessionID string        `json:"session_id"`
	Phase     session.Phase `json:"phase"`
}

// UpdateSessionPhase records where the session sits in its lifecycle.
func (a *Activities) UpdateSessionPhase(ctx context.Context, input UpdateSessionPhaseInput) error {
	return a.sessions.SetPhase(ctx, input.SessionID, input.Phase)
}

// RecordTokenUsageInput appends one usage increment to the session.
type RecordTokenUsageInput struct {
	SessionID string `json:"session_id"`
	Tokens    int    `json:"tokens"`
}

// RecordTokenUsage appends a usage increment; increments are never reset.
func (a *Activities) RecordTokenUsage(ctx context.Context, input RecordTokenUsageInput) error {
	if input.Tokens == 0 {
		return nil
	}
	return a.sessions.AppendTokenUsage(ctx, input.SessionID, input.Tokens)
}

// CompleteSessionInput finalizes the session record and archives the run.
type CompleteSessionInput struct {
	SessionID   string `json:"session_id"`
	Topic       string `json:"topic"`
	SessionName string `json:"session_name"`
	FinalReport string `json:"final_report"`
	TokensUsed  int    `json:"tokens_used"`
	Analysts    int    `json:"analysts"`
}

// CompleteSession stores the final report on the session and queues the
// archive write. Archive failures are logged, never propagated.
func (a *Activities) CompleteSession(ctx context.Context, input CompleteSessionInput) error {
	if err := a.sessions.SetFinalReport(ctx, input.SessionID, input.FinalReport); err != nil {
		return err
	}
	metrics.SessionTokensUsed.Observe(float64(input.TokensUsed))

	if a.archive != nil {
		a.archive.Archive(db.ResearchRecord{
			SessionID:   input.SessionID,
			Topic:       input.Topic,
			SessionName: input.SessionName,
			FinalReport: input.FinalReport,
			TokensUsed:  input.TokensUsed,
			AnalystsN:   input.Analysts,
			CompletedAt: time.Now(),
		})
	}

	a.logger.Info("Research session completed",
		zap.String("session_id", input.SessionID),
		zap.Int("tokens_used", input.TokensUsed),
	)
	return nil
}
