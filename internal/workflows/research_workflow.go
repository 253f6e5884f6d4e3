package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/roundtable-ai/orchestrator/internal/activities"
	"github.com/roundtable-ai/orchestrator/internal/metrics"
	"github.com/roundtable-ai/orchestrator/internal/research"
	"github.com/roundtable-ai/orchestrator/internal/session"
)

const defaultMaxAnalysts = 3

// ResearchWorkflow drives one research session end to end: persona
// generation, suspension for human review (regenerating on critique),
// parallel analyst interviews as child workflows, and fan-in to the final
// report. The workflow's event history is the session checkpoint; a worker
// crash at any point resumes without repeating completed steps.
func ResearchWorkflow(ctx workflow.Context, input ResearchInput) (ResearchResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting research session",
		"session_id", input.SessionID,
		"topic", input.Topic,
		"max_analysts", input.MaxAnalysts,
	)
	metrics.ResearchSessionsStarted.Inc()

	if input.MaxAnalysts <= 0 {
		input.MaxAnalysts = defaultMaxAnalysts
	}
	if input.MaxInterviewTurns <= 0 {
		input.MaxInterviewTurns = defaultMaxInterviewTurns
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	snapshot := PersonaSnapshot{Phase: session.PhaseGenerating}
	if err := workflow.SetQueryHandler(ctx, PersonasQuery, func() (PersonaSnapshot, error) {
		return snapshot, nil
	}); err != nil {
		return ResearchResult{}, err
	}
	if err := workflow.SetQueryHandler(ctx, StateQuery, func() (session.Phase, error) {
		return snapshot.Phase, nil
	}); err != nil {
		return ResearchResult{}, err
	}

	tokensUsed := 0
	recordTokens := func(tokens int) {
		if tokens == 0 {
			return
		}
		tokensUsed += tokens
		if err := workflow.ExecuteActivity(ctx, activities.RecordTokenUsageActivity, activities.RecordTokenUsageInput{
			SessionID: input.SessionID,
			Tokens:    tokens,
		}).Get(ctx, nil); err != nil {
			logger.Warn("Failed to record token usage", "error", err)
		}
	}

	// Persona review loop: generate, publish, suspend on the feedback signal.
	// Anything other than an approval is a critique that seeds regeneration.
	signalCh := workflow.GetSignalChannel(ctx, FeedbackSignalName)
	sessionName := ""
	feedback := ""
	var analysts []research.Analyst
	for {
		var batch activities.GeneratePersonasResult
		err := workflow.ExecuteActivity(ctx, activities.GeneratePersonasActivity, activities.GeneratePersonasInput{
			Topic:       input.Topic,
			Feedback:    feedback,
			MaxAnalysts: input.MaxAnalysts,
		}).Get(ctx, &batch)
		if err != nil {
			_ = failSession(ctx, input.SessionID)
			return ResearchResult{}, err
		}
		recordTokens(batch.TokensUsed)
		analysts = batch.Analysts

		if err := workflow.ExecuteActivity(ctx, activities.UpdateSessionPersonasActivity, activities.UpdateSessionPersonasInput{
			SessionID: input.SessionID,
			Analysts:  analysts,
		}).Get(ctx, nil); err != nil {
			logger.Warn("Failed to publish persona batch to session", "error", err)
		}
		snapshot = PersonaSnapshot{
			Analysts: analysts,
			Revision: snapshot.Revision + 1,
			Phase:    session.PhaseAwaitingFeedback,
		}

		// The session label is generated once, alongside the first batch.
		if snapshot.Revision == 1 {
			var named activities.GenerateSessionNameResult
			if err := workflow.ExecuteActivity(ctx, activities.GenerateSessionNameActivity, activities.GenerateSessionNameInput{
				SessionID: input.SessionID,
				Topic:     input.Topic,
			}).Get(ctx, &named); err != nil {
				logger.Warn("Session naming failed", "error", err)
			} else {
				sessionName = named.Name
				recordTokens(named.TokensUsed)
			}
		}

		logger.Info("Awaiting persona feedback",
			"session_id", input.SessionID,
			"revision", snapshot.Revision,
		)
		var fb FeedbackSignal
		signalCh.Receive(ctx, &fb)
		if fb.Feedback == ApproveFeedback {
			break
		}
		feedback = fb.Feedback
		snapshot.Phase = session.PhaseGenerating
		logger.Info("Persona batch rejected, regenerating",
			"session_id", input.SessionID,
			"revision", snapshot.Revision,
		)
	}

	snapshot.Phase = session.PhaseInterviewing
	if err := workflow.ExecuteActivity(ctx, activities.UpdateSessionPhaseActivity, activities.UpdateSessionPhaseInput{
		SessionID: input.SessionID,
		Phase:     session.PhaseInterviewing,
	}).Get(ctx, nil); err != nil {
		logger.Warn("Failed to record interviewing phase", "error", err)
	}

	// Fan out one child interview per approved analyst. Children run
	// concurrently; results are merged by position so section ordering is
	// stable even though completion order is not.
	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID
	futures := make([]workflow.ChildWorkflowFuture, len(analysts))
	for i, analyst := range analysts {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: fmt.Sprintf("%s-interview-%d", workflowID, i),
		})
		futures[i] = workflow.ExecuteChildWorkflow(childCtx, InterviewWorkflowName, InterviewInput{
			SessionID: input.SessionID,
			Topic:     input.Topic,
			Analyst:   analyst,
			MaxTurns:  input.MaxInterviewTurns,
		})
	}

	sections := make([]string, 0, len(analysts))
	var failedAnalysts []string
	for i, future := range futures {
		var result InterviewResult
		if err := future.Get(ctx, &result); err != nil {
			logger.Error("Interview branch failed",
				"analyst", analysts[i].Name,
				"error", err,
			)
			failedAnalysts = append(failedAnalysts, analysts[i].Name)
			metrics.InterviewBranches.WithLabelValues("failed").Inc()
			continue
		}
		sections = append(sections, result.Section)
		recordTokens(result.TokensUsed)
		metrics.InterviewBranches.WithLabelValues("success").Inc()
	}
	if len(failedAnalysts) > 0 {
		_ = failSession(ctx, input.SessionID)
		metrics.ResearchSessionsCompleted.WithLabelValues("partial_failure").Inc()
		return ResearchResult{}, research.PartialFailure(failedAnalysts)
	}

	// The three report writers share the same inputs and run in parallel.
	reportInput := activities.WriteReportInput{Topic: input.Topic, Sections: sections}
	bodyFuture := workflow.ExecuteActivity(ctx, activities.WriteReportActivity, reportInput)
	introFuture := workflow.ExecuteActivity(ctx, activities.WriteIntroductionActivity, reportInput)
	conclusionFuture := workflow.ExecuteActivity(ctx, activities.WriteConclusionActivity, reportInput)

	var body, intro, conclusion activities.WriteReportResult
	if err := bodyFuture.Get(ctx, &body); err != nil {
		_ = failSession(ctx, input.SessionID)
		return ResearchResult{}, err
	}
	if err := introFuture.Get(ctx, &intro); err != nil {
		_ = failSession(ctx, input.SessionID)
		return ResearchResult{}, err
	}
	if err := conclusionFuture.Get(ctx, &conclusion); err != nil {
		_ = failSession(ctx, input.SessionID)
		return ResearchResult{}, err
	}
	recordTokens(body.TokensUsed + intro.TokensUsed + conclusion.TokensUsed)

	finalReport := research.FinalizeReport(intro.Content, body.Content, conclusion.Content)

	if err := workflow.ExecuteActivity(ctx, activities.CompleteSessionActivity, activities.CompleteSessionInput{
		SessionID:   input.SessionID,
		Topic:       input.Topic,
		SessionName: sessionName,
		FinalReport: finalReport,
		TokensUsed:  tokensUsed,
		Analysts:    len(analysts),
	}).Get(ctx, nil); err != nil {
		return ResearchResult{}, err
	}
	snapshot.Phase = session.PhaseCompleted

	metrics.ResearchSessionsCompleted.WithLabelValues("success").Inc()
	logger.Info("Research session completed",
		"session_id", input.SessionID,
		"analysts", len(analysts),
		"tokens_used", tokensUsed,
	)
	return ResearchResult{
		SessionID:   input.SessionID,
		Topic:       input.Topic,
		SessionName: sessionName,
		FinalReport: finalReport,
		Analysts:    analysts,
		TokensUsed:  tokensUsed,
	}, nil
}

func failSession(ctx workflow.Context, sessionID string) error {
	return workflow.ExecuteActivity(ctx, activities.UpdateSessionPhaseActivity, activities.UpdateSessionPhaseInput{
		SessionID: sessionID,
		Phase:     session.PhaseFailed,
	}).Get(ctx, nil)
}
