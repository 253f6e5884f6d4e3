package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/roundtable-ai/orchestrator/internal/activities"
	"github.com/roundtable-ai/orchestrator/internal/metrics"
	"github.com/roundtable-ai/orchestrator/internal/research"
)

const defaultMaxInterviewTurns = 2

// InterviewWorkflow runs one analyst's bounded-turn dialogue with the expert:
// question, parallel web and wikipedia retrieval, grounded answer, repeated
// until the turn limit or the analyst closes with the termination phrase, then
// a section memo synthesized from the transcript and accumulated context.
func InterviewWorkflow(ctx workflow.Context, input InterviewInput) (InterviewResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting interview branch",
		"session_id", input.SessionID,
		"analyst", input.Analyst.Name,
	)
	start := workflow.Now(ctx)

	maxTurns := input.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxInterviewTurns
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

	// The opening message primes the expert with the article framing.
	messages := []research.Message{{
		Role:    research.RoleHuman,
		Content: "So you said you were writing an article on " + input.Topic + "?",
	}}
	var contextBlocks []string
	tokensUsed := 0

	for {
		var question activities.GenerateQuestionResult
		err := workflow.ExecuteActivity(ctx, activities.GenerateQuestionActivity, activities.GenerateQuestionInput{
			Analyst:  input.Analyst,
			Messages: messages,
		}).Get(ctx, &question)
		if err != nil {
			return InterviewResult{AnalystName: input.Analyst.Name}, err
		}
		messages = append(messages, question.Message)
		tokensUsed += question.TokensUsed

		// Both retrieval tools run against the same conversation snapshot;
		// web context is appended before wikipedia so the expert sees a
		// stable ordering.
		searchInput := activities.SearchInput{Messages: messages}
		webFuture := workflow.ExecuteActivity(ctx, activities.SearchWebActivity, searchInput)
		wikiFuture := workflow.ExecuteActivity(ctx, activities.SearchWikipediaActivity, searchInput)

		var web, wiki activities.SearchResult
		if err := webFuture.Get(ctx, &web); err != nil {
			return InterviewResult{AnalystName: input.Analyst.Name}, err
		}
		if err := wikiFuture.Get(ctx, &wiki); err != nil {
			return InterviewResult{AnalystName: input.Analyst.Name}, err
		}
		tokensUsed += web.TokensUsed + wiki.TokensUsed
		if web.Context != "" {
			contextBlocks = append(contextBlocks, web.Context)
		}
		if wiki.Context != "" {
			contextBlocks = append(contextBlocks, wiki.Context)
		}

		var answer activities.GenerateAnswerResult
		err = workflow.ExecuteActivity(ctx, activities.GenerateAnswerActivity, activities.GenerateAnswerInput{
			Analyst:  input.Analyst,
			Messages: messages,
			Context:  contextBlocks,
		}).Get(ctx, &answer)
		if err != nil {
			return InterviewResult{AnalystName: input.Analyst.Name}, err
		}
		messages = append(messages, answer.Message)
		tokensUsed += answer.TokensUsed

		if research.ShouldEndInterview(messages, maxTurns) {
			break
		}
	}

	transcript := research.FlattenTranscript(messages)
	var section activities.WriteSectionResult
	err := workflow.ExecuteActivity(ctx, activities.WriteSectionActivity, activities.WriteSectionInput{
		Analyst:    input.Analyst,
		Transcript: transcript,
		Context:    contextBlocks,
	}).Get(ctx, &section)
	if err != nil {
		return InterviewResult{AnalystName: input.Analyst.Name}, err
	}
	tokensUsed += section.TokensUsed

	metrics.InterviewDuration.Observe(workflow.Now(ctx).Sub(start).Seconds())
	logger.Info("Interview branch completed",
		"analyst", input.Analyst.Name,
		"turns", research.CountExpertResponses(messages),
		"tokens_used", tokensUsed,
	)
	return InterviewResult{
		AnalystName: input.Analyst.Name,
		Section:     section.Section,
		Transcript:  transcript,
		TokensUsed:  tokensUsed,
	}, nil
}
