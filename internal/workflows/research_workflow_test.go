package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/roundtable-ai/orchestrator/internal/activities"
	"github.com/roundtable-ai/orchestrator/internal/research"
	"github.com/roundtable-ai/orchestrator/internal/session"
)

var testAnalysts = []research.Analyst{
	{Affiliation: "Univ", Name: "Dr. Alpha", Role: "economist", Description: "macro focus"},
	{Affiliation: "Lab", Name: "Dr. Beta", Role: "engineer", Description: "hardware focus"},
}

// researchStubs wires name-registered activity stubs with adjustable behavior.
type researchStubs struct {
	personaCalls    int
	lastFeedback    string
	failAnswerFor   string
	recordedTokens  []int
	completedReport string
}

func (s *researchStubs) register(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivityWithOptions(func(_ context.Context, input activities.GeneratePersonasInput) (activities.GeneratePersonasResult, error) {
		s.personaCalls++
		s.lastFeedback = input.Feedback
		return activities.GeneratePersonasResult{Analysts: testAnalysts, TokensUsed: 100}, nil
	}, activity.RegisterOptions{Name: activities.GeneratePersonasActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.GenerateSessionNameInput) (activities.GenerateSessionNameResult, error) {
		return activities.GenerateSessionNameResult{Name: "Quantum Economics", TokensUsed: 10}, nil
	}, activity.RegisterOptions{Name: activities.GenerateSessionNameActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.GenerateQuestionInput) (activities.GenerateQuestionResult, error) {
		return activities.GenerateQuestionResult{
			Message:    research.Message{Role: research.RoleAI, Name: input.Analyst.Name, Content: "Why? " + research.TerminationPhrase + "!"},
			TokensUsed: 5,
		}, nil
	}, activity.RegisterOptions{Name: activities.GenerateQuestionActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.SearchInput) (activities.SearchResult, error) {
		return activities.SearchResult{Context: "<Document source=\"web\"/>\nw\n</Document>", Query: "q", TokensUsed: 2}, nil
	}, activity.RegisterOptions{Name: activities.SearchWebActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.SearchInput) (activities.SearchResult, error) {
		return activities.SearchResult{Context: "<Document source=\"wiki\"/>\nk\n</Document>", Query: "q", TokensUsed: 2}, nil
	}, activity.RegisterOptions{Name: activities.SearchWikipediaActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.GenerateAnswerInput) (activities.GenerateAnswerResult, error) {
		if s.failAnswerFor != "" && input.Analyst.Name == s.failAnswerFor {
			return activities.GenerateAnswerResult{}, errors.New("gateway unavailable")
		}
		return activities.GenerateAnswerResult{
			Message:    research.Message{Role: research.RoleAI, Name: research.ExpertName, Content: "Because. [1]"},
			TokensUsed: 7,
		}, nil
	}, activity.RegisterOptions{Name: activities.GenerateAnswerActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.WriteSectionInput) (activities.WriteSectionResult, error) {
		return activities.WriteSectionResult{Section: "## Section by " + input.Analyst.Name, TokensUsed: 20}, nil
	}, activity.RegisterOptions{Name: activities.WriteSectionActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.WriteReportInput) (activities.WriteReportResult, error) {
		return activities.WriteReportResult{Content: "## Insights\nBODY\n## Sources\nSRC", TokensUsed: 30}, nil
	}, activity.RegisterOptions{Name: activities.WriteReportActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.WriteReportInput) (activities.WriteReportResult, error) {
		return activities.WriteReportResult{Content: "# Title\n\n## Introduction\nINTRO", TokensUsed: 15}, nil
	}, activity.RegisterOptions{Name: activities.WriteIntroductionActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.WriteReportInput) (activities.WriteReportResult, error) {
		return activities.WriteReportResult{Content: "## Conclusion\nOUTRO", TokensUsed: 15}, nil
	}, activity.RegisterOptions{Name: activities.WriteConclusionActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.UpdateSessionPersonasInput) error {
		return nil
	}, activity.RegisterOptions{Name: activities.UpdateSessionPersonasActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.UpdateSessionPhaseInput) error {
		return nil
	}, activity.RegisterOptions{Name: activities.UpdateSessionPhaseActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.RecordTokenUsageInput) error {
		s.recordedTokens = append(s.recordedTokens, input.Tokens)
		return nil
	}, activity.RegisterOptions{Name: activities.RecordTokenUsageActivity})

	env.RegisterActivityWithOptions(func(_ context.Context, input activities.CompleteSessionInput) error {
		s.completedReport = input.FinalReport
		return nil
	}, activity.RegisterOptions{Name: activities.CompleteSessionActivity})

	env.RegisterWorkflowWithOptions(InterviewWorkflow, workflow.RegisterOptions{Name: InterviewWorkflowName})
}

func newResearchEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *researchStubs) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	stubs := &researchStubs{}
	stubs.register(env)
	return env, stubs
}

func TestResearchWorkflow_ApprovalPath(t *testing.T) {
	env, stubs := newResearchEnv(t)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(FeedbackSignalName, FeedbackSignal{Feedback: ApproveFeedback})
	}, time.Minute)

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{
		SessionID: "s1", Topic: "quantum economics", MaxAnalysts: 2, MaxInterviewTurns: 2,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result ResearchResult
	require.NoError(t, env.GetWorkflowResult(&result))

	assert.Equal(t, 1, stubs.personaCalls)
	assert.Equal(t, "quantum economics", result.Topic)
	assert.Equal(t, "Quantum Economics", result.SessionName)
	assert.Equal(t, testAnalysts, result.Analysts)

	// Report assembly: intro, stripped body, conclusion, merged sources.
	assert.Equal(t,
		"# Title\n\n## Introduction\nINTRO\n\n---\n\nBODY\n\n---\n\n## Conclusion\nOUTRO\n\n## Sources\nSRC",
		result.FinalReport)
	assert.Equal(t, result.FinalReport, stubs.completedReport)

	// Both sections made it into the body prompt via the child branches.
	assert.Contains(t, result.FinalReport, "BODY")
	assert.Greater(t, result.TokensUsed, 0)
}

func TestResearchWorkflow_RejectionRegenerates(t *testing.T) {
	env, stubs := newResearchEnv(t)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(FeedbackSignalName, FeedbackSignal{Feedback: "add a skeptic"})
	}, time.Minute)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(FeedbackSignalName, FeedbackSignal{Feedback: ApproveFeedback})
	}, 2*time.Minute)

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{
		SessionID: "s1", Topic: "t", MaxAnalysts: 2,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	assert.Equal(t, 2, stubs.personaCalls)
	assert.Equal(t, "add a skeptic", stubs.lastFeedback)
}

func TestResearchWorkflow_PersonaQueryExposesRevision(t *testing.T) {
	env, _ := newResearchEnv(t)

	env.RegisterDelayedCallback(func() {
		value, err := env.QueryWorkflow(PersonasQuery)
		require.NoError(t, err)
		var snapshot PersonaSnapshot
		require.NoError(t, value.Get(&snapshot))
		assert.Equal(t, 1, snapshot.Revision)
		assert.Equal(t, session.PhaseAwaitingFeedback, snapshot.Phase)
		assert.Len(t, snapshot.Analysts, 2)

		env.SignalWorkflow(FeedbackSignalName, FeedbackSignal{Feedback: ApproveFeedback})
	}, time.Minute)

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{SessionID: "s1", Topic: "t"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestResearchWorkflow_BranchFailureNamesAnalyst(t *testing.T) {
	env, stubs := newResearchEnv(t)
	stubs.failAnswerFor = "Dr. Beta"

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(FeedbackSignalName, FeedbackSignal{Feedback: ApproveFeedback})
	}, time.Minute)

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{
		SessionID: "s1", Topic: "t", MaxAnalysts: 2,
	})
	require.True(t, env.IsWorkflowCompleted())

	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Dr. Beta")
	assert.NotContains(t, err.Error(), "Dr. Alpha")
}

func TestResearchWorkflow_TokenUsageAccumulates(t *testing.T) {
	env, stubs := newResearchEnv(t)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(FeedbackSignalName, FeedbackSignal{Feedback: ApproveFeedback})
	}, time.Minute)

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{
		SessionID: "s1", Topic: "t", MaxAnalysts: 2, MaxInterviewTurns: 2,
	})
	require.NoError(t, env.GetWorkflowError())

	var result ResearchResult
	require.NoError(t, env.GetWorkflowResult(&result))

	sum := 0
	for _, tokens := range stubs.recordedTokens {
		sum += tokens
	}
	assert.Equal(t, result.TokensUsed, sum)

	// 100 personas + 10 name + 2 branches x (5+2+2+7+20) + 30+15+15.
	assert.Equal(t, 100+10+2*36+60, result.TokensUsed)
}

func TestResearchWorkflow_SectionOrderDoesNotAffectSources(t *testing.T) {
	// The delimiter split in report assembly must not depend on how many
	// sections the branches produced.
	report := research.FinalizeReport(
		"INTRO",
		"## Insights\n"+strings.Join([]string{"S1", "S2", "S3"}, "\n")+"\n## Sources\nSRC",
		"OUTRO",
	)
	assert.True(t, strings.HasSuffix(report, "\n## Sources\nSRC"))
	assert.True(t, strings.HasPrefix(report, "INTRO\n\n---\n\n"))
}
