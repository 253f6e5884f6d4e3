package workflows

import (
	"github.com/roundtable-ai/orchestrator/internal/research"
	"github.com/roundtable-ai/orchestrator/internal/session"
)

// Workflow names as registered on the worker.
const (
	ResearchWorkflowName  = "ResearchWorkflow"
	InterviewWorkflowName = "InterviewWorkflow"
)

// FeedbackSignalName is the signal the service boundary sends while the
// workflow is suspended awaiting persona review.
const FeedbackSignalName = "human-feedback"

// Query names exposed by the research workflow.
const (
	PersonasQuery = "personas"
	StateQuery    = "state"
)

// ApproveFeedback is the exact feedback string that releases the suspension.
// Any other value is treated as a critique and triggers regeneration.
const ApproveFeedback = "approve"

// FeedbackSignal carries one round of human review.
type FeedbackSignal struct {
	Feedback string `json:"feedback"`
}

// ResearchInput starts one research session.
type ResearchInput struct {
	SessionID         string `json:"session_id"`
	Topic             string `json:"topic"`
	MaxAnalysts       int    `json:"max_analysts"`
	MaxInterviewTurns int    `json:"max_interview_turns"`
}

// ResearchResult is the terminal output of a research session.
type ResearchResult struct {
	SessionID   string             `json:"session_id"`
	Topic       string             `json:"topic"`
	SessionName string             `json:"session_name"`
	FinalReport string             `json:"final_report"`
	Analysts    []research.Analyst `json:"analysts"`
	TokensUsed  int                `json:"tokens_used"`
}

// PersonaSnapshot is the persona-review view served by the PersonasQuery
// handler. Revision increments on every regeneration so pollers can tell a
// fresh batch from the one they rejected.
type PersonaSnapshot struct {
	Analysts []research.Analyst `json:"analysts"`
	Revision int                `json:"revision"`
	Phase    session.Phase      `json:"phase"`
}

// InterviewInput starts one analyst interview branch.
type InterviewInput struct {
	SessionID string           `json:"session_id"`
	Topic     string           `json:"topic"`
	Analyst   research.Analyst `json:"analyst"`
	MaxTurns  int              `json:"max_turns"`
}

// InterviewResult is one branch's contribution to the report.
type InterviewResult struct {
	AnalystName string `json:"analyst_name"`
	Section     string `json:"section"`
	Transcript  string `json:"transcript"`
	TokensUsed  int    `json:"tokens_used"`
}
