package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/config"
	"github.com/roundtable-ai/orchestrator/internal/research"
	"github.com/roundtable-ai/orchestrator/internal/session"
	"github.com/roundtable-ai/orchestrator/internal/workflows"
)

const (
	workflowIDPrefix = "research-"
	pollInterval     = 200 * time.Millisecond
	pollTimeout      = 2 * time.Minute
)

// temporalClient is the slice of client.Client the service depends on.
type temporalClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
	GetWorkflow(ctx context.Context, workflowID, runID string) client.WorkflowRun
}

// Service is the in-process boundary the external HTTP layer calls. It owns
// workflow lifecycle: starting sessions, relaying human feedback, and reading
// persona snapshots off the running workflow.
type Service struct {
	temporal temporalClient
	sessions session.Store
	cfg      *config.Config
	logger   *zap.Logger
}

// NewService creates the research service boundary.
func NewService(temporal client.Client, sessions session.Store, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{temporal: temporal, sessions: sessions, cfg: cfg, logger: logger}
}

// StartResearchResult is the initial persona batch plus the session handle.
type StartResearchResult struct {
	SessionID string             `json:"session_id"`
	Analysts  []research.Analyst `json:"analysts"`
}

// FeedbackResult is either a fresh persona batch (rejection path) or the
// completed report (approval path).
type FeedbackResult struct {
	Approved    bool               `json:"approved"`
	Analysts    []research.Analyst `json:"analysts,omitempty"`
	FinalReport string             `json:"final_report,omitempty"`
	Topic       string             `json:"topic,omitempty"`
	SessionName string             `json:"session_name,omitempty"`
	TokensUsed  int                `json:"tokens_used,omitempty"`
}

// StartResearch validates the request, starts the research workflow, and
// blocks until the first persona batch is available for review. When
// sessionID is empty an opaque one is generated and returned.
func (s *Service) StartResearch(ctx context.Context, analystCount int, topic, sessionID string) (StartResearchResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return StartResearchResult{}, research.NewError(research.KindInvalidArgument, "topic must not be empty")
	}
	if analystCount <= 0 {
		return StartResearchResult{}, research.NewError(research.KindInvalidArgument, "analyst count must be positive, got %d", analystCount)
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if err := s.sessions.Create(ctx, &session.Session{
		ID:          sessionID,
		Topic:       topic,
		MaxAnalysts: analystCount,
		Phase:       session.PhaseGenerating,
	}); err != nil {
		return StartResearchResult{}, fmt.Errorf("creating session record: %w", err)
	}

	_, err := s.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowIDPrefix + sessionID,
		TaskQueue: s.cfg.Temporal.TaskQueue,
	}, workflows.ResearchWorkflowName, workflows.ResearchInput{
		SessionID:         sessionID,
		Topic:             topic,
		MaxAnalysts:       analystCount,
		MaxInterviewTurns: s.cfg.Research.MaxInterviewTurns,
	})
	if err != nil {
		return StartResearchResult{}, fmt.Errorf("starting research workflow: %w", err)
	}
	s.logger.Info("Research session started",
		zap.String("session_id", sessionID),
		zap.String("topic", topic),
		zap.Int("analyst_count", analystCount),
	)

	snapshot, err := s.awaitPersonas(ctx, sessionID, 0)
	if err != nil {
		return StartResearchResult{}, err
	}
	return StartResearchResult{SessionID: sessionID, Analysts: snapshot.Analysts}, nil
}

// SubmitFeedback resumes a suspended session. The literal "approve" releases
// the workflow and blocks until the final report; anything else is a critique
// that regenerates personas and returns the fresh batch. A session whose
// workflow is no longer running (unknown, expired, or already completed)
// fails with SessionNotFound; the checkpoint is never mutated on failure.
func (s *Service) SubmitFeedback(ctx context.Context, feedback, sessionID string) (FeedbackResult, error) {
	if sessionID == "" {
		return FeedbackResult{}, research.NewError(research.KindInvalidArgument, "session id must not be empty")
	}
	workflowID := workflowIDPrefix + sessionID

	// Capture the revision before signaling so the rejection path can tell
	// the regenerated batch from the one being rejected.
	var priorRevision int
	if snapshot, err := s.queryPersonas(ctx, sessionID); err == nil {
		priorRevision = snapshot.Revision
	}

	err := s.temporal.SignalWorkflow(ctx, workflowID, "", workflows.FeedbackSignalName, workflows.FeedbackSignal{Feedback: feedback})
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return FeedbackResult{}, research.WrapError(research.KindSessionNotFound, err, "no suspended session %q", sessionID)
		}
		return FeedbackResult{}, fmt.Errorf("signaling session %q: %w", sessionID, err)
	}

	if feedback == workflows.ApproveFeedback {
		var result workflows.ResearchResult
		if err := s.temporal.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
			return FeedbackResult{}, mapWorkflowError(err)
		}
		s.logger.Info("Research session approved and completed",
			zap.String("session_id", sessionID),
			zap.Int("tokens_used", result.TokensUsed),
		)
		return FeedbackResult{
			Approved:    true,
			FinalReport: result.FinalReport,
			Topic:       result.Topic,
			SessionName: result.SessionName,
			TokensUsed:  result.TokensUsed,
		}, nil
	}

	snapshot, err := s.awaitPersonas(ctx, sessionID, priorRevision)
	if err != nil {
		return FeedbackResult{}, err
	}
	return FeedbackResult{Analysts: snapshot.Analysts}, nil
}

// GetSession returns the session-scoped view (personas, phase, name, usage,
// report snapshot) from the store.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) {
			return nil, research.WrapError(research.KindSessionNotFound, err, "session %q", sessionID)
		}
		return nil, err
	}
	return sess, nil
}

// awaitPersonas polls the workflow's persona query until a batch with
// revision greater than afterRevision is published.
func (s *Service) awaitPersonas(ctx context.Context, sessionID string, afterRevision int) (workflows.PersonaSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()
	for {
		snapshot, err := s.queryPersonas(ctx, sessionID)
		if err != nil {
			return workflows.PersonaSnapshot{}, err
		}
		if snapshot.Revision > afterRevision && snapshot.Phase == session.PhaseAwaitingFeedback {
			return snapshot, nil
		}
		select {
		case <-ctx.Done():
			return workflows.PersonaSnapshot{}, research.WrapError(research.KindUpstreamUnavailable, ctx.Err(),
				"timed out waiting for persona batch for session %q", sessionID)
		case <-time.After(pollInterval):
		}
	}
}

func (s *Service) queryPersonas(ctx context.Context, sessionID string) (workflows.PersonaSnapshot, error) {
	value, err := s.temporal.QueryWorkflow(ctx, workflowIDPrefix+sessionID, "", workflows.PersonasQuery)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return workflows.PersonaSnapshot{}, research.WrapError(research.KindSessionNotFound, err, "no session %q", sessionID)
		}
		return workflows.PersonaSnapshot{}, fmt.Errorf("querying personas for session %q: %w", sessionID, err)
	}
	var snapshot workflows.PersonaSnapshot
	if err := value.Get(&snapshot); err != nil {
		return workflows.PersonaSnapshot{}, fmt.Errorf("decoding persona snapshot: %w", err)
	}
	return snapshot, nil
}

func mapWorkflowError(err error) error {
	if kind := research.KindOf(err); kind != "" {
		return err
	}
	if strings.Contains(err.Error(), string(research.KindPartialFailure)) {
		return research.WrapError(research.KindPartialFailure, err, "research session failed")
	}
	return err
}
