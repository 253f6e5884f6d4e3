package session

import (
	"errors"
	"time"

	"github.com/roundtable-ai/orchestrator/internal/research"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired
	ErrSessionExpired = errors.New("session expired")
)

// Phase tracks where a research session sits in its lifecycle.
type Phase string

const (
	PhaseGenerating       Phase = "generating"
	PhaseAwaitingFeedback Phase = "awaiting_feedback"
	PhaseInterviewing     Phase = "interviewing"
	PhaseCompleted        Phase = "completed"
	PhaseFailed           Phase = "failed"
)

// Session is the durable, externally visible view of one research run. The
// workflow's own checkpoint lives in its event history; this record is what the
// boundary reads between suspension and resumption.
type Session struct {
	ID          string             `json:"id"`
	Topic       string             `json:"topic"`
	MaxAnalysts int                `json:"max_analysts"`
	Phase       Phase              `json:"phase"`
	Name        string             `json:"name,omitempty"`
	Analysts    []research.Analyst `json:"analysts,omitempty"`
	// Revision bumps on every persona batch replacement so callers can tell a
	// regenerated batch from the one they already saw.
	Revision    int       `json:"revision"`
	TokenUsage  []int     `json:"token_usage,omitempty"`
	FinalReport string    `json:"final_report,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether the session TTL has lapsed.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// TotalTokens sums every recorded usage increment.
func (s *Session) TotalTokens() int {
	total := 0
	for _, n := range s.TokenUsage {
		total += n
	}
	return total
}
