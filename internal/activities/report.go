package activities

import (
	"context"

	"github.com/roundtable-ai/orchestrator/internal/research"
)

// WriteReportInput carries the fan-in materials for the three report writers.
// Section order reflects branch completion order and is not deterministic; all
// three writers must be insensitive to it.
type WriteReportInput struct {
	Topic    string   `json:"topic"`
	Sections []string `json:"sections"`
}

// WriteReportResult is one generated report fragment.
type WriteReportResult struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used"`
}

// WriteReport consolidates all analyst memos into the report body, opening
// with "## Insights" and closing with a merged "## Sources" section.
func (a *Activities) WriteReport(ctx context.Context, input WriteReportInput) (WriteReportResult, error) {
	messages := []research.Message{
		{Role: research.RoleSystem, Content: research.ReportWriterInstructions(input.Topic, input.Sections)},
		{Role: research.RoleHuman, Content: "Write a report based upon these memos."},
	}
	content, usage, err := a.gateway.Complete(ctx, messages)
	if err != nil {
		return WriteReportResult{TokensUsed: usage}, err
	}
	return WriteReportResult{Content: content, TokensUsed: usage}, nil
}

// WriteIntroduction produces the titled ~100 word introduction.
func (a *Activities) WriteIntroduction(ctx context.Context, input WriteReportInput) (WriteReportResult, error) {
	messages := []research.Message{
		{Role: research.RoleSystem, Content: research.IntroConclusionInstructions(input.Topic, input.Sections)},
		{Role: research.RoleHuman, Content: "Write the report introduction"},
	}
	content, usage, err := a.gateway.Complete(ctx, messages)
	if err != nil {
		return WriteReportResult{TokensUsed: usage}, err
	}
	return WriteReportResult{Content: content, TokensUsed: usage}, nil
}

// WriteConclusion produces the ~100 word conclusion.
func (a *Activities) WriteConclusion(ctx context.Context, input WriteReportInput) (WriteReportResult, error) {
	messages := []research.Message{
		{Role: research.RoleSystem, Content: research.IntroConclusionInstructions(input.Topic, input.Sections)},
		{Role: research.RoleHuman, Content: "Write the report conclusion"},
	}
	content, usage, err := a.gateway.Complete(ctx, messages)
	if err != nil {
		return WriteReportResult{TokensUsed: usage}, err
	}
	return WriteReportResult{Content: content, TokensUsed: usage}, nil
}
