package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/research"
	"github.com/roundtable-ai/orchestrator/internal/tools"
)

// GenerateQuestionInput asks for the analyst's next interview question.
type GenerateQuestionInput struct {
	Analyst  research.Analyst   `json:"analyst"`
	Messages []research.Message `json:"messages"`
}

// GenerateQuestionResult is the analyst-attributed question turn.
type GenerateQuestionResult struct {
	Message    research.Message `json:"message"`
	TokensUsed int              `json:"tokens_used"`
}

// GenerateQuestion produces the next analyst question from the conversation so
// far, staying in the analyst's persona.
func (a *Activities) GenerateQuestion(ctx context.Context, input GenerateQuestionInput) (GenerateQuestionResult, error) {
	messages := append([]research.Message{
		{Role: research.RoleSystem, Content: research.QuestionInstructions(input.Analyst.Persona())},
	}, input.Messages...)

	content, usage, err := a.gateway.Complete(ctx, messages)
	if err != nil {
		return GenerateQuestionResult{TokensUsed: usage}, err
	}

	return GenerateQuestionResult{
		Message:    research.Message{Role: research.RoleAI, Name: input.Analyst.Name, Content: content},
		TokensUsed: usage,
	}, nil
}

// SearchInput distills the conversation into a query and runs one retrieval tool.
type SearchInput struct {
	Messages []research.Message `json:"messages"`
}

// SearchResult is one formatted context bundle plus the distillation usage.
type SearchResult struct {
	Context    string `json:"context"`
	Query      string `json:"query"`
	TokensUsed int    `json:"tokens_used"`
}

// SearchWeb distills the conversation into a web query and retrieves documents.
func (a *Activities) SearchWeb(ctx context.Context, input SearchInput) (SearchResult, error) {
	return a.search(ctx, input, a.web, "web")
}

// SearchWikipedia distills the conversation into a query and retrieves
// encyclopedia extracts.
func (a *Activities) SearchWikipedia(ctx context.Context, input SearchInput) (SearchResult, error) {
	return a.search(ctx, input, a.wiki, "wikipedia")
}

func (a *Activities) search(ctx context.Context, input SearchInput, searcher tools.Searcher, tool string) (SearchResult, error) {
	messages := append([]research.Message{
		{Role: research.RoleSystem, Content: research.SearchInstructions},
	}, input.Messages...)

	var query research.SearchQuery
	usage, err := a.gateway.CompleteStructured(ctx, messages, &query)
	if err != nil {
		return SearchResult{TokensUsed: usage}, err
	}

	docs, err := searcher.Search(ctx, query.SearchQuery)
	if err != nil {
		return SearchResult{Query: query.SearchQuery, TokensUsed: usage}, err
	}

	a.logger.Debug("Retrieval step completed",
		zap.String("tool", tool),
		zap.String("query", query.SearchQuery),
		zap.Int("docs", len(docs)),
	)
	return SearchResult{
		Context:    tools.FormatDocuments(docs),
		Query:      query.SearchQuery,
		TokensUsed: usage,
	}, nil
}

// GenerateAnswerInput asks the expert to answer grounded in retrieved context.
type GenerateAnswerInput struct {
	Analyst  research.Analyst   `json:"analyst"`
	Messages []research.Message `json:"messages"`
	Context  []string           `json:"context"`
}

// GenerateAnswerResult is the expert-attributed answer turn.
type GenerateAnswerResult struct {
	Message    research.Message `json:"message"`
	TokensUsed int              `json:"tokens_used"`
}

// GenerateAnswer produces the expert's answer using only the accumulated
// interview context, citing sources inline.
func (a *Activities) GenerateAnswer(ctx context.Context, input GenerateAnswerInput) (GenerateAnswerResult, error) {
	messages := append([]research.Message{
		{Role: research.RoleSystem, Content: research.AnswerInstructions(input.Analyst.Persona(), input.Context)},
	}, input.Messages...)

	content, usage, err := a.gateway.Complete(ctx, messages)
	if err != nil {
		return GenerateAnswerResult{TokensUsed: usage}, err
	}

	return GenerateAnswerResult{
		Message:    research.Message{Role: research.RoleAI, Name: research.ExpertName, Content: content},
		TokensUsed: usage,
	}, nil
}

// WriteSectionInput turns one finished interview into a report section.
type WriteSectionInput struct {
	Analyst    research.Analyst `json:"analyst"`
	Transcript string           `json:"transcript"`
	Context    []string         `json:"context"`
}

// WriteSectionResult is one markdown memo.
type WriteSectionResult struct {
	Section    string `json:"section"`
	TokensUsed int    `json:"tokens_used"`
}

// WriteSection produces the analyst's markdown memo (title, summary with
// numbered citations, deduplicated sources) from the interview materials.
func (a *Activities) WriteSection(ctx context.Context, input WriteSectionInput) (WriteSectionResult, error) {
	messages := []research.Message{
		{Role: research.RoleSystem, Content: research.SectionWriterInstructions(input.Analyst.Description)},
		{Role: research.RoleHuman, Content: "Use this source material to write your section.\n\nInterview transcript:\n" +
			input.Transcript + "\n\nRetrieved documents:\n" + joinContext(input.Context)},
	}

	section, usage, err := a.gateway.Complete(ctx, messages)
	if err != nil {
		return WriteSectionResult{TokensUsed: usage}, err
	}
	return WriteSectionResult{Section: section, TokensUsed: usage}, nil
}

func joinContext(context []string) string {
	out := ""
	for i, block := range context {
		if i > 0 {
			out += "\n\n"
		}
		out += block
	}
	return out
}
