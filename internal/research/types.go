package research

import (
	"fmt"
	"strings"
)

// Message roles within an interview conversation.
const (
	RoleSystem = "system"
	RoleHuman  = "human"
	RoleAI     = "ai"
)

// ExpertName tags expert answers so turn routing can count them.
const ExpertName = "expert"

// TerminationPhrase ends an interview early when the analyst is satisfied.
const TerminationPhrase = "Thank you so much for your help"

// Analyst is a synthesized persona that drives one interview.
// A batch is immutable once generated; regeneration replaces the whole batch.
type Analyst struct {
	Affiliation string `json:"affiliation"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// Persona renders the analyst as the prompt-facing identity block.
func (a Analyst) Persona() string {
	return fmt.Sprintf("Name: %s\nRole: %s\nAffiliation: %s\nDescription: %s\n",
		a.Name, a.Role, a.Affiliation, a.Description)
}

// Validate reports whether all four persona fields are populated.
func (a Analyst) Validate() error {
	if a.Name == "" || a.Role == "" || a.Affiliation == "" || a.Description == "" {
		return fmt.Errorf("analyst %q has empty persona fields", a.Name)
	}
	return nil
}

// PersonaBatch is one atomically generated set of analysts.
type PersonaBatch struct {
	Analysts []Analyst `json:"analysts"`
}

// Validate checks every analyst in the batch.
func (b PersonaBatch) Validate() error {
	if len(b.Analysts) == 0 {
		return fmt.Errorf("persona batch is empty")
	}
	for _, a := range b.Analysts {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Truncate bounds the batch to maxCount analysts. The generation prompt asks for
// the top N themes but nothing enforces that upstream, so the bound is applied here.
func (b PersonaBatch) Truncate(maxCount int) PersonaBatch {
	if maxCount > 0 && len(b.Analysts) > maxCount {
		return PersonaBatch{Analysts: b.Analysts[:maxCount]}
	}
	return b
}

// Message is one turn of an interview conversation. The sequence is append-only.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Document is a single retrieved source.
type Document struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// SearchQuery is the structured shape the gateway distills a conversation into.
type SearchQuery struct {
	SearchQuery string `json:"search_query"`
}

// Validate implements the structured-output contract for the gateway.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.SearchQuery) == "" {
		return fmt.Errorf("empty search query")
	}
	return nil
}

// InterviewRecord is the immutable outcome of one analyst's interview.
type InterviewRecord struct {
	Analyst    Analyst  `json:"analyst"`
	Transcript string   `json:"transcript"`
	Context    []string `json:"context"`
	Section    string   `json:"section"`
}

// ReportState is the top-level workflow state. Sections accumulate in branch
// completion order, which is not deterministic; everything downstream of the
// fan-in must be insensitive to that order.
type ReportState struct {
	Topic        string    `json:"topic"`
	Analysts     []Analyst `json:"analysts"`
	Sections     []string  `json:"sections"`
	Introduction string    `json:"introduction"`
	Body         string    `json:"body"`
	Conclusion   string    `json:"conclusion"`
	FinalReport  string    `json:"final_report"`
	SessionName  string    `json:"session_name"`
	TokenUsage   []int     `json:"token_usage"`
	Feedback     string    `json:"human_feedback,omitempty"`
}

// TotalTokens sums every usage increment recorded during the session.
func (s ReportState) TotalTokens() int {
	total := 0
	for _, n := range s.TokenUsage {
		total += n
	}
	return total
}
