package research

import (
	"fmt"
	"strings"
)

const (
	insightsHeader   = "## Insights"
	sourcesDelimiter = "\n## Sources\n"
	sourcesHeader    = "## Sources"
	sectionBreak     = "\n\n---\n\n"
)

// FinalizeReport assembles the final document from the three fan-in writes.
// The body writer is instructed to open with "## Insights" and close with a
// "## Sources" section; both markers are peeled off here so the introduction
// supplies the title and the sources land once, at the very end. A body whose
// sources delimiter appears more than once does not split cleanly; sources are
// then treated as absent rather than failing the run.
func FinalizeReport(introduction, body, conclusion string) string {
	content := body
	if strings.HasPrefix(content, insightsHeader) {
		content = strings.TrimPrefix(content, insightsHeader)
		content = strings.TrimPrefix(content, "\n")
	}

	sources := ""
	hasSources := false
	if strings.Contains(content, sourcesDelimiter) {
		parts := strings.Split(content, sourcesDelimiter)
		if len(parts) == 2 {
			content = parts[0]
			sources = parts[1]
			hasSources = true
		}
	}

	report := introduction + sectionBreak + content + sectionBreak + conclusion
	if hasSources {
		report += "\n\n" + sourcesHeader + "\n" + sources
	}
	return report
}

// FlattenTranscript renders the message sequence as role-prefixed lines, the
// durable transcript stored on the interview record.
func FlattenTranscript(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		label := roleLabel(m.Role)
		if m.Name != "" {
			b.WriteString(fmt.Sprintf("%s (%s): %s", label, m.Name, m.Content))
		} else {
			b.WriteString(fmt.Sprintf("%s: %s", label, m.Content))
		}
	}
	return b.String()
}

func roleLabel(role string) string {
	switch role {
	case RoleSystem:
		return "System"
	case RoleHuman:
		return "Human"
	case RoleAI:
		return "AI"
	default:
		return role
	}
}

// CountExpertResponses counts expert-attributed AI messages, the unit the
// interview turn limit is measured in.
func CountExpertResponses(messages []Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == RoleAI && m.Name == ExpertName {
			n++
		}
	}
	return n
}

// ShouldEndInterview decides whether the dialogue loops for another turn. The
// termination phrase is read from the second-to-last message (the analyst's
// closing question); histories shorter than two messages always continue.
func ShouldEndInterview(messages []Message, maxTurns int) bool {
	if CountExpertResponses(messages) >= maxTurns {
		return true
	}
	if len(messages) < 2 {
		return false
	}
	return strings.Contains(messages[len(messages)-2].Content, TerminationPhrase)
}
