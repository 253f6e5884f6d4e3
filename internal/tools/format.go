package tools

import (
	"fmt"
	"strings"

	"github.com/roundtable-ai/orchestrator/internal/research"
)

const documentDelimiter = "\n\n---\n\n"

// FormatDocuments joins retrieved documents into one context block, each
// wrapped with its source tag. The resulting string is what gets appended to
// the interview context and later cited by the expert.
func FormatDocuments(docs []research.Document) string {
	if len(docs) == 0 {
		return ""
	}
	formatted := make([]string, 0, len(docs))
	for _, doc := range docs {
		formatted = append(formatted,
			fmt.Sprintf("<Document source=%q/>\n%s\n</Document>", doc.Source, doc.Content))
	}
	return strings.Join(formatted, documentDelimiter)
}
