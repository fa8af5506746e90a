package assistant

import (
	"strings"

	"github.com/askdocs/askdocs/internal/knowledge"
)

// sectionSeparator joins section contents in the assembled context.
const sectionSeparator = "\n---\n"

// TokenCounter counts the tokens of a text under the completion model's
// tokenizer.
type TokenCounter func(text string) int

// buildContext assembles retrieval context from ranked sections under a
// token budget. Greedy by rank: sections are taken in order until the next
// one would push the running count to budget or beyond; that section is
// excluded whole rather than truncated.
func buildContext(sections []knowledge.PageSection, budget int, count TokenCounter) string {
	var b strings.Builder
	tokens := 0

	for _, section := range sections {
		content := strings.TrimSpace(section.Content)
		if content == "" {
			continue
		}
		n := count(content)
		if tokens+n >= budget {
			break
		}
		tokens += n
		b.WriteString(content)
		b.WriteString(sectionSeparator)
	}

	return b.String()
}
