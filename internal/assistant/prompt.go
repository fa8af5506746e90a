package assistant

import (
	"fmt"
	"strings"

	"github.com/askdocs/askdocs/internal/llm"
	"github.com/askdocs/askdocs/internal/session"
)

// fallbackSentence is the canned answer the model is instructed to give
// when the provided sections do not cover the question.
const fallbackSentence = "Sorry, I don't know how to help with that. You can visit the documentation for more info."

// rawSystemPrompt is the assistant persona. Whitespace is collapsed to
// single spaces before sending, so it can be written readably here.
const rawSystemPrompt = `
	You are a knowledgeable documentation assistant. You answer questions
	using only the provided documentation sections, formatted in markdown.
	Always include a short code example when one is relevant, and always
	link to the documentation page your answer is based on. Links must be
	absolute: prefix relative documentation paths with the documentation
	site origin. If the answer is not clearly contained in the provided
	sections, reply exactly: "` + fallbackSentence + `"
	Do not invent features, flags, or configuration that the sections do
	not mention.
`

// collapseWhitespace reduces every whitespace run to a single space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// systemPrompt returns the cleaned system message content.
func systemPrompt() string {
	return collapseWhitespace(rawSystemPrompt)
}

// buildMessages assembles the full message list for one completion:
// system prompt, bounded prior history, optionally the previous assistant
// answer (multi-turn grounding), then the new user turn carrying the
// retrieval context.
func buildMessages(history []session.Message, contextText, query, priorAnswer string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt()})

	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	if priorAnswer != "" {
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: priorAnswer})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userTurn(contextText, query)})
	return messages
}

// userTurn renders the user message carrying the assembled context.
func userTurn(contextText, query string) string {
	return fmt.Sprintf("Context sections:\n%s\n\nQuestion: \"\"\"\n%s\n\"\"\"", contextText, query)
}
