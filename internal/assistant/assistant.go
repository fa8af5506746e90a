// Package assistant implements the retrieval-augmented question answering
// pipeline: moderate the query, embed it, match documentation sections in
// the vector store, assemble a token-bounded context, ask the completion
// model, and post-process the answer with absolute links and a source list.
//
// The pipeline is strictly sequential; a failure at any stage aborts the
// invocation. There are no retries and no fallback generation. Failures are
// typed (Error with KindUser or KindApplication), logged once here, and
// returned unchanged to the caller.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/askdocs/askdocs/internal/knowledge"
	"github.com/askdocs/askdocs/internal/llm"
	"github.com/askdocs/askdocs/internal/session"
)

// NoRelevantMessage is the fixed user-facing message when the vector
// match returns nothing. A query-quality issue, not a system fault.
const NoRelevantMessage = "no relevant documentation found for that question"

// fallbackEncoding is used when the completion model has no registered
// tiktoken encoding.
const fallbackEncoding = "cl100k_base"

// Moderator classifies text against the content policy.
type Moderator interface {
	Moderate(ctx context.Context, input string) (*llm.Verdict, error)
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, input string) ([]float32, error)
}

// Completer generates an answer from a message list.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (*llm.Completion, error)
}

// Matcher finds documentation sections similar to an embedding.
type Matcher interface {
	Match(ctx context.Context, embedding []float32, opts ...knowledge.MatchOption) ([]knowledge.PageSection, error)
}

// Config contains all required parameters for the Assistant.
type Config struct {
	Moderator Moderator
	Embedder  Embedder
	Completer Completer
	Matcher   Matcher
	Logger    *slog.Logger

	// DocsBaseURL is the site relative links are rewritten against.
	DocsBaseURL string

	// CompletionModel selects the tiktoken encoding for the context
	// budget. Must match the model the Completer talks to.
	CompletionModel string

	// Retrieval parameters; zero values select the knowledge defaults.
	MatchThreshold   float32
	MatchCount       int32
	MinContentLength int32

	// ContextBudget is the token budget for assembled context.
	// Zero selects DefaultContextBudget.
	ContextBudget int

	// EmbedPriorAnswer embeds the previous assistant answer with the
	// query on follow-up turns.
	EmbedPriorAnswer bool

	// TokenCounter overrides the tokenizer; nil selects the completion
	// model's tiktoken encoding. Tests use this to pin token counts.
	TokenCounter TokenCounter
}

// DefaultContextBudget is the token budget for assembled context.
const DefaultContextBudget = 2500

// validate checks required dependencies.
func (cfg Config) validate() error {
	if cfg.Moderator == nil {
		return errors.New("moderator is required")
	}
	if cfg.Embedder == nil {
		return errors.New("embedder is required")
	}
	if cfg.Completer == nil {
		return errors.New("completer is required")
	}
	if cfg.Matcher == nil {
		return errors.New("matcher is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DocsBaseURL == "" {
		return errors.New("docs base URL is required")
	}
	return nil
}

// Answer is the result of one successful pipeline invocation.
type Answer struct {
	Text            string     `json:"text"`
	Usage           *llm.Usage `json:"usage,omitempty"`
	Sources         []Source   `json:"sources"`
	SourcesMarkdown string     `json:"sources_markdown"`
}

// Assistant runs the pipeline. Stateless between invocations; all
// conversation state lives in the *session.Session passed to Query.
// Safe for concurrent use.
type Assistant struct {
	moderator Moderator
	embedder  Embedder
	completer Completer
	matcher   Matcher
	logger    *slog.Logger

	docsBaseURL      string
	matchThreshold   float32
	matchCount       int32
	minContentLength int32
	contextBudget    int
	embedPriorAnswer bool
	countTokens      TokenCounter
}

// New creates an Assistant from cfg.
func New(cfg Config) (*Assistant, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	threshold := cfg.MatchThreshold
	if threshold == 0 {
		threshold = knowledge.DefaultThreshold
	}
	count := cfg.MatchCount
	if count == 0 {
		count = knowledge.DefaultLimit
	}
	minLength := cfg.MinContentLength
	if minLength == 0 {
		minLength = knowledge.DefaultMinContentLength
	}
	budget := cfg.ContextBudget
	if budget == 0 {
		budget = DefaultContextBudget
	}

	counter := cfg.TokenCounter
	if counter == nil {
		enc, err := tiktoken.EncodingForModel(cfg.CompletionModel)
		if err != nil {
			enc, err = tiktoken.GetEncoding(fallbackEncoding)
			if err != nil {
				return nil, fmt.Errorf("loading tokenizer: %w", err)
			}
		}
		counter = func(text string) int {
			return len(enc.Encode(text, nil, nil))
		}
	}

	a := &Assistant{
		moderator:        cfg.Moderator,
		embedder:         cfg.Embedder,
		completer:        cfg.Completer,
		matcher:          cfg.Matcher,
		logger:           cfg.Logger,
		docsBaseURL:      strings.TrimRight(cfg.DocsBaseURL, "/"),
		matchThreshold:   threshold,
		matchCount:       count,
		minContentLength: minLength,
		contextBudget:    budget,
		embedPriorAnswer: cfg.EmbedPriorAnswer,
		countTokens:      counter,
	}

	a.logger.Debug("assistant initialized",
		"match_threshold", threshold,
		"match_count", count,
		"context_budget", budget,
		"embed_prior_answer", cfg.EmbedPriorAnswer)
	return a, nil
}

// Query answers one question. sess carries the conversation history and
// may be nil for one-shot queries. priorAnswer overrides the previous
// assistant answer used for retrieval grounding; empty means the
// session's last assistant message.
func (a *Assistant) Query(ctx context.Context, sess *session.Session, query, priorAnswer string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, a.fail(NewUserError("query is empty", nil))
	}
	sanitized := strings.Join(strings.Fields(query), " ")

	// Moderation gate. A flagged query is a terminal rejection, distinct
	// from infrastructure failures.
	verdict, err := a.moderator.Moderate(ctx, sanitized)
	if err != nil {
		return nil, a.fail(NewApplicationError("moderating query", err.Error(), err))
	}
	if verdict.Flagged {
		return nil, a.fail(NewUserError("query flagged by content policy", verdict.Categories))
	}

	// Resolve the prior answer for follow-up grounding. An answer taken
	// from session history is already in the message list and must not be
	// repeated there.
	prior := priorAnswer
	priorFromHistory := false
	if prior == "" && sess != nil {
		prior, _ = sess.LastAssistant()
		priorFromHistory = true
	}

	embedInput := sanitized
	if a.embedPriorAnswer && prior != "" {
		embedInput = sanitized + "\n" + prior
	}

	embedding, err := a.embedder.Embed(ctx, embedInput)
	if err != nil {
		return nil, a.fail(NewApplicationError("embedding query", err.Error(), err))
	}

	sections, err := a.matcher.Match(ctx, embedding,
		knowledge.WithThreshold(a.matchThreshold),
		knowledge.WithLimit(a.matchCount),
		knowledge.WithMinContentLength(a.minContentLength),
	)
	if err != nil {
		return nil, a.fail(NewApplicationError("matching sections", err.Error(), err))
	}
	if len(sections) == 0 {
		return nil, a.fail(NewUserError(NoRelevantMessage, nil))
	}

	contextText := buildContext(sections, a.contextBudget, a.countTokens)

	var history []session.Message
	if sess != nil {
		history = sess.Messages()
	}
	explicitPrior := ""
	if prior != "" && !priorFromHistory {
		explicitPrior = prior
	}
	messages := buildMessages(history, contextText, query, explicitPrior)

	completion, err := a.completer.Complete(ctx, messages)
	if err != nil {
		return nil, a.fail(NewApplicationError("requesting completion", err.Error(), err))
	}

	text := rewriteLinks(completion.Text, a.docsBaseURL)
	sources := sourcesFromSections(sections, a.docsBaseURL)

	if sess != nil {
		sess.Append(query, text, completion.Usage.TotalTokens)
	}

	a.logger.Info("query answered",
		"sections", len(sections),
		"sources", len(sources),
		"total_tokens", completion.Usage.TotalTokens)

	return &Answer{
		Text:            text,
		Usage:           &completion.Usage,
		Sources:         sources,
		SourcesMarkdown: renderSourcesMarkdown(sources),
	}, nil
}

// fail logs a pipeline error by kind and returns it unchanged.
// User errors log without internal data; application errors carry the
// diagnostic payload.
func (a *Assistant) fail(err *Error) error {
	switch err.Kind {
	case KindUser:
		a.logger.Info("query rejected", "reason", err.Message)
	case KindApplication:
		a.logger.Error("pipeline failure", "stage", err.Message, "payload", err.Payload)
	default:
		a.logger.Error("unexpected failure", "error", err)
	}
	return err
}
