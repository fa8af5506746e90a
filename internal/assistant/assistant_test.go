package assistant

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/askdocs/askdocs/internal/knowledge"
	"github.com/askdocs/askdocs/internal/llm"
	"github.com/askdocs/askdocs/internal/log"
	"github.com/askdocs/askdocs/internal/session"
)

// Mock pipeline dependencies with call tracking.

type mockModerator struct {
	verdict *llm.Verdict
	err     error
	calls   int
	lastIn  string
}

func (m *mockModerator) Moderate(_ context.Context, input string) (*llm.Verdict, error) {
	m.calls++
	m.lastIn = input
	if m.err != nil {
		return nil, m.err
	}
	if m.verdict == nil {
		return &llm.Verdict{}, nil
	}
	return m.verdict, nil
}

type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
	lastIn string
}

func (m *mockEmbedder) Embed(_ context.Context, input string) ([]float32, error) {
	m.calls++
	m.lastIn = input
	if m.err != nil {
		return nil, m.err
	}
	if m.vector == nil {
		return []float32{0.1, 0.2}, nil
	}
	return m.vector, nil
}

type mockMatcher struct {
	sections []knowledge.PageSection
	err      error
	calls    int
}

func (m *mockMatcher) Match(_ context.Context, _ []float32, _ ...knowledge.MatchOption) ([]knowledge.PageSection, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.sections, nil
}

type mockCompleter struct {
	completion *llm.Completion
	err        error
	calls      int
	lastMsgs   []llm.Message
}

func (m *mockCompleter) Complete(_ context.Context, messages []llm.Message) (*llm.Completion, error) {
	m.calls++
	m.lastMsgs = messages
	if m.err != nil {
		return nil, m.err
	}
	return m.completion, nil
}

// fixture wires an Assistant over fresh mocks.
type fixture struct {
	moderator *mockModerator
	embedder  *mockEmbedder
	matcher   *mockMatcher
	completer *mockCompleter
	assistant *Assistant
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	f := &fixture{
		moderator: &mockModerator{},
		embedder:  &mockEmbedder{},
		matcher: &mockMatcher{sections: []knowledge.PageSection{
			{Heading: "Caching", URL: "/concepts/caching", Content: "Caching reuses results.", Similarity: 0.9},
		}},
		completer: &mockCompleter{completion: &llm.Completion{
			Text:  "Caching reuses prior results. See [caching](/concepts/caching).",
			Usage: llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		}},
	}

	cfg := Config{
		Moderator:    f.moderator,
		Embedder:     f.embedder,
		Completer:    f.completer,
		Matcher:      f.matcher,
		Logger:       log.NewNop(),
		DocsBaseURL:  "https://nx.dev",
		TokenCounter: func(text string) int { return len(text) },
	}
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	f.assistant = a
	return f
}

func TestQuerySuccess(t *testing.T) {
	f := newFixture(t, nil)
	sess := session.New(0)

	answer, err := f.assistant.Query(context.Background(), sess, "How does caching work?", "")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	if want := "Caching reuses prior results. See [caching](https://nx.dev/concepts/caching)."; answer.Text != want {
		t.Errorf("Text = %q, want %q", answer.Text, want)
	}
	wantSources := []Source{{Heading: "Caching", URL: "https://nx.dev/concepts/caching"}}
	if !reflect.DeepEqual(answer.Sources, wantSources) {
		t.Errorf("Sources = %+v, want %+v", answer.Sources, wantSources)
	}
	if want := "- [Caching](https://nx.dev/concepts/caching)"; answer.SourcesMarkdown != want {
		t.Errorf("SourcesMarkdown = %q, want %q", answer.SourcesMarkdown, want)
	}
	if answer.Usage == nil || answer.Usage.TotalTokens != 120 {
		t.Errorf("Usage = %+v, want total 120", answer.Usage)
	}

	// One completed turn: user + assistant, token usage accumulated.
	if got := sess.Len(); got != 2 {
		t.Errorf("session length = %d, want 2", got)
	}
	if got := sess.TotalTokens(); got != 120 {
		t.Errorf("session tokens = %d, want 120", got)
	}
	msgs := sess.Messages()
	if msgs[1].Content != answer.Text {
		t.Errorf("persisted assistant message = %q, want sanitized answer", msgs[1].Content)
	}
}

func TestQueryHistoryGrowth(t *testing.T) {
	f := newFixture(t, nil)
	sess := session.New(0)

	const turns = 4
	for range turns {
		if _, err := f.assistant.Query(context.Background(), sess, "How does caching work?", ""); err != nil {
			t.Fatalf("Query() error: %v", err)
		}
	}
	if got := sess.Len(); got != turns*2 {
		t.Errorf("session length = %d, want %d", got, turns*2)
	}
	if got := sess.TotalTokens(); got != turns*120 {
		t.Errorf("session tokens = %d, want %d", got, turns*120)
	}
}

func TestQueryEmptyInput(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.assistant.Query(context.Background(), nil, "   \n\t  ", "")
	if !IsUserError(err) {
		t.Fatalf("Query() error = %v, want user error", err)
	}
	if f.moderator.calls != 0 || f.embedder.calls != 0 || f.matcher.calls != 0 || f.completer.calls != 0 {
		t.Error("empty query reached the network")
	}
}

func TestQueryModerationFlagged(t *testing.T) {
	f := newFixture(t, nil)
	f.moderator.verdict = &llm.Verdict{Flagged: true, Categories: []string{"hate", "violence"}}

	_, err := f.assistant.Query(context.Background(), nil, "something awful", "")
	if !IsUserError(err) {
		t.Fatalf("Query() error = %v, want user error", err)
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("error is not *Error")
	}
	if !reflect.DeepEqual(e.Payload, []string{"hate", "violence"}) {
		t.Errorf("Payload = %v, want flagged categories", e.Payload)
	}
	if f.embedder.calls != 0 || f.matcher.calls != 0 || f.completer.calls != 0 {
		t.Error("flagged query advanced past the moderation gate")
	}
}

func TestQueryEmbeddingFailure(t *testing.T) {
	f := newFixture(t, nil)
	cause := errors.New("embedding request: status 500")
	f.embedder.err = cause

	_, err := f.assistant.Query(context.Background(), nil, "q", "")
	if !IsApplicationError(err) {
		t.Fatalf("Query() error = %v, want application error", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not wrapped: %v", err)
	}
	if f.matcher.calls != 0 || f.completer.calls != 0 {
		t.Error("pipeline advanced past the failed embedding")
	}
}

func TestQueryNoRelevantSections(t *testing.T) {
	f := newFixture(t, nil)
	f.matcher.sections = nil

	_, err := f.assistant.Query(context.Background(), nil, "q", "")
	if !IsUserError(err) {
		t.Fatalf("Query() error = %v, want user error", err)
	}
	var e *Error
	errors.As(err, &e)
	if e.Message != NoRelevantMessage {
		t.Errorf("Message = %q, want %q", e.Message, NoRelevantMessage)
	}
	if f.completer.calls != 0 {
		t.Error("completion requested despite empty match")
	}
}

func TestQueryMatcherFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.matcher.err = errors.New("connection refused")

	_, err := f.assistant.Query(context.Background(), nil, "q", "")
	if !IsApplicationError(err) {
		t.Fatalf("Query() error = %v, want application error", err)
	}
	if f.completer.calls != 0 {
		t.Error("completion requested despite match failure")
	}
}

func TestQueryCompletionFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.err = errors.New("rate limit exceeded")
	sess := session.New(0)

	_, err := f.assistant.Query(context.Background(), sess, "q", "")
	if !IsApplicationError(err) {
		t.Fatalf("Query() error = %v, want application error", err)
	}
	if got := sess.Len(); got != 0 {
		t.Errorf("failed turn persisted to history: length %d", got)
	}
}

func TestQueryEmbedPriorAnswerPolicy(t *testing.T) {
	t.Run("enabled concatenates prior answer", func(t *testing.T) {
		f := newFixture(t, func(cfg *Config) { cfg.EmbedPriorAnswer = true })

		_, err := f.assistant.Query(context.Background(), nil, "and for follow-ups?", "Prior answer text.")
		if err != nil {
			t.Fatalf("Query() error: %v", err)
		}
		if want := "and for follow-ups?\nPrior answer text."; f.embedder.lastIn != want {
			t.Errorf("embed input = %q, want %q", f.embedder.lastIn, want)
		}
	})

	t.Run("disabled embeds query only", func(t *testing.T) {
		f := newFixture(t, func(cfg *Config) { cfg.EmbedPriorAnswer = false })

		_, err := f.assistant.Query(context.Background(), nil, "and for follow-ups?", "Prior answer text.")
		if err != nil {
			t.Fatalf("Query() error: %v", err)
		}
		if want := "and for follow-ups?"; f.embedder.lastIn != want {
			t.Errorf("embed input = %q, want %q", f.embedder.lastIn, want)
		}
	})

	t.Run("prior answer from session is not duplicated in messages", func(t *testing.T) {
		f := newFixture(t, func(cfg *Config) { cfg.EmbedPriorAnswer = true })
		sess := session.New(0)

		if _, err := f.assistant.Query(context.Background(), sess, "first question", ""); err != nil {
			t.Fatalf("Query() error: %v", err)
		}
		if _, err := f.assistant.Query(context.Background(), sess, "follow-up", ""); err != nil {
			t.Fatalf("Query() error: %v", err)
		}

		// Second call: system + 2 history + new user turn; the session's
		// last assistant answer must appear exactly once.
		prior, _ := sess.LastAssistant()
		if !strings.Contains(f.embedder.lastIn, "follow-up\n") {
			t.Errorf("follow-up embedding missing prior answer: %q", f.embedder.lastIn)
		}
		occurrences := 0
		for _, m := range f.completer.lastMsgs {
			if m.Role == llm.RoleAssistant && m.Content == prior {
				occurrences++
			}
		}
		if occurrences != 1 {
			t.Errorf("prior answer appears %d times in messages, want 1", occurrences)
		}
	})
}

func TestQueryWhitespaceSanitization(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.assistant.Query(context.Background(), nil, "  how\ndoes\tcaching   work?  ", "")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if want := "how does caching work?"; f.moderator.lastIn != want {
		t.Errorf("moderated input = %q, want %q", f.moderator.lastIn, want)
	}
}

func TestNewValidation(t *testing.T) {
	base := func() Config {
		return Config{
			Moderator:    &mockModerator{},
			Embedder:     &mockEmbedder{},
			Completer:    &mockCompleter{},
			Matcher:      &mockMatcher{},
			Logger:       log.NewNop(),
			DocsBaseURL:  "https://nx.dev",
			TokenCounter: func(string) int { return 0 },
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing moderator", func(c *Config) { c.Moderator = nil }},
		{"missing embedder", func(c *Config) { c.Embedder = nil }},
		{"missing completer", func(c *Config) { c.Completer = nil }},
		{"missing matcher", func(c *Config) { c.Matcher = nil }},
		{"missing logger", func(c *Config) { c.Logger = nil }},
		{"missing docs base url", func(c *Config) { c.DocsBaseURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New() accepted invalid config")
			}
		})
	}
}
