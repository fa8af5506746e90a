// Package llm wraps the OpenAI API surface the assistant depends on:
// moderation, embeddings, and chat completions.
//
// The wrapper exposes small domain types (Verdict, Completion, Message) so
// the pipeline does not leak SDK types, and keeps raw API errors in the
// chain for diagnostics via %w wrapping.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// Message roles accepted by the chat completion endpoint.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// Verdict is the result of a moderation check.
type Verdict struct {
	Flagged    bool
	Categories []string // names of the flagged policy categories
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the model's answer to a message list.
type Completion struct {
	Text  string
	Usage Usage
}

// Config contains the parameters for the OpenAI client.
type Config struct {
	APIKey          string
	CompletionModel string
	EmbeddingModel  string
	Temperature     float32
	Logger          *slog.Logger

	// BaseURL overrides the API endpoint. Tests point this at an
	// httptest server; empty means the real API.
	BaseURL string
}

// Client calls the OpenAI moderation, embedding, and chat endpoints.
// Safe for concurrent use.
type Client struct {
	api             *openai.Client
	completionModel string
	embeddingModel  string
	temperature     float32
	logger          *slog.Logger
}

// New creates a Client. The caller is responsible for having validated the
// API key's presence (config gate).
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:             openai.NewClientWithConfig(apiCfg),
		completionModel: cfg.CompletionModel,
		embeddingModel:  cfg.EmbeddingModel,
		temperature:     cfg.Temperature,
		logger:          logger,
	}
}

// Moderate classifies input against the content policy.
func (c *Client) Moderate(ctx context.Context, input string) (*Verdict, error) {
	resp, err := c.api.Moderations(ctx, openai.ModerationRequest{
		Input: input,
		Model: openai.ModerationTextLatest,
	})
	if err != nil {
		return nil, fmt.Errorf("moderation request: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("moderation response contained no results")
	}

	result := resp.Results[0]
	verdict := &Verdict{
		Flagged:    result.Flagged,
		Categories: flaggedCategories(result.Categories),
	}

	c.logger.Debug("moderation complete", "flagged", verdict.Flagged)
	return verdict, nil
}

// Embed turns input into a fixed-length embedding vector.
func (c *Client) Embed(ctx context.Context, input string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}

	return resp.Data[0].Embedding, nil
}

// Complete sends messages to the chat completion endpoint, non-streaming.
func (c *Client) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		apiMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	// The SDK drops a zero temperature because of omitempty, and the API
	// would then default to 1. Send the smallest non-zero value instead.
	temperature := c.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.completionModel,
		Messages:    apiMessages,
		Temperature: temperature,
		Stream:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion response contained no choices")
	}

	completion := &Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	c.logger.Debug("completion received",
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens)
	return completion, nil
}

// flaggedCategories lists the names of policy categories set in the result.
func flaggedCategories(c openai.ResultCategories) []string {
	var names []string
	for _, cat := range []struct {
		name    string
		flagged bool
	}{
		{"hate", c.Hate},
		{"hate/threatening", c.HateThreatening},
		{"harassment", c.Harassment},
		{"harassment/threatening", c.HarassmentThreatening},
		{"self-harm", c.SelfHarm},
		{"self-harm/intent", c.SelfHarmIntent},
		{"self-harm/instructions", c.SelfHarmInstructions},
		{"sexual", c.Sexual},
		{"sexual/minors", c.SexualMinors},
		{"violence", c.Violence},
		{"violence/graphic", c.ViolenceGraphic},
	} {
		if cat.flagged {
			names = append(names, cat.name)
		}
	}
	return names
}
