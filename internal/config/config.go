// Package config provides application configuration with multi-source priority.
//
// Sources (highest to lowest priority):
//  1. Environment variables
//  2. Config file (~/.askdocs/config.yaml or ./config.yaml)
//  3. Default values
//
// Three credentials are required and validated before anything touches the
// network: the OpenAI API key, the section store URL, and the store service
// key. Everything else has a working default.
//
// Security: secrets are masked in MarshalJSON/String and never logged.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
// Check with errors.Is().
var (
	// ErrMissingAPIKey indicates OPENAI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing OpenAI API key")

	// ErrMissingStoreURL indicates the section store URL is not set.
	ErrMissingStoreURL = errors.New("missing store URL")

	// ErrMissingServiceKey indicates the store service key is not set.
	ErrMissingServiceKey = errors.New("missing store service key")

	// ErrInvalidStoreURL indicates the store URL is not a postgres URL.
	ErrInvalidStoreURL = errors.New("invalid store URL")

	// ErrInvalidThreshold indicates the similarity threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid match threshold")

	// ErrInvalidMatchCount indicates the match count is out of range.
	ErrInvalidMatchCount = errors.New("invalid match count")

	// ErrInvalidContextBudget indicates the context token budget is invalid.
	ErrInvalidContextBudget = errors.New("invalid context token budget")

	// ErrInvalidHistoryLimit indicates the history cap is invalid.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")

	// ErrInvalidTemperature indicates the sampling temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidDocsBaseURL indicates the documentation base URL is malformed.
	ErrInvalidDocsBaseURL = errors.New("invalid docs base URL")
)

// Defaults mirroring the documented retrieval policy.
const (
	// DefaultCompletionModel answers questions. Temperature is pinned to 0
	// so repeated queries produce stable answers.
	DefaultCompletionModel = "gpt-3.5-turbo"

	// DefaultEmbeddingModel turns queries into vectors. Its 1536 dimensions
	// must match the page_sections.embedding column.
	DefaultEmbeddingModel = "text-embedding-ada-002"

	// DefaultMatchThreshold is the minimum cosine similarity for a section
	// to count as relevant.
	DefaultMatchThreshold = 0.78

	// DefaultMatchCount is the maximum number of sections fetched per query.
	DefaultMatchCount = 15

	// DefaultMinContentLength filters out stub sections.
	DefaultMinContentLength = 50

	// DefaultContextBudget is the token budget for assembled context.
	DefaultContextBudget = 2500

	// DefaultMaxHistoryMessages caps the conversation history kept per
	// session. Oldest user/assistant pairs are evicted beyond this.
	DefaultMaxHistoryMessages = 30

	// DefaultDocsBaseURL is the site relative documentation links are
	// rewritten against.
	DefaultDocsBaseURL = "https://nx.dev"

	// DefaultListenAddr is the default address for the HTTP server.
	DefaultListenAddr = "127.0.0.1:3400"
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; update it when
// adding new secrets.
type Config struct {
	// Required credentials
	OpenAIAPIKey    string `mapstructure:"openai_api_key" json:"openai_api_key"`       // SENSITIVE
	StoreURL        string `mapstructure:"store_url" json:"store_url"`                 // postgres:// URL of the section store
	StoreServiceKey string `mapstructure:"store_service_key" json:"store_service_key"` // SENSITIVE: service role password

	// Model configuration
	CompletionModel string  `mapstructure:"completion_model" json:"completion_model"`
	EmbeddingModel  string  `mapstructure:"embedding_model" json:"embedding_model"`
	Temperature     float32 `mapstructure:"temperature" json:"temperature"`

	// Retrieval configuration
	MatchThreshold   float32 `mapstructure:"match_threshold" json:"match_threshold"`
	MatchCount       int     `mapstructure:"match_count" json:"match_count"`
	MinContentLength int     `mapstructure:"min_content_length" json:"min_content_length"`
	ContextBudget    int     `mapstructure:"context_budget" json:"context_budget"`

	// EmbedPriorAnswer embeds the previous assistant answer together with
	// the query. Enriches retrieval on follow-up questions at the cost of
	// extra tokens; disable for query-only embedding.
	EmbedPriorAnswer bool `mapstructure:"embed_prior_answer" json:"embed_prior_answer"`

	// Conversation configuration
	MaxHistoryMessages int `mapstructure:"max_history_messages" json:"max_history_messages"`

	// Output configuration
	DocsBaseURL string `mapstructure:"docs_base_url" json:"docs_base_url"`

	// Server configuration (serve mode only)
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
}

// Load loads configuration with priority env > file > defaults.
// Validation runs immediately so misconfiguration fails before any
// network call is attempted.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".askdocs")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("completion_model", DefaultCompletionModel)
	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("temperature", 0.0)

	v.SetDefault("match_threshold", DefaultMatchThreshold)
	v.SetDefault("match_count", DefaultMatchCount)
	v.SetDefault("min_content_length", DefaultMinContentLength)
	v.SetDefault("context_budget", DefaultContextBudget)
	v.SetDefault("embed_prior_answer", true)

	v.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	v.SetDefault("docs_base_url", DefaultDocsBaseURL)
	v.SetDefault("listen_addr", DefaultListenAddr)
}

// bindEnvVariables binds environment variables explicitly.
// Secrets come only from the environment, never from the config file
// checked into a dotfiles repo.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("store_url", "ASKDOCS_STORE_URL")
	mustBind("store_service_key", "ASKDOCS_STORE_SERVICE_KEY")

	mustBind("completion_model", "ASKDOCS_COMPLETION_MODEL")
	mustBind("embedding_model", "ASKDOCS_EMBEDDING_MODEL")
	mustBind("embed_prior_answer", "ASKDOCS_EMBED_PRIOR_ANSWER")
	mustBind("docs_base_url", "ASKDOCS_DOCS_BASE_URL")
	mustBind("listen_addr", "ASKDOCS_LISTEN_ADDR")
}

// Validate checks the configuration and fails fast with sentinel errors.
// The three credentials are checked first: no network call may happen
// with any of them absent.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if c.StoreURL == "" {
		return fmt.Errorf("%w: set ASKDOCS_STORE_URL", ErrMissingStoreURL)
	}
	if c.StoreServiceKey == "" {
		return fmt.Errorf("%w: set ASKDOCS_STORE_SERVICE_KEY", ErrMissingServiceKey)
	}

	u, err := url.Parse(c.StoreURL)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") || u.Host == "" {
		return fmt.Errorf("%w: %q is not a postgres URL", ErrInvalidStoreURL, c.StoreURL)
	}

	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("%w: %v not in [0, 1]", ErrInvalidThreshold, c.MatchThreshold)
	}
	if c.MatchCount < 1 || c.MatchCount > 100 {
		return fmt.Errorf("%w: %d not in [1, 100]", ErrInvalidMatchCount, c.MatchCount)
	}
	if c.MinContentLength < 0 {
		return fmt.Errorf("%w: negative min content length", ErrInvalidMatchCount)
	}
	if c.ContextBudget < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidContextBudget, c.ContextBudget)
	}
	if c.MaxHistoryMessages < 2 {
		return fmt.Errorf("%w: %d, need at least one user/assistant pair", ErrInvalidHistoryLimit, c.MaxHistoryMessages)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v not in [0, 2]", ErrInvalidTemperature, c.Temperature)
	}

	d, err := url.Parse(c.DocsBaseURL)
	if err != nil || (d.Scheme != "http" && d.Scheme != "https") || d.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDocsBaseURL, c.DocsBaseURL)
	}

	return nil
}

// StoreDSN returns the pgx connection string for the section store.
// The service key is injected as the password; a password already present
// in the URL is replaced.
func (c *Config) StoreDSN() (string, error) {
	u, err := url.Parse(c.StoreURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidStoreURL, err)
	}

	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, c.StoreServiceKey)

	return u.String(), nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for
// debuggability.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive fields masked.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.StoreServiceKey = maskSecret(a.StoreServiceKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
