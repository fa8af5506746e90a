package knowledge

import "time"

// PageSection is a pre-chunked documentation fragment with its similarity
// score. Produced by Store.Match, consumed read-only by the context
// assembler and source lister.
type PageSection struct {
	ID         int64
	Heading    string
	URL        string
	Content    string
	Similarity float32
}

// MatchOption configures a vector match using the functional options
// pattern.
type MatchOption func(*matchConfig)

// matchConfig holds internal match configuration.
type matchConfig struct {
	threshold        float32
	limit            int32
	minContentLength int32
	timeout          time.Duration
}

// Default match parameters.
const (
	// DefaultThreshold is the minimum cosine similarity for a section to
	// be considered relevant.
	DefaultThreshold float32 = 0.78

	// DefaultLimit is the maximum number of sections returned per match.
	DefaultLimit int32 = 15

	// DefaultMinContentLength filters out sections too short to be useful
	// context.
	DefaultMinContentLength int32 = 50

	// defaultTimeout bounds a single vector search.
	defaultTimeout = 10 * time.Second
)

// WithThreshold sets the minimum similarity score.
func WithThreshold(threshold float32) MatchOption {
	return func(c *matchConfig) {
		c.threshold = threshold
	}
}

// WithLimit sets the maximum number of sections to return.
func WithLimit(limit int32) MatchOption {
	return func(c *matchConfig) {
		c.limit = limit
	}
}

// WithMinContentLength sets the minimum section content length in
// characters.
func WithMinContentLength(n int32) MatchOption {
	return func(c *matchConfig) {
		c.minContentLength = n
	}
}

// WithTimeout overrides the per-match query timeout.
func WithTimeout(d time.Duration) MatchOption {
	return func(c *matchConfig) {
		c.timeout = d
	}
}

// buildMatchConfig applies options over the defaults.
func buildMatchConfig(opts []MatchOption) *matchConfig {
	cfg := &matchConfig{
		threshold:        DefaultThreshold,
		limit:            DefaultLimit,
		minContentLength: DefaultMinContentLength,
		timeout:          defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
