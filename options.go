package matchdex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the embedded Client.
type Option func(*clientConfig)

type clientConfig struct {
	dimensions       int
	embedder         Embedder
	docInstruction   string
	queryInstruction string
	sourceTimeout    time.Duration
	logger           *zap.Logger
}

// WithVectorDimensions sets the embedding dimensionality shared by the
// vector indexes and the built-in hashing embedder. A custom embedder
// must produce vectors of exactly this size.
func WithVectorDimensions(dim int) Option {
	return func(c *clientConfig) {
		c.dimensions = dim
	}
}

// WithEmbedder plugs in a custom embedding provider. Without it the
// client embeds with the built-in deterministic hashing model, which
// needs no API key and consumes no tokens.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithInstructions sets instruction prefixes prepended to document and
// query texts before embedding. An asymmetric pair makes identical texts
// embed differently, so leave both empty unless the model calls for it.
func WithInstructions(doc, query string) Option {
	return func(c *clientConfig) {
		c.docInstruction = doc
		c.queryInstruction = query
	}
}

// WithSourceTimeout bounds each facade call dispatched by Chat.
func WithSourceTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.sourceTimeout = d
	}
}

// WithLogger sets the logger. Silent by default.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
