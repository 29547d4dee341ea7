package retrieval

import (
	"context"
	"time"

	"github.com/akazmin/ticketry/internal/engine"
)

const defaultEmbedTimeout = 30 * time.Second

// Embedder wraps an engine to generate fixed-dimension text embeddings.
// Every provider failure — network, auth, timeout — surfaces as
// *EmbedError so callers can isolate it per record or query; a vector of
// the wrong length surfaces as *DimensionError (provider drift).
type Embedder struct {
	engine  engine.Engine
	model   string
	dim     int
	timeout time.Duration
}

// NewEmbedder creates an Embedder using the given engine and model name.
// dim is the process-wide embedding dimension; timeout bounds each
// provider call (<= 0 selects the default).
func NewEmbedder(e engine.Engine, model string, dim int, timeout time.Duration) *Embedder {
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}
	return &Embedder{engine: e, model: model, dim: dim, timeout: timeout}
}

// Dimension returns the configured embedding dimension.
func (e *Embedder) Dimension() int {
	return e.dim
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.engine.Embed(ctx, e.model, text)
	if err != nil {
		return nil, &EmbedError{Err: err}
	}
	if len(vec) != e.dim {
		return nil, &DimensionError{Want: e.dim, Got: len(vec)}
	}
	return vec, nil
}
