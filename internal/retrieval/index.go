// Package retrieval provides nearest-neighbor search over ticket
// embeddings: pluggable vector index backends, the embedding provider
// wrapper, and the query engine joining matches back to stored tickets.
package retrieval

import "context"

// Match is one vector index search hit.
type Match struct {
	ID       int64
	Distance float32
}

// Index stores fixed-dimension embeddings keyed by ticket id and answers
// nearest-neighbor queries. The distance metric is squared Euclidean in
// both shipped backends; Upsert and Search always agree on it.
//
// Implementations must serialize writes; Search may run concurrently with
// other searches.
type Index interface {
	// Upsert inserts or replaces the entry for id. Fails with
	// *DimensionError when the vector length does not match the
	// configured dimension.
	Upsert(ctx context.Context, id int64, embedding []float32) error

	// Search returns at most k entries ordered by non-decreasing
	// distance, ties broken by ascending id. An empty index yields an
	// empty result, not an error.
	Search(ctx context.Context, query []float32, k int) ([]Match, error)

	// Delete removes the entry for id, and is a no-op when absent.
	Delete(ctx context.Context, id int64) error

	// IDs returns every indexed id in ascending order.
	IDs(ctx context.Context) ([]int64, error)

	// Count returns the number of indexed entries.
	Count(ctx context.Context) (int, error)

	Close() error
}
