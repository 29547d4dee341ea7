package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/vecgo"
)

// Compile-time check that MemoryIndex implements Index.
var _ Index = (*MemoryIndex)(nil)

// MemoryIndex is an in-process vector index backed by a vecgo flat index.
// The flat index performs exact search, so its ranking matches SQLiteIndex
// for the same corpus. Entries do not survive a restart; the
// reconciliation sweep rebuilds the index from stored tickets on startup.
type MemoryIndex struct {
	mu  sync.Mutex
	vg  *vecgo.Vecgo[int64]
	ids map[int64]uint64 // ticket id -> vecgo internal id
	dim int
}

// NewMemoryIndex creates an empty in-memory index for the given dimension.
func NewMemoryIndex(dim int) (*MemoryIndex, error) {
	vg, err := vecgo.Flat[int64](dim).SquaredL2().Build()
	if err != nil {
		return nil, fmt.Errorf("building flat index: %w", err)
	}
	return &MemoryIndex{
		vg:  vg,
		ids: make(map[int64]uint64),
		dim: dim,
	}, nil
}

// Upsert inserts or replaces the embedding for id. vecgo assigns its own
// internal ids, so replacement is delete-then-insert under the write lock.
func (m *MemoryIndex) Upsert(ctx context.Context, id int64, embedding []float32) error {
	if len(embedding) != m.dim {
		return &DimensionError{Want: m.dim, Got: len(embedding)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.ids[id]; ok {
		if err := m.vg.Delete(ctx, old); err != nil {
			return fmt.Errorf("replacing vector %d: %w", id, err)
		}
		delete(m.ids, id)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	internal, err := m.vg.Insert(ctx, vecgo.VectorWithData[int64]{Vector: vec, Data: id})
	if err != nil {
		return fmt.Errorf("inserting vector %d: %w", id, err)
	}
	m.ids[id] = internal
	return nil
}

// Search returns the k nearest entries by squared Euclidean distance.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != m.dim {
		return nil, &DimensionError{Want: m.dim, Got: len(query)}
	}

	m.mu.Lock()
	n := len(m.ids)
	m.mu.Unlock()
	if n == 0 {
		return nil, nil
	}

	// Query the full corpus, not just k entries: vecgo keeps equal-distance
	// candidates in insertion order, so cutting at k before sorting could
	// drop a tied entry with a smaller ticket id.
	results, err := m.vg.KNNSearch(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{ID: r.Data, Distance: r.Distance})
	}
	sortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Delete removes the entry for id if present.
func (m *MemoryIndex) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	internal, ok := m.ids[id]
	if !ok {
		return nil
	}
	if err := m.vg.Delete(ctx, internal); err != nil {
		return fmt.Errorf("deleting vector %d: %w", id, err)
	}
	delete(m.ids, id)
	return nil
}

// IDs returns every indexed ticket id in ascending order.
func (m *MemoryIndex) IDs(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Count returns the number of indexed entries.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids), nil
}

// Close releases the underlying vecgo index.
func (m *MemoryIndex) Close() error {
	return m.vg.Close()
}
