package retrieval

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Compile-time check that SQLiteIndex implements Index.
var _ Index = (*SQLiteIndex)(nil)

// SQLiteIndex is the default vector index: embeddings live in the
// ticket_vectors table of the same SQLite database as the tickets
// themselves, and Search is a brute-force scan. Exact linear scan is
// adequate for the expected corpus (hundreds to low thousands of tickets);
// swap in MemoryIndex or another backend behind the Index interface if
// that ever changes.
type SQLiteIndex struct {
	db  *sql.DB
	dim int
}

// NewSQLiteIndex wraps an existing *sql.DB for vector operations. The
// ticket_vectors table must already exist (created via storage
// migrations). dim is the process-wide embedding dimension.
func NewSQLiteIndex(db *sql.DB, dim int) *SQLiteIndex {
	return &SQLiteIndex{db: db, dim: dim}
}

// Upsert inserts or replaces the embedding for id.
func (s *SQLiteIndex) Upsert(ctx context.Context, id int64, embedding []float32) error {
	if len(embedding) != s.dim {
		return &DimensionError{Want: s.dim, Got: len(embedding)}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ticket_vectors (id, embedding) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding`,
		id, encodeFloat32s(embedding),
	)
	if err != nil {
		return fmt.Errorf("upserting vector %d: %w", id, err)
	}
	return nil
}

// candidate tracks one row during the scan phase of Search.
type candidate struct {
	ID       int64
	Distance float32
}

// worseThan orders candidates for the top-k heap: greater distance is
// worse, equal distance with greater id is worse (ascending-id ties).
func (c candidate) worseThan(o candidate) bool {
	if c.Distance != o.Distance {
		return c.Distance > o.Distance
	}
	return c.ID > o.ID
}

// Search scans every stored vector, computing squared Euclidean distance
// and keeping the k best in a bounded heap.
func (s *SQLiteIndex) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, &DimensionError{Want: s.dim, Got: len(query)}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, embedding FROM ticket_vectors")
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	h := &candidateHeap{}
	heap.Init(h)

	// Reusable buffer for decoding embeddings to avoid per-row allocations.
	var buf []float32

	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %d: %w", id, err)
		}
		if len(buf) != len(query) {
			return nil, &DimensionError{Want: len(query), Got: len(buf)}
		}

		c := candidate{ID: id, Distance: squaredL2(query, buf)}
		if h.Len() < k {
			heap.Push(h, c)
		} else if (*h)[0].worseThan(c) {
			(*h)[0] = c
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if h.Len() == 0 {
		return nil, nil
	}

	matches := make([]Match, h.Len())
	for i := range matches {
		matches[i] = Match{ID: (*h)[i].ID, Distance: (*h)[i].Distance}
	}
	sortMatches(matches)
	return matches, nil
}

// Delete removes the entry for id if present.
func (s *SQLiteIndex) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM ticket_vectors WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting vector %d: %w", id, err)
	}
	return nil
}

// IDs returns every indexed id in ascending order.
func (s *SQLiteIndex) IDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM ticket_vectors ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying vector ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of indexed entries.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticket_vectors").Scan(&count)
	return count, err
}

// Close is a no-op; the shared database handle is owned by storage.Store.
func (s *SQLiteIndex) Close() error {
	return nil
}

// sortMatches orders matches by ascending distance, ties by ascending id.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing it to avoid per-row allocations during search scans. Returns an
// error if the byte length is not a multiple of 4 (data corruption).
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// candidateHeap is a max-heap by worseThan, so the root is always the
// candidate to evict when a better one arrives.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].worseThan(h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
