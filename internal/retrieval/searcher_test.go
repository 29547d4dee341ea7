package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/akazmin/ticketry/internal/engine"
	"github.com/akazmin/ticketry/internal/ticket"
)

// fakeEngine returns canned embeddings and records whether Embed was called.
type fakeEngine struct {
	embedding []float32
	embedErr  error
	embeds    int
}

func (f *fakeEngine) Chat(ctx context.Context, model string, messages []engine.Message) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeEngine) Embed(ctx context.Context, model, text string) ([]float32, error) {
	f.embeds++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.embedding, nil
}

func (f *fakeEngine) IsRunning(ctx context.Context) bool { return true }

type fakeGetter struct {
	tickets []ticket.Ticket
}

func (f *fakeGetter) GetByIDs(ctx context.Context, ids []int64) ([]ticket.Ticket, error) {
	var out []ticket.Ticket
	for _, id := range ids {
		for _, t := range f.tickets {
			if t.ID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func newTestSearcher(t *testing.T, eng *fakeEngine, tickets []ticket.Ticket) (*Searcher, Index) {
	t.Helper()
	idx := NewSQLiteIndex(openTestDB(t), testDim)
	embedder := NewEmbedder(eng, "test-embed", testDim, 0)
	return NewSearcher(embedder, idx, &fakeGetter{tickets: tickets}), idx
}

func TestSearcherEmptyQuery(t *testing.T) {
	eng := &fakeEngine{embedding: []float32{1, 0, 0}}
	s, _ := newTestSearcher(t, eng, nil)

	results, err := s.Search(context.Background(), "   \t ", 5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
	if eng.embeds != 0 {
		t.Errorf("embedding provider called %d times for empty query, want 0", eng.embeds)
	}
}

func TestSearcherRanksAndHydrates(t *testing.T) {
	eng := &fakeEngine{embedding: []float32{1, 0, 0}}
	tickets := []ticket.Ticket{
		{ID: 1, Key: "PROJ-1", Summary: "near"},
		{ID: 2, Key: "PROJ-2", Summary: "far"},
	}
	s, idx := newTestSearcher(t, eng, tickets)
	ctx := context.Background()

	mustUpsert(t, idx, 1, []float32{1, 0, 0})
	mustUpsert(t, idx, 2, []float32{0, 1, 0})

	results, err := s.Search(ctx, "anything", 5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Ticket.Key != "PROJ-1" {
		t.Errorf("best result = %s, want PROJ-1", results[0].Ticket.Key)
	}
	if results[0].Distance > results[1].Distance {
		t.Error("results should be ordered by ascending distance")
	}
}

func TestSearcherProviderFailureIsTyped(t *testing.T) {
	eng := &fakeEngine{embedErr: errors.New("connection refused")}
	s, _ := newTestSearcher(t, eng, nil)

	results, err := s.Search(context.Background(), "anything", 5)
	var embedErr *EmbedError
	if !errors.As(err, &embedErr) {
		t.Fatalf("Search() error = %v, want *EmbedError", err)
	}
	if results != nil {
		t.Error("a provider failure must not masquerade as an empty result")
	}
}

func TestSearcherWrongDimensionFromProvider(t *testing.T) {
	eng := &fakeEngine{embedding: []float32{1, 0}} // one short
	s, _ := newTestSearcher(t, eng, nil)

	_, err := s.Search(context.Background(), "anything", 5)
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("Search() error = %v, want *DimensionError", err)
	}
	if dimErr.Want != testDim || dimErr.Got != 2 {
		t.Errorf("DimensionError = %+v", dimErr)
	}
}

func TestSearcherDropsOrphanEntries(t *testing.T) {
	eng := &fakeEngine{embedding: []float32{1, 0, 0}}
	// Only id 1 exists in the store; id 2 is an orphan index entry.
	s, idx := newTestSearcher(t, eng, []ticket.Ticket{{ID: 1, Key: "PROJ-1"}})
	ctx := context.Background()

	mustUpsert(t, idx, 1, []float32{1, 0, 0})
	mustUpsert(t, idx, 2, []float32{0.9, 0, 0})

	results, err := s.Search(ctx, "anything", 5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].Ticket.ID != 1 {
		t.Errorf("results = %+v, want only the stored ticket", results)
	}
}
