package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/akazmin/ticketry/internal/ticket"
)

// TicketGetter hydrates ticket records by id. storage.Store implements it.
type TicketGetter interface {
	GetByIDs(ctx context.Context, ids []int64) ([]ticket.Ticket, error)
}

// Result is one ranked search hit.
type Result struct {
	Ticket   ticket.Ticket
	Distance float32
}

// Searcher answers free-text queries: embed the query, search the vector
// index, hydrate the matched ids from the relational store.
type Searcher struct {
	embedder *Embedder
	index    Index
	tickets  TicketGetter
}

// NewSearcher creates a Searcher over the given embedder, index, and store.
func NewSearcher(embedder *Embedder, index Index, tickets TicketGetter) *Searcher {
	return &Searcher{embedder: embedder, index: index, tickets: tickets}
}

// Search returns at most limit tickets ranked by ascending distance to the
// query. An empty query returns an empty result without calling the
// embedding provider. A provider failure is returned as *EmbedError —
// never silently converted into an empty result, since callers must be
// able to tell "no matches" from "search is unavailable".
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.index.Search(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}

	tickets, err := s.tickets.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrating tickets: %w", err)
	}

	byID := make(map[int64]ticket.Ticket, len(tickets))
	for _, t := range tickets {
		byID[t.ID] = t
	}

	// Index entries without a stored ticket are orphans: drop them and
	// return fewer results rather than failing the query.
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		t, ok := byID[m.ID]
		if !ok {
			continue
		}
		results = append(results, Result{Ticket: t, Distance: m.Distance})
	}
	return results, nil
}
