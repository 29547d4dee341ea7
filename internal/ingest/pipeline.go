// Package ingest turns raw tickets into stored, searchable records:
// map to the canonical shape, embed, write the relational row, then the
// vector entry — in that order, with per-record failure isolation.
package ingest

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/akazmin/ticketry/internal/retrieval"
	"github.com/akazmin/ticketry/internal/source"
	"github.com/akazmin/ticketry/internal/ticket"
)

const defaultConcurrency = 4

// Embedder generates embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Inserter persists canonical records, assigning ids.
type Inserter interface {
	InsertTicket(ctx context.Context, t ticket.Ticket) (int64, error)
}

// Upserter writes entries into the vector index.
type Upserter interface {
	Upsert(ctx context.Context, id int64, embedding []float32) error
}

// Pipeline ingests raw tickets. Safe for concurrent use.
type Pipeline struct {
	embedder    Embedder
	store       Inserter
	index       Upserter
	concurrency int
	logger      *slog.Logger
}

// New creates a Pipeline. concurrency bounds how many records of a batch
// embed in parallel (<= 0 selects the default).
func New(embedder Embedder, store Inserter, index Upserter, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Pipeline{
		embedder:    embedder,
		store:       store,
		index:       index,
		concurrency: concurrency,
		logger:      slog.Default(),
	}
}

// Ingest processes one raw ticket:
//
//  1. map to the canonical record (*source.MappingError on bad input)
//  2. embed summary + description (*retrieval.EmbedError isolated to this
//     record; *retrieval.DimensionError on provider drift)
//  3. insert the relational row, obtaining the id (*StorageError; no
//     vector is written without a row)
//  4. upsert (id, embedding) into the vector index (*IndexError; the row
//     stays committed and is reported as an orphan, never rolled back)
//
// Exactly one relational row and at most one vector entry per call; no
// implicit retries.
func (p *Pipeline) Ingest(ctx context.Context, raw source.Raw) (ticket.Ticket, error) {
	t, err := source.Map(raw)
	if err != nil {
		return ticket.Ticket{}, err
	}

	vec, err := p.embedder.Embed(ctx, t.EmbedText())
	if err != nil {
		return ticket.Ticket{}, err
	}

	id, err := p.store.InsertTicket(ctx, t)
	if err != nil {
		return ticket.Ticket{}, &StorageError{Key: t.Key, Err: err}
	}
	t.ID = id

	if err := p.index.Upsert(ctx, id, vec); err != nil {
		p.logger.Warn("ticket stored but not indexed; reconciliation will re-index it",
			"id", id, "key", t.Key, "error", err)
		return ticket.Ticket{}, &IndexError{ID: id, Key: t.Key, Err: err}
	}

	return t, nil
}

// IngestAll processes a batch with bounded concurrency. One bad record
// never fails the batch: every record gets its own entry in the report,
// success or typed error. Only context cancellation stops the batch early.
func (p *Pipeline) IngestAll(ctx context.Context, raws []source.Raw) Report {
	report := NewReport(len(raws))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, raw := range raws {
		g.Go(func() error {
			t, err := p.Ingest(gCtx, raw)
			report.Results[i] = RecordResult{Key: rawKey(raw), Ticket: t, Err: err}
			// Per-record errors stay in the report; returning them here
			// would cancel the rest of the batch.
			return gCtx.Err()
		})
	}

	// The only error surfaced is context cancellation; mark any records
	// that never ran.
	if err := g.Wait(); err != nil {
		for i := range report.Results {
			if report.Results[i].Err == nil && report.Results[i].Ticket.ID == 0 {
				report.Results[i].Err = err
			}
		}
	}

	return report
}

func rawKey(raw source.Raw) string {
	switch {
	case raw.Jira != nil:
		return raw.Jira.Key
	case raw.Sheet != nil:
		for k, v := range raw.Sheet.Fields {
			if strings.EqualFold(strings.TrimSpace(k), "key") {
				return v
			}
		}
	}
	return ""
}
