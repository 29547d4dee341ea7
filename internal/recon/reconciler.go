// Package recon restores the invariant linking relational rows to vector
// index entries: every stored ticket with embeddable text gets exactly one
// index entry, and entries with no backing row are removed.
package recon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akazmin/ticketry/internal/ticket"
)

// TicketStore is the slice of the relational store reconciliation needs.
type TicketStore interface {
	TicketIDs(ctx context.Context) ([]int64, error)
	GetByIDs(ctx context.Context, ids []int64) ([]ticket.Ticket, error)
}

// VectorIndex is the slice of the vector index reconciliation needs.
type VectorIndex interface {
	IDs(ctx context.Context) ([]int64, error)
	Upsert(ctx context.Context, id int64, embedding []float32) error
	Delete(ctx context.Context, id int64) error
}

// Embedder recomputes embeddings for rows missing from the index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Report summarizes one reconciliation sweep.
type Report struct {
	Reindexed int // rows missing from the index, re-embedded and upserted
	Removed   int // index entries with no backing row, deleted
	Failed    int // rows that could not be re-indexed this sweep
}

// Reconciler diffs the two stores and heals the differences. The sweep is
// idempotent: running it on a consistent pair changes nothing.
type Reconciler struct {
	store    TicketStore
	index    VectorIndex
	embedder Embedder
	logger   *slog.Logger
}

// New creates a Reconciler over the given store, index, and embedder.
func New(store TicketStore, index VectorIndex, embedder Embedder) *Reconciler {
	return &Reconciler{
		store:    store,
		index:    index,
		embedder: embedder,
		logger:   slog.Default(),
	}
}

// Run performs one sweep. Per-row embedding failures are counted and
// logged but do not abort the sweep; the next run retries them. The
// returned error covers only failures to enumerate either store.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report

	storeIDs, err := r.store.TicketIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("listing ticket ids: %w", err)
	}
	indexIDs, err := r.index.IDs(ctx)
	if err != nil {
		return report, fmt.Errorf("listing index ids: %w", err)
	}

	indexed := make(map[int64]bool, len(indexIDs))
	for _, id := range indexIDs {
		indexed[id] = true
	}
	stored := make(map[int64]bool, len(storeIDs))
	for _, id := range storeIDs {
		stored[id] = true
	}

	var missing []int64
	for _, id := range storeIDs {
		if !indexed[id] {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		tickets, err := r.store.GetByIDs(ctx, missing)
		if err != nil {
			return report, fmt.Errorf("loading unindexed tickets: %w", err)
		}
		for _, t := range tickets {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			if !t.HasContent() {
				continue
			}
			if err := r.reindex(ctx, t); err != nil {
				r.logger.Warn("reconciliation: re-index failed", "id", t.ID, "key", t.Key, "error", err)
				report.Failed++
				continue
			}
			report.Reindexed++
		}
	}

	// Entries whose ticket is gone are orphans; deleting them never
	// touches the relational store.
	for _, id := range indexIDs {
		if stored[id] {
			continue
		}
		if err := r.index.Delete(ctx, id); err != nil {
			r.logger.Warn("reconciliation: orphan delete failed", "id", id, "error", err)
			report.Failed++
			continue
		}
		report.Removed++
	}

	if report.Reindexed > 0 || report.Removed > 0 || report.Failed > 0 {
		r.logger.Info("reconciliation sweep complete",
			"reindexed", report.Reindexed, "removed", report.Removed, "failed", report.Failed)
	}
	return report, nil
}

func (r *Reconciler) reindex(ctx context.Context, t ticket.Ticket) error {
	vec, err := r.embedder.Embed(ctx, t.EmbedText())
	if err != nil {
		return err
	}
	return r.index.Upsert(ctx, t.ID, vec)
}
