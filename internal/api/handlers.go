package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/akazmin/ticketry/internal/ingest"
	"github.com/akazmin/ticketry/internal/recon"
	"github.com/akazmin/ticketry/internal/retrieval"
	"github.com/akazmin/ticketry/internal/source"
	"github.com/akazmin/ticketry/internal/ticket"
)

const defaultSearchLimit = 10

// TicketSearcher finds tickets nearest to a free-form query.
type TicketSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]retrieval.Result, error)
}

// Ingestor runs a batch of raw records through the ingestion pipeline.
type Ingestor interface {
	IngestAll(ctx context.Context, raws []source.Raw) ingest.Report
}

// Summarizer produces a chat answer over the current ticket set.
type Summarizer interface {
	Summarize(ctx context.Context, query string) (string, error)
}

// Reconciler sweeps the relational store and the vector index back into sync.
type Reconciler interface {
	Run(ctx context.Context) (recon.Report, error)
}

// TicketCounter reports the number of stored tickets.
type TicketCounter interface {
	CountTickets(ctx context.Context) (int, error)
}

// VectorCounter reports the number of indexed embeddings.
type VectorCounter interface {
	Count(ctx context.Context) (int, error)
}

// Deps carries everything the HTTP handlers need.
type Deps struct {
	Source     source.Source
	Ingestor   Ingestor
	Searcher   TicketSearcher
	Summarizer Summarizer
	Reconciler Reconciler
	Store      TicketCounter
	Index      VectorCounter
	Token      string
}

// NewRouter wires up the public HTTP surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(BearerAuth(deps.Token))

	r.Get("/health", handleHealth())
	r.Get("/stats", handleStats(deps))
	r.Get("/search", handleSearch(deps))
	r.Post("/sync", handleSync(deps))
	r.Post("/summarize", handleSummarize(deps))
	r.Post("/reconcile", handleReconcile(deps))

	return r
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type statsResponse struct {
	Tickets int `json:"tickets"`
	Vectors int `json:"vectors"`
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tickets, err := deps.Store.CountTickets(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "counting tickets: %v", err)
			return
		}
		vectors, err := deps.Index.Count(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "counting vectors: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, statsResponse{Tickets: tickets, Vectors: vectors})
	}
}

type ticketJSON struct {
	ID          int64             `json:"id"`
	Key         string            `json:"key"`
	Summary     string            `json:"summary"`
	Description string            `json:"description,omitempty"`
	Status      *string           `json:"status,omitempty"`
	Priority    *string           `json:"priority,omitempty"`
	Assignee    *string           `json:"assignee,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toTicketJSON(t ticket.Ticket) ticketJSON {
	opt := func(o ticket.OptString) *string {
		if !o.Valid {
			return nil
		}
		v := o.Value
		return &v
	}
	return ticketJSON{
		ID:          t.ID,
		Key:         t.Key,
		Summary:     t.Summary,
		Description: t.Description,
		Status:      opt(t.Status),
		Priority:    opt(t.Priority),
		Assignee:    opt(t.Assignee),
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
	}
}

type searchHit struct {
	Ticket   ticketJSON `json:"ticket"`
	Distance float32    `json:"distance"`
}

type searchResponse struct {
	Query   string      `json:"query"`
	Results []searchHit `json:"results"`
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query parameter is required")
			return
		}

		limit := defaultSearchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = n
		}

		results, err := deps.Searcher.Search(r.Context(), query, limit)
		if err != nil {
			var embedErr *retrieval.EmbedError
			if errors.As(err, &embedErr) {
				httpError(w, http.StatusBadGateway, "api_error", "embedding query: %v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}

		hits := make([]searchHit, 0, len(results))
		for _, res := range results {
			hits = append(hits, searchHit{Ticket: toTicketJSON(res.Ticket), Distance: res.Distance})
		}
		writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: hits})
	}
}

type syncRecord struct {
	Key   string `json:"key"`
	ID    int64  `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

type syncResponse struct {
	BatchID   string       `json:"batch_id"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	// Orphans lists ids of rows that committed but whose vector write
	// failed; they stay unsearchable until the next reconciliation.
	Orphans []int64      `json:"orphans,omitempty"`
	Records []syncRecord `json:"records"`
}

func handleSync(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raws, err := deps.Source.FetchAll(r.Context())
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "fetching source records: %v", err)
			return
		}

		report := deps.Ingestor.IngestAll(r.Context(), raws)

		records := make([]syncRecord, 0, len(report.Results))
		for _, res := range report.Results {
			rec := syncRecord{Key: res.Key, ID: res.Ticket.ID}
			if res.Err != nil {
				rec.Error = res.Err.Error()
			}
			records = append(records, rec)
		}

		slog.Info("sync finished",
			"batch", report.BatchID,
			"total", len(report.Results),
			"succeeded", report.Succeeded(),
			"failed", report.Failed())

		writeJSON(w, http.StatusOK, syncResponse{
			BatchID:   report.BatchID,
			Total:     len(report.Results),
			Succeeded: report.Succeeded(),
			Failed:    report.Failed(),
			Orphans:   report.Orphans(),
			Records:   records,
		})
	}
}

type summarizeRequest struct {
	Query string `json:"query"`
}

type summarizeResponse struct {
	Query   string `json:"query"`
	Summary string `json:"summary"`
}

func handleSummarize(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req summarizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		summary, err := deps.Summarizer.Summarize(r.Context(), req.Query)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "summarizing: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, summarizeResponse{Query: req.Query, Summary: summary})
	}
}

type reconcileResponse struct {
	Reindexed int `json:"reindexed"`
	Removed   int `json:"removed"`
	Failed    int `json:"failed"`
}

func handleReconcile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := deps.Reconciler.Run(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reconciliation failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, reconcileResponse{
			Reindexed: report.Reindexed,
			Removed:   report.Removed,
			Failed:    report.Failed,
		})
	}
}
