package ingest

import (
	"errors"

	"github.com/google/uuid"

	"github.com/akazmin/ticketry/internal/ticket"
)

// RecordResult is the outcome for one record of a batch.
type RecordResult struct {
	Key    string
	Ticket ticket.Ticket // zero unless the record ingested cleanly
	Err    error
}

// Report is the per-record outcome of one ingestion batch.
type Report struct {
	BatchID string
	Results []RecordResult
}

// NewReport allocates a report for n records with a fresh batch id.
func NewReport(n int) Report {
	return Report{
		BatchID: uuid.New().String(),
		Results: make([]RecordResult, n),
	}
}

// Succeeded returns the number of cleanly ingested records.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of records that reported an error.
func (r Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Orphans returns the ids of records whose relational row committed but
// whose vector write failed. These stay observable until reconciliation
// heals them.
func (r Report) Orphans() []int64 {
	var ids []int64
	for _, res := range r.Results {
		var ie *IndexError
		if errors.As(res.Err, &ie) {
			ids = append(ids, ie.ID)
		}
	}
	return ids
}
