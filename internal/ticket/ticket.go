// Package ticket defines the canonical ticket record shared by every
// component: the mapper produces it, the relational store persists it,
// and search results hydrate back into it.
package ticket

import (
	"strings"
	"time"
)

// OptString is an optional short string field. Absent fields keep
// Valid=false so consumers can tell "no value" from "empty value".
type OptString struct {
	Value string
	Valid bool
}

// Some returns a present OptString.
func Some(v string) OptString {
	return OptString{Value: v, Valid: true}
}

// None returns an absent OptString.
func None() OptString {
	return OptString{}
}

// Or returns the value when present, otherwise the fallback.
func (o OptString) Or(fallback string) string {
	if o.Valid {
		return o.Value
	}
	return fallback
}

// Ticket is the canonical record for one ticket, independent of whether
// it came from Jira or a spreadsheet export.
//
// ID is zero until the record has been durably written to storage; the
// store is the only component that assigns it.
type Ticket struct {
	ID          int64
	Key         string
	Summary     string
	Description string
	Status      OptString
	Priority    OptString
	Assignee    OptString
	Metadata    map[string]string
	CreatedAt   time.Time
}

// EmbedText returns the text sent to the embedding provider: summary and
// description joined with a single space, description omitted when empty.
func (t Ticket) EmbedText() string {
	if t.Description == "" {
		return t.Summary
	}
	if t.Summary == "" {
		return t.Description
	}
	return t.Summary + " " + t.Description
}

// HasContent reports whether the ticket carries any embeddable text.
func (t Ticket) HasContent() bool {
	return strings.TrimSpace(t.Summary) != "" || strings.TrimSpace(t.Description) != ""
}
