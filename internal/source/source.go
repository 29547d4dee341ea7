// Package source fetches raw tickets from their upstream systems and maps
// them into the canonical record shape.
package source

import (
	"context"
	"fmt"
)

// Kind tags which upstream system a raw ticket came from.
type Kind string

const (
	KindJira        Kind = "jira"
	KindSpreadsheet Kind = "spreadsheet"
)

// Raw is a tagged union over the per-source raw ticket shapes. Exactly one
// of the payload pointers is set, matching Kind.
type Raw struct {
	Kind  Kind
	Jira  *JiraIssue
	Sheet *SheetRow
}

// JiraIssue is one issue as returned by the Jira search API, reduced to the
// fields the mapper consumes. Optional fields are pointers so absence
// survives the trip from the wire.
type JiraIssue struct {
	Key         string
	Summary     string
	Description string
	Status      *string
	Priority    *string
	Assignee    *string
	Created     string
}

// SheetRow is one spreadsheet row keyed by the header row's column names.
type SheetRow struct {
	Line   int
	Fields map[string]string
}

// Source is a ticket upstream. Implementations are external collaborators;
// the ingestion pipeline only ever sees the Raw values they produce.
type Source interface {
	// FetchAll returns every raw ticket the source currently exposes.
	FetchAll(ctx context.Context) ([]Raw, error)
}

// MappingError reports a raw ticket that cannot be normalized into a
// canonical record. It is local to the one record and never retried.
type MappingError struct {
	Kind   Kind
	Key    string
	Reason string
}

func (e *MappingError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("mapping %s ticket %q: %s", e.Kind, e.Key, e.Reason)
	}
	return fmt.Sprintf("mapping %s ticket: %s", e.Kind, e.Reason)
}
