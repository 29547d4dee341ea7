package source

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/akazmin/ticketry/internal/ticket"
)

// Map normalizes a raw ticket into a canonical record with ID unset.
// It fails with *MappingError when the record has neither a summary nor a
// description: there would be nothing to embed or display.
func Map(raw Raw) (ticket.Ticket, error) {
	var t ticket.Ticket
	var err error

	switch raw.Kind {
	case KindJira:
		t, err = mapJira(raw.Jira)
	case KindSpreadsheet:
		t, err = mapSheet(raw.Sheet)
	default:
		return ticket.Ticket{}, &MappingError{Kind: raw.Kind, Reason: "unknown source kind"}
	}
	if err != nil {
		return ticket.Ticket{}, err
	}

	if !t.HasContent() {
		return ticket.Ticket{}, &MappingError{Kind: raw.Kind, Key: t.Key, Reason: "neither summary nor description present"}
	}

	t.CreatedAt = time.Now().UTC()
	return t, nil
}

func mapJira(issue *JiraIssue) (ticket.Ticket, error) {
	if issue == nil {
		return ticket.Ticket{}, &MappingError{Kind: KindJira, Reason: "missing jira payload"}
	}

	t := ticket.Ticket{
		Key:         issue.Key,
		Summary:     cleanText(issue.Summary),
		Description: cleanText(issue.Description),
		Status:      optFromPtr(issue.Status),
		Priority:    optFromPtr(issue.Priority),
		Assignee:    optFromPtr(issue.Assignee),
		Metadata:    map[string]string{"source": string(KindJira)},
	}
	if issue.Created != "" {
		t.Metadata["created"] = issue.Created
	}
	return t, nil
}

// Spreadsheet headers are matched case-insensitively so exports from
// different tools ("Summary", "summary", "SUMMARY") all map.
func mapSheet(row *SheetRow) (ticket.Ticket, error) {
	if row == nil {
		return ticket.Ticket{}, &MappingError{Kind: KindSpreadsheet, Reason: "missing spreadsheet payload"}
	}

	fields := make(map[string]string, len(row.Fields))
	for k, v := range row.Fields {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}

	t := ticket.Ticket{
		Key:         strings.TrimSpace(fields["key"]),
		Summary:     cleanText(fields["summary"]),
		Description: cleanText(fields["description"]),
		Status:      optFromCell(fields, "status"),
		Priority:    optFromCell(fields, "priority"),
		Assignee:    optFromCell(fields, "assignee"),
		Metadata:    map[string]string{"source": string(KindSpreadsheet)},
	}

	// Columns outside the canonical schema ride along as opaque metadata.
	known := map[string]bool{"key": true, "summary": true, "description": true, "status": true, "priority": true, "assignee": true}
	for k, v := range fields {
		if !known[k] && v != "" {
			t.Metadata[k] = v
		}
	}
	return t, nil
}

func optFromPtr(p *string) ticket.OptString {
	if p == nil {
		return ticket.None()
	}
	return ticket.Some(strings.TrimSpace(*p))
}

func optFromCell(fields map[string]string, key string) ticket.OptString {
	v, ok := fields[key]
	if !ok {
		return ticket.None()
	}
	return ticket.Some(strings.TrimSpace(v))
}

// cleanText collapses whitespace and strips HTML markup. Jira server
// installations and some spreadsheet exports carry rendered HTML in
// description fields.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<>") {
		s = stripHTML(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

// stripHTML extracts the text content of an HTML fragment. On parse
// failure the input is returned unchanged; html.Parse is lenient enough
// that this is effectively unreachable for string input.
func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
