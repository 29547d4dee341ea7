package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akazmin/ticketry/internal/ticket"
)

const systemPrompt = `You are a ticket analysis assistant.
Your goal is to provide insights based on the provided ticket context when available, or engage in general professional conversation otherwise.
- If ticket data is provided in the context, use all available fields to answer the user request accurately.
- Use markdown for your responses.
- Present ticket details as an ordered list, never as a table.
- For each ticket, include only the essential fields: key, summary, status, priority, and assignee.
- Maintain a professional and helpful tone.`

// ticketView is the compact per-ticket shape handed to the model.
type ticketView struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// buildUserPrompt assembles the context block and the user's request into
// a single user message.
func buildUserPrompt(query string, tickets []ticket.Ticket) string {
	var b strings.Builder

	if len(tickets) > 0 {
		b.WriteString("CURRENT TICKET CONTEXT:\n")
		for _, t := range tickets {
			v := ticketView{
				Key:      t.Key,
				Summary:  t.Summary,
				Status:   t.Status.Or(""),
				Priority: t.Priority.Or(""),
				Assignee: t.Assignee.Or(""),
			}
			line, err := json.Marshal(v)
			if err != nil {
				continue
			}
			b.Write(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	} else {
		b.WriteString("(No tickets were found in the current context. If this is a general question, answer normally; otherwise explain that no ticket data is available.)\n\n")
	}

	fmt.Fprintf(&b, "USER REQUEST: %s", query)
	return b.String()
}
