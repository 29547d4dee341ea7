// Package agent runs the two-step summarization workflow: fetch the
// current tickets, then ask the chat model to analyze them against the
// user's query.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akazmin/ticketry/internal/engine"
	"github.com/akazmin/ticketry/internal/source"
	"github.com/akazmin/ticketry/internal/ticket"
)

// Summarizer answers free-form questions about the configured ticket
// source using the chat model.
type Summarizer struct {
	src    source.Source
	engine engine.Engine
	model  string
	logger *slog.Logger
}

// New creates a Summarizer over the given source and engine.
func New(src source.Source, e engine.Engine, model string) *Summarizer {
	return &Summarizer{
		src:    src,
		engine: e,
		model:  model,
		logger: slog.Default(),
	}
}

// Summarize fetches the current tickets and asks the model to answer the
// query against them. A source failure degrades to an empty context — the
// model still answers, noting that no ticket data was available — while a
// model failure is returned to the caller.
func (s *Summarizer) Summarize(ctx context.Context, query string) (string, error) {
	var tickets []ticket.Ticket

	raws, err := s.src.FetchAll(ctx)
	if err != nil {
		s.logger.Warn("summarize: fetching tickets failed, continuing without context", "error", err)
	}
	for _, raw := range raws {
		t, err := source.Map(raw)
		if err != nil {
			continue
		}
		tickets = append(tickets, t)
	}

	messages := []engine.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(query, tickets)},
	}

	answer, err := s.engine.Chat(ctx, s.model, messages)
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	return answer, nil
}
