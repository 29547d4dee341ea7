package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Searcher   TicketSearcher
	Summarizer Summarizer
	Store      TicketCounter
	Index      VectorCounter
}

// NewMCPServer creates an MCP server exposing ticket search and
// summarization as tools, plus an index stats resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"ticketry",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("ticketry — chat front-end over an embedding-indexed ticket store."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_tickets",
			mcp.WithDescription("Semantically search the ticket store and return the closest tickets."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchTickets(deps),
	)

	s.AddTool(
		mcp.NewTool("summarize_tickets",
			mcp.WithDescription("Answer a free-form question about the current ticket set using the chat model."),
			mcp.WithString("query", mcp.Description("The question or request to answer"), mcp.Required()),
		),
		mcpSummarizeTickets(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"ticketry://stats",
			"Store Stats",
			mcp.WithResourceDescription("Ticket and vector counts as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpSearchTickets(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", defaultSearchLimit)
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		if limit > 50 {
			limit = 50
		}

		results, err := deps.Searcher.Search(ctx, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if len(results) == 0 {
			return mcpText("[]"), nil
		}

		hits := make([]searchHit, len(results))
		for i, res := range results {
			hits[i] = searchHit{Ticket: toTicketJSON(res.Ticket), Distance: res.Distance}
		}

		b, err := json.Marshal(hits)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpSummarizeTickets(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		summary, err := deps.Summarizer.Summarize(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("summarization failed: %v", err)), nil
		}

		return mcpText(summary), nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		tickets, err := deps.Store.CountTickets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count tickets: %w", err)
		}
		vectors, err := deps.Index.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count vectors: %w", err)
		}

		stats := struct {
			Tickets   int    `json:"tickets"`
			Vectors   int    `json:"vectors"`
			CheckedAt string `json:"checked_at"`
		}{
			Tickets:   tickets,
			Vectors:   vectors,
			CheckedAt: time.Now().UTC().Format(time.RFC3339),
		}

		b, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
