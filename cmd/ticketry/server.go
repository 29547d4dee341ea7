package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/akazmin/ticketry/internal/agent"
	"github.com/akazmin/ticketry/internal/api"
	"github.com/akazmin/ticketry/internal/config"
	"github.com/akazmin/ticketry/internal/engine"
	"github.com/akazmin/ticketry/internal/ingest"
	"github.com/akazmin/ticketry/internal/recon"
	"github.com/akazmin/ticketry/internal/retrieval"
	"github.com/akazmin/ticketry/internal/source"
	"github.com/akazmin/ticketry/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ticketry server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ticketry system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func buildEngine(cfg config.Config) engine.Engine {
	if cfg.LLM.Provider == "openai" {
		return engine.NewOpenAI(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	}
	return engine.NewOllama(cfg.LLM.BaseURL)
}

func buildSource(cfg config.Config) source.Source {
	if cfg.Source.Kind == "spreadsheet" {
		return source.NewSheetReader(cfg.Spreadsheet.Path)
	}
	return source.NewJiraClient(cfg.Jira.Host, cfg.Jira.Email, cfg.Jira.APIToken, cfg.Jira.JQL)
}

func buildIndex(cfg config.Config, store *storage.Store) (retrieval.Index, error) {
	if cfg.Index.Backend == "memory" {
		return retrieval.NewMemoryIndex(cfg.Embedding.Dimension)
	}
	return retrieval.NewSQLiteIndex(store.DB(), cfg.Embedding.Dimension), nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "ticketry version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := buildEngine(cfg)
	if err := engine.EnsureReady(ctx, eng, cfg.LLM.ChatModel, cfg.LLM.EmbedModel, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	index, err := buildIndex(cfg, store)
	if err != nil {
		return fmt.Errorf("building vector index: %w", err)
	}
	defer index.Close()

	embedder := retrieval.NewEmbedder(eng, cfg.LLM.EmbedModel, cfg.Embedding.Dimension, 0)
	searcher := retrieval.NewSearcher(embedder, index, store)
	src := buildSource(cfg)
	pipe := ingest.New(embedder, store, index, cfg.Ingest.Concurrency)
	summarizer := agent.New(src, eng, cfg.LLM.ChatModel)
	reconciler := recon.New(store, index, embedder)

	// Startup sweep heals orphaned rows from earlier crashed syncs.
	// For the in-memory backend this also rebuilds the whole index.
	if report, err := reconciler.Run(ctx); err != nil {
		slog.Warn("startup reconciliation failed", "error", err)
	} else if report.Reindexed > 0 || report.Removed > 0 || report.Failed > 0 {
		slog.Info("startup reconciliation",
			"reindexed", report.Reindexed,
			"removed", report.Removed,
			"failed", report.Failed)
	}

	handler := api.NewRouter(api.Deps{
		Source:     src,
		Ingestor:   pipe,
		Searcher:   searcher,
		Summarizer: summarizer,
		Reconciler: reconciler,
		Store:      store,
		Index:      index,
		Token:      cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on its own port (streamable HTTP transport).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Searcher:   searcher,
		Summarizer: summarizer,
		Store:      store,
		Index:      index,
	})
	mcpHTTP := server.NewStreamableHTTPServer(mcpSrv)
	mcpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.MCPPort)
	go func() {
		slog.Info("MCP server listening", "addr", mcpAddr)
		if err := mcpHTTP.Start(mcpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("MCP server error", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "ticketry listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Warn("MCP server shutdown", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Source", "%s", cfg.Source.Kind)
	printStatus("Provider", "%s at %s", cfg.LLM.Provider, cfg.LLM.BaseURL)
	printStatus("Chat model", "%s", cfg.LLM.ChatModel)
	printStatus("Embed model", "%s", cfg.LLM.EmbedModel)
	printStatus("Index", "%s (%d dimensions)", cfg.Index.Backend, cfg.Embedding.Dimension)

	if running {
		apiC, err := newAPIClient()
		if err == nil {
			statsResp, err := apiC.get(context.Background(), "/stats")
			if err == nil {
				var stats struct {
					Tickets int `json:"tickets"`
					Vectors int `json:"vectors"`
				}
				if decodeJSON(statsResp, &stats) == nil {
					printStatus("Tickets", "%d", stats.Tickets)
					printStatus("Vectors", "%d", stats.Vectors)
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
