package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akazmin/ticketry/internal/config"
)

// --- sync ---

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch tickets from the configured source and index them",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sync", nil)
		if err != nil {
			return err
		}

		var result struct {
			BatchID   string  `json:"batch_id"`
			Total     int     `json:"total"`
			Succeeded int     `json:"succeeded"`
			Failed    int     `json:"failed"`
			Orphans   []int64 `json:"orphans"`
			Records   []struct {
				Key   string `json:"key"`
				ID    int64  `json:"id"`
				Error string `json:"error"`
			} `json:"records"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, rec := range result.Records {
			if rec.Error != "" {
				printError("%s: %s", rec.Key, rec.Error)
			}
		}
		printSuccess("Synced %d/%d tickets (batch %s)", result.Succeeded, result.Total, result.BatchID)
		if result.Failed > 0 {
			printWarning("%d records failed; re-run sync or reconcile to retry", result.Failed)
		}
		if len(result.Orphans) > 0 {
			printWarning("%d tickets stored but not indexed (ids %v); run reconcile to index them", len(result.Orphans), result.Orphans)
		}
		return nil
	},
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over the ticket store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/search?query=%s&limit=%d", url.QueryEscape(query), limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			Results []struct {
				Ticket struct {
					ID       int64   `json:"id"`
					Key      string  `json:"key"`
					Summary  string  `json:"summary"`
					Status   *string `json:"status"`
					Priority *string `json:"priority"`
					Assignee *string `json:"assignee"`
				} `json:"ticket"`
				Distance float32 `json:"distance"`
			} `json:"results"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for i, r := range result.Results {
			t := r.Ticket
			fmt.Printf("\n%s %s [distance: %.3f]\n",
				colorize(colorBold, fmt.Sprintf("%d.", i+1)),
				colorize(colorCyan, t.Key),
				r.Distance,
			)
			fmt.Printf("   %s\n", t.Summary)
			var meta []string
			if t.Status != nil {
				meta = append(meta, "status: "+*t.Status)
			}
			if t.Priority != nil {
				meta = append(meta, "priority: "+*t.Priority)
			}
			if t.Assignee != nil {
				meta = append(meta, "assignee: "+*t.Assignee)
			}
			if len(meta) > 0 {
				fmt.Printf("   %s\n", strings.Join(meta, ", "))
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 10, "maximum number of results")
}

// --- summarize ---

var summarizeCmd = &cobra.Command{
	Use:   "summarize <request>",
	Short: "Ask the chat model a question about the current ticket set",
	Long: `Ask the chat model a question about the current ticket set.

Examples:
  ticketry summarize "what are the open critical bugs?"
  ticketry summarize "list everything assigned to Dana, newest first"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/summarize", map[string]string{"query": query})
		if err != nil {
			return err
		}

		var result struct {
			Summary string `json:"summary"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Summary)
		return nil
	},
}

// --- reconcile ---

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Bring the vector index back in sync with the ticket store",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/reconcile", nil)
		if err != nil {
			return err
		}

		var result struct {
			Reindexed int `json:"reindexed"`
			Removed   int `json:"removed"`
			Failed    int `json:"failed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Reconciled: %d reindexed, %d removed, %d failed",
			result.Reindexed, result.Removed, result.Failed)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			if strings.Contains(err.Error(), "unknown config key") {
				printWarning("valid keys: %s", strings.Join(config.ValidKeys(), ", "))
			}
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
