// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/history"
	"github.com/pdiddy/research-assistant/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved research runs (list, show, search, export)",
	Long: `History manages the local SQLite database of completed research runs.
Use subcommands to list recent runs, show a single run, search run text
with full-text search, or export everything.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRunSummaries(runs, jsonOutput)
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved run as a Markdown report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), id)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	return report.WriteMarkdown(os.Stdout, &run.ResearchResult)
}

// --- search subcommand ---

var historySearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search saved runs by query and summary text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.SearchRuns(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRunSummaries(runs, jsonOutput)
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all saved runs to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml", "":
		err = store.ExportYAML(context.Background(), w)
	case "json":
		err = store.ExportJSON(context.Background(), w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}

	if outPath != "" {
		fmt.Println("Exported to", outPath)
	}
	return nil
}

// --- shared helpers ---

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	cfg := buildConfig().History
	if dir, _ := cmd.Flags().GetString("history-dir"); dir != "" {
		cfg.Dir = dir
	}
	if maxResults, _ := cmd.Flags().GetInt("max-results"); maxResults > 0 {
		cfg.MaxResults = maxResults
	}
	return history.NewStore(cfg)
}

func formatRunSummaries(runs []history.RunSummary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-6s  %-50s  %-13s  %-7s  %s\n",
		"ID", "Query", "Depth", "Sources", "Created")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, r := range runs {
		query := r.Query
		if len(query) > 50 {
			query = query[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-6d  %-50s  %-13s  %-7d  %s\n",
			r.ID, query, r.Depth, r.SourceCount, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	historyCmd.PersistentFlags().String("history-dir", "", "history database directory (default: configured history_dir)")
	historyCmd.PersistentFlags().Int("max-results", 0, "default maximum runs returned (0 = use configured value)")

	// List and search flags.
	historyListCmd.Flags().Int("limit", 0, "maximum runs to list (0 = use default)")
	historyListCmd.Flags().Bool("json", false, "output runs as JSON")
	historySearchCmd.Flags().Int("limit", 0, "maximum runs to return (0 = use default)")
	historySearchCmd.Flags().Bool("json", false, "output runs as JSON")

	// Show flags.
	historyShowCmd.Flags().Bool("json", false, "output the run as JSON")

	// Export flags.
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	// Wire subcommands.
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
