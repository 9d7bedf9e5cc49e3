package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the search backends directly, without the agent",
	Long: `Search sends the query to the configured backends, deduplicates the
merged results by URL, and prints them ranked by score. Useful for
checking backend configuration before a research run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()

	maxResults, _ := cmd.Flags().GetInt("max-results")
	includeArxiv, _ := cmd.Flags().GetBool("arxiv")

	httpClient := &http.Client{Timeout: cfg.Search.Timeout}
	backends := []search.Backend{
		&search.TavilyBackend{Client: httpClient, APIKey: cfg.Search.TavilyAPIKey},
	}
	if includeArxiv || cfg.Search.EnableArxiv {
		backends = append(backends, &search.ArxivBackend{Client: httpClient})
	}

	out, err := search.Search(context.Background(), search.Query{
		Text:       strings.Join(args, " "),
		MaxResults: maxResults,
	}, backends, cfg.Search, os.Stderr)
	if err != nil {
		return err
	}
	if len(out.Results) == 0 && len(out.BackendErrors) > 0 {
		return fmt.Errorf("all search backends failed: %s", strings.Join(out.BackendErrors, "; "))
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return search.FormatJSON(out, os.Stdout)
	}
	search.FormatTable(out, os.Stdout)
	return nil
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (0 = use default)")
	searchCmd.Flags().Bool("arxiv", false, "include the arXiv backend even if disabled in config")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
