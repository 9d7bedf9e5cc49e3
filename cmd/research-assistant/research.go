// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/agent"
	"github.com/pdiddy/research-assistant/internal/citation"
	"github.com/pdiddy/research-assistant/internal/fetch"
	"github.com/pdiddy/research-assistant/internal/history"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/internal/search"
	"github.com/pdiddy/research-assistant/internal/tools"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [query]",
	Short: "Run an agent-driven research session on a topic",
	Long: `Research sends the query to the chat model, which searches the web,
fetches relevant pages, and synthesizes a cited summary. Sources are
numbered [1], [2], ... and listed at the end.

The summary prints to stdout; progress and warnings go to stderr. Runs are
recorded in the local history database unless --no-history is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	depthName, _ := cmd.Flags().GetString("depth")
	depth, err := types.ParseDepth(depthName)
	if err != nil {
		return err
	}
	maxSources, _ := cmd.Flags().GetInt("max-sources")

	cfg := buildConfig()
	applyResearchFlags(cmd, &cfg)
	if err := requireOpenAIKey(cfg); err != nil {
		return err
	}

	query := types.ResearchQuery{
		Query:      strings.Join(args, " "),
		Depth:      depth,
		MaxSources: maxSources,
	}
	query.Normalize()
	fmt.Fprintf(os.Stderr, "Researching: %s (depth: %s, max sources: %d)\n",
		query.Query, query.Depth, query.MaxSources)

	client := agent.NewClient(cfg.Agent)
	res, citations, err := executeResearch(context.Background(), client, cfg, query)
	if err != nil {
		return err
	}

	return emitResult(cmd, cfg, res, citations)
}

// applyResearchFlags folds per-run flag overrides into the resolved config.
func applyResearchFlags(cmd *cobra.Command, cfg *types.Config) {
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Agent.Model = model
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Search.Timeout = timeout
		cfg.Fetch.Timeout = timeout
	}
}

// executeResearch wires a fresh citation manager, tool registry, and agent,
// then runs a single research query. Every run gets its own manager so
// citation numbering starts at [1] each time.
func executeResearch(ctx context.Context, client agent.ChatClient, cfg types.Config, query types.ResearchQuery) (*types.ResearchResult, *citation.Manager, error) {
	citations := citation.New()
	httpClient := &http.Client{Timeout: cfg.Search.Timeout}

	arxiv := &search.ArxivBackend{Client: httpClient}
	backends := []search.Backend{
		&search.TavilyBackend{Client: httpClient, APIKey: cfg.Search.TavilyAPIKey},
	}
	if cfg.Search.EnableArxiv {
		backends = append(backends, arxiv)
	}

	registry := tools.NewRegistry()
	toolset := []tools.Tool{
		tools.NewWebSearch(backends, cfg.Search, citations, os.Stderr),
		tools.NewFetchWebpage(fetch.New(cfg.Fetch), citations),
	}
	if cfg.Search.EnableArxiv {
		toolset = append(toolset, tools.NewArxivSearch(arxiv, cfg.Search, citations, os.Stderr))
	}
	for _, t := range toolset {
		if err := registry.Register(t); err != nil {
			return nil, nil, err
		}
	}

	a := agent.New(client, cfg.Agent, registry, citations, os.Stderr)
	res, err := a.Research(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	return res, citations, nil
}

// emitResult prints the run result and writes any requested files.
func emitResult(cmd *cobra.Command, cfg types.Config, res *types.ResearchResult, citations *citation.Manager) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		if err := report.WriteJSON(os.Stdout, res); err != nil {
			return err
		}
	} else {
		plain, _ := cmd.Flags().GetBool("plain")
		fmt.Println(renderSummary(res.Summary, plain))
		fmt.Fprintf(os.Stderr, "\nCompleted in %s (%d iterations, %d sources)\n",
			res.Duration.Round(time.Millisecond), res.Iterations, len(res.Sources))
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		err := saveTo(path, func(w io.Writer) error { return report.WriteMarkdown(w, res) })
		if err != nil {
			return err
		}
	}
	if path, _ := cmd.Flags().GetString("save"); path != "" {
		err := saveTo(path, func(w io.Writer) error { return report.WriteYAML(w, res) })
		if err != nil {
			return err
		}
	}
	if path, _ := cmd.Flags().GetString("bib"); path != "" {
		if err := saveTo(path, bibWriter(path, citations)); err != nil {
			return err
		}
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		if id, err := saveRunToHistory(cfg.History, res); err != nil {
			fmt.Fprintf(os.Stderr, "warning: saving run to history: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Saved to history (run %d)\n", id)
		}
	}
	return nil
}

// saveTo writes a result representation to path and confirms on stdout.
func saveTo(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return err
	}
	fmt.Printf("✓ Results saved to: %s\n", path)
	return nil
}

// bibWriter picks the bibliography format from the file extension: .bib
// writes BibTeX, anything else CSL-YAML.
func bibWriter(path string, m *citation.Manager) func(io.Writer) error {
	if strings.EqualFold(filepath.Ext(path), ".bib") {
		return func(w io.Writer) error { return citation.FormatBibTeX(m, w) }
	}
	return func(w io.Writer) error { return citation.FormatCSL(m, w) }
}

func saveRunToHistory(cfg types.HistoryConfig, res *types.ResearchResult) (int64, error) {
	store, err := history.NewStore(cfg)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.SaveRun(context.Background(), res)
}

// renderSummary formats the summary for the terminal. Markdown rendering is
// skipped when stdout is not a terminal or the user asked for plain text.
func renderSummary(summary string, plain bool) string {
	if plain || !isTerminal(os.Stdout) {
		return summary
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return summary
	}
	rendered, err := r.Render(summary)
	if err != nil {
		return summary
	}
	return strings.TrimRight(rendered, "\n")
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() {
	researchCmd.Flags().String("depth", "standard", "research depth: quick, standard, or comprehensive")
	researchCmd.Flags().Int("max-sources", 0, "target number of sources to consult (0 = use default)")
	researchCmd.Flags().String("output", "", "write the report as Markdown to this file")
	researchCmd.Flags().String("save", "", "write the full result as YAML to this file")
	researchCmd.Flags().String("bib", "", "write the bibliography to this file (.bib = BibTeX, otherwise CSL-YAML)")
	researchCmd.Flags().String("model", "", "override the configured chat model")
	researchCmd.Flags().Duration("timeout", 0, "HTTP timeout for search and fetch requests (e.g. 45s)")
	researchCmd.Flags().Bool("no-history", false, "do not record this run in the history database")
	researchCmd.Flags().Bool("plain", false, "print the summary without terminal formatting")
	researchCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(researchCmd)
}
