package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/agent"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Run research queries in a read-eval-print loop",
	Long: `Interactive prompts for a query and a depth, runs the research session,
and prints the summary. Each entry is a fresh session with its own
citation numbering. Type quit, exit, or q to leave.`,
	RunE: runInteractive,
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if err := requireOpenAIKey(cfg); err != nil {
		return err
	}
	client := agent.NewClient(cfg.Agent)

	fmt.Println("Research Assistant (interactive mode). Type quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nResearch query: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return nil
		case "":
			continue
		}

		fmt.Print("Depth (quick/standard/comprehensive) [standard]: ")
		if !scanner.Scan() {
			break
		}
		depth := types.DepthStandard
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "quick":
			depth = types.DepthQuick
		case "comprehensive":
			depth = types.DepthComprehensive
		}

		res, _, err := executeResearch(context.Background(), client, cfg, types.ResearchQuery{
			Query: query,
			Depth: depth,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println(renderSummary(res.Summary, false))
		fmt.Fprintf(os.Stderr, "\nCompleted in %s (%d iterations, %d sources)\n",
			res.Duration.Round(time.Millisecond), res.Iterations, len(res.Sources))

		if id, err := saveRunToHistory(cfg.History, res); err != nil {
			fmt.Fprintf(os.Stderr, "warning: saving run to history: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Saved to history (run %d)\n", id)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println("Goodbye!")
	return nil
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
