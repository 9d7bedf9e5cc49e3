package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <result.yaml>",
	Short: "Re-render a previously saved research result",
	Long: `Report loads a YAML result written by research --save and renders it
again without rerunning the research. Useful for reformatting a run or
viewing it on another machine.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := report.ReadYAML(f)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.WriteJSON(os.Stdout, res)
	}
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		return saveTo(path, func(w io.Writer) error { return report.WriteMarkdown(w, res) })
	}

	plain, _ := cmd.Flags().GetBool("plain")
	fmt.Println(renderSummary(res.Summary, plain))
	return nil
}

func init() {
	reportCmd.Flags().String("output", "", "write the report as Markdown to this file")
	reportCmd.Flags().Bool("plain", false, "print the summary without terminal formatting")
	reportCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(reportCmd)
}
