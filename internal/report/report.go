// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders research results as markdown, YAML, or JSON. The
// YAML form round-trips, so a saved result can be reloaded and re-rendered
// without rerunning the research.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// WriteMarkdown renders res as a standalone markdown report with a header
// block followed by the summary.
func WriteMarkdown(w io.Writer, res *types.ResearchResult) error {
	_, err := fmt.Fprintf(w, "# Research Results\n\n**Query:** %s\n\n**Depth:** %s\n\n**Timestamp:** %s\n\n---\n\n%s\n",
		res.Query, res.Depth, res.Timestamp.Format(time.RFC3339), res.Summary)
	return err
}

// WriteYAML writes res as YAML.
func WriteYAML(w io.Writer, res *types.ResearchResult) error {
	data, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReadYAML loads a result previously written with WriteYAML.
func ReadYAML(r io.Reader) (*types.ResearchResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var res types.ResearchResult
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parsing result: %w", err)
	}
	return &res, nil
}

// WriteJSON writes res as indented JSON.
func WriteJSON(w io.Writer, res *types.ResearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
