// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pdiddy/research-assistant/internal/citation"
	"github.com/pdiddy/research-assistant/internal/search"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const webSearchParams = `{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The search query to execute"
		},
		"max_results": {
			"type": "integer",
			"description": "Maximum number of results to return (default 5, max 10)"
		}
	},
	"required": ["query"]
}`

// WebSearch searches the configured web backends and registers every result
// with the citation manager, so the model can cite results it has only seen
// in a search listing.
type WebSearch struct {
	backends  []search.Backend
	cfg       types.SearchConfig
	citations *citation.Manager
	warn      io.Writer
}

// NewWebSearch returns a web_search tool over the given backends. Backend
// warnings are written to warn; pass nil to discard them.
func NewWebSearch(backends []search.Backend, cfg types.SearchConfig, citations *citation.Manager, warn io.Writer) *WebSearch {
	if warn == nil {
		warn = io.Discard
	}
	return &WebSearch{backends: backends, cfg: cfg, citations: citations, warn: warn}
}

func (t *WebSearch) Definition() Definition {
	return Definition{
		Name:        "web_search",
		Description: "Search the web for information on a given query. Returns result titles, URLs, and snippets with citation numbers.",
		Parameters:  json.RawMessage(webSearchParams),
	}
}

type searchResultEntry struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
	Citation int     `json:"citation"`
}

type searchSuccessEnvelope struct {
	Success bool                `json:"success"`
	Query   string              `json:"query"`
	Results []searchResultEntry `json:"results"`
	Count   int                 `json:"count"`
}

type searchErrorEnvelope struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Results []searchResultEntry `json:"results"`
}

func (t *WebSearch) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return marshalEnvelope(searchErrorEnvelope{
				Error:   "invalid arguments: " + err.Error(),
				Results: []searchResultEntry{},
			})
		}
	}
	if strings.TrimSpace(params.Query) == "" {
		return marshalEnvelope(searchErrorEnvelope{
			Error:   "Query cannot be empty",
			Results: []searchResultEntry{},
		})
	}

	out, err := search.Search(ctx, search.Query{Text: params.Query, MaxResults: params.MaxResults}, t.backends, t.cfg, t.warn)
	if err != nil {
		return marshalEnvelope(searchErrorEnvelope{
			Error:   err.Error(),
			Results: []searchResultEntry{},
		})
	}
	// A backend that merely degrades the result set is a warning, but when
	// every backend failed the model should see the error, not an empty hit
	// list.
	if len(out.Results) == 0 && len(out.BackendErrors) > 0 {
		return marshalEnvelope(searchErrorEnvelope{
			Error:   strings.Join(out.BackendErrors, "; "),
			Results: []searchResultEntry{},
		})
	}

	entries := registerResults(t.citations, out.Results)
	return marshalEnvelope(searchSuccessEnvelope{
		Success: true,
		Query:   params.Query,
		Results: entries,
		Count:   len(entries),
	})
}

// registerResults adds each search result to the citation manager and tags
// it with its citation number.
func registerResults(m *citation.Manager, results []types.SearchResult) []searchResultEntry {
	entries := make([]searchResultEntry, 0, len(results))
	for _, r := range results {
		idx, err := m.Add(types.Source{URL: r.URL, Title: r.Title, Snippet: r.Snippet})
		if err != nil {
			continue
		}
		entries = append(entries, searchResultEntry{
			Title:    r.Title,
			URL:      r.URL,
			Snippet:  r.Snippet,
			Score:    r.Score,
			Citation: idx,
		})
	}
	return entries
}
