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

const arxivSearchParams = `{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "Topic keywords to search arXiv for"
		},
		"max_results": {
			"type": "integer",
			"description": "Maximum number of papers to return (default 5, max 10)"
		}
	},
	"required": ["query"]
}`

// ArxivSearch searches arXiv for academic papers. It shares the web_search
// envelope shape so the model handles both search tools the same way.
type ArxivSearch struct {
	backends  []search.Backend
	cfg       types.SearchConfig
	citations *citation.Manager
	warn      io.Writer
}

// NewArxivSearch returns an arxiv_search tool over the given backend.
func NewArxivSearch(backend search.Backend, cfg types.SearchConfig, citations *citation.Manager, warn io.Writer) *ArxivSearch {
	if warn == nil {
		warn = io.Discard
	}
	return &ArxivSearch{backends: []search.Backend{backend}, cfg: cfg, citations: citations, warn: warn}
}

func (t *ArxivSearch) Definition() Definition {
	return Definition{
		Name:        "arxiv_search",
		Description: "Search arXiv for academic papers on a topic. Returns paper titles, abstract snippets, and links with citation numbers.",
		Parameters:  json.RawMessage(arxivSearchParams),
	}
}

func (t *ArxivSearch) Execute(ctx context.Context, args json.RawMessage) (string, error) {
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
