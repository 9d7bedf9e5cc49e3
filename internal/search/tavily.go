// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// tavilyAPIBase is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIBase = "https://api.tavily.com/search"

// TavilyBackend queries the Tavily web search API.
type TavilyBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *TavilyBackend) Name() string { return "tavily" }

// Search posts the query to the Tavily API and returns its results.
func (b *TavilyBackend) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error) {
	if b.APIKey == "" {
		return nil, fmt.Errorf("tavily API key not configured")
	}

	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:        b.APIKey,
		Query:         query.Text,
		MaxResults:    maxResults,
		SearchDepth:   "basic",
		IncludeAnswer: false,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding Tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Tavily API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Tavily API returned HTTP %d", resp.StatusCode)
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing Tavily response: %w", err)
	}

	var results []types.SearchResult
	for _, item := range tr.Results {
		if item.URL == "" {
			continue
		}
		results = append(results, types.SearchResult{
			URL:     item.URL,
			Title:   item.Title,
			Snippet: item.Content,
			Score:   item.Score,
			Source:  "tavily",
		})
	}
	return results, nil
}

// Tavily API JSON structures.
type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Query   string         `json:"query"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
