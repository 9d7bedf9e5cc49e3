// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries web search APIs and returns unified, deduplicated
// results. Backends run concurrently; results merge by URL.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Backend searches a single provider. Each backend (Tavily, arXiv)
// implements this interface per the Strategy pattern.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error)
}

// Query holds the search parameters.
type Query struct {
	// Text is the search phrase.
	Text string

	// MaxResults bounds the merged result count. Zero means the configured
	// default; values are clamped to 1-10 before any backend runs.
	MaxResults int
}

// IsEmpty reports whether the query contains no searchable text.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == ""
}

const (
	defaultMaxResults = 5
	maxResultsCap     = 10
)

// clampLimit resolves the effective result limit from the query and config.
func clampLimit(q Query, cfg types.SearchConfig) int {
	limit := q.MaxResults
	if limit == 0 {
		limit = cfg.MaxResults
	}
	switch {
	case limit == 0:
		return defaultMaxResults
	case limit < 1:
		return 1
	case limit > maxResultsCap:
		return maxResultsCap
	}
	return limit
}

// SearchOutput holds the merged results and dedup statistics.
type SearchOutput struct {
	Results       []types.SearchResult
	DupsRemoved   int
	BackendErrors []string
}

// Search fans the query out to all backends concurrently, deduplicates by
// URL, ranks by score, and returns the top N. A failing backend is reported
// as a warning on w and in BackendErrors; the search fails only when the
// query is empty or no backends are configured.
func Search(ctx context.Context, query Query, backends []Backend, cfg types.SearchConfig, w io.Writer) (SearchOutput, error) {
	if query.IsEmpty() {
		return SearchOutput{}, fmt.Errorf("query is empty: provide a search phrase")
	}
	if len(backends) == 0 {
		return SearchOutput{}, fmt.Errorf("no search backends configured")
	}
	query.MaxResults = clampLimit(query, cfg)

	type backendResult struct {
		results []types.SearchResult
		err     error
		name    string
	}

	ch := make(chan backendResult, len(backends))
	var wg sync.WaitGroup

	for _, b := range backends {
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, query, cfg)
			ch <- backendResult{results: results, err: err, name: b.Name()}
		}(b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.SearchResult
	var backendErrors []string
	for br := range ch {
		if br.err != nil {
			msg := fmt.Sprintf("%s: %v", br.name, br.err)
			backendErrors = append(backendErrors, msg)
			fmt.Fprintf(w, "warning: backend %s failed: %v\n", br.name, br.err)
			continue
		}
		all = append(all, br.results...)
	}

	deduped, removed := deduplicate(all)

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	if len(deduped) > query.MaxResults {
		deduped = deduped[:query.MaxResults]
	}

	return SearchOutput{
		Results:       deduped,
		DupsRemoved:   removed,
		BackendErrors: backendErrors,
	}, nil
}

// deduplicate merges results that share a URL. The URL is the identity;
// titles are not compared because distinct pages legitimately share them.
func deduplicate(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]int) // URL → index in deduped
	var deduped []types.SearchResult
	removed := 0

	for _, r := range results {
		if r.URL == "" {
			continue
		}
		if idx, ok := seen[r.URL]; ok {
			mergeInto(&deduped[idx], r)
			removed++
			continue
		}
		seen[r.URL] = len(deduped)
		deduped = append(deduped, r)
	}
	return deduped, removed
}

// mergeInto fills empty fields of dst from src, keeps the higher score, and
// combines backend names.
func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if dst.Snippet == "" && src.Snippet != "" {
		dst.Snippet = src.Snippet
	}
	if src.Score > dst.Score {
		dst.Score = src.Score
	}
	if dst.Source != src.Source && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out SearchOutput, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-44s  %-6s  %s\n",
		"Rank", "Title", "URL", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 118))

	for i, r := range out.Results {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%-4d  %-50s  %-44s  %-6.2f  %s\n",
			i+1, truncate(title, 50), truncate(r.URL, 44), r.Score, r.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out SearchOutput, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
