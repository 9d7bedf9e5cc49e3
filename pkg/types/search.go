// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchResult represents a candidate source returned by a search backend.
type SearchResult struct {
	// URL is the canonical address of the result and its identity for
	// deduplication across backends.
	URL string `json:"url" yaml:"url"`

	// Title is the result title as returned by the backend.
	Title string `json:"title" yaml:"title"`

	// Snippet is a short content excerpt or abstract.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Score is a value between 0.0 and 1.0 indicating relevance to the query.
	Score float64 `json:"score" yaml:"score"`

	// Source identifies which backend found this result (e.g. "tavily", "arxiv").
	Source string `json:"source" yaml:"source"`
}
