package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	name    string
	results []types.SearchResult
	err     error
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Search(_ context.Context, _ Query, _ types.SearchConfig) ([]types.SearchResult, error) {
	return m.results, m.err
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResults: 5,
	}
}

// --- Query ---

func TestQueryIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty", Query{}, true},
		{"whitespace only", Query{Text: "   \t"}, true},
		{"text", Query{Text: "golang concurrency"}, false},
		{"max results alone is empty", Query{MaxResults: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		cfg  types.SearchConfig
		want int
	}{
		{"query value wins", Query{MaxResults: 3}, types.SearchConfig{MaxResults: 8}, 3},
		{"config default", Query{}, types.SearchConfig{MaxResults: 8}, 8},
		{"built-in default", Query{}, types.SearchConfig{}, 5},
		{"below range", Query{MaxResults: -2}, types.SearchConfig{}, 1},
		{"above range", Query{MaxResults: 50}, types.SearchConfig{}, 10},
		{"config above range", Query{}, types.SearchConfig{MaxResults: 25}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampLimit(tt.q, tt.cfg); got != tt.want {
				t.Errorf("clampLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

// --- Deduplication ---

func TestDeduplicateByURL(t *testing.T) {
	results := []types.SearchResult{
		{URL: "https://a.com", Title: "Page A", Source: "tavily", Score: 0.9},
		{URL: "https://a.com", Title: "Page A (from arXiv)", Source: "arxiv", Score: 0.8},
		{URL: "https://b.com", Title: "Page B", Source: "tavily", Score: 0.7},
	}

	deduped, removed := deduplicate(results)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if len(deduped) != 2 {
		t.Fatalf("len(deduped) = %d, want 2", len(deduped))
	}
	// Merged result should keep higher score and combine sources.
	if deduped[0].Score != 0.9 {
		t.Errorf("merged score = %f, want 0.9", deduped[0].Score)
	}
	if !strings.Contains(deduped[0].Source, "arxiv") {
		t.Errorf("merged source = %q, should contain both backends", deduped[0].Source)
	}
}

func TestDeduplicateSameTitleDifferentURL(t *testing.T) {
	// Distinct pages that share a title stay distinct: the URL is the identity.
	results := []types.SearchResult{
		{URL: "https://a.com/post", Title: "Understanding Goroutines", Source: "tavily"},
		{URL: "https://b.com/mirror", Title: "Understanding Goroutines", Source: "tavily"},
	}

	deduped, removed := deduplicate(results)
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if len(deduped) != 2 {
		t.Errorf("len(deduped) = %d, want 2", len(deduped))
	}
}

func TestDeduplicateDropsEmptyURL(t *testing.T) {
	results := []types.SearchResult{
		{URL: "", Title: "No address", Source: "tavily"},
		{URL: "https://a.com", Title: "Page A", Source: "tavily"},
	}

	deduped, _ := deduplicate(results)
	if len(deduped) != 1 {
		t.Fatalf("len(deduped) = %d, want 1", len(deduped))
	}
	if deduped[0].URL != "https://a.com" {
		t.Errorf("kept URL = %q", deduped[0].URL)
	}
}

func TestMergeInto(t *testing.T) {
	dst := types.SearchResult{
		URL:    "https://a.com",
		Title:  "Page A",
		Source: "tavily",
		Score:  0.8,
	}
	src := types.SearchResult{
		URL:     "https://a.com",
		Title:   "Page A (extended)",
		Snippet: "An excerpt.",
		Source:  "arxiv",
		Score:   0.9,
	}

	mergeInto(&dst, src)

	if dst.Title != "Page A" {
		t.Errorf("Title = %q, existing value should win", dst.Title)
	}
	if dst.Snippet != "An excerpt." {
		t.Errorf("Snippet should be filled from src, got %q", dst.Snippet)
	}
	if math.Abs(dst.Score-0.9) > 0.001 {
		t.Errorf("Score should be max(0.8, 0.9) = 0.9, got %f", dst.Score)
	}
	if !strings.Contains(dst.Source, "arxiv") {
		t.Errorf("Source should contain both backends, got %q", dst.Source)
	}
}

// --- Search integration ---

func TestSearchEmptyQuery(t *testing.T) {
	var buf bytes.Buffer
	_, err := Search(context.Background(), Query{}, []Backend{&mockBackend{name: "mock"}}, testCfg(), &buf)
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("expected empty query error, got: %v", err)
	}
}

func TestSearchNoBackends(t *testing.T) {
	var buf bytes.Buffer
	_, err := Search(context.Background(), Query{Text: "test"}, nil, testCfg(), &buf)
	if err == nil || !strings.Contains(err.Error(), "no search backends") {
		t.Errorf("expected no backends error, got: %v", err)
	}
}

func TestSearchContinuesAfterBackendFailure(t *testing.T) {
	failing := &mockBackend{name: "failing", err: fmt.Errorf("network error")}
	working := &mockBackend{
		name: "working",
		results: []types.SearchResult{
			{URL: "https://a.com", Title: "Page A", Source: "working", Score: 0.9},
		},
	}

	var buf bytes.Buffer
	out, err := Search(context.Background(), Query{Text: "test"}, []Backend{failing, working}, testCfg(), &buf)
	if err != nil {
		t.Fatalf("Search should not fail entirely: %v", err)
	}
	if len(out.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1", len(out.Results))
	}
	if len(out.BackendErrors) != 1 {
		t.Errorf("len(BackendErrors) = %d, want 1", len(out.BackendErrors))
	}
	if !strings.Contains(buf.String(), "warning:") {
		t.Error("output should contain warning about failed backend")
	}
}

func TestSearchDedupAndRank(t *testing.T) {
	backend1 := &mockBackend{
		name: "b1",
		results: []types.SearchResult{
			{URL: "https://a.com", Title: "Page A", Source: "b1", Score: 0.9},
			{URL: "https://c.com", Title: "Page C", Source: "b1", Score: 0.6},
		},
	}
	backend2 := &mockBackend{
		name: "b2",
		results: []types.SearchResult{
			{URL: "https://a.com", Title: "Page A (dup)", Source: "b2", Score: 0.8},
			{URL: "https://b.com", Title: "Page B", Source: "b2", Score: 0.95},
		},
	}

	var buf bytes.Buffer
	out, err := Search(context.Background(), Query{Text: "test"}, []Backend{backend1, backend2}, testCfg(), &buf)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.DupsRemoved != 1 {
		t.Errorf("DupsRemoved = %d, want 1", out.DupsRemoved)
	}
	if len(out.Results) != 3 {
		t.Errorf("len(Results) = %d, want 3", len(out.Results))
	}
	// Results should be sorted by score descending.
	for i := 1; i < len(out.Results); i++ {
		if out.Results[i].Score > out.Results[i-1].Score {
			t.Errorf("results not sorted: [%d].Score=%f > [%d].Score=%f",
				i, out.Results[i].Score, i-1, out.Results[i-1].Score)
		}
	}
}

func TestSearchClampsMaxResults(t *testing.T) {
	var results []types.SearchResult
	for i := 0; i < 30; i++ {
		results = append(results, types.SearchResult{
			URL:    fmt.Sprintf("https://site-%d.com", i),
			Title:  fmt.Sprintf("Page %d", i),
			Source: "mock",
			Score:  1.0 - float64(i)/30.0,
		})
	}

	var buf bytes.Buffer
	out, err := Search(context.Background(), Query{Text: "test", MaxResults: 50},
		[]Backend{&mockBackend{name: "mock", results: results}}, testCfg(), &buf)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Requested 50 but the cap is 10.
	if len(out.Results) != 10 {
		t.Errorf("len(Results) = %d, want 10", len(out.Results))
	}
}

// --- Tavily backend ---

const sampleTavilyJSON = `{
  "query": "golang concurrency",
  "results": [
    {
      "title": "Share Memory By Communicating",
      "url": "https://go.dev/blog/codelab-share",
      "content": "Traditional threading models require programmers to communicate by sharing memory.",
      "score": 0.97
    },
    {
      "title": "Go Concurrency Patterns",
      "url": "https://go.dev/blog/pipelines",
      "content": "Go's concurrency primitives make it easy to construct streaming data pipelines.",
      "score": 0.91
    }
  ]
}`

func TestTavilyBackendSearch(t *testing.T) {
	var gotBody tavilyRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleTavilyJSON)
	}))
	defer ts.Close()

	old := tavilyAPIBase
	tavilyAPIBase = ts.URL
	defer func() { tavilyAPIBase = old }()

	b := &TavilyBackend{Client: ts.Client(), APIKey: "tvly-test"}
	results, err := b.Search(context.Background(), Query{Text: "golang concurrency", MaxResults: 3}, testCfg())
	if err != nil {
		t.Fatalf("TavilyBackend.Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	// Request body carries the key and the fixed search options.
	if gotBody.APIKey != "tvly-test" {
		t.Errorf("request api_key = %q", gotBody.APIKey)
	}
	if gotBody.Query != "golang concurrency" {
		t.Errorf("request query = %q", gotBody.Query)
	}
	if gotBody.MaxResults != 3 {
		t.Errorf("request max_results = %d, want 3", gotBody.MaxResults)
	}
	if gotBody.SearchDepth != "basic" {
		t.Errorf("request search_depth = %q, want basic", gotBody.SearchDepth)
	}
	if gotBody.IncludeAnswer {
		t.Error("request include_answer should be false")
	}

	r := results[0]
	if r.URL != "https://go.dev/blog/codelab-share" {
		t.Errorf("URL = %q", r.URL)
	}
	if r.Title != "Share Memory By Communicating" {
		t.Errorf("Title = %q", r.Title)
	}
	if !strings.Contains(r.Snippet, "threading models") {
		t.Errorf("Snippet = %q", r.Snippet)
	}
	if r.Score != 0.97 {
		t.Errorf("Score = %f, want 0.97", r.Score)
	}
	if r.Source != "tavily" {
		t.Errorf("Source = %q, want %q", r.Source, "tavily")
	}
}

func TestTavilyBackendMissingKey(t *testing.T) {
	b := &TavilyBackend{}
	_, err := b.Search(context.Background(), Query{Text: "test"}, testCfg())
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("expected missing key error, got: %v", err)
	}
}

func TestTavilyBackendHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	old := tavilyAPIBase
	tavilyAPIBase = ts.URL
	defer func() { tavilyAPIBase = old }()

	b := &TavilyBackend{Client: ts.Client(), APIKey: "bad-key"}
	_, err := b.Search(context.Background(), Query{Text: "test"}, testCfg())
	if err == nil || !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("expected HTTP 401 error, got: %v", err)
	}
}

// --- arXiv backend ---

const sampleArxivSearchXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v1</id>
    <title>Attention Is All You Need</title>
    <summary>We propose a new architecture based solely on attention mechanisms.</summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>We introduce BERT.</summary>
  </entry>
</feed>`

func TestArxivBackendSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, sampleArxivSearchXML)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	b := &ArxivBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), Query{Text: "attention"}, testCfg())
	if err != nil {
		t.Fatalf("ArxivBackend.Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	r := results[0]
	if r.URL != "http://arxiv.org/abs/1706.03762v1" {
		t.Errorf("URL = %q, want abstract page", r.URL)
	}
	if r.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", r.Title)
	}
	if !strings.Contains(r.Snippet, "attention mechanisms") {
		t.Errorf("Snippet = %q", r.Snippet)
	}
	if r.Source != "arxiv" {
		t.Errorf("Source = %q, want %q", r.Source, "arxiv")
	}
	if r.Score < 0.0 || r.Score > 1.0 {
		t.Errorf("Score = %f, out of range", r.Score)
	}
	// First entry outranks the second.
	if results[1].Score >= r.Score {
		t.Errorf("position scores not descending: %f then %f", r.Score, results[1].Score)
	}
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"single term", Query{Text: "attention"}, "all:attention"},
		{"multiple terms", Query{Text: "attention mechanisms"}, "all:attention+mechanisms"},
		{"extra whitespace", Query{Text: "  attention   mechanisms "}, "all:attention+mechanisms"},
		{"empty", Query{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildArxivQuery(tt.query)
			if got != tt.want {
				t.Errorf("buildArxivQuery = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Output formatting ---

func TestFormatTable(t *testing.T) {
	out := SearchOutput{
		Results: []types.SearchResult{
			{URL: "https://go.dev/blog/pipelines", Title: "Go Concurrency Patterns", Source: "tavily", Score: 0.91},
		},
		DupsRemoved: 2,
	}

	var buf bytes.Buffer
	FormatTable(out, &buf)
	got := buf.String()

	if !strings.Contains(got, "Go Concurrency Patterns") {
		t.Errorf("table missing title:\n%s", got)
	}
	if !strings.Contains(got, "1 results (2 duplicates removed)") {
		t.Errorf("table missing summary line:\n%s", got)
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(SearchOutput{}, &buf)
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("empty table output = %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	out := SearchOutput{
		Results: []types.SearchResult{
			{URL: "https://a.com", Title: "Page A", Source: "tavily", Score: 0.9},
		},
	}

	var buf bytes.Buffer
	if err := FormatJSON(out, &buf); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var parsed []types.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(parsed) != 1 {
		t.Errorf("len(parsed) = %d, want 1", len(parsed))
	}
	if parsed[0].URL != "https://a.com" {
		t.Errorf("URL = %q", parsed[0].URL)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten chars", 17, "exactly ten chars"},
		{"a very long title that will not fit", 20, "a very long title..."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := truncate(tt.input, tt.max); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}
