// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)
}

func newTestManager() *Manager {
	m := New()
	m.now = fixedClock
	return m
}

// --- Adding sources ---

func TestAddAssignsSequentialIndices(t *testing.T) {
	m := newTestManager()

	for i, url := range []string{"https://a.com", "https://b.com", "https://c.com"} {
		idx, err := m.Add(types.Source{URL: url})
		if err != nil {
			t.Fatalf("Add(%s) error: %v", url, err)
		}
		if idx != i+1 {
			t.Errorf("Add(%s) index = %d, want %d", url, idx, i+1)
		}
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestAddDuplicateKeepsFirstIndex(t *testing.T) {
	m := newTestManager()

	first, err := m.Add(types.Source{URL: "https://a.com", Title: "A"})
	if err != nil {
		t.Fatalf("first Add error: %v", err)
	}
	if _, err := m.Add(types.Source{URL: "https://b.com", Title: "B"}); err != nil {
		t.Fatalf("second Add error: %v", err)
	}

	again, err := m.Add(types.Source{URL: "https://a.com", Title: "A duplicate"})
	if err != nil {
		t.Fatalf("duplicate Add error: %v", err)
	}
	if again != first {
		t.Errorf("duplicate Add index = %d, want %d", again, first)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	got, err := m.Get(1)
	if err != nil {
		t.Fatalf("Get(1) error: %v", err)
	}
	if got.Title != "A" {
		t.Errorf("Get(1).Title = %q, want %q (first title wins)", got.Title, "A")
	}

	bib := m.Bibliography()
	if len(bib) != 2 {
		t.Fatalf("len(bibliography) = %d, want 2", len(bib))
	}
	if !strings.Contains(bib[0], "a.com") || !strings.Contains(bib[1], "b.com") {
		t.Errorf("bibliography order wrong: %v", bib)
	}
}

func TestAddEmptyURL(t *testing.T) {
	m := newTestManager()

	for _, url := range []string{"", "   ", "\t\n"} {
		if _, err := m.Add(types.Source{URL: url, Title: "No address"}); !errors.Is(err, ErrInvalidSource) {
			t.Errorf("Add(%q) error = %v, want ErrInvalidSource", url, err)
		}
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after rejected adds, want 0", m.Len())
	}
}

func TestAddDuplicateFillsMissingFields(t *testing.T) {
	m := newTestManager()

	// A search hit records the URL with a title but no author or date.
	if _, err := m.Add(types.Source{URL: "https://a.com", Title: "A", Snippet: "from search"}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	// A later fetch of the same page supplies author and date.
	if _, err := m.Add(types.Source{
		URL:           "https://a.com",
		Title:         "A, but fetched",
		Author:        "Ada Lovelace",
		PublishedDate: "2026-01-15",
	}); err != nil {
		t.Fatalf("duplicate Add error: %v", err)
	}

	got, err := m.Get(1)
	if err != nil {
		t.Fatalf("Get(1) error: %v", err)
	}
	if got.Title != "A" {
		t.Errorf("Title = %q, want original %q", got.Title, "A")
	}
	if got.Snippet != "from search" {
		t.Errorf("Snippet = %q, want original kept", got.Snippet)
	}
	if got.Author != "Ada Lovelace" {
		t.Errorf("Author = %q, want filled from second add", got.Author)
	}
	if got.PublishedDate != "2026-01-15" {
		t.Errorf("PublishedDate = %q, want filled from second add", got.PublishedDate)
	}
}

// --- Lookup ---

func TestGetUnassignedIndex(t *testing.T) {
	m := newTestManager()

	for _, idx := range []int{99, 0, -1, 1} {
		if _, err := m.Get(idx); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%d) on empty manager error = %v, want ErrNotFound", idx, err)
		}
	}

	if _, err := m.Add(types.Source{URL: "https://a.com"}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if _, err := m.Get(1); err != nil {
		t.Errorf("Get(1) error = %v, want nil", err)
	}
	if _, err := m.Get(2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(2) error = %v, want ErrNotFound", err)
	}
}

// --- Bibliography rendering ---

func TestBibliographyMatchesDistinctURLs(t *testing.T) {
	m := newTestManager()

	urls := []string{
		"https://a.com", "https://b.com", "https://a.com",
		"https://c.com", "https://b.com", "https://a.com",
	}
	distinct := make(map[string]bool)
	for _, u := range urls {
		if _, err := m.Add(types.Source{URL: u}); err != nil {
			t.Fatalf("Add(%s) error: %v", u, err)
		}
		distinct[u] = true
	}

	if got := len(m.Bibliography()); got != len(distinct) {
		t.Errorf("len(bibliography) = %d, want %d distinct URLs", got, len(distinct))
	}
	if m.Len() != len(distinct) {
		t.Errorf("Len() = %d, want %d", m.Len(), len(distinct))
	}
}

func TestBibliographyEmpty(t *testing.T) {
	m := newTestManager()
	if bib := m.Bibliography(); len(bib) != 0 {
		t.Errorf("empty manager bibliography = %v, want empty", bib)
	}
	if md := m.Markdown(); md != "" {
		t.Errorf("empty manager Markdown() = %q, want empty string", md)
	}
}

func TestFormatLine(t *testing.T) {
	accessed := fixedClock()
	tests := []struct {
		name string
		src  types.Source
		want string
	}{
		{
			name: "full entry",
			src: types.Source{
				URL:        "https://example.com/post",
				Title:      "Example Post",
				Author:     "Ada Lovelace",
				AccessedAt: accessed,
			},
			want: "[1] Example Post by Ada Lovelace - https://example.com/post (Accessed: 2026-08-22)",
		},
		{
			name: "no author",
			src: types.Source{
				URL:        "https://example.com/post",
				Title:      "Example Post",
				AccessedAt: accessed,
			},
			want: "[1] Example Post - https://example.com/post (Accessed: 2026-08-22)",
		},
		{
			name: "no title falls back to URL",
			src: types.Source{
				URL:        "https://example.com/post",
				AccessedAt: accessed,
			},
			want: "[1] https://example.com/post - https://example.com/post (Accessed: 2026-08-22)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLine(1, tt.src); got != tt.want {
				t.Errorf("formatLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdownRendering(t *testing.T) {
	m := newTestManager()
	if _, err := m.Add(types.Source{URL: "https://a.com", Title: "A"}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if _, err := m.Add(types.Source{URL: "https://b.com", Title: "B"}); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	got := m.Markdown()
	want := "## Sources\n\n" +
		"[1] A - https://a.com (Accessed: 2026-08-22)\n" +
		"[2] B - https://b.com (Accessed: 2026-08-22)"
	if got != want {
		t.Errorf("Markdown() = %q, want %q", got, want)
	}
}

// --- Concurrency ---

func TestAddConcurrent(t *testing.T) {
	m := newTestManager()

	// Many goroutines race to add a mix of shared and unique URLs. Every
	// distinct URL must end up with exactly one index.
	const workers = 40
	var wg sync.WaitGroup
	indices := make([]int, workers)
	urls := make([]string, workers)
	for i := 0; i < workers; i++ {
		urls[i] = fmt.Sprintf("https://site-%d.com", i%10)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := m.Add(types.Source{URL: urls[i]})
			if err != nil {
				t.Errorf("Add(%s) error: %v", urls[i], err)
				return
			}
			indices[i] = idx
		}(i)
	}
	wg.Wait()

	if m.Len() != 10 {
		t.Errorf("Len() = %d, want 10 distinct URLs", m.Len())
	}
	// The same URL must have received the same index everywhere.
	byURL := make(map[string]int)
	for i, u := range urls {
		if prev, ok := byURL[u]; ok && prev != indices[i] {
			t.Errorf("URL %s got indices %d and %d", u, prev, indices[i])
		}
		byURL[u] = indices[i]
	}
	// Every assigned index resolves back to its URL.
	for u, idx := range byURL {
		src, err := m.Get(idx)
		if err != nil {
			t.Errorf("Get(%d) error: %v", idx, err)
			continue
		}
		if src.URL != u {
			t.Errorf("Get(%d).URL = %s, want %s", idx, src.URL, u)
		}
	}
}

// --- Marker scanning ---

func TestMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"no markers", "plain text without citations", nil},
		{"single", "Go was announced in 2009 [1].", []int{1}},
		{"repeat keeps first appearance", "claim [2] then [1] then [2] again", []int{2, 1}},
		{"multi digit", "see [12] and [3]", []int{12, 3}},
		{"zero is reported", "odd marker [0] here", []int{0}},
		{"ignores non-numeric brackets", "[note] and [TODO] but [4]", []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Markers(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Markers(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Markers(%q)[%d] = %d, want %d", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}
