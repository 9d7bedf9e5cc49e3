// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation tracks the sources consulted during a research run and
// renders them as a numbered bibliography. A Manager assigns each distinct
// URL a 1-based citation index in first-seen order; adding a URL again
// returns the original index and fills in metadata the first add lacked.
package citation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

var (
	// ErrInvalidSource reports a source that cannot be cited, such as one
	// with an empty URL.
	ErrInvalidSource = errors.New("invalid source")

	// ErrNotFound reports a citation index that has not been assigned.
	ErrNotFound = errors.New("citation not found")
)

const dateFmt = "2006-01-02"

// Manager is a run-scoped citation registry. The zero value is not usable;
// construct with New. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	byURL   map[string]int // URL → assigned index
	entries []types.Source // entries[i] holds index i+1

	now func() time.Time
}

// New returns an empty Manager. Each research run gets its own; indices
// never persist across runs.
func New() *Manager {
	return &Manager{
		byURL: make(map[string]int),
		now:   time.Now,
	}
}

// Add registers a source and returns its citation index. A URL seen before
// keeps its original index; fields the stored entry is missing are filled
// from src, so a page fetch can supply the author a search hit lacked
// without overwriting anything already recorded. The URL is the identity:
// no normalization is applied.
func (m *Manager) Add(src types.Source) (int, error) {
	if strings.TrimSpace(src.URL) == "" {
		return 0, fmt.Errorf("adding source: %w: empty URL", ErrInvalidSource)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.byURL[src.URL]; ok {
		mergeInto(&m.entries[idx-1], src)
		return idx, nil
	}

	if src.AccessedAt.IsZero() {
		src.AccessedAt = m.now()
	}
	m.entries = append(m.entries, src)
	idx := len(m.entries)
	m.byURL[src.URL] = idx
	return idx, nil
}

// mergeInto fills empty fields of dst from src. Existing values always win,
// so the first recorded title survives later adds.
func mergeInto(dst *types.Source, src types.Source) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if dst.Snippet == "" && src.Snippet != "" {
		dst.Snippet = src.Snippet
	}
	if dst.Author == "" && src.Author != "" {
		dst.Author = src.Author
	}
	if dst.PublishedDate == "" && src.PublishedDate != "" {
		dst.PublishedDate = src.PublishedDate
	}
}

// Get returns the source assigned to a citation index.
func (m *Manager) Get(index int) (types.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 1 || index > len(m.entries) {
		return types.Source{}, fmt.Errorf("citation [%d]: %w", index, ErrNotFound)
	}
	return m.entries[index-1], nil
}

// Len returns the number of distinct sources recorded.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sources returns the recorded sources in citation order. The slice is a
// copy; mutating it does not affect the Manager.
func (m *Manager) Sources() []types.Source {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Source, len(m.entries))
	copy(out, m.entries)
	return out
}

// Bibliography returns one formatted line per source in citation order,
// e.g. "[1] Title by Author - https://example.com (Accessed: 2026-08-22)".
// An empty Manager returns nil.
func (m *Manager) Bibliography() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == 0 {
		return nil
	}
	lines := make([]string, len(m.entries))
	for i, src := range m.entries {
		lines[i] = formatLine(i+1, src)
	}
	return lines
}

// Markdown renders the bibliography as a Markdown section headed
// "## Sources". An empty Manager returns the empty string.
func (m *Manager) Markdown() string {
	lines := m.Bibliography()
	if len(lines) == 0 {
		return ""
	}
	return "## Sources\n\n" + strings.Join(lines, "\n")
}

// formatLine renders a single bibliography entry. The title falls back to
// the URL; the author and accessed segments appear only when known.
func formatLine(index int, src types.Source) string {
	parts := []string{fmt.Sprintf("[%d]", index)}

	title := src.Title
	if title == "" {
		title = src.URL
	}
	parts = append(parts, title)

	if src.Author != "" {
		parts = append(parts, "by "+src.Author)
	}
	parts = append(parts, "- "+src.URL)
	if !src.AccessedAt.IsZero() {
		parts = append(parts, fmt.Sprintf("(Accessed: %s)", src.AccessedAt.Format(dateFmt)))
	}
	return strings.Join(parts, " ")
}
