// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	URL      string    `yaml:"URL"`
	Issued   *CSLDate  `yaml:"issued,omitempty"`
	Accessed *CSLDate  `yaml:"accessed,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format, either structured date-parts or
// a raw string for dates kept as the source stated them.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts,omitempty"`
	Raw       string  `yaml:"raw,omitempty"`
}

// FormatCSL writes the recorded sources as a CSL-YAML list to w.
func FormatCSL(m *Manager, w io.Writer) error {
	sources := m.Sources()
	items := make([]CSLItem, len(sources))
	for i, s := range sources {
		items[i] = toCSLItem(i+1, s)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a recorded source to a CSLItem keyed by its index.
func toCSLItem(index int, s types.Source) CSLItem {
	title := s.Title
	if title == "" {
		title = s.URL
	}
	item := CSLItem{
		ID:    fmt.Sprintf("source%d", index),
		Type:  "webpage",
		Title: title,
		URL:   s.URL,
	}

	if s.Author != "" {
		item.Author = append(item.Author, parseAuthorName(s.Author))
	}
	if s.PublishedDate != "" {
		item.Issued = &CSLDate{Raw: s.PublishedDate}
	}
	if !s.AccessedAt.IsZero() {
		item.Accessed = &CSLDate{
			DateParts: [][]int{{s.AccessedAt.Year(), int(s.AccessedAt.Month()), s.AccessedAt.Day()}},
		}
	}
	return item
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

// yearRe finds a four-digit year inside a free-form date string.
var yearRe = regexp.MustCompile(`\b(\d{4})\b`)

// FormatBibTeX writes the recorded sources as BibTeX @misc entries to w.
func FormatBibTeX(m *Manager, w io.Writer) error {
	var b strings.Builder
	for i, s := range m.Sources() {
		fmt.Fprintf(&b, "@misc{source%d,\n", i+1)

		title := s.Title
		if title == "" {
			title = s.URL
		}
		fmt.Fprintf(&b, "  title = {%s},\n", title)
		if s.Author != "" {
			fmt.Fprintf(&b, "  author = {%s},\n", s.Author)
		}
		if year := yearRe.FindString(s.PublishedDate); year != "" {
			fmt.Fprintf(&b, "  year = {%s},\n", year)
		}
		fmt.Fprintf(&b, "  howpublished = {\\url{%s}},\n", s.URL)
		if !s.AccessedAt.IsZero() {
			fmt.Fprintf(&b, "  note = {Accessed: %s},\n", s.AccessedAt.Format(dateFmt))
		}
		fmt.Fprintf(&b, "}\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
