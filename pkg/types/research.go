// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research assistant:
// search results, fetched pages, cited sources, and research run inputs
// and outputs exchanged between the agent, tools, and CLI.
package types

import (
	"fmt"
	"time"
)

// Source is a cited reference discovered during a research run.
type Source struct {
	// URL is the source address and its identity: two sources with the
	// same URL are the same source.
	URL string `json:"url" yaml:"url"`

	// Title is the source title, if known.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Snippet is a short excerpt of the source content.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Author is the source author, if known.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// PublishedDate is the publication date as stated by the source,
	// kept in its original form.
	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// AccessedAt records when the source was first registered.
	AccessedAt time.Time `json:"accessed_at" yaml:"accessed_at"`
}

// WebpageContent is the cleaned text and metadata extracted from a fetched page.
type WebpageContent struct {
	URL           string    `json:"url" yaml:"url"`
	Title         string    `json:"title" yaml:"title"`
	Content       string    `json:"content" yaml:"content"`
	Author        string    `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedDate string    `json:"published_date,omitempty" yaml:"published_date,omitempty"`
	ExtractedAt   time.Time `json:"extracted_at" yaml:"extracted_at"`
}

// ResearchDepth selects how thorough a research run should be.
type ResearchDepth string

const (
	DepthQuick         ResearchDepth = "quick"
	DepthStandard      ResearchDepth = "standard"
	DepthComprehensive ResearchDepth = "comprehensive"
)

// ParseDepth validates a depth name. The empty string means DepthStandard.
func ParseDepth(s string) (ResearchDepth, error) {
	switch ResearchDepth(s) {
	case "":
		return DepthStandard, nil
	case DepthQuick, DepthStandard, DepthComprehensive:
		return ResearchDepth(s), nil
	}
	return "", fmt.Errorf("unknown research depth %q (want quick, standard, or comprehensive)", s)
}

// ResearchQuery is the input to a research run.
type ResearchQuery struct {
	// Query is the research topic or question.
	Query string `json:"query" yaml:"query"`

	// Depth selects the research depth (default standard).
	Depth ResearchDepth `json:"depth" yaml:"depth"`

	// MaxSources is the target number of sources to consult (default 5, clamped to 1-20).
	MaxSources int `json:"max_sources" yaml:"max_sources"`
}

// Normalize applies defaults and clamps MaxSources into its valid range.
func (q *ResearchQuery) Normalize() {
	if q.Depth == "" {
		q.Depth = DepthStandard
	}
	switch {
	case q.MaxSources == 0:
		q.MaxSources = 5
	case q.MaxSources < 1:
		q.MaxSources = 1
	case q.MaxSources > 20:
		q.MaxSources = 20
	}
}

// ResearchResult is the output of a completed research run.
type ResearchResult struct {
	// Query echoes the research topic.
	Query string `json:"query" yaml:"query"`

	// Depth echoes the research depth used.
	Depth ResearchDepth `json:"depth" yaml:"depth"`

	// Summary is the final answer, including the rendered source list.
	Summary string `json:"summary" yaml:"summary"`

	// Sources lists the cited sources in citation order.
	Sources []Source `json:"sources" yaml:"sources"`

	// Iterations is the number of chat-completion rounds the run took.
	Iterations int `json:"iterations" yaml:"iterations"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Timestamp records when the run started.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
