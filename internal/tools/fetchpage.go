// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/internal/citation"
	"github.com/pdiddy/research-assistant/internal/fetch"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const fetchWebpageParams = `{
	"type": "object",
	"properties": {
		"url": {
			"type": "string",
			"description": "The URL of the webpage to fetch"
		}
	},
	"required": ["url"]
}`

// snippetChars bounds how much page content goes into a citation snippet.
const snippetChars = 200

// FetchWebpage retrieves a page, extracts its readable content, and
// registers the page as a citation source.
type FetchWebpage struct {
	fetcher   *fetch.Fetcher
	citations *citation.Manager
}

// NewFetchWebpage returns a fetch_webpage tool.
func NewFetchWebpage(fetcher *fetch.Fetcher, citations *citation.Manager) *FetchWebpage {
	return &FetchWebpage{fetcher: fetcher, citations: citations}
}

func (t *FetchWebpage) Definition() Definition {
	return Definition{
		Name:        "fetch_webpage",
		Description: "Fetch and extract the main content from a webpage. Retrieves the page and extracts the title and main text, removing navigation, ads, scripts, and other non-content elements.",
		Parameters:  json.RawMessage(fetchWebpageParams),
	}
}

type fetchSuccessEnvelope struct {
	Success       bool   `json:"success"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Author        string `json:"author,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	ExtractedAt   string `json:"extracted_at"`
	Citation      int    `json:"citation"`
}

type fetchErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	URL     string `json:"url,omitempty"`
}

func (t *FetchWebpage) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		URL string `json:"url"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return marshalEnvelope(fetchErrorEnvelope{Error: "invalid arguments: " + err.Error()})
		}
	}
	if strings.TrimSpace(params.URL) == "" {
		return marshalEnvelope(fetchErrorEnvelope{Error: "URL cannot be empty"})
	}

	page, err := t.fetcher.Fetch(ctx, params.URL)
	if err != nil {
		return marshalEnvelope(fetchErrorEnvelope{
			Error: fetchErrorMessage(err),
			URL:   params.URL,
		})
	}

	idx, err := t.citations.Add(types.Source{
		URL:           page.URL,
		Title:         page.Title,
		Snippet:       snippet(page.Content),
		Author:        page.Author,
		PublishedDate: page.PublishedDate,
	})
	if err != nil {
		return marshalEnvelope(fetchErrorEnvelope{Error: err.Error(), URL: params.URL})
	}

	return marshalEnvelope(fetchSuccessEnvelope{
		Success:       true,
		URL:           page.URL,
		Title:         page.Title,
		Content:       page.Content,
		Author:        page.Author,
		PublishedDate: page.PublishedDate,
		ExtractedAt:   page.ExtractedAt.Format(time.RFC3339),
		Citation:      idx,
	})
}

// fetchErrorMessage maps fetch failures onto the short messages the model
// is prompted to expect.
func fetchErrorMessage(err error) string {
	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	if isTimeout(err) {
		return "Request timeout"
	}
	return err.Error()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// snippet returns the leading portion of content used for bibliography
// entries.
func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetChars {
		return content
	}
	return string(runes[:snippetChars])
}
