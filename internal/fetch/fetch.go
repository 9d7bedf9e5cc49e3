// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves webpages and extracts readable text and metadata.
// Extraction strips boilerplate elements and walks down a chain of likely
// content containers, so the agent sees article text rather than page chrome.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	defaultMaxContentChars   = 5000
	defaultRequestsPerSecond = 2
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Fetcher retrieves pages with a shared HTTP client. A rate limiter spaces
// outbound requests so batch fetches stay polite.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     types.FetchConfig

	now func() time.Time
}

// New returns a Fetcher using the given configuration.
func New(cfg types.FetchConfig) *Fetcher {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Fetch retrieves url, follows redirects, and extracts the page content.
// Non-2xx responses are errors of the form "HTTP <code>".
func (f *Fetcher) Fetch(ctx context.Context, url string) (*types.WebpageContent, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("URL is empty")
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, f.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}

	maxChars := f.cfg.MaxContentChars
	if maxChars <= 0 {
		maxChars = defaultMaxContentChars
	}

	// Title is read before extractContent strips boilerplate; the metadata
	// tags live in <head> and survive the strip.
	title := extractTitle(doc)
	content := extractContent(doc, maxChars)

	return &types.WebpageContent{
		URL:           url,
		Title:         title,
		Content:       content,
		Author:        extractAuthor(doc),
		PublishedDate: extractPublishedDate(doc),
		ExtractedAt:   f.now(),
	}, nil
}

// extractTitle returns the page title: the <title> tag, then the first
// <h1>, then "Untitled".
func extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "Untitled"
}

// extractContent removes non-content elements, picks a content root, and
// returns its text one line per fragment, capped at maxChars characters.
func extractContent(doc *goquery.Document, maxChars int) string {
	doc.Find("script, style, nav, header, footer, aside").Remove()

	root := contentRoot(doc)
	if root.Length() == 0 {
		return ""
	}

	text := strings.Join(textLines(root), "\n")
	if utf8.RuneCountInString(text) > maxChars {
		runes := []rune(text)
		text = string(runes[:maxChars]) + "..."
	}
	return text
}

// contentRoot picks the most specific content container: <main>, then
// <article>, then the first div whose class mentions "content", then <body>.
func contentRoot(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("main").First(); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("article").First(); sel.Length() > 0 {
		return sel
	}

	var contentDiv *goquery.Selection
	doc.Find("div[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if strings.Contains(strings.ToLower(class), "content") {
			contentDiv = s
			return false
		}
		return true
	})
	if contentDiv != nil {
		return contentDiv
	}
	return doc.Find("body").First()
}

// textLines collects the trimmed text node contents under sel in document
// order, skipping whitespace-only nodes.
func textLines(sel *goquery.Selection) []string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				lines = append(lines, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return lines
}

// extractAuthor reads the author from page metadata.
func extractAuthor(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[name="author"]`).First().Attr("content"); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(doc.Find(`span[itemprop="author"]`).First().Text()); v != "" {
		return v
	}
	return ""
}

// publishedDateSelectors are tried in order; the first non-empty content
// attribute wins.
var publishedDateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="publishdate"]`,
	`meta[name="date"]`,
	`meta[itemprop="datePublished"]`,
}

// extractPublishedDate reads the publication date from page metadata,
// falling back to the first <time> element's datetime attribute. The value
// is returned as the page states it, unparsed.
func extractPublishedDate(doc *goquery.Document) string {
	for _, sel := range publishedDateSelectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	if v, ok := doc.Find("time").First().Attr("datetime"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
