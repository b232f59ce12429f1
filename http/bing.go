package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/websift"
)

// DefaultBingEndpoint is Bing's web search page, queried in RSS format.
const DefaultBingEndpoint = "https://www.bing.com/search"

// Ensure Bing implements websift.SearchService.
var _ websift.SearchService = (*Bing)(nil)

// Bing searches the web through Bing's RSS output.
type Bing struct {
	client   *http.Client
	endpoint string
}

// NewBing creates a Bing search service. If client is nil,
// http.DefaultClient is used. An empty endpoint uses DefaultBingEndpoint.
func NewBing(client *http.Client, endpoint string) *Bing {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultBingEndpoint
	}
	return &Bing{client: client, endpoint: endpoint}
}

// Search returns up to limit results for query.
func (s *Bing) Search(ctx context.Context, query string, limit int) ([]websift.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, websift.Errorf(websift.EINVALID, "search query required")
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid bing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "rss")
	if limit > 0 {
		q.Set("count", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bing search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing search: HTTP %d", resp.StatusCode)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("parse bing rss: %w", err)
	}

	var results []websift.SearchResult
	for _, item := range doc.FindElements("//channel/item") {
		link := strings.TrimSpace(elementText(item, "link"))
		if link == "" {
			continue
		}
		results = append(results, websift.SearchResult{
			URL:     link,
			Title:   strings.TrimSpace(elementText(item, "title")),
			Snippet: strings.TrimSpace(elementText(item, "description")),
			Source:  "bing",
		})
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func elementText(parent *etree.Element, tag string) string {
	if el := parent.SelectElement(tag); el != nil {
		return el.Text()
	}
	return ""
}
