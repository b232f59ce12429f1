package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/websift"
)

// DefaultDuckDuckGoEndpoint is the HTML-only DuckDuckGo search page.
const DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// Ensure DuckDuckGo implements websift.SearchService.
var _ websift.SearchService = (*DuckDuckGo)(nil)

// DuckDuckGo searches the web through DuckDuckGo's HTML endpoint.
type DuckDuckGo struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

// NewDuckDuckGo creates a DuckDuckGo search service. If client is nil,
// http.DefaultClient is used. An empty endpoint uses
// DefaultDuckDuckGoEndpoint.
func NewDuckDuckGo(client *http.Client, endpoint string) *DuckDuckGo {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoEndpoint
	}
	return &DuckDuckGo{client: client, endpoint: endpoint, userAgent: DefaultUserAgent}
}

// Search returns up to limit organic results for query.
func (s *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]websift.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, websift.Errorf(websift.EINVALID, "search query required")
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo search: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo results: %w", err)
	}

	var results []websift.SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("result--ad") {
			return true
		}
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveDuckDuckGoLink(href)
		if target == "" {
			return true
		}
		results = append(results, websift.SearchResult{
			URL:     target,
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
			Source:  "duckduckgo",
		})
		return limit <= 0 || len(results) < limit
	})

	return results, nil
}

// resolveDuckDuckGoLink unwraps DuckDuckGo's redirect links
// (//duckduckgo.com/l/?uddg=<target>) and returns absolute http(s) targets.
func resolveDuckDuckGoLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		u, err = url.Parse(target)
		if err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
