package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	webpageFetchTimeout = 15 * time.Second
	// maxCrawlPages bounds a subpage crawl so one ingestion request cannot
	// walk an entire site.
	maxCrawlPages   = 25
	maxWebpageBytes = 5 << 20
)

// WebpageResult is the extracted text of one fetched page.
type WebpageResult struct {
	URL      string
	Content  string
	Metadata map[string]any
}

// WebpageFetcher fetches and extracts webpages. It keeps its own HTTP client
// so callers control timeouts in one place.
type WebpageFetcher struct {
	client *http.Client
}

func NewWebpageFetcher() *WebpageFetcher {
	return &WebpageFetcher{client: &http.Client{Timeout: webpageFetchTimeout}}
}

// Fetch retrieves pageURL and returns its visible text. With crawlSubpages
// set it follows same-origin links breadth-first, up to maxCrawlPages pages,
// returning one result per successfully fetched page. Individual subpage
// failures are skipped; only a failing root page is an error.
func (f *WebpageFetcher) Fetch(ctx context.Context, pageURL string, crawlSubpages bool) ([]*WebpageResult, error) {
	root, err := url.Parse(pageURL)
	if err != nil || root.Scheme == "" || root.Host == "" {
		return nil, fmt.Errorf("invalid webpage url %q", pageURL)
	}

	text, links, err := f.fetchPage(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", root, err)
	}
	results := []*WebpageResult{pageResult(root, text)}
	if !crawlSubpages {
		return results, nil
	}

	visited := map[string]bool{normalizeURL(root): true}
	queue := sameOriginLinks(root, links, visited)
	for len(queue) > 0 && len(results) < maxCrawlPages {
		next := queue[0]
		queue = queue[1:]

		text, links, err := f.fetchPage(ctx, next)
		if err != nil {
			continue
		}
		results = append(results, pageResult(next, text))
		// Relative hrefs resolve against the page they appeared on, not
		// the crawl root.
		queue = append(queue, sameOriginLinks(next, links, visited)...)
	}
	return results, nil
}

func pageResult(u *url.URL, text string) *WebpageResult {
	return &WebpageResult{
		URL:     u.String(),
		Content: text,
		Metadata: map[string]any{
			"url":  u.String(),
			"host": u.Host,
		},
	}
}

func (f *WebpageFetcher) fetchPage(ctx context.Context, u *url.URL) (string, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return "", nil, fmt.Errorf("unsupported content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebpageBytes))
	if err != nil {
		return "", nil, err
	}
	return ParseHTML(body)
}

// ParseHTML extracts the visible text and hyperlinks from an HTML document.
// Script, style, and other non-content elements are skipped.
func ParseHTML(body []byte) (string, []string, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg", "head":
				return
			case "a":
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						links = append(links, attr.Val)
					}
				}
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				text.WriteString(t)
				text.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(text.String()), links, nil
}

// sameOriginLinks resolves raw hrefs against the page they were found on,
// keeps those on the same host, and filters out fragments and
// already-visited pages.
func sameOriginLinks(base *url.URL, hrefs []string, visited map[string]bool) []*url.URL {
	var out []*url.URL
	for _, href := range hrefs {
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host || (resolved.Scheme != "http" && resolved.Scheme != "https") {
			continue
		}
		resolved.Fragment = ""
		key := normalizeURL(resolved)
		if visited[key] {
			continue
		}
		visited[key] = true
		out = append(out, resolved)
	}
	return out
}

func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return strings.TrimSuffix(c.String(), "/")
}
