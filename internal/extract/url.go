package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// fetchURL downloads a page and reduces it to visible text. Non-HTML
// responses are returned as-is.
func (e *Extractor) fetchURL(ctx context.Context, rawURL string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetching %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("fetching %q: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return Result{}, fmt.Errorf("reading %q: %w", rawURL, err)
	}

	meta := map[string]string{"format": "url", "url": rawURL}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		content := strings.TrimSpace(string(body))
		if content == "" {
			return Result{}, fmt.Errorf("url %q returned no content", rawURL)
		}
		return Result{Content: content, Metadata: meta}, nil
	}

	text, title, err := htmlToText(body)
	if err != nil {
		return Result{}, fmt.Errorf("parsing html from %q: %w", rawURL, err)
	}
	if text == "" {
		return Result{}, fmt.Errorf("url %q contains no visible text", rawURL)
	}
	if title != "" {
		meta["title"] = title
	}
	return Result{Content: text, Metadata: meta}, nil
}

// htmlToText walks the parse tree collecting visible text nodes, skipping
// script, style, and other non-content elements. It also returns the page
// title when present.
func htmlToText(body []byte) (string, string, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", "", err
	}

	var sb strings.Builder
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head", "iframe", "svg":
				if n.Data == "head" {
					title = findTitle(n)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return sb.String(), title, nil
}

func findTitle(head *html.Node) string {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "title" && c.FirstChild != nil {
			return strings.TrimSpace(c.FirstChild.Data)
		}
	}
	return ""
}
