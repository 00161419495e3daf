package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const maxFetchedContent = 50000

// WebFetchTool fetches a page (documentation, changelogs, error write-ups)
// and returns the readable text with markup stripped.
type WebFetchTool struct {
	UserAgent string
	Client    *http.Client
}

func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *WebFetchTool) Name() string {
	return "web_fetch"
}

func (w *WebFetchTool) Description() string {
	return "Fetch a webpage URL (docs, release notes, articles) and extract the main content as clean text."
}

func (w *WebFetchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The full URL of the page to fetch (e.g., https://pkg.go.dev/net/http)",
			},
		},
		"required": []string{"url"},
	}
}

func (w *WebFetchTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	parsedURL, err := url.Parse(args.URL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", args.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", w.UserAgent)

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %v", err)
	}

	// Strip any surviving markup before the text reaches the transcript.
	sanitized := bluemonday.StrictPolicy().Sanitize(article.TextContent)

	out := fmt.Sprintf("TITLE: %s\n", article.Title)
	if article.Excerpt != "" {
		out += fmt.Sprintf("EXCERPT: %s\n", article.Excerpt)
	}
	out += "\n-- CONTENT --\n"
	if len(sanitized) > maxFetchedContent {
		sanitized = sanitized[:maxFetchedContent] + "\n... (content truncated) ..."
	}
	return out + sanitized, nil
}
