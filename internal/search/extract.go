package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/baldionna/baldi/internal/logging"
)

const (
	jinaURL      = "https://r.jina.ai/"
	jinaTimeout  = 15 * time.Second
	relayURL     = "https://api.allorigins.win/raw?url="
	relayTimeout = 10 * time.Second
	maxPageBytes = 2 << 20
)

// Extractor turns a URL into plain text.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, pageURL string) (string, error)
}

// JinaReader fetches pages through the Jina AI reader proxy, which already
// returns readable text.
type JinaReader struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewJinaReader returns a reader for the public endpoint. The key is optional.
func NewJinaReader(apiKey string) *JinaReader {
	return &JinaReader{BaseURL: jinaURL, APIKey: apiKey, Timeout: jinaTimeout}
}

// Name implements Extractor.
func (j *JinaReader) Name() string { return "jina" }

// Extract implements Extractor.
func (j *JinaReader) Extract(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	headers := map[string]string{"Accept": "text/plain"}
	if j.APIKey != "" {
		headers["Authorization"] = "Bearer " + j.APIKey
	}
	body, err := fetch(ctx, j.HTTPClient, j.BaseURL+pageURL, headers)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// CORSRelay fetches raw HTML through a public CORS relay and reduces it to
// visible text.
type CORSRelay struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewCORSRelay returns a relay for the public allorigins endpoint.
func NewCORSRelay() *CORSRelay {
	return &CORSRelay{BaseURL: relayURL, Timeout: relayTimeout}
}

// Name implements Extractor.
func (c *CORSRelay) Name() string { return "cors-relay" }

// Extract implements Extractor.
func (c *CORSRelay) Extract(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	body, err := fetch(ctx, c.HTTPClient, c.BaseURL+url.QueryEscape(pageURL), nil)
	if err != nil {
		return "", err
	}
	return HTMLText(body)
}

func fetch(ctx context.Context, client *http.Client, target string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// HTMLText returns the visible text of an HTML document: script, style and
// similar elements are dropped and whitespace is collapsed.
func HTMLText(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "svg", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				parts = append(parts, t)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return strings.Join(parts, " "), nil
}

// Chain tries each extractor in order and returns the first non-empty text.
// Failures are logged at debug level and never surfaced; when every
// extractor fails the result is "".
type Chain struct {
	Extractors []Extractor
	Log        *zap.Logger
}

// NewChain returns the default chain: Jina reader, then the CORS relay.
func NewChain(jinaKey string) *Chain {
	return &Chain{Extractors: []Extractor{NewJinaReader(jinaKey), NewCORSRelay()}}
}

// Extract returns the page text or "".
func (c *Chain) Extract(ctx context.Context, pageURL string) string {
	log := c.Log
	if log == nil {
		log = logging.L()
	}
	for _, e := range c.Extractors {
		if ctx.Err() != nil {
			return ""
		}
		text, err := e.Extract(ctx, pageURL)
		if err != nil {
			log.Debug("extractor failed", zap.String("extractor", e.Name()), zap.String("url", pageURL), zap.Error(err))
			continue
		}
		if text != "" {
			return text
		}
	}
	return ""
}
