// Package search augments prompts with web results: a Serper search client,
// a chain of best-effort page extractors and the prompt builder.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baldionna/baldi/internal/logging"
)

const (
	serperURL      = "https://google.serper.dev/search"
	serperTimeout  = 15 * time.Second
	defaultResults = 5
	maxErrorBody   = 2048
)

// ErrNoAPIKey is returned when a search is attempted without a Serper key.
var ErrNoAPIKey = errors.New("search: no Serper API key configured")

// Result is one ranked organic result.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Date    string `json:"date,omitempty"`
}

// AnswerBox is the direct answer Serper returns for some queries.
type AnswerBox struct {
	Title   string `json:"title,omitempty"`
	Answer  string `json:"answer,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Link    string `json:"link,omitempty"`
}

// KnowledgeGraph is the entity panel Serper returns for some queries.
type KnowledgeGraph struct {
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
}

// Response is the decoded search response.
type Response struct {
	Organic        []Result        `json:"organic"`
	AnswerBox      *AnswerBox      `json:"answerBox,omitempty"`
	KnowledgeGraph *KnowledgeGraph `json:"knowledgeGraph,omitempty"`
}

// Searcher returns ranked results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, num int) (*Response, error)
}

// Serper queries the Serper Google search API.
type Serper struct {
	APIKey     string
	URL        string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// NewSerper returns a client for the public Serper endpoint.
func NewSerper(apiKey string) *Serper {
	return &Serper{
		APIKey:     apiKey,
		URL:        serperURL,
		HTTPClient: &http.Client{Timeout: serperTimeout},
	}
}

// Search implements Searcher.
func (s *Serper) Search(ctx context.Context, query string, num int) (*Response, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if num <= 0 {
		num = defaultResults
	}

	body, err := json.Marshal(map[string]any{"q": query, "num": num})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	log := s.Log
	if log == nil {
		log = logging.L()
	}
	log.Debug("searching", zap.String("query", query), zap.Int("num", num))

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	log.Debug("search results", zap.Int("organic", len(out.Organic)))
	return &out, nil
}
