package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/baldionna/baldi/internal/config"
	"github.com/baldionna/baldi/internal/logging"
)

const (
	defaultPages   = 3
	maxPageRunes   = 2000
	fetchesPerSec  = 4
	fetchBurst     = 2
	maxParallelism = 3
)

// Page is a search result with the extracted page text, if any.
type Page struct {
	Result
	Content string
}

// Augmentation is what a search added to a prompt.
type Augmentation struct {
	Query    string
	Answer   string
	Pages    []Page
	Prompt   string
	Duration time.Duration
}

// Augmenter searches the web for a prompt and rewrites it with the results.
type Augmenter struct {
	Searcher Searcher
	Chain    *Chain
	Results  int
	Pages    int
	Limiter  *rate.Limiter
	Log      *zap.Logger
}

// NewAugmenter builds an augmenter from the search configuration.
func NewAugmenter(cfg config.Search) *Augmenter {
	return &Augmenter{
		Searcher: NewSerper(cfg.SerperKey),
		Chain:    NewChain(cfg.JinaKey),
		Results:  cfg.Results,
		Pages:    cfg.Pages,
		Limiter:  rate.NewLimiter(rate.Limit(fetchesPerSec), fetchBurst),
	}
}

func (a *Augmenter) logger() *zap.Logger {
	if a.Log != nil {
		return a.Log
	}
	return logging.L()
}

// Augment searches for prompt, fetches the top pages concurrently and
// returns the rewritten prompt. Extraction failures only leave a page
// without content; a search failure is returned.
func (a *Augmenter) Augment(ctx context.Context, prompt string) (*Augmentation, error) {
	start := time.Now()
	query := strings.TrimSpace(prompt)
	resp, err := a.Searcher.Search(ctx, query, a.Results)
	if err != nil {
		return nil, err
	}

	n := a.Pages
	if n <= 0 {
		n = defaultPages
	}
	if n > len(resp.Organic) {
		n = len(resp.Organic)
	}
	pages := make([]Page, len(resp.Organic))
	for i, r := range resp.Organic {
		pages[i] = Page{Result: r}
	}

	if a.Chain != nil && n > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelism)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				if a.Limiter != nil {
					if err := a.Limiter.Wait(gctx); err != nil {
						return err
					}
				}
				pages[i].Content = clip(a.Chain.Extract(gctx, pages[i].Link), maxPageRunes)
				return nil
			})
		}
		// Only a cancelled context fails the group.
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	aug := &Augmentation{
		Query:  query,
		Answer: answer(resp),
		Pages:  pages,
	}
	aug.Prompt = BuildPrompt(query, aug.Answer, pages)
	aug.Duration = time.Since(start)
	a.logger().Info("prompt augmented",
		zap.Int("results", len(pages)),
		zap.Int("fetched", n),
		zap.Duration("duration", aug.Duration))
	return aug, nil
}

func answer(resp *Response) string {
	if b := resp.AnswerBox; b != nil {
		if b.Answer != "" {
			return b.Answer
		}
		return b.Snippet
	}
	if k := resp.KnowledgeGraph; k != nil && k.Description != "" {
		return fmt.Sprintf("%s: %s", k.Title, k.Description)
	}
	return ""
}

// BuildPrompt formats search results ahead of the user's question.
func BuildPrompt(prompt, answer string, pages []Page) string {
	if len(pages) == 0 && answer == "" {
		return prompt
	}
	var b strings.Builder
	b.WriteString("Web search results:\n\n")
	if answer != "" {
		fmt.Fprintf(&b, "Direct answer: %s\n\n", answer)
	}
	for i, p := range pages {
		fmt.Fprintf(&b, "[%d] %s", i+1, p.Title)
		if p.Date != "" {
			fmt.Fprintf(&b, " (%s)", p.Date)
		}
		fmt.Fprintf(&b, "\nURL: %s\n", p.Link)
		if p.Snippet != "" {
			fmt.Fprintf(&b, "%s\n", p.Snippet)
		}
		if p.Content != "" {
			fmt.Fprintf(&b, "Content: %s\n", p.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString("Using the results above where relevant, and citing the [n] sources you rely on, answer:\n")
	b.WriteString(prompt)
	return b.String()
}

func clip(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
