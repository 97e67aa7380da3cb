package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

var ErrNotConfigured = errors.New("search: api key or engine id missing")

// GoogleSearcher queries a Programmable Search Engine.
type GoogleSearcher struct {
	svc      *customsearch.Service
	engineID string
}

func NewGoogleSearcher(ctx context.Context, apiKey, engineID string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(engineID) == "" {
		return nil, ErrNotConfigured
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("search: create service: %w", err)
	}
	return &GoogleSearcher{svc: svc, engineID: engineID}, nil
}

func (g *GoogleSearcher) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if n <= 0 || n > 10 {
		n = 5
	}
	resp, err := g.svc.Cse.List().Cx(g.engineID).Q(query).Num(int64(n)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	out := make([]Result, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, Result{Title: it.Title, Snippet: it.Snippet, Link: it.Link})
	}
	return out, nil
}
