package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitor-cli/pkg/dataforseo"
	"github.com/sells-group/competitor-cli/pkg/jina"
)

// SearchResult is one organic search hit. Rank is 1-based.
type SearchResult struct {
	URL     string
	Title   string
	Snippet string
	Rank    int
}

// Searcher runs a single web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// DataForSEOSearcher adapts the DataForSEO organic SERP client.
type DataForSEOSearcher struct {
	Client       dataforseo.Client
	LocationCode int
	LanguageCode string
	Depth        int
}

// Search implements Searcher.
func (s *DataForSEOSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	resp, err := s.Client.OrganicSearch(ctx, dataforseo.OrganicRequest{
		Keyword:      query,
		LocationCode: s.LocationCode,
		LanguageCode: s.LanguageCode,
		Depth:        s.Depth,
	})
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(resp.Items))
	for i, item := range resp.Items {
		rank := item.RankAbsolute
		if rank <= 0 {
			rank = i + 1
		}
		out = append(out, SearchResult{
			URL:     item.URL,
			Title:   item.Title,
			Snippet: item.Description,
			Rank:    rank,
		})
	}
	return out, nil
}

// JinaSearcher adapts the Jina search client.
type JinaSearcher struct {
	Client   jina.Client
	Country  string
	Language string
	Count    int
}

// Search implements Searcher.
func (s *JinaSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var opts []jina.SearchOption
	if s.Country != "" {
		opts = append(opts, jina.WithCountry(s.Country))
	}
	if s.Language != "" {
		opts = append(opts, jina.WithLanguage(s.Language))
	}
	if s.Count > 0 {
		opts = append(opts, jina.WithCount(s.Count))
	}

	resp, err := s.Client.Search(ctx, query, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(resp.Data))
	for i, r := range resp.Data {
		snippet := r.Description
		if snippet == "" {
			snippet = truncate(r.Content, 300)
		}
		out = append(out, SearchResult{URL: r.URL, Title: r.Title, Snippet: snippet, Rank: i + 1})
	}
	return out, nil
}

// SearchAll issues up to maxQueries queries concurrently, each with its own
// timeout. Slot i of the result holds the hits for queries[i]; a failed or
// cancelled query leaves its slot empty. It returns the number of queries
// issued.
func SearchAll(ctx context.Context, s Searcher, queries []string, maxQueries int, timeout time.Duration) ([][]SearchResult, int) {
	if s == nil {
		return nil, 0
	}
	if maxQueries > 0 && len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}

	results := make([][]SearchResult, len(queries))
	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			qctx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				qctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			hits, err := s.Search(qctx, q)
			if err != nil {
				searchQueries.WithLabelValues("error").Inc()
				zap.L().Warn("pipeline: search query failed", zap.String("query", q), zap.Error(err))
				return nil
			}
			searchQueries.WithLabelValues("ok").Inc()
			results[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	return results, len(queries)
}
