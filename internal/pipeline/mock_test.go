package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/competitor-cli/internal/scrape"
)

// --- Completer Mock ---

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(CompletionRequest) (*Completion, error)); ok {
		return fn(req)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Completion), args.Error(1)
}

func stage(name string) any {
	return mock.MatchedBy(func(req CompletionRequest) bool { return req.Stage == name })
}

func reply(text string) *Completion {
	return &Completion{Text: text}
}

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SearchResult), args.Error(1)
}

// --- Fetcher Fake ---

var errNotFound = errors.New("not found")

// fakeFetcher serves canned pages by exact URL and records what was
// requested.
type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string]*scrape.Page
	requested []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]*scrape.Page)}
}

func (f *fakeFetcher) add(rawURL, html string) *fakeFetcher {
	f.pages[rawURL] = &scrape.Page{URL: rawURL, StatusCode: 200, HTML: html}
	return f
}

func (f *fakeFetcher) FetchWithTimeout(_ context.Context, rawURL string, _ time.Duration) (*scrape.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, rawURL)
	if p, ok := f.pages[rawURL]; ok {
		return p, nil
	}
	return nil, &scrape.FetchError{URL: rawURL, StatusCode: 404, Err: errNotFound}
}

func (f *fakeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requested...)
}
