package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-cli/pkg/dataforseo"
	dfsmocks "github.com/sells-group/competitor-cli/pkg/dataforseo/mocks"
	"github.com/sells-group/competitor-cli/pkg/jina"
)

func TestDataForSEOSearcher(t *testing.T) {
	client := dfsmocks.NewMockClient(t)
	client.On("OrganicSearch", mock.Anything, dataforseo.OrganicRequest{
		Keyword: "crm alternatives", LocationCode: 2840, LanguageCode: "en", Depth: 50,
	}).Return(&dataforseo.OrganicResponse{
		Items: []dataforseo.Item{
			{Type: "organic", RankAbsolute: 3, URL: "https://pipedrive.com/", Title: "Pipedrive", Description: "Sales CRM"},
			{Type: "organic", URL: "https://zoho.com/", Title: "Zoho"},
		},
	}, nil)

	s := &DataForSEOSearcher{Client: client, LocationCode: 2840, LanguageCode: "en", Depth: 50}
	got, err := s.Search(context.Background(), "crm alternatives")
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{
		{URL: "https://pipedrive.com/", Title: "Pipedrive", Snippet: "Sales CRM", Rank: 3},
		{URL: "https://zoho.com/", Title: "Zoho", Rank: 2},
	}, got)
}

func TestDataForSEOSearcher_Error(t *testing.T) {
	client := dfsmocks.NewMockClient(t)
	client.On("OrganicSearch", mock.Anything, mock.Anything).Return(nil, errors.New("dataforseo: unexpected status 401"))

	s := &DataForSEOSearcher{Client: client}
	_, err := s.Search(context.Background(), "q")
	assert.Error(t, err)
}

type stubJina struct {
	resp *jina.SearchResponse
	opts int
}

func (s *stubJina) Search(_ context.Context, _ string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	s.opts = len(opts)
	return s.resp, nil
}

func TestJinaSearcher(t *testing.T) {
	client := &stubJina{resp: &jina.SearchResponse{Data: []jina.SearchResult{
		{URL: "https://a.com", Title: "A", Description: "desc"},
		{URL: "https://b.com", Title: "B", Content: "content fallback"},
	}}}

	s := &JinaSearcher{Client: client, Country: "us", Language: "en"}
	got, err := s.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, client.opts)
	assert.Equal(t, []SearchResult{
		{URL: "https://a.com", Title: "A", Snippet: "desc", Rank: 1},
		{URL: "https://b.com", Title: "B", Snippet: "content fallback", Rank: 2},
	}, got)
}

func TestSearchAll(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q1").Return([]SearchResult{{URL: "https://a.com", Rank: 1}}, nil)
	s.On("Search", mock.Anything, "q2").Return(nil, errors.New("boom"))
	s.On("Search", mock.Anything, "q3").Return([]SearchResult{{URL: "https://b.com", Rank: 1}}, nil)

	got, issued := SearchAll(context.Background(), s, []string{"q1", "q2", "q3", "q4"}, 3, time.Second)
	assert.Equal(t, 3, issued)
	require.Len(t, got, 3)
	assert.Equal(t, "https://a.com", got[0][0].URL)
	assert.Nil(t, got[1])
	assert.Equal(t, "https://b.com", got[2][0].URL)
	s.AssertNotCalled(t, "Search", mock.Anything, "q4")
}

func TestSearchAll_PerQueryTimeout(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "slow").Return(nil, context.DeadlineExceeded).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	})
	s.On("Search", mock.Anything, "fast").Return([]SearchResult{{URL: "https://a.com", Rank: 1}}, nil)

	start := time.Now()
	got, issued := SearchAll(context.Background(), s, []string{"slow", "fast"}, 5, 50*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 2, issued)
	assert.Nil(t, got[0])
	assert.Len(t, got[1], 1)
}

func TestSearchAll_NilSearcher(t *testing.T) {
	got, issued := SearchAll(context.Background(), nil, []string{"q"}, 5, time.Second)
	assert.Nil(t, got)
	assert.Zero(t, issued)
}
