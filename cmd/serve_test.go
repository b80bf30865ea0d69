package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-cli/internal/cost"
	"github.com/sells-group/competitor-cli/internal/model"
	"github.com/sells-group/competitor-cli/internal/pipeline"
	"github.com/sells-group/competitor-cli/internal/scrape"
	"github.com/sells-group/competitor-cli/internal/store"
)

type mockDiscoverer struct {
	mock.Mock
}

func (m *mockDiscoverer) Run(ctx context.Context, runID, rawURL string) (*model.Result, error) {
	args := m.Called(ctx, runID, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Result), args.Error(1)
}

func (m *mockDiscoverer) Variant() pipeline.Variant {
	return pipeline.VariantValidated
}

// memStore is an in-memory run log.
type memStore struct {
	mu   sync.Mutex
	runs []model.Run
}

func (s *memStore) SaveRun(_ context.Context, run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *memStore) GetRun(_ context.Context, id string) (*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == id {
			r := s.runs[i]
			return &r, nil
		}
	}
	return nil, store.ErrRunNotFound
}

func (s *memStore) ListRuns(_ context.Context, _ store.RunFilter) ([]model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Run(nil), s.runs...), nil
}

func (s *memStore) Migrate(context.Context) error { return nil }
func (s *memStore) Close() error                  { return nil }

func (s *memStore) saved() []model.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Run(nil), s.runs...)
}

func newTestEnv(d discoverer) (*pipelineEnv, *memStore) {
	st := &memStore{}
	return &pipelineEnv{
		Store:    st,
		Pipeline: d,
		Recorder: newRunRecorder(st, cost.NewCalculator(cost.DefaultRates()), "claude-haiku-4-5-20251001", "dataforseo"),
	}, st
}

func acmeResult() *model.Result {
	return &model.Result{
		Success: true,
		BusinessInfo: model.BusinessProfile{
			CompanyName: "Acme CRM",
			Industry:    "SaaS",
			Language:    "en",
		},
		Competitors: []model.Competitor{
			{Domain: "hubspot.com", Name: "HubSpot"},
			{Domain: "pipedrive.com", Name: "Pipedrive"},
		},
		Offerings: model.Offering{Services: []string{}, Products: []string{"crm software"}},
		Queries:   []string{"crm software for small business"},
		Usage:     model.Usage{InputTokens: 1_000_000, AICalls: 4, SearchQueries: 5},
	}
}

func postDiscover(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/competitors/discover", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDiscoverHandler_Success(t *testing.T) {
	d := &mockDiscoverer{}
	d.On("Run", mock.Anything, mock.AnythingOfType("string"), "https://acme.com").Return(acmeResult(), nil)
	env, st := newTestEnv(d)
	h := newRouter(env, routerConfig{})

	rec := postDiscover(t, h, `{"url":"https://acme.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["competitors"], 2)
	assert.Contains(t, body, "businessInfo")
	assert.NotContains(t, body, "Usage")

	runs := st.saved()
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, "Acme CRM", runs[0].CompanyName)
	assert.Equal(t, "validated", runs[0].Variant)
	assert.Len(t, runs[0].Competitors, 2)
	assert.InDelta(t, 1.0+5*0.002, runs[0].Cost, 1e-9)
	d.AssertExpectations(t)
}

func TestDiscoverHandler_InvalidURL(t *testing.T) {
	d := &mockDiscoverer{}
	d.On("Run", mock.Anything, mock.Anything, "http://localhost/admin").
		Return(nil, &scrape.InvalidURLError{URL: "http://localhost/admin", Reason: "private host"})
	env, st := newTestEnv(d)
	h := newRouter(env, routerConfig{})

	rec := postDiscover(t, h, `{"url":"http://localhost/admin"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"invalid URL provided"}`, rec.Body.String())

	runs := st.saved()
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusInvalidURL, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestDiscoverHandler_FetchError(t *testing.T) {
	d := &mockDiscoverer{}
	d.On("Run", mock.Anything, mock.Anything, "https://down.example").
		Return(nil, &scrape.FetchError{URL: "https://down.example", Timeout: true})
	env, st := newTestEnv(d)
	h := newRouter(env, routerConfig{})

	rec := postDiscover(t, h, `{"url":"https://down.example"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"could not reach the provided URL"}`, rec.Body.String())
	require.Len(t, st.saved(), 1)
	assert.Equal(t, model.RunStatusFetchError, st.saved()[0].Status)
}

func TestDiscoverHandler_BadBody(t *testing.T) {
	d := &mockDiscoverer{}
	env, st := newTestEnv(d)
	h := newRouter(env, routerConfig{})

	for _, body := range []string{`not json`, `{}`, `{"url":"   "}`} {
		rec := postDiscover(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"success":false,"error":"invalid URL provided"}`, rec.Body.String())
	}
	assert.Empty(t, st.saved())
	d.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscoverHandler_WithoutRecorder(t *testing.T) {
	d := &mockDiscoverer{}
	d.On("Run", mock.Anything, mock.Anything, "https://acme.com").Return(acmeResult(), nil)
	env := &pipelineEnv{Pipeline: d}
	h := newRouter(env, routerConfig{})

	rec := postDiscover(t, h, `{"url":"https://acme.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	env, _ := newTestEnv(&mockDiscoverer{})
	h := newRouter(env, routerConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	env, _ := newTestEnv(&mockDiscoverer{})
	h := newRouter(env, routerConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_CORS(t *testing.T) {
	env, _ := newTestEnv(&mockDiscoverer{})
	h := newRouter(env, routerConfig{origins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/competitors/discover", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	env, _ := newTestEnv(&mockDiscoverer{})
	h := newRouter(env, routerConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/competitors/discover", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRunDiscover_WritesResult(t *testing.T) {
	d := &mockDiscoverer{}
	d.On("Run", mock.Anything, mock.Anything, "https://acme.com").Return(acmeResult(), nil)
	env, st := newTestEnv(d)

	var out bytes.Buffer
	require.NoError(t, runDiscover(context.Background(), env, "https://acme.com", &out))

	var body map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Len(t, st.saved(), 1)
}

func TestRunDiscover_ErrorPrintsBody(t *testing.T) {
	d := &mockDiscoverer{}
	d.On("Run", mock.Anything, mock.Anything, "ftp://acme.com").
		Return(nil, &scrape.InvalidURLError{URL: "ftp://acme.com", Reason: "unsupported scheme"})
	env, _ := newTestEnv(d)

	var out bytes.Buffer
	err := runDiscover(context.Background(), env, "ftp://acme.com", &out)
	require.Error(t, err)
	assert.JSONEq(t, `{"success":false,"error":"invalid URL provided"}`, out.String())
}
