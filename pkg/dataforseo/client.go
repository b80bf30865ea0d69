// Package dataforseo is a client for the DataForSEO SERP API (live Google
// organic results).
package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.dataforseo.com"
	organicPath    = "/v3/serp/google/organic/live/advanced"

	statusOK = 20000
)

// Client performs DataForSEO SERP operations.
type Client interface {
	OrganicSearch(ctx context.Context, req OrganicRequest) (*OrganicResponse, error)
}

// OrganicRequest is a single live organic SERP task.
type OrganicRequest struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	Depth        int    `json:"depth,omitempty"`
}

// OrganicResponse holds the organic items of a SERP task.
type OrganicResponse struct {
	Keyword string
	Cost    float64
	Items   []Item
}

// Item is one SERP element. Only items with Type "organic" are returned by
// OrganicSearch.
type Item struct {
	Type         string `json:"type"`
	RankGroup    int    `json:"rank_group"`
	RankAbsolute int    `json:"rank_absolute"`
	Domain       string `json:"domain"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
}

type apiResponse struct {
	StatusCode    int       `json:"status_code"`
	StatusMessage string    `json:"status_message"`
	Cost          float64   `json:"cost"`
	Tasks         []apiTask `json:"tasks"`
}

type apiTask struct {
	StatusCode    int         `json:"status_code"`
	StatusMessage string      `json:"status_message"`
	Cost          float64     `json:"cost"`
	Result        []apiResult `json:"result"`
}

type apiResult struct {
	Keyword string `json:"keyword"`
	Items   []Item `json:"items"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles requests to qps per second. Zero disables throttling.
func WithRateLimit(qps float64) Option {
	return func(c *httpClient) {
		if qps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

type httpClient struct {
	login    string
	password string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a DataForSEO client authenticated with login/password
// basic auth.
func NewClient(login, password string, opts ...Option) Client {
	c := &httpClient{
		login:    login,
		password: password,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) OrganicSearch(ctx context.Context, req OrganicRequest) (*OrganicResponse, error) {
	if strings.TrimSpace(req.Keyword) == "" {
		return nil, eris.New("dataforseo: empty keyword")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "dataforseo: rate limit wait")
		}
	}

	body, err := json.Marshal([]OrganicRequest{req})
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+organicPath, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.login, c.password)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("dataforseo: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "dataforseo: unmarshal response")
	}
	if result.StatusCode != statusOK {
		return nil, eris.Errorf("dataforseo: api status %d: %s", result.StatusCode, result.StatusMessage)
	}
	if len(result.Tasks) == 0 {
		return nil, eris.New("dataforseo: response has no tasks")
	}

	task := result.Tasks[0]
	if task.StatusCode != statusOK {
		return nil, eris.Errorf("dataforseo: task status %d: %s", task.StatusCode, task.StatusMessage)
	}

	out := &OrganicResponse{Keyword: req.Keyword, Cost: task.Cost}
	for _, r := range task.Result {
		for _, item := range r.Items {
			if item.Type == "organic" {
				out.Items = append(out.Items, item)
			}
		}
	}
	return out, nil
}
