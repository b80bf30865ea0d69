// Package scrape fetches web pages for the discovery pipeline under a hard
// timeout, refusing loopback and private-network targets.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 2 << 20
	// DefaultUserAgent mimics a current desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxRedirects = 5
)

// FetchError is returned when a page cannot be retrieved: the connection
// failed, the deadline passed, or the server answered with a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("scrape: fetch %s: timed out", e.URL)
	case e.StatusCode != 0:
		return fmt.Sprintf("scrape: fetch %s: status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("scrape: fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("scrape: fetch %s: failed", e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Page is a fetched HTML document.
type Page struct {
	URL        string // final URL after redirects
	StatusCode int
	HTML       string
	Blocked    bool
	BlockType  BlockType
}

// Fetcher retrieves pages over plain HTTP(S). It never retries.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	maxBody   int64
	userAgent string
	guard     HostGuard
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the default per-fetch timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodyBytes caps how many body bytes are read.
func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHostGuard replaces the host check applied to every URL, redirect and
// dialed address.
func WithHostGuard(g HostGuard) FetcherOption {
	return func(f *Fetcher) { f.guard = g }
}

// NewFetcher creates a Fetcher with browser-like defaults.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultTimeout,
		maxBody:   DefaultMaxBodyBytes,
		userAgent: DefaultUserAgent,
		guard:     CheckHost,
	}
	for _, o := range opts {
		o(f)
	}
	f.client = &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
				Control: f.checkDial,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			MaxIdleConnsPerHost:   4,
		},
		CheckRedirect: f.checkRedirect,
	}
	return f
}

// Timeout returns the default per-fetch timeout.
func (f *Fetcher) Timeout() time.Duration { return f.timeout }

// Validate applies the scheme and host checks without fetching.
func (f *Fetcher) Validate(rawURL string) error {
	_, err := ValidateURL(rawURL, f.guard)
	return err
}

// Fetch retrieves rawURL under the default timeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	return f.FetchWithTimeout(ctx, rawURL, f.timeout)
}

// FetchWithTimeout retrieves rawURL under the given timeout. It returns
// *InvalidURLError for refused URLs and *FetchError for transport failures,
// timeouts and non-2xx responses.
func (f *Fetcher) FetchWithTimeout(ctx context.Context, rawURL string, timeout time.Duration) (*Page, error) {
	u, err := ValidateURL(rawURL, f.guard)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: eris.Wrap(err, "scrape: create request")}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Timeout: isTimeout(ctx, err), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Timeout: isTimeout(ctx, err), Err: eris.Wrap(err, "scrape: read body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	blocked, blockType := DetectBlock(resp, body)
	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       decodeBody(body, resp.Header.Get("Content-Type")),
		Blocked:    blocked,
		BlockType:  blockType,
	}, nil
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return eris.Errorf("scrape: stopped after %d redirects", maxRedirects)
	}
	_, err := ValidateURL(req.URL.String(), f.guard)
	return err
}

// checkDial re-applies the guard to the resolved address so hostnames that
// point at private ranges are refused too.
func (f *Fetcher) checkDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if f.guard == nil {
		return nil
	}
	return f.guard(host)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_\-]+)`)

// decodeBody converts body to UTF-8 using the Content-Type charset, falling
// back to a <meta charset> declaration near the top of the document.
func decodeBody(body []byte, contentType string) string {
	charset := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		charset = params["charset"]
	}
	if charset == "" {
		head := body
		if len(head) > 2048 {
			head = head[:2048]
		}
		if m := metaCharsetRe.FindSubmatch(head); len(m) > 1 {
			charset = string(m[1])
		}
	}
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return string(body)
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(out)
}
