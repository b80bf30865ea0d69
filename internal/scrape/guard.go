package scrape

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// InvalidURLError is returned when a URL is malformed, uses a scheme other
// than http/https, or points at a loopback or private-network host.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("scrape: invalid url %q: %s", e.URL, e.Reason)
}

// HostGuard decides whether a host may be contacted. It returns a non-nil
// error to refuse the host.
type HostGuard func(host string) error

// CheckHost refuses loopback, private, link-local and unspecified
// addresses along with localhost names. Hostnames are checked textually here
// and again against the resolved address at dial time.
func CheckHost(host string) error {
	h := strings.ToLower(strings.Trim(host, "[]"))
	h = strings.TrimSuffix(h, ".")
	if h == "" {
		return &InvalidURLError{URL: host, Reason: "empty host"}
	}
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return &InvalidURLError{URL: host, Reason: "loopback host"}
	}

	ip := net.ParseIP(h)
	if ip == nil {
		return nil
	}
	switch {
	case ip.IsLoopback():
		return &InvalidURLError{URL: host, Reason: "loopback address"}
	case ip.IsPrivate():
		return &InvalidURLError{URL: host, Reason: "private address"}
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return &InvalidURLError{URL: host, Reason: "link-local address"}
	case ip.IsUnspecified():
		return &InvalidURLError{URL: host, Reason: "unspecified address"}
	}
	return nil
}

// ValidateURL parses rawURL and applies the scheme and host checks.
func ValidateURL(rawURL string, guard HostGuard) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "empty url"}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: "malformed url"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "scheme must be http or https"}
	}
	if u.Hostname() == "" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "missing host"}
	}
	if guard == nil {
		guard = CheckHost
	}
	if err := guard(u.Hostname()); err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: reason(err)}
	}
	return u, nil
}

func reason(err error) string {
	if ie, ok := err.(*InvalidURLError); ok {
		return ie.Reason
	}
	return err.Error()
}
