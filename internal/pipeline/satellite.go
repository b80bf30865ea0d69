package pipeline

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitor-cli/internal/model"
	"github.com/sells-group/competitor-cli/internal/scrape"
)

// PageFetcher retrieves a page under an explicit timeout.
type PageFetcher interface {
	FetchWithTimeout(ctx context.Context, rawURL string, timeout time.Duration) (*scrape.Page, error)
}

// SatelliteConfig bounds the satellite crawl.
type SatelliteConfig struct {
	MaxPages      int
	MaxDiscovered int
	Timeout       time.Duration
}

// DefaultSatelliteConfig returns the standard crawl bounds.
func DefaultSatelliteConfig() SatelliteConfig {
	return SatelliteConfig{MaxPages: 5, MaxDiscovered: 3, Timeout: 5 * time.Second}
}

var conventionalPaths = []string{"/about", "/about-us", "/services", "/service", "/blog", "/news"}

// satelliteKeywords select discovered links worth fetching.
var satelliteKeywords = []string{"about", "service", "product", "blog", "news", "article"}

// pagePathPatterns maps a URL path segment to a page type.
var pagePathPatterns = map[string]model.PageType{
	"about":        model.PageTypeAbout,
	"about-us":     model.PageTypeAbout,
	"about_us":     model.PageTypeAbout,
	"aboutus":      model.PageTypeAbout,
	"company":      model.PageTypeAbout,
	"who-we-are":   model.PageTypeAbout,
	"our-story":    model.PageTypeAbout,
	"services":     model.PageTypeServices,
	"service":      model.PageTypeServices,
	"our-services": model.PageTypeServices,
	"what-we-do":   model.PageTypeServices,
	"solutions":    model.PageTypeServices,
	"products":     model.PageTypeProducts,
	"product":      model.PageTypeProducts,
	"features":     model.PageTypeProducts,
	"blog":         model.PageTypeBlog,
	"articles":     model.PageTypeBlog,
	"article":      model.PageTypeBlog,
	"insights":     model.PageTypeBlog,
	"news":         model.PageTypeNews,
	"press":        model.PageTypeNews,
	"newsroom":     model.PageTypeNews,
}

// CrawlSatellites fetches up to cfg.MaxPages about/services/blog pages of
// the site at pageURL concurrently. Pages that fail, time out or are
// blocked are dropped. Results keep candidate order.
func CrawlSatellites(ctx context.Context, f PageFetcher, pageURL string, doc *goquery.Document, cfg SatelliteConfig) []model.SatellitePage {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil
	}

	candidates := satelliteCandidates(base, doc, cfg)
	if len(candidates) == 0 {
		return nil
	}

	slots := make([]*model.SatellitePage, len(candidates))
	var g errgroup.Group
	for i, candidate := range candidates {
		g.Go(func() error {
			page, err := f.FetchWithTimeout(ctx, candidate, cfg.Timeout)
			if err != nil {
				zap.L().Debug("pipeline: satellite fetch failed", zap.String("url", candidate), zap.Error(err))
				return nil
			}
			if page.Blocked {
				return nil
			}
			slots[i] = satellitePage(candidate, page)
			return nil
		})
	}
	_ = g.Wait()

	var out []model.SatellitePage
	seen := make(map[string]bool)
	for _, s := range slots {
		if s == nil {
			continue
		}
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, *s)
	}
	return out
}

// satelliteCandidates lists discovered same-host links first, then the
// conventional paths, deduplicated and capped at cfg.MaxPages.
func satelliteCandidates(base *url.URL, doc *goquery.Document, cfg SatelliteConfig) []string {
	seen := map[string]bool{pageKey(base): true}
	var out []string
	add := func(u *url.URL) bool {
		key := pageKey(u)
		if seen[key] {
			return false
		}
		seen[key] = true
		out = append(out, u.String())
		return true
	}

	discovered := 0
	if doc != nil {
		for _, link := range parseLinks(doc, base) {
			if discovered >= cfg.MaxDiscovered || len(out) >= cfg.MaxPages {
				break
			}
			path := strings.ToLower(link.Path)
			if strings.Trim(path, "/") == "" || !containsAny(path, satelliteKeywords) {
				continue
			}
			if add(link) {
				discovered++
			}
		}
	}

	for _, p := range conventionalPaths {
		if len(out) >= cfg.MaxPages {
			break
		}
		add(&url.URL{Scheme: base.Scheme, Host: base.Host, Path: p})
	}
	return out
}

// parseLinks resolves every <a href> in doc against base and keeps
// same-site http(s) links with fragments and queries stripped.
func parseLinks(doc *goquery.Document, base *url.URL) []*url.URL {
	var links []*url.URL
	baseHost := normalizeDomain(base.Host)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if normalizeDomain(abs.Host) != baseHost {
			return
		}
		abs.Fragment = ""
		abs.RawQuery = ""
		links = append(links, abs)
	})
	return links
}

// pageKey identifies a page by host and path, ignoring scheme, "www." and a
// trailing slash.
func pageKey(u *url.URL) string {
	return normalizeDomain(u.Host) + strings.ToLower(strings.TrimRight(u.Path, "/"))
}

// classifyPage maps a URL path to a page type using its first matching
// path segment, then keyword containment.
func classifyPage(rawURL string) model.PageType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.PageTypeOther
	}
	path := strings.ToLower(strings.Trim(u.Path, "/"))
	if path == "" {
		return model.PageTypeHomepage
	}
	for _, seg := range strings.Split(path, "/") {
		if pt, ok := pagePathPatterns[seg]; ok {
			return pt
		}
	}
	switch {
	case strings.Contains(path, "about"):
		return model.PageTypeAbout
	case strings.Contains(path, "service"):
		return model.PageTypeServices
	case strings.Contains(path, "product"):
		return model.PageTypeProducts
	case strings.Contains(path, "blog"), strings.Contains(path, "article"):
		return model.PageTypeBlog
	case strings.Contains(path, "news"):
		return model.PageTypeNews
	}
	return model.PageTypeOther
}

const maxSatelliteText = 3000

func satellitePage(candidate string, page *scrape.Page) *model.SatellitePage {
	sp := &model.SatellitePage{
		AdditionalPage: model.AdditionalPage{URL: page.URL, Type: classifyPage(candidate)},
	}
	if sp.URL == "" {
		sp.URL = candidate
	}

	_, clean, err := parseDocument(page.HTML)
	if err != nil {
		return sp
	}
	clean.Find("nav, header, footer, aside, form").Remove()
	sp.Title = collapse(clean.Find("title").First().Text())

	var parts []string
	size := 0
	clean.Find("h1, h2, h3, p, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapse(s.Text())
		if len(text) < 20 {
			return true
		}
		parts = append(parts, text)
		size += len(text) + 1
		return size < maxSatelliteText
	})
	sp.Text = truncate(strings.Join(parts, " "), maxSatelliteText)
	return sp
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
