package pipeline

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var spaceRe = regexp.MustCompile(`\s+`)

// collapse trims s and folds every whitespace run into a single space.
func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// truncate cuts s to at most n runes, preferring a word boundary.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if idx := strings.LastIndex(cut, " "); idx > n/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// parseDocument parses html twice: raw keeps scripts (JSON-LD lives
// there) and clean has script, style and noscript removed.
func parseDocument(html string) (raw, clean *goquery.Document, err error) {
	raw, err = goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, err
	}
	clean, err = goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, err
	}
	clean.Find("script, style, noscript, template").Remove()
	return raw, clean, nil
}

// metaContent returns the content of the first <meta> whose name or
// property equals key (case-insensitive).
func metaContent(doc *goquery.Document, key string) string {
	var out string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := s.AttrOr("name", "")
		if name == "" {
			name = s.AttrOr("property", "")
		}
		if !strings.EqualFold(strings.TrimSpace(name), key) {
			return true
		}
		out = collapse(s.AttrOr("content", ""))
		return out == ""
	})
	return out
}

// normalizeDomain returns the lower-cased host of rawURL without port or
// leading "www.". A bare hostname is accepted too.
func normalizeDomain(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	return strings.TrimPrefix(host, "www.")
}

var titleCaser = cases.Title(language.English)

// nameFromDomain turns "acme-widgets.co.uk" into "Acme Widgets".
func nameFromDomain(domain string) string {
	label := normalizeDomain(domain)
	if idx := strings.Index(label, "."); idx > 0 {
		label = label[:idx]
	}
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return titleCaser.String(collapse(label))
}

// titleSeparators split a page title into its brand and suffix segments.
var titleSeparators = []string{" | ", "|", " - ", " – ", " — ", " : ", ": ", " · ", " • ", " :: "}

// genericTitleParts are segments that never name a company.
var genericTitleParts = map[string]bool{
	"home": true, "homepage": true, "home page": true, "welcome": true,
	"index": true, "official site": true, "official website": true,
}

// cleanTitle reduces a page title to its leading brand segment, skipping
// generic segments such as "Home". Titles longer than 50 characters are
// capped at 5 words.
func cleanTitle(raw string) string {
	title := collapse(raw)
	if title == "" {
		return ""
	}

	parts := []string{title}
	for _, sep := range titleSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}

	name := ""
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || genericTitleParts[strings.ToLower(p)] {
			continue
		}
		name = p
		break
	}
	if name == "" {
		name = title
	}

	if utf8.RuneCountInString(title) > 50 {
		if words := strings.Fields(name); len(words) > 5 {
			name = strings.Join(words[:5], " ")
		}
	}
	return name
}
