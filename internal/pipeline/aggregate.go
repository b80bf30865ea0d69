package pipeline

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/sells-group/competitor-cli/internal/model"
)

const (
	repeatBonus   = 10
	industryBonus = 20
)

// legalSuffix matches trailing company-form suffixes.
var legalSuffix = regexp.MustCompile(`(?i)[\s,]+(inc|incorporated|llc|l\.l\.c|ltd|limited|corp|corporation|co|company|gmbh|ag|sa|plc|pty|bv|srl)\.?$`)

// genericNameWords never identify a company on their own.
var genericNameWords = map[string]bool{
	"the": true, "and": true, "inc": true, "llc": true, "com": true, "net": true, "org": true,
	"crm": true, "software": true, "app": true, "apps": true, "tech": true, "digital": true,
	"solutions": true, "group": true, "services": true, "online": true, "global": true,
	"systems": true, "labs": true, "cloud": true, "media": true, "marketing": true,
	"consulting": true, "company": true, "agency": true, "studio": true, "partners": true,
	"law": true, "firm": true,
}

// AggregateInput is everything Aggregate needs to merge search results.
type AggregateInput struct {
	// Results holds one slot per query, in query order.
	Results     [][]SearchResult
	CompanyName string
	// OwnDomains are the profiled site's domains (requested and final).
	OwnDomains  []string
	Industry    string
	Heuristics  *Heuristics
}

type sighting struct {
	score   float64
	url     string
	name    string
	snippet string
}

// Aggregate filters, scores and merges search results into candidates
// ordered by (queryCount desc, serpScore desc, domain asc). The result does
// not depend on the order in which queries completed.
func Aggregate(in AggregateInput) []model.Candidate {
	h := in.Heuristics
	if h == nil {
		h = DefaultHeuristics()
	}
	var own []string
	for _, d := range in.OwnDomains {
		if d = normalizeDomain(d); d != "" {
			own = append(own, d)
		}
	}
	words := significantWords(in.CompanyName)
	industry := strings.ToLower(strings.TrimSpace(in.Industry))

	merged := make(map[string]*model.Candidate)
	var order []string

	for _, hits := range in.Results {
		perQuery := make(map[string]*sighting)
		var queryOrder []string

		for _, r := range hits {
			domain := normalizeDomain(r.URL)
			if domain == "" || h.IsDenied(domain) || isSelfMatch(domain, own, words) {
				continue
			}

			s := sighting{
				score:   scoreResult(r, domain, industry),
				url:     r.URL,
				name:    cleanTitle(r.Title),
				snippet: collapse(r.Snippet),
			}
			prev, ok := perQuery[domain]
			if !ok {
				perQuery[domain] = &s
				queryOrder = append(queryOrder, domain)
				continue
			}
			prev.score = max(prev.score, s.score)
			prev.url = preferURL(prev.url, s.url)
			if prev.name == "" {
				prev.name = s.name
			}
			if prev.snippet == "" {
				prev.snippet = s.snippet
			}
		}

		for _, domain := range queryOrder {
			s := perQuery[domain]
			c, ok := merged[domain]
			if !ok {
				merged[domain] = &model.Candidate{
					Domain:     domain,
					Name:       s.name,
					URL:        s.url,
					Snippet:    s.snippet,
					SERPScore:  s.score,
					QueryCount: 1,
				}
				order = append(order, domain)
				continue
			}
			c.QueryCount++
			c.SERPScore = max(c.SERPScore, s.score)
			c.URL = preferURL(c.URL, s.url)
			if c.Name == "" {
				c.Name = s.name
			}
			if c.Snippet == "" {
				c.Snippet = s.snippet
			}
		}
	}

	out := make([]model.Candidate, 0, len(order))
	for _, domain := range order {
		c := merged[domain]
		c.SERPScore += float64(repeatBonus * (c.QueryCount - 1))
		if c.Name == "" {
			c.Name = nameFromDomain(domain)
		}
		out = append(out, *c)
	}
	sortCandidates(out)
	return out
}

// sortCandidates orders by (queryCount desc, serpScore desc, domain asc).
func sortCandidates(cs []model.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].QueryCount != cs[j].QueryCount {
			return cs[i].QueryCount > cs[j].QueryCount
		}
		if cs[i].SERPScore != cs[j].SERPScore {
			return cs[i].SERPScore > cs[j].SERPScore
		}
		return cs[i].Domain < cs[j].Domain
	})
}

func scoreResult(r SearchResult, domain, industry string) float64 {
	score := float64(max(0, 100-r.Rank))
	if industry != "" && (strings.Contains(strings.ToLower(r.Title), industry) || strings.Contains(domain, industry)) {
		score += industryBonus
	}
	return score
}

// preferURL keeps the shorter URL, breaking ties lexicographically.
func preferURL(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case len(b) < len(a), len(b) == len(a) && b < a:
		return b
	}
	return a
}

// isSelfMatch reports whether domain belongs to the profiled company.
func isSelfMatch(domain string, own, words []string) bool {
	for _, o := range own {
		if domain == o || strings.HasSuffix(domain, "."+o) || strings.HasSuffix(o, "."+domain) {
			return true
		}
	}
	for _, w := range words {
		if strings.Contains(domain, w) {
			return true
		}
	}
	return false
}

// normalizeName lower-cases a company name and strips its legal suffix.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	for {
		stripped := legalSuffix.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}
	return strings.ToLower(name)
}

// significantWords returns the distinctive words of a company name: longer
// than two characters and not a generic business word. A name made only of
// generic words returns all of its words longer than two characters.
func significantWords(name string) []string {
	fields := strings.FieldsFunc(normalizeName(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if words := nameWords(fields, genericNameWords); len(words) > 0 {
		return words
	}
	return nameWords(fields, nil)
}

func nameWords(fields []string, skip map[string]bool) []string {
	var words []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if len(f) <= 2 || skip[f] || seen[f] {
			continue
		}
		seen[f] = true
		words = append(words, f)
	}
	return words
}
