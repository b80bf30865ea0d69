package pipeline

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/competitor-cli/internal/model"
)

const (
	maxHeadings = 20
	maxTopics   = 10

	minTopicChars = 3
	maxTopicChars = 80
)

// AnalyzeContent collects headings, topic candidates and a paragraph word
// count from doc. Script and style elements are removed first.
func AnalyzeContent(doc *goquery.Document) model.ContentAnalysis {
	doc.Find("script, style, noscript").Remove()

	ca := model.ContentAnalysis{
		Headings: []model.Heading{},
		Topics:   []string{},
	}

	var total, h2 int
	var subTopics []string
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" {
			return
		}
		level := int(goquery.NodeName(s)[1] - '0')
		total++
		if level == 2 {
			h2++
		}
		if level == 2 || level == 3 {
			subTopics = append(subTopics, text)
		}
		if len(ca.Headings) < maxHeadings {
			ca.Headings = append(ca.Headings, model.Heading{Level: level, Text: text})
		}
	})

	candidates := append(strings.Split(metaContent(doc, "keywords"), ","), subTopics...)
	ca.Topics = dedupeCapped(candidates, maxTopics, func(s string) bool {
		n := len(s)
		return n >= minTopicChars && n <= maxTopicChars
	})

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		ca.WordCount += len(strings.Fields(s.Text()))
	})

	switch {
	case h2 > 5:
		ca.Structure = model.StructureDetailed
	case total < 3:
		ca.Structure = model.StructureMinimal
	default:
		ca.Structure = model.StructureStandard
	}
	return ca
}

// dedupeCapped collapses, filters and case-insensitively deduplicates
// values, keeping first occurrences, until limit entries are collected.
func dedupeCapped(values []string, limit int, keep func(string) bool) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, v := range values {
		v = collapse(v)
		if v == "" || (keep != nil && !keep(v)) {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
