package pipeline

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"github.com/sells-group/competitor-cli/internal/model"
)

const (
	minParagraphChars = 50
	maxParagraphs     = 3
	minDivChars       = 100
	maxDivChars       = 500
)

// heroSelector scopes description paragraphs to the page's primary content.
const heroSelector = "main p, article p, [role=main] p, .hero p, #hero p, [class*=hero] p, [class*=banner] p"

// ExtractProfile derives the business profile from a script-free document.
// Every field has a fallback chain and the function never fails; the
// company name falls back to the domain and the language to "en".
func ExtractProfile(doc *goquery.Document, pageURL string, sd model.StructuredData, h *Heuristics) model.BusinessProfile {
	title := collapse(doc.Find("title").First().Text())

	p := model.BusinessProfile{
		CompanyName: extractCompanyName(doc, title, pageURL, sd),
		Description: extractDescription(doc, sd),
		Language:    extractLanguage(doc),
	}
	p.Industry = h.DetectIndustry(title + " " + p.Description)
	return p
}

func extractCompanyName(doc *goquery.Document, title, pageURL string, sd model.StructuredData) string {
	if name := sdString(sd.Organization, "name"); name != "" {
		return name
	}
	if name := sdString(sd.Business, "name"); name != "" {
		return name
	}
	if name := cleanTitle(metaContent(doc, "og:title")); name != "" {
		return name
	}
	if name := cleanTitle(title); name != "" {
		return name
	}
	if name := nameFromDomain(pageURL); name != "" {
		return name
	}
	return "Unknown"
}

func extractDescription(doc *goquery.Document, sd model.StructuredData) string {
	if d := sdString(sd.Organization, "description", "about"); d != "" {
		return d
	}
	if d := sdString(sd.Business, "description", "about"); d != "" {
		return d
	}
	if d := metaContent(doc, "og:description"); d != "" {
		return d
	}
	if d := metaContent(doc, "description"); d != "" {
		return d
	}
	if d := heroParagraphs(doc.Find(heroSelector), maxParagraphs); d != "" {
		return d
	}
	return firstTextBlock(doc)
}

// heroParagraphs joins up to n substantial paragraphs of sel.
func heroParagraphs(sel *goquery.Selection, n int) string {
	var parts []string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapse(s.Text())
		if len(text) >= minParagraphChars {
			parts = append(parts, text)
		}
		return len(parts) < n
	})
	return strings.Join(parts, " ")
}

// firstTextBlock returns the text of the first innermost <div> with a
// substantial amount of text.
func firstTextBlock(doc *goquery.Document) string {
	var out string
	doc.Find("div").Not("div:has(div)").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapse(s.Text())
		if len(text) >= minDivChars {
			out = truncate(text, maxDivChars)
			return false
		}
		return true
	})
	return out
}

// extractLanguage returns the two-letter base language of <html lang>,
// defaulting to "en".
func extractLanguage(doc *goquery.Document) string {
	lang := strings.TrimSpace(doc.Find("html").First().AttrOr("lang", ""))
	if lang == "" {
		return "en"
	}
	if tag, err := language.Parse(lang); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			if b := base.String(); len(b) == 2 {
				return b
			}
		}
	}
	lower := strings.ToLower(lang)
	if len(lower) >= 2 {
		return lower[:2]
	}
	return "en"
}
