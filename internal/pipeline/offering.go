package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sells-group/competitor-cli/internal/model"
)

const (
	maxOfferings          = 7
	maxHeuristicOfferings = 5
)

const offeringSystemPrompt = `You extract the concrete services and products a business sells. Respond with a single JSON object and nothing else.`

// offeringKeywords anchor the heuristic phrase extraction.
var offeringKeywords = map[string]bool{
	"software": true, "platform": true, "platforms": true, "tool": true, "tools": true,
	"service": true, "services": true, "solution": true, "solutions": true,
	"app": true, "apps": true, "system": true, "systems": true,
}

// bareCategoryWords are too generic to count as an offering on their own.
var bareCategoryWords = map[string]bool{
	"software": true, "platform": true, "platforms": true, "tool": true, "tools": true,
	"service": true, "services": true, "solution": true, "solutions": true,
	"app": true, "apps": true, "system": true, "systems": true,
	"product": true, "products": true, "consulting": true, "support": true,
	"technology": true, "products and services": true, "other": true,
}

// phraseStopwords may not start or end an extracted phrase.
var phraseStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "for": true,
	"to": true, "in": true, "on": true, "with": true, "our": true, "your": true, "their": true,
	"its": true, "is": true, "are": true, "we": true, "you": true, "that": true, "this": true,
	"by": true, "as": true, "at": true, "from": true, "all": true, "any": true, "more": true,
	"best": true, "most": true, "be": true, "it": true, "us": true, "who": true, "which": true,
}

// OfferingInput is the context given to the offering extractor.
type OfferingInput struct {
	Profile       model.BusinessProfile
	Content       model.ContentAnalysis
	SatelliteText string
}

type offeringReply struct {
	Services []string `json:"services"`
	Products []string `json:"products"`
}

// ExtractOfferings asks the model for concrete services and products and
// falls back to keyword phrase extraction when AI is unavailable or
// returns nothing usable. It never fails.
func ExtractOfferings(ctx context.Context, ai Completer, timeout time.Duration, in OfferingInput) (model.Offering, model.Usage) {
	reply, usage, ok := askJSON[offeringReply](ctx, ai, timeout, CompletionRequest{
		Stage:     "offerings",
		System:    offeringSystemPrompt,
		Prompt:    buildOfferingPrompt(in),
		MaxTokens: 500,
	})
	if ok {
		off := model.Offering{
			Services: stringList(reply.Services, maxOfferings, isBareCategory),
			Products: stringList(reply.Products, maxOfferings, isBareCategory),
		}
		if !off.Empty() {
			return off, usage
		}
	}
	return HeuristicOfferings(in.Profile.Description + " " + in.SatelliteText), usage
}

func isBareCategory(s string) bool {
	return bareCategoryWords[strings.ToLower(strings.Trim(s, " .,:;!?"))]
}

// HeuristicOfferings extracts up to 5 candidate services from text by
// taking the word before and after each offering keyword.
func HeuristicOfferings(text string) model.Offering {
	tokens := strings.Fields(text)
	var phrases []string

	for i, tok := range tokens {
		word := trimWord(tok)
		if !offeringKeywords[strings.ToLower(word)] {
			continue
		}

		var parts []string
		if i > 0 && !endsSentence(tokens[i-1]) {
			if prev := trimWord(tokens[i-1]); isPhraseWord(prev) {
				parts = append(parts, prev)
			}
		}
		parts = append(parts, word)
		if i+1 < len(tokens) && !endsClause(tok) {
			if next := trimWord(tokens[i+1]); isPhraseWord(next) {
				parts = append(parts, next)
			}
		}

		if len(parts) < 2 {
			continue
		}
		phrases = append(phrases, strings.Join(parts, " "))
	}

	return model.Offering{
		Services: stringList(phrases, maxHeuristicOfferings, isBareCategory),
		Products: []string{},
	}
}

func trimWord(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '&'
	})
}

func isPhraseWord(w string) bool {
	if w == "" || phraseStopwords[strings.ToLower(w)] {
		return false
	}
	for _, r := range w {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func endsSentence(tok string) bool {
	return strings.HasSuffix(tok, ".") || strings.HasSuffix(tok, "!") || strings.HasSuffix(tok, "?")
}

func endsClause(tok string) bool {
	return endsSentence(tok) || strings.HasSuffix(tok, ",") || strings.HasSuffix(tok, ";") || strings.HasSuffix(tok, ":")
}

func buildOfferingPrompt(in OfferingInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", in.Profile.CompanyName)
	fmt.Fprintf(&b, "Industry: %s\n", orNone(in.Profile.Industry))
	fmt.Fprintf(&b, "Description: %s\n", orNone(in.Profile.Description))
	if in.Profile.ValueProposition != "" {
		fmt.Fprintf(&b, "Value proposition: %s\n", in.Profile.ValueProposition)
	}
	if len(in.Content.Headings) > 0 {
		b.WriteString("Headings:\n")
		for i, h := range in.Content.Headings {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", h.Text)
		}
	}
	if in.SatelliteText != "" {
		fmt.Fprintf(&b, "Excerpts from other pages of the site:\n%s\n", truncate(in.SatelliteText, 2000))
	}
	b.WriteString(`
List what this company actually sells. Be concrete: "sales pipeline CRM" or "commercial roof repair", never bare categories such as "software", "services" or "solutions".
Return JSON: {"services": [up to 7 strings], "products": [up to 7 strings]}. Use empty arrays when unsure.
`)
	return b.String()
}
