package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/competitor-cli/internal/model"
)

const maxQueries = 7

const querySystemPrompt = `You write web search queries that surface a company's direct competitors. Respond with a single JSON object and nothing else.`

// QueryInput is the context given to the query generator.
type QueryInput struct {
	Profile   model.BusinessProfile
	Offerings model.Offering
}

type queryReply struct {
	Queries []string `json:"queries"`
}

// GenerateQueries asks the model for search queries and falls back to
// template queries when AI is unavailable or returns none.
func GenerateQueries(ctx context.Context, ai Completer, timeout time.Duration, in QueryInput) ([]string, model.Usage) {
	reply, usage, ok := askJSON[queryReply](ctx, ai, timeout, CompletionRequest{
		Stage:     "queries",
		System:    querySystemPrompt,
		Prompt:    buildQueryPrompt(in),
		MaxTokens: 400,
	})
	if ok {
		queries := normalizeQueries(reply.Queries)
		if len(queries) > 0 {
			return queries, usage
		}
	}
	return HeuristicQueries(in.Profile, in.Offerings), usage
}

// HeuristicQueries builds search queries from templates over the offerings
// and the company profile.
func HeuristicQueries(p model.BusinessProfile, off model.Offering) []string {
	var queries []string
	for i, s := range off.Services {
		if i == 3 {
			break
		}
		queries = append(queries, s+" alternatives", s+" competitors")
	}
	for i, prod := range off.Products {
		if i == 2 {
			break
		}
		queries = append(queries, prod+" alternatives")
	}

	queries = normalizeQueries(queries)
	if len(queries) < 5 && p.CompanyName != "" {
		queries = normalizeQueries(append(queries,
			p.CompanyName+" competitors",
			"alternatives to "+p.CompanyName,
		))
	}
	if len(queries) < 3 && p.Industry != "" {
		q := p.Industry + " companies"
		if p.BusinessType != "" {
			q = p.Industry + " " + p.BusinessType + " companies"
		}
		queries = normalizeQueries(append(queries, q))
	}
	return queries
}

// normalizeQueries lower-cases, dedupes and caps queries.
func normalizeQueries(queries []string) []string {
	lowered := make([]string, 0, len(queries))
	for _, q := range queries {
		lowered = append(lowered, strings.ToLower(q))
	}
	return dedupeCapped(lowered, maxQueries, nil)
}

func buildQueryPrompt(in QueryInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", in.Profile.CompanyName)
	fmt.Fprintf(&b, "Industry: %s\n", orNone(in.Profile.Industry))
	fmt.Fprintf(&b, "Description: %s\n", orNone(in.Profile.Description))
	if in.Profile.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", in.Profile.TargetAudience)
	}
	if in.Profile.BusinessType != "" {
		fmt.Fprintf(&b, "Business type: %s\n", in.Profile.BusinessType)
	}
	if len(in.Offerings.Services) > 0 {
		fmt.Fprintf(&b, "Services: %s\n", strings.Join(in.Offerings.Services, "; "))
	}
	if len(in.Offerings.Products) > 0 {
		fmt.Fprintf(&b, "Products: %s\n", strings.Join(in.Offerings.Products, "; "))
	}
	b.WriteString(`
Write 5 to 7 Google search queries whose results would list this company's direct competitors.
Prefer specific queries such as "<service> alternatives" or "<product> competitors" over generic industry terms. Do not include the company's own name in more than one query.
Return JSON: {"queries": ["..."]}.
`)
	return b.String()
}
