package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitor-cli/internal/model"
)

const (
	// DefaultMaxCandidates is how many top candidates are validated.
	DefaultMaxCandidates = 15
	// DefaultMinRelevance is the lowest relevance score a validated
	// competitor may have.
	DefaultMinRelevance = 40
	// DefaultValidationTTL bounds the fetch of one candidate homepage.
	DefaultValidationTTL = 3 * time.Second

	maxPreviewChars = 500
)

const validateSystemPrompt = `You decide whether a website belongs to a direct competitor of a given business: a company selling substitutable services or products to the same customers. Directories, review sites, publishers, marketplaces and suppliers are not competitors. Respond with a single JSON object and nothing else.`

// ValidatorConfig bounds candidate validation.
type ValidatorConfig struct {
	MaxCandidates int
	MinRelevance  int
	FetchTimeout  time.Duration
	AITimeout     time.Duration
}

// ValidateInput is the business the candidates are judged against.
type ValidateInput struct {
	Profile    model.BusinessProfile
	Offerings  model.Offering
	Candidates []model.Candidate
}

type preview struct {
	Title       string
	Description string
	Text        string
}

type verdict struct {
	IsCompetitor   bool    `json:"isCompetitor"`
	RelevanceScore float64 `json:"relevanceScore"`
	Reason         string  `json:"reason"`
}

// SelectForValidation returns the top n candidates by (queryCount desc,
// serpScore desc, domain asc).
func SelectForValidation(cs []model.Candidate, n int) []model.Candidate {
	out := append([]model.Candidate(nil), cs...)
	sortCandidates(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ValidateCandidates checks the top candidates concurrently. Each branch
// fetches the candidate homepage, builds a short preview and asks the model
// for a verdict; a failing branch only drops its own candidate. Survivors
// keep selection order.
func ValidateCandidates(ctx context.Context, f PageFetcher, ai Completer, cfg ValidatorConfig, in ValidateInput) ([]model.ValidatedCompetitor, model.Usage) {
	selected := SelectForValidation(in.Candidates, cfg.MaxCandidates)
	if ai == nil {
		zap.L().Warn("pipeline: no inference provider configured, all candidates dropped by validation",
			zap.Int("candidates", len(selected)),
		)
		aiCalls.WithLabelValues("validate", "unavailable").Add(float64(len(selected)))
		return []model.ValidatedCompetitor{}, model.Usage{}
	}

	results := make([]*model.ValidatedCompetitor, len(selected))
	usages := make([]model.Usage, len(selected))

	var g errgroup.Group
	for i, cand := range selected {
		g.Go(func() error {
			results[i], usages[i] = validateOne(ctx, f, ai, cfg, in, cand)
			return nil
		})
	}
	_ = g.Wait()

	out := []model.ValidatedCompetitor{}
	var usage model.Usage
	for i, r := range results {
		usage = usage.Add(usages[i])
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, usage
}

func validateOne(ctx context.Context, f PageFetcher, ai Completer, cfg ValidatorConfig, in ValidateInput, cand model.Candidate) (*model.ValidatedCompetitor, model.Usage) {
	log := zap.L().With(zap.String("candidate", cand.Domain))

	home := homepageURL(cand)
	page, err := f.FetchWithTimeout(ctx, home, cfg.FetchTimeout)
	if err != nil {
		log.Debug("pipeline: candidate homepage unreachable", zap.Error(err))
		return nil, model.Usage{}
	}
	if page.Blocked {
		log.Debug("pipeline: candidate homepage blocked", zap.String("block_type", string(page.BlockType)))
		return nil, model.Usage{}
	}

	pv, err := extractPreview(page.HTML)
	if err != nil {
		log.Debug("pipeline: candidate homepage unparsable", zap.Error(err))
		return nil, model.Usage{}
	}

	v, usage, ok := askJSON[verdict](ctx, ai, cfg.AITimeout, CompletionRequest{
		Stage:     "validate",
		System:    validateSystemPrompt,
		Prompt:    buildValidatePrompt(in, cand, pv),
		MaxTokens: 200,
	})
	if !ok {
		return nil, usage
	}

	score := int(min(100, max(0, v.RelevanceScore)))
	if !v.IsCompetitor || score < cfg.MinRelevance {
		log.Debug("pipeline: candidate rejected",
			zap.Bool("is_competitor", v.IsCompetitor),
			zap.Int("relevance", score),
		)
		return nil, usage
	}

	if cand.Name == "" {
		cand.Name = cleanTitle(pv.Title)
	}
	return &model.ValidatedCompetitor{
		Candidate:      cand,
		RelevanceScore: score,
		Reason:         collapse(v.Reason),
	}, usage
}

// homepageURL returns scheme://host/ of the candidate's best URL.
func homepageURL(c model.Candidate) string {
	if u, err := url.Parse(c.URL); err == nil && u.Host != "" {
		scheme := u.Scheme
		if scheme != "http" {
			scheme = "https"
		}
		return scheme + "://" + u.Host + "/"
	}
	return "https://" + c.Domain + "/"
}

func extractPreview(html string) (preview, error) {
	_, doc, err := parseDocument(html)
	if err != nil {
		return preview{}, err
	}

	pv := preview{
		Title:       collapse(doc.Find("title").First().Text()),
		Description: metaContent(doc, "description"),
	}
	if pv.Description == "" {
		pv.Description = metaContent(doc, "og:description")
	}

	text := heroParagraphs(doc.Find(heroSelector), maxParagraphs)
	if text == "" {
		text = heroParagraphs(doc.Find("p"), maxParagraphs)
	}
	pv.Text = truncate(text, maxPreviewChars)
	return pv, nil
}

func buildValidatePrompt(in ValidateInput, cand model.Candidate, pv preview) string {
	var b strings.Builder
	b.WriteString("Business being analysed:\n")
	fmt.Fprintf(&b, "- Name: %s\n", in.Profile.CompanyName)
	fmt.Fprintf(&b, "- Industry: %s\n", orNone(in.Profile.Industry))
	fmt.Fprintf(&b, "- Description: %s\n", orNone(in.Profile.Description))
	if in.Profile.TargetAudience != "" {
		fmt.Fprintf(&b, "- Target audience: %s\n", in.Profile.TargetAudience)
	}
	if len(in.Offerings.Services) > 0 {
		fmt.Fprintf(&b, "- Services: %s\n", strings.Join(in.Offerings.Services, "; "))
	}
	if len(in.Offerings.Products) > 0 {
		fmt.Fprintf(&b, "- Products: %s\n", strings.Join(in.Offerings.Products, "; "))
	}

	b.WriteString("\nCandidate website:\n")
	fmt.Fprintf(&b, "- Domain: %s\n", cand.Domain)
	fmt.Fprintf(&b, "- Title: %s\n", orNone(pv.Title))
	fmt.Fprintf(&b, "- Meta description: %s\n", orNone(pv.Description))
	fmt.Fprintf(&b, "- Homepage text: %s\n", orNone(pv.Text))
	if cand.Snippet != "" {
		fmt.Fprintf(&b, "- Search snippet: %s\n", cand.Snippet)
	}

	b.WriteString(`
Is the candidate a direct competitor of the business?
Return JSON: {"isCompetitor": true|false, "relevanceScore": 0-100, "reason": "one sentence"}.
`)
	return b.String()
}

// sortValidated orders by (relevance desc, queryCount desc, serpScore desc,
// domain asc).
func sortValidated(vs []model.ValidatedCompetitor) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.QueryCount != b.QueryCount {
			return a.QueryCount > b.QueryCount
		}
		if a.SERPScore != b.SERPScore {
			return a.SERPScore > b.SERPScore
		}
		return a.Domain < b.Domain
	})
}
