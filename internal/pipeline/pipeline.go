// Package pipeline implements competitor discovery: it profiles a business
// from its website and finds, validates and ranks its direct competitors.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-cli/internal/model"
	"github.com/sells-group/competitor-cli/internal/scrape"
)

// Variant selects how much of the pipeline runs.
type Variant string

const (
	// VariantBasic uses heuristics only, runs the first query and skips
	// validation.
	VariantBasic Variant = "basic"
	// VariantStructured adds AI profiling, offerings and queries but skips
	// validation.
	VariantStructured Variant = "structured"
	// VariantValidated runs every stage.
	VariantValidated Variant = "validated"
)

// ParseVariant maps a config value to a Variant. Empty means validated.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VariantValidated, nil
	case VariantBasic, VariantStructured, VariantValidated:
		return v, nil
	default:
		return "", eris.Errorf("pipeline: unknown variant %q", s)
	}
}

// Options tunes a Pipeline. Zero values fall back to defaults.
type Options struct {
	Variant        Variant
	FetchTimeout   time.Duration
	AITimeout      time.Duration
	SearchTimeout  time.Duration
	MaxQueries     int
	MaxCompetitors int
	Satellite      SatelliteConfig
	Validator      ValidatorConfig
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		Variant:        VariantValidated,
		FetchTimeout:   scrape.DefaultTimeout,
		AITimeout:      30 * time.Second,
		SearchTimeout:  15 * time.Second,
		MaxQueries:     5,
		MaxCompetitors: DefaultMaxCompetitors,
		Satellite:      DefaultSatelliteConfig(),
		Validator: ValidatorConfig{
			MaxCandidates: DefaultMaxCandidates,
			MinRelevance:  DefaultMinRelevance,
			FetchTimeout:  DefaultValidationTTL,
			AITimeout:     30 * time.Second,
		},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Variant == "" {
		o.Variant = d.Variant
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.AITimeout <= 0 {
		o.AITimeout = d.AITimeout
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = d.SearchTimeout
	}
	if o.MaxQueries <= 0 {
		o.MaxQueries = d.MaxQueries
	}
	if o.MaxCompetitors <= 0 {
		o.MaxCompetitors = d.MaxCompetitors
	}
	if o.Satellite.MaxPages <= 0 {
		o.Satellite = d.Satellite
	}
	if o.Validator.MaxCandidates <= 0 {
		o.Validator.MaxCandidates = d.Validator.MaxCandidates
	}
	if o.Validator.MinRelevance < DefaultMinRelevance {
		o.Validator.MinRelevance = d.Validator.MinRelevance
	}
	if o.Validator.FetchTimeout <= 0 {
		o.Validator.FetchTimeout = d.Validator.FetchTimeout
	}
	if o.Validator.AITimeout <= 0 {
		o.Validator.AITimeout = o.AITimeout
	}
	return o
}

// Pipeline runs competitor discovery for one URL at a time. It holds no
// per-run state and is safe for concurrent use.
type Pipeline struct {
	fetcher    PageFetcher
	ai         Completer
	searcher   Searcher
	heuristics *Heuristics
	opts       Options
}

// New creates a Pipeline. ai and searcher may be nil: AI stages then fall
// back to heuristics and no search is performed.
func New(fetcher PageFetcher, ai Completer, searcher Searcher, h *Heuristics, opts Options) *Pipeline {
	if h == nil {
		h = DefaultHeuristics()
	}
	return &Pipeline{
		fetcher:    fetcher,
		ai:         ai,
		searcher:   searcher,
		heuristics: h,
		opts:       opts.withDefaults(),
	}
}

// Variant returns the configured variant.
func (p *Pipeline) Variant() Variant { return p.opts.Variant }

// Run executes the pipeline for rawURL. Only an invalid URL
// (*scrape.InvalidURLError) or an unreachable homepage (*scrape.FetchError)
// are returned as errors; every later failure degrades the result instead.
func (p *Pipeline) Run(ctx context.Context, runID, rawURL string) (*model.Result, error) {
	start := time.Now()
	variant := p.opts.Variant
	log := zap.L().With(zap.String("url", rawURL), zap.String("run_id", runID))
	log.Info("pipeline: run started", zap.String("variant", string(variant)))

	stageStart := time.Now()
	page, err := p.fetcher.FetchWithTimeout(ctx, rawURL, p.opts.FetchTimeout)
	observeStage("fetch", stageStart)
	if err != nil {
		outcome := "fetch_error"
		var invalid *scrape.InvalidURLError
		if errors.As(err, &invalid) {
			outcome = "invalid_url"
		}
		runsTotal.WithLabelValues(string(variant), outcome).Inc()
		log.Warn("pipeline: homepage fetch failed", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}
	if page.Blocked {
		log.Warn("pipeline: homepage looks blocked, continuing with what was served",
			zap.String("block_type", string(page.BlockType)))
	}

	raw, clean, err := parseDocument(page.HTML)
	if err != nil {
		runsTotal.WithLabelValues(string(variant), "fetch_error").Inc()
		return nil, &scrape.FetchError{URL: rawURL, StatusCode: page.StatusCode, Err: eris.Wrap(err, "pipeline: parse homepage")}
	}

	// Extraction.
	stageStart = time.Now()
	sd := ExtractStructuredData(raw)
	profile := ExtractProfile(clean, page.URL, sd, p.heuristics)
	// The SERP industry bonus matches the table keyword, not the enhanced text.
	detectedIndustry := profile.Industry
	content := AnalyzeContent(clean)
	observeStage("extract", stageStart)

	stageStart = time.Now()
	satellites := CrawlSatellites(ctx, p.fetcher, page.URL, clean, p.opts.Satellite)
	observeStage("satellites", stageStart)
	satText := satelliteText(satellites)

	ai := p.ai
	if variant == VariantBasic {
		ai = nil
	}
	var usage model.Usage

	// Business understanding.
	if variant != VariantBasic {
		stageStart = time.Now()
		var u model.Usage
		profile, u = EnhanceProfile(ctx, ai, p.opts.AITimeout, EnhanceInput{
			Profile:            profile,
			Content:            content,
			StructuredData:     sd,
			SatelliteText:      satText,
			IncludeDescription: variant == VariantValidated,
		})
		usage = usage.Add(u)
		observeStage("enhance", stageStart)
	}

	stageStart = time.Now()
	offerings, u := ExtractOfferings(ctx, ai, p.opts.AITimeout, OfferingInput{
		Profile:       profile,
		Content:       content,
		SatelliteText: satText,
	})
	usage = usage.Add(u)
	observeStage("offerings", stageStart)

	stageStart = time.Now()
	queries, u := GenerateQueries(ctx, ai, p.opts.AITimeout, QueryInput{Profile: profile, Offerings: offerings})
	usage = usage.Add(u)
	observeStage("queries", stageStart)

	// Competitor discovery.
	maxQueries := p.opts.MaxQueries
	if variant == VariantBasic {
		maxQueries = 1
	}
	stageStart = time.Now()
	results, issued := SearchAll(ctx, p.searcher, queries, maxQueries, p.opts.SearchTimeout)
	usage.SearchQueries += issued
	candidates := Aggregate(AggregateInput{
		Results:     results,
		CompanyName: profile.CompanyName,
		OwnDomains:  []string{rawURL, page.URL},
		Industry:    detectedIndustry,
		Heuristics:  p.heuristics,
	})
	observeStage("search", stageStart)
	log.Debug("pipeline: candidates aggregated",
		zap.Int("queries", issued),
		zap.Int("candidates", len(candidates)),
	)

	var competitors []model.Competitor
	var validated []model.ValidatedCompetitor
	switch variant {
	case VariantValidated:
		stageStart = time.Now()
		validated, u = ValidateCandidates(ctx, p.fetcher, ai, p.opts.Validator, ValidateInput{
			Profile:    profile,
			Offerings:  offerings,
			Candidates: candidates,
		})
		usage = usage.Add(u)
		observeStage("validate", stageStart)
		competitors = Rank(validated, p.opts.MaxCompetitors)
	default:
		competitors = RankUnvalidated(candidates, p.opts.MaxCompetitors, variant == VariantStructured)
	}

	pages := make([]model.AdditionalPage, 0, len(satellites))
	for _, s := range satellites {
		pages = append(pages, s.AdditionalPage)
	}

	res := &model.Result{
		Success:             true,
		BusinessInfo:        profile,
		Competitors:         competitors,
		ContentAnalysis:     content,
		AdditionalPages:     pages,
		StructuredDataFound: sd.Found(),
		Offerings:           offerings,
		Queries:             queries,
		Variant:             string(variant),
		Candidates:          len(candidates),
		Validated:           validated,
		Usage:               usage,
	}

	outcome := "ok"
	if ctx.Err() != nil {
		outcome = "partial"
	}
	runsTotal.WithLabelValues(string(variant), outcome).Inc()
	competitorsReturned.Observe(float64(len(competitors)))
	log.Info("pipeline: run complete",
		zap.String("company", profile.CompanyName),
		zap.String("industry", profile.Industry),
		zap.Int("competitors", len(competitors)),
		zap.Int("ai_calls", usage.AICalls),
		zap.Int("search_queries", usage.SearchQueries),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func satelliteText(pages []model.SatellitePage) string {
	var parts []string
	for _, p := range pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}
