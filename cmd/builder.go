package main

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-cli/internal/config"
	"github.com/sells-group/competitor-cli/internal/cost"
	"github.com/sells-group/competitor-cli/internal/model"
	"github.com/sells-group/competitor-cli/internal/pipeline"
	"github.com/sells-group/competitor-cli/internal/scrape"
	"github.com/sells-group/competitor-cli/internal/store"
	anthropicpkg "github.com/sells-group/competitor-cli/pkg/anthropic"
	"github.com/sells-group/competitor-cli/pkg/dataforseo"
	"github.com/sells-group/competitor-cli/pkg/jina"
	"github.com/sells-group/competitor-cli/pkg/openai"
)

// discoverer runs the pipeline for one URL. *pipeline.Pipeline implements it.
type discoverer interface {
	Run(ctx context.Context, runID, rawURL string) (*model.Result, error)
	Variant() pipeline.Variant
}

// pipelineEnv holds the pipeline and the run log needed by the discover and
// serve commands.
type pipelineEnv struct {
	Store    store.Store // may be nil
	Pipeline discoverer
	Recorder *runRecorder
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, opens the run log when record is
// set, and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string, record bool) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return nil, err
	}

	env := &pipelineEnv{Pipeline: p}
	if !record {
		return env, nil
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	env.Store = st
	env.Recorder = newRunRecorder(st, buildCalculator(cfg), aiModel(cfg), cfg.Search.Provider)
	return env, nil
}

// initStore opens the configured run log.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// buildPipeline wires config into a Pipeline.
func buildPipeline(c *config.Config) (*pipeline.Pipeline, error) {
	opts, err := pipelineOptions(c)
	if err != nil {
		return nil, err
	}

	h := pipeline.DefaultHeuristics()
	if c.Pipeline.HeuristicsFile != "" {
		h, err = pipeline.LoadHeuristics(c.Pipeline.HeuristicsFile)
		if err != nil {
			return nil, eris.Wrap(err, "load heuristics")
		}
	}

	return pipeline.New(buildFetcher(c), buildCompleter(c), buildSearcher(c), h, opts), nil
}

func pipelineOptions(c *config.Config) (pipeline.Options, error) {
	variant, err := pipeline.ParseVariant(c.Pipeline.Variant)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.DefaultOptions()
	opts.Variant = variant
	opts.FetchTimeout = config.Seconds(c.Fetch.TimeoutSecs)
	opts.AITimeout = config.Seconds(c.AI.TimeoutSecs)
	opts.SearchTimeout = config.Seconds(c.Search.TimeoutSecs)
	opts.MaxQueries = c.Search.MaxQueries
	opts.MaxCompetitors = c.Pipeline.MaxCompetitors
	if c.Fetch.SatelliteTimeoutSecs > 0 {
		opts.Satellite.Timeout = config.Seconds(c.Fetch.SatelliteTimeoutSecs)
	}
	opts.Validator = pipeline.ValidatorConfig{
		MaxCandidates: c.Pipeline.MaxCandidates,
		MinRelevance:  c.Pipeline.MinRelevance,
		FetchTimeout:  config.Seconds(c.Fetch.ValidationTimeoutSecs),
		AITimeout:     opts.AITimeout,
	}
	return opts, nil
}

func buildFetcher(c *config.Config) *scrape.Fetcher {
	var opts []scrape.FetcherOption
	if c.Fetch.TimeoutSecs > 0 {
		opts = append(opts, scrape.WithTimeout(config.Seconds(c.Fetch.TimeoutSecs)))
	}
	if c.Fetch.MaxBodyBytes > 0 {
		opts = append(opts, scrape.WithMaxBodyBytes(c.Fetch.MaxBodyBytes))
	}
	if c.Fetch.UserAgent != "" {
		opts = append(opts, scrape.WithUserAgent(c.Fetch.UserAgent))
	}
	return scrape.NewFetcher(opts...)
}

// buildCompleter returns nil (not a typed nil) when the selected provider
// has no key, so AI stages fall back to heuristics.
func buildCompleter(c *config.Config) pipeline.Completer {
	switch c.AI.Provider {
	case "openai":
		if c.OpenAI.Key == "" {
			zap.L().Warn("openai.key not set, AI stages disabled")
			return nil
		}
		return &pipeline.OpenAICompleter{
			Client: openai.NewClient(c.OpenAI.Key, openai.WithBaseURL(c.OpenAI.BaseURL), openai.WithModel(c.OpenAI.Model)),
			Model:  c.OpenAI.Model,
		}
	default:
		if c.Anthropic.Key == "" {
			zap.L().Warn("anthropic.key not set, AI stages disabled")
			return nil
		}
		return &pipeline.AnthropicCompleter{
			Client: anthropicpkg.NewClient(c.Anthropic.Key),
			Model:  c.Anthropic.Model,
		}
	}
}

func aiModel(c *config.Config) string {
	if c.AI.Provider == "openai" {
		return c.OpenAI.Model
	}
	return c.Anthropic.Model
}

// buildSearcher returns nil when the selected provider has no credentials.
func buildSearcher(c *config.Config) pipeline.Searcher {
	switch c.Search.Provider {
	case "jina":
		if c.Jina.Key == "" {
			zap.L().Warn("jina.key not set, search disabled")
			return nil
		}
		var opts []jina.Option
		if c.Jina.SearchBaseURL != "" {
			opts = append(opts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
		}
		return &pipeline.JinaSearcher{
			Client:   jina.NewClient(c.Jina.Key, opts...),
			Country:  c.Search.Country,
			Language: c.Search.LanguageCode,
			Count:    c.Search.Depth,
		}
	default:
		if c.DataForSEO.Login == "" || c.DataForSEO.Password == "" {
			zap.L().Warn("dataforseo credentials not set, search disabled")
			return nil
		}
		opts := []dataforseo.Option{dataforseo.WithRateLimit(c.Search.QPS)}
		if c.DataForSEO.BaseURL != "" {
			opts = append(opts, dataforseo.WithBaseURL(c.DataForSEO.BaseURL))
		}
		return &pipeline.DataForSEOSearcher{
			Client:       dataforseo.NewClient(c.DataForSEO.Login, c.DataForSEO.Password, opts...),
			LocationCode: c.Search.LocationCode,
			LanguageCode: c.Search.LanguageCode,
			Depth:        c.Search.Depth,
		}
	}
}

// buildCalculator overlays configured prices on the default rates.
func buildCalculator(c *config.Config) *cost.Calculator {
	rates := cost.DefaultRates()
	for name, p := range c.Pricing.Models {
		rates.Models[name] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	rates.DataForSEO.PerQuery = c.Pricing.DataForSEO.PerQuery
	rates.Jina.PerQuery = c.Pricing.Jina.PerQuery
	return cost.NewCalculator(rates)
}

// runRecorder writes finished runs to the run log.
type runRecorder struct {
	store          store.Store
	calc           *cost.Calculator
	aiModel        string
	searchProvider string
}

func newRunRecorder(st store.Store, calc *cost.Calculator, aiModel, searchProvider string) *runRecorder {
	return &runRecorder{store: st, calc: calc, aiModel: aiModel, searchProvider: searchProvider}
}

// newRun builds the run log entry for one pipeline invocation.
func (r *runRecorder) newRun(id, rawURL string, variant pipeline.Variant, res *model.Result, runErr error, started time.Time) *model.Run {
	run := &model.Run{
		ID:        id,
		URL:       rawURL,
		Variant:   string(variant),
		Status:    runStatus(runErr),
		Duration:  time.Since(started),
		CreatedAt: started.UTC(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
		return run
	}
	run.CompanyName = res.BusinessInfo.CompanyName
	run.Industry = res.BusinessInfo.Industry
	run.Competitors = res.Competitors
	run.Usage = res.Usage
	if r.calc != nil {
		run.Cost = r.calc.Run(r.aiModel, r.searchProvider, res.Usage)
	}
	return run
}

// Record saves the run. Failures are logged, not returned.
func (r *runRecorder) Record(ctx context.Context, id, rawURL string, variant pipeline.Variant, res *model.Result, runErr error, started time.Time) *model.Run {
	run := r.newRun(id, rawURL, variant, res, runErr, started)
	if err := r.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Error("failed to record run", zap.String("run_id", id), zap.Error(err))
	}
	return run
}

func runStatus(err error) model.RunStatus {
	if err == nil {
		return model.RunStatusComplete
	}
	var invalid *scrape.InvalidURLError
	var fetchErr *scrape.FetchError
	switch {
	case errors.As(err, &invalid):
		return model.RunStatusInvalidURL
	case errors.As(err, &fetchErr):
		return model.RunStatusFetchError
	default:
		return model.RunStatusFailed
	}
}
