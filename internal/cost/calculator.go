// Package cost prices the inference and search usage of a discovery run.
package cost

import "github.com/sells-group/competitor-cli/internal/model"

// Rates holds per-provider pricing configuration.
type Rates struct {
	Models     map[string]ModelRate `yaml:"models" mapstructure:"models"`
	DataForSEO SearchRate           `yaml:"dataforseo" mapstructure:"dataforseo"`
	Jina       SearchRate           `yaml:"jina" mapstructure:"jina"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// SearchRate holds flat per-query SERP pricing.
type SearchRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens computes the cost of input and output tokens on model. Unknown
// models cost nothing.
func (c *Calculator) Tokens(model string, input, output int) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// SearchQueries returns the cost of n queries against the named SERP
// provider ("dataforseo" or "jina").
func (c *Calculator) SearchQueries(provider string, n int) float64 {
	switch provider {
	case "dataforseo":
		return float64(n) * c.rates.DataForSEO.PerQuery
	case "jina":
		return float64(n) * c.rates.Jina.PerQuery
	}
	return 0
}

// Run prices the usage of one pipeline run.
func (c *Calculator) Run(aiModel, searchProvider string, u model.Usage) float64 {
	return c.Tokens(aiModel, u.InputTokens, u.OutputTokens) + c.SearchQueries(searchProvider, u.SearchQueries)
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
			"gpt-4o":                     {Input: 2.50, Output: 10.00},
		},
		DataForSEO: SearchRate{PerQuery: 0.002},
		Jina:       SearchRate{PerQuery: 0},
	}
}
