package model

// Candidate is a domain surfaced by one or more search queries.
// Domain is the identity key: lower-cased, without "www.".
type Candidate struct {
	Domain     string  `json:"domain"`
	Name       string  `json:"name,omitempty"`
	URL        string  `json:"url"`
	Snippet    string  `json:"snippet,omitempty"`
	SERPScore  float64 `json:"serpScore"`
	QueryCount int     `json:"queryCount"`
}

// ValidatedCompetitor is a candidate that passed AI validation.
type ValidatedCompetitor struct {
	Candidate
	RelevanceScore int    `json:"relevanceScore"`
	Reason         string `json:"validationReason"`
}

// Competitor is the public projection of a ranked competitor.
type Competitor struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

// Result is the full output of one discovery run.
type Result struct {
	Success             bool             `json:"success"`
	BusinessInfo        BusinessProfile  `json:"businessInfo"`
	Competitors         []Competitor     `json:"competitors"`
	ContentAnalysis     ContentAnalysis  `json:"content_analysis"`
	AdditionalPages     []AdditionalPage `json:"additional_pages"`
	StructuredDataFound bool             `json:"structured_data_found"`
	Offerings           Offering         `json:"offerings"`
	Queries             []string         `json:"queries"`

	// Fields below are recorded in the run log only.
	Variant    string                `json:"-"`
	Candidates int                   `json:"-"`
	Validated  []ValidatedCompetitor `json:"-"`
	Usage      Usage                 `json:"-"`
}

// Usage counts the billable external calls made during a run.
type Usage struct {
	InputTokens   int `json:"input_tokens"`
	OutputTokens  int `json:"output_tokens"`
	AICalls       int `json:"ai_calls"`
	SearchQueries int `json:"search_queries"`
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:   u.InputTokens + o.InputTokens,
		OutputTokens:  u.OutputTokens + o.OutputTokens,
		AICalls:       u.AICalls + o.AICalls,
		SearchQueries: u.SearchQueries + o.SearchQueries,
	}
}
