package pipeline

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/competitor-cli/internal/model"
)

// DefaultMaxCompetitors is the largest number of competitors returned.
const DefaultMaxCompetitors = 7

const lowConfidenceBelow = 3

// Rank orders validated competitors and keeps the top n.
func Rank(vs []model.ValidatedCompetitor, n int) []model.Competitor {
	sorted := append([]model.ValidatedCompetitor(nil), vs...)
	sortValidated(sorted)

	cs := make([]model.Candidate, 0, len(sorted))
	for _, v := range sorted {
		cs = append(cs, v.Candidate)
	}
	return project(cs, n)
}

// RankUnvalidated keeps the top n candidates by (queryCount desc, serpScore
// desc, domain asc) when byQueryCount is set, by serpScore alone otherwise.
func RankUnvalidated(cs []model.Candidate, n int, byQueryCount bool) []model.Competitor {
	sorted := append([]model.Candidate(nil), cs...)
	if byQueryCount {
		sortCandidates(sorted)
	} else {
		sortByScore(sorted)
	}
	return project(sorted, n)
}

func project(cs []model.Candidate, n int) []model.Competitor {
	if n <= 0 {
		n = DefaultMaxCompetitors
	}
	out := []model.Competitor{}
	for _, c := range cs {
		if len(out) == n {
			break
		}
		name := c.Name
		if name == "" {
			name = nameFromDomain(c.Domain)
		}
		out = append(out, model.Competitor{Domain: c.Domain, Name: name})
	}
	if len(out) < lowConfidenceBelow {
		zap.L().Warn("pipeline: low confidence, few competitors found", zap.Int("competitors", len(out)))
	}
	return out
}

func sortByScore(cs []model.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].SERPScore != cs[j].SERPScore {
			return cs[i].SERPScore > cs[j].SERPScore
		}
		return cs[i].Domain < cs[j].Domain
	})
}
