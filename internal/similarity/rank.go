package similarity

import (
	"cmp"
	"slices"
)

// Ranked is one candidate with its score against a query.
type Ranked struct {
	Value    string
	Score    float64
	Distance int
}

// Rank scores every candidate against query and returns up to limit
// candidates scoring at least minScore. Order is descending score, then
// ascending edit distance, then lexical order, so the result is fully
// deterministic.
func Rank(s Scorer, query string, candidates []string, limit int, minScore float64) []Ranked {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}
	ranked := make([]Ranked, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		score := s.Score(query, c)
		if score < minScore {
			continue
		}
		ranked = append(ranked, Ranked{Value: c, Score: score, Distance: s.Distance(query, c)})
	}
	slices.SortFunc(ranked, func(a, b Ranked) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Values extracts the candidate strings from a ranking.
func Values(r []Ranked) []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Value
	}
	return out
}
