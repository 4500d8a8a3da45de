package index

import (
	"cmp"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/similarity"
)

// Match is one search hit.
type Match struct {
	ID     string          `json:"id"`
	Source ir.PlatformID   `json:"source"`
	Kind   ir.DocumentKind `json:"kind"`
	Text   string          `json:"text"`
	Score  float64         `json:"score"`
}

// Search returns up to k documents scoring at least MinScore against query,
// best first. The query is case-folded before scoring. Equal scores keep corpus insertion order. A non-empty source
// restricts candidates to that platform.
//
// An empty corpus, blank query or non-positive k yields an empty result,
// never an error.
func (ix *Index) Search(query string, k int, source ir.PlatformID) []Match {
	c := ix.current.Load()
	q := similarity.Normalize(query)
	if c == nil || len(c.docs) == 0 || q == "" || k <= 0 {
		return []Match{}
	}

	key := searchKey(c.generation, q, k, source)
	if item := ix.results.Get(key); item != nil {
		return slices.Clone(item.Value())
	}

	var candidates []int
	if source != "" {
		candidates = c.bySource[source]
	} else {
		candidates = make([]int, len(c.docs))
		for i := range c.docs {
			candidates[i] = i
		}
	}

	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, 0, len(candidates))
	for _, pos := range candidates {
		score := ix.cfg.Scorer.Score(q, c.docs[pos].Text)
		if score < ix.cfg.MinScore {
			continue
		}
		hits = append(hits, hit{pos: pos, score: score})
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]Match, len(hits))
	for i, h := range hits {
		d := c.docs[h.pos]
		out[i] = Match{ID: d.ID, Source: d.Source, Kind: d.Kind, Text: d.Text, Score: h.score}
	}
	ix.results.Set(key, out, ix.cfg.SearchCacheTTL)
	return slices.Clone(out)
}

// searchKey includes the corpus generation, so a swap invalidates every
// memoised result without touching the cache. query must already be
// normalised.
func searchKey(generation uint64, query string, k int, source ir.PlatformID) string {
	return strings.Join([]string{
		strconv.FormatUint(generation, 10),
		query,
		strconv.Itoa(k),
		string(source),
	}, "\x00")
}

// Stats describes the current corpus.
type Stats struct {
	Generation   uint64                             `json:"generation"`
	Documents    int                                `json:"documents"`
	BySource     map[ir.PlatformID]int              `json:"by_source"`
	ByKind       map[ir.DocumentKind]int            `json:"by_kind"`
	Versions     map[ir.PlatformID]ir.SchemaVersion `json:"versions"`
	Sources      []ir.PlatformID                    `json:"sources"`
	BuilderCalls int64                              `json:"builder_calls"`
}

// Stats reports on the current corpus. A never-built index reports zero
// documents.
func (ix *Index) Stats() Stats {
	st := Stats{
		BySource:     map[ir.PlatformID]int{},
		ByKind:       map[ir.DocumentKind]int{},
		Versions:     map[ir.PlatformID]ir.SchemaVersion{},
		BuilderCalls: ix.builds.Load(),
	}
	for _, r := range ix.registrations() {
		st.Sources = append(st.Sources, r.platform)
	}
	c := ix.current.Load()
	if c == nil {
		return st
	}
	st.Generation = c.generation
	st.Documents = len(c.docs)
	st.Versions = maps.Clone(c.versions)
	for _, d := range c.docs {
		st.BySource[d.Source]++
		st.ByKind[d.Kind]++
	}
	return st
}
