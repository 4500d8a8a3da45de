// Package guardrail validates request identifiers and values against a
// schema snapshot before any query is assembled.
//
// Every function is pure: it reads the snapshot and its arguments, performs
// no I/O and returns either the validated entity or a *qerr.Error.
package guardrail

import (
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/schema"
	"github.com/roach88/huntql/internal/similarity"
)

// Defaults for Options.
const (
	DefaultMaxSuggestions  = 3
	DefaultSuggestionFloor = 0.3
)

// Options tunes an Engine.
type Options struct {
	// Scorer ranks suggestions. Defaults to similarity.Default.
	Scorer similarity.Scorer

	// MaxSuggestions caps suggestion lists. Defaults to 3.
	MaxSuggestions int

	// SuggestionFloor is the minimum score for a suggestion. Candidates
	// within edit distance 2 are suggested regardless. Defaults to 0.3.
	SuggestionFloor float64
}

// Engine applies guardrails. The zero value is not usable; call New.
type Engine struct {
	scorer   similarity.Scorer
	maxSugg  int
	floor    float64
	patterns []dangerousPattern
}

// New creates an Engine, filling unset options with defaults.
func New(opts Options) *Engine {
	if opts.Scorer == nil {
		opts.Scorer = similarity.Default
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	if opts.SuggestionFloor <= 0 {
		opts.SuggestionFloor = DefaultSuggestionFloor
	}
	return &Engine{
		scorer:   opts.Scorer,
		maxSugg:  opts.MaxSuggestions,
		floor:    opts.SuggestionFloor,
		patterns: defaultPatterns,
	}
}

// ResolveDataset finds a dataset by name.
//
// An exact, case-sensitive match wins. Failing that, a case-insensitive name
// or alias match is accepted; callers detect it by comparing the returned
// name with the input. On a miss the error is an UnknownDatasetError with up
// to MaxSuggestions ranked names.
func (e *Engine) ResolveDataset(snap *schema.Snapshot, name string) (ir.Dataset, error) {
	if err := ValidateIdentifier(name); err != nil {
		return ir.Dataset{}, err
	}
	if ds, ok := snap.Dataset(name); ok {
		return ds, nil
	}
	if ds, ok := snap.LookupFold(name); ok {
		return ds, nil
	}
	return ir.Dataset{}, qerr.New(qerr.KindUnknownDataset, "unknown %s dataset %q", snap.Platform(), name).
		WithSuggestions(e.Suggest(name, snap.DatasetNames()))
}

// ResolveField finds a field of ds by exact, case-sensitive name. On a miss
// the error is an UnknownFieldError with suggestions from ds's fields only.
func (e *Engine) ResolveField(ds ir.Dataset, name string) (ir.Field, error) {
	if err := ValidateIdentifier(name); err != nil {
		return ir.Field{}, err
	}
	if f, ok := ds.Field(name); ok {
		return f, nil
	}
	return ir.Field{}, qerr.New(qerr.KindUnknownField, "unknown field %q in %s", name, ds.Name).
		WithSuggestions(e.Suggest(name, ds.FieldNames())).
		WithDetail("dataset", ds.Name)
}

// Suggest ranks candidates against name and returns at most MaxSuggestions,
// best first. Ties break by shorter edit distance, then lexical order.
func (e *Engine) Suggest(name string, candidates []string) []string {
	ranked := similarity.Rank(e.scorer, name, candidates, len(candidates), 0)
	out := make([]string, 0, e.maxSugg)
	for _, r := range ranked {
		if len(out) == e.maxSugg {
			break
		}
		if r.Score >= e.floor || r.Distance <= 2 {
			out = append(out, r.Value)
		}
	}
	return out
}
