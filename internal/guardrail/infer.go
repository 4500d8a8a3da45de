package guardrail

import (
	"strings"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
)

// InferDataset picks the dataset containing the most candidate field names.
//
// A strict winner is required. When two or more datasets share the top score,
// or no dataset contains any candidate, it refuses with an
// AmbiguousInferenceError whose suggestions are the tied dataset names.
// Duplicate candidates count once.
func InferDataset(candidateFields []string, datasets []ir.Dataset) (ir.Dataset, error) {
	if len(datasets) == 0 {
		return ir.Dataset{}, qerr.New(qerr.KindAmbiguousInference, "no datasets to infer from")
	}

	seen := make(map[string]bool, len(candidateFields))
	var unique []string
	for _, f := range candidateFields {
		if !seen[f] {
			seen[f] = true
			unique = append(unique, f)
		}
	}

	best := -1
	var tied []int
	for i, ds := range datasets {
		score := 0
		for _, f := range unique {
			if ds.HasField(f) {
				score++
			}
		}
		switch {
		case score > best:
			best = score
			tied = []int{i}
		case score == best:
			tied = append(tied, i)
		}
	}

	names := make([]string, len(tied))
	for i, idx := range tied {
		names[i] = datasets[idx].Name
	}
	if best == 0 {
		return ir.Dataset{}, qerr.New(qerr.KindAmbiguousInference, "no dataset contains any of the fields %s; specify a dataset", strings.Join(unique, ", ")).
			WithSuggestions(names)
	}
	if len(tied) > 1 {
		return ir.Dataset{}, qerr.New(qerr.KindAmbiguousInference, "datasets %s match equally well (%d fields each); specify a dataset", strings.Join(names, ", "), best).
			WithSuggestions(names)
	}
	return datasets[tied[0]], nil
}
