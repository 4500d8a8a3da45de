package harness

import (
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/service"
)

// Snapshot renders the parts of a trace that are stable across schema
// edits: queries, datasets, warnings, matched fields, renderer params, error
// kinds and the top suggestion. Schema versions and AST digests are left out
// so golden files survive schema content changes that do not alter output.
// Scores are fixed to four decimals.
func Snapshot(name string, trace []TraceEvent) ([]byte, error) {
	steps := make([]any, len(trace))
	for i, ev := range trace {
		m := map[string]any{"step": ev.Step, "type": ev.Type}
		switch {
		case ev.Build != nil && ev.Build.Error != nil:
			m["error"] = errorMap(ev.Build.Error)
		case ev.Build != nil:
			md := ev.Build.Metadata
			m["query"] = ev.Build.Query
			m["platform"] = string(md.Platform)
			m["dataset"] = md.Dataset
			m["warnings"] = md.Warnings
			m["matched_fields"] = md.MatchedFields
			if len(md.Params) > 0 {
				params := make(map[string]any, len(md.Params))
				for k, v := range md.Params {
					params[k] = v
				}
				m["params"] = params
			}
		case ev.Retrieve != nil && ev.Retrieve.Error != nil:
			m["error"] = errorMap(ev.Retrieve.Error)
		case ev.Retrieve != nil:
			matches := make([]any, len(ev.Retrieve.Matches))
			for j, match := range ev.Retrieve.Matches {
				matches[j] = map[string]any{
					"source": string(match.Source),
					"kind":   string(match.Kind),
					"text":   match.Text,
					"score":  strconv.FormatFloat(match.Score, 'f', 4, 64),
				}
			}
			m["matches"] = matches
		}
		steps[i] = m
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"steps":         steps,
	})
}

func errorMap(e *service.ErrorBody) map[string]any {
	m := map[string]any{"kind": string(e.Kind), "message": e.Message}
	if len(e.Suggestions) > 0 {
		m["top_suggestion"] = e.Suggestions[0]
	}
	return m
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result.Trace)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
