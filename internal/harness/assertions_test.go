package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/service"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.AddBuildTrace(0, service.Response{
		Query: "DeviceProcessEvents\n| take 10",
		Metadata: &service.Metadata{
			Dataset:       "DeviceProcessEvents",
			Warnings:      []string{"boolean operator defaulted to AND"},
			MatchedFields: []string{"Timestamp", "FileName"},
			ASTDigest:     "abc",
		},
	})
	r.AddBuildTrace(1, service.Response{
		Error: &service.ErrorBody{Kind: qerr.KindUnknownField, Message: "unknown field", Suggestions: []string{"FileName", "FolderPath"}},
	})
	r.AddRetrieveTrace(2, service.RetrievalResponse{Matches: []service.Match{
		{Source: ir.PlatformKQL, Kind: ir.KindField, Text: "FileName", Score: 0.9},
	}})
	r.AddBuildTrace(3, service.Response{
		Query:    "DeviceProcessEvents\n| take 10",
		Metadata: &service.Metadata{Dataset: "DeviceProcessEvents", ASTDigest: "abc"},
	})
	return r.Trace
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	result := &Result{Pass: true, Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertQueryContains, Step: 0, Value: "take 10"},
		{Type: AssertWarningContains, Step: 0, Value: "AND"},
		{Type: AssertDataset, Step: 0, Value: "DeviceProcessEvents"},
		{Type: AssertMatchedFields, Step: 0, Values: []string{"Timestamp", "FileName"}},
		{Type: AssertSuggestions, Step: 1, Values: []string{"FolderPath"}},
		{Type: AssertMinMatches, Step: 2, Count: 1},
		{Type: AssertTopMatch, Step: 2, Value: "kql"},
		{Type: AssertSameQuery, Steps: []int{0, 3}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	result := &Result{Pass: true, Trace: sampleTrace()}
	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{"query", Assertion{Type: AssertQueryContains, Step: 0, Value: "project"}, `query containing "project"`},
		{"warning", Assertion{Type: AssertWarningContains, Step: 0, Value: "limit"}, `warning containing "limit"`},
		{"dataset", Assertion{Type: AssertDataset, Step: 0, Value: "DeviceFileEvents"}, "Expected: DeviceFileEvents"},
		{"matched order", Assertion{Type: AssertMatchedFields, Step: 0, Values: []string{"FileName", "Timestamp"}}, "matched_fields"},
		{"suggestion", Assertion{Type: AssertSuggestions, Step: 1, Values: []string{"SHA1"}}, `suggestion "SHA1"`},
		{"suggestions on success", Assertion{Type: AssertSuggestions, Step: 0, Values: []string{"x"}}, "rejected build"},
		{"rejected step", Assertion{Type: AssertDataset, Step: 1, Value: "x"}, "UnknownFieldError"},
		{"min matches", Assertion{Type: AssertMinMatches, Step: 2, Count: 3}, "at least 3 matches"},
		{"top match", Assertion{Type: AssertTopMatch, Step: 2, Value: "cbc"}, "top match from cbc"},
		{"same query", Assertion{Type: AssertSameQuery, Steps: []int{0, 1}}, "UnknownFieldError"},
		{"no such step", Assertion{Type: AssertDataset, Step: 9, Value: "x"}, "no build step"},
		{"unknown type", Assertion{Type: "vibes"}, `unknown assertion type "vibes"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.a})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{Type: AssertDataset, Expected: "a", Actual: "b", Trace: sampleTrace()}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: dataset")
	assert.Contains(t, msg, "Expected: a")
	assert.Contains(t, msg, "Actual: b")
	assert.Contains(t, msg, "[1] build UnknownFieldError: unknown field")
	assert.Contains(t, msg, "[2] retrieve 1 matches")
}

func TestSnapshot(t *testing.T) {
	data, err := Snapshot("sample", sampleTrace()[1:3])
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"sample","steps":[`+
			`{"error":{"kind":"UnknownFieldError","message":"unknown field","top_suggestion":"FileName"},"step":1,"type":"build"},`+
			`{"matches":[{"kind":"field","score":"0.9000","source":"kql","text":"FileName"}],"step":2,"type":"retrieve"}]}`,
		string(data))
}
