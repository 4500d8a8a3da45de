package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/service"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		s, err := LoadScenario(f)
		require.NoError(t, err, f)
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(s.Steps))
		})
	}
}

func TestRunWithGolden_KQLProcessHunt(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/kql_process_hunt.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/intent_inference.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first.Trace)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	// Fresh service per run, so request IDs restart.
	assert.Equal(t, first.Trace[0].Build.Metadata.RequestID, second.Trace[0].Build.Metadata.RequestID)
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: failing
description: every expectation is wrong
steps:
  - build: {platform: kql, dataset: DeviceProcessEvents, limit: 5}
    expect: {query: "nope"}
  - build: {platform: kql, dataset: Nope}
    expect: {}
  - build: {platform: kql, dataset: DeviceProcessEvents}
    expect: {error: LimitExceededError}
  - retrieve: {query: logon, source: splunk}
    expect: {}
assertions:
  - {type: dataset, step: 0, value: DeviceFileEvents}
  - {type: warning_contains, step: 1, value: anything}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "steps[0]: query mismatch")
	assert.Contains(t, result.Errors[1], "steps[1]: expected success, got UnknownDatasetError")
	assert.Contains(t, result.Errors[2], "steps[2]: expected LimitExceededError, got query")
	assert.Contains(t, result.Errors[3], "steps[3]: expected success, got UnknownDatasetError")
	assert.Contains(t, result.Errors[4], "assertions[0]")
	assert.Contains(t, result.Errors[5], "successful build at step 1")
}

func TestRun_MissingSchemaDirectoryFailsToStartOnlyThatPlatform(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: degraded
description: a missing schema directory leaves the platform degraded
schemas: {s1: /definitely/missing}
steps:
  - build: {platform: s1}
    expect: {error: SchemaLoadError}
  - build: {platform: kql}
    expect: {}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestCheckBuild(t *testing.T) {
	ok := service.Response{Query: "q", Metadata: &service.Metadata{}}
	rejected := service.Response{Error: &service.ErrorBody{Kind: qerr.KindUnknownField, Message: "m"}}

	assert.Empty(t, checkBuild(nil, rejected))
	assert.Empty(t, checkBuild(&ExpectClause{}, ok))
	assert.Empty(t, checkBuild(&ExpectClause{Query: "q"}, ok))
	assert.Empty(t, checkBuild(&ExpectClause{Error: "UnknownFieldError"}, rejected))
	assert.Contains(t, checkBuild(&ExpectClause{Error: "UnknownDatasetError"}, rejected), "got UnknownFieldError")
	assert.Contains(t, checkBuild(&ExpectClause{Query: "other"}, ok), "query mismatch")
}
