package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "schemas", "s1"), 0755))
	path := writeScenario(t, dir, `
name: valid
description: loads
schemas:
  sentinelone: schemas/s1
steps:
  - build:
      platform: kql
      dataset: DeviceProcessEvents
      limit: 10
      filters:
        - {field: ProcessId, operator: in, value: [4, 8]}
    expect:
      query: q
  - retrieve: {query: logon, k: 2}
assertions:
  - type: min_matches
    step: 1
    count: 1
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "valid", s.Name)
	assert.Equal(t, filepath.Join(dir, "schemas", "s1"), s.Schemas["sentinelone"])
	require.Len(t, s.Steps, 2)
	b := s.Steps[0].Build
	require.NotNil(t, b)
	assert.Equal(t, "kql", b.Platform)
	assert.Equal(t, "DeviceProcessEvents", b.Dataset)
	require.NotNil(t, b.Limit)
	assert.Equal(t, 10, *b.Limit)
	require.Len(t, b.Filters, 1)
	assert.Equal(t, "in", b.Filters[0].Operator)
	assert.Equal(t, []any{4, 8}, b.Filters[0].Value)
	assert.Equal(t, "q", s.Steps[0].Expect.Query)
	assert.Equal(t, 2, s.Steps[1].Retrieve.K)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingSchemaDir(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: x
description: x
schemas: {cbc: nowhere}
steps:
  - build: {platform: cbc}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema directory for cbc not found")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"malformed", "name: [", "failed to parse YAML"},
		{"unknown field", "name: x\ndescription: x\nstep: []\n", "field step not found"},
		{"unknown request field", "name: x\ndescription: x\nsteps:\n  - build: {platfrom: kql}\n", "field platfrom not found"},
		{"missing name", "description: x\nsteps:\n  - build: {platform: kql}\n", "name is required"},
		{"missing description", "name: x\nsteps:\n  - build: {platform: kql}\n", "description is required"},
		{"no steps", "name: x\ndescription: x\n", "steps list is required"},
		{"empty step", "name: x\ndescription: x\nsteps:\n  - expect: {}\n", "exactly one of build or retrieve"},
		{"both kinds", "name: x\ndescription: x\nsteps:\n  - {build: {platform: kql}, retrieve: {query: q}}\n", "exactly one of build or retrieve"},
		{"bad kind", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\n    expect: {error: Oops}\n", `unknown error kind "Oops"`},
		{"query and error", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\n    expect: {error: QueryBuildError, query: q}\n", "mutually exclusive"},
		{"retrieve query", "name: x\ndescription: x\nsteps:\n  - retrieve: {query: q}\n    expect: {query: q}\n", "retrieve steps have no query"},
		{"unknown platform", "name: x\ndescription: x\nschemas: {qradar: /x}\nsteps:\n  - build: {platform: kql}\n", `unknown platform "qradar"`},
		{"bad limit", "name: x\ndescription: x\nmax_limits: {kql: 0}\nsteps:\n  - build: {platform: kql}\n", "must be positive"},
		{"unknown assertion", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\nassertions:\n  - {type: vibes}\n", `unknown assertion type "vibes"`},
		{"missing type", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\nassertions:\n  - {step: 0}\n", "type is required"},
		{"step out of range", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\nassertions:\n  - {type: dataset, step: 3, value: d}\n", "step 3 out of range"},
		{"wrong step kind", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\nassertions:\n  - {type: min_matches, step: 0, count: 1}\n", "needs a retrieve step"},
		{"missing value", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\nassertions:\n  - {type: query_contains, step: 0}\n", "value is required"},
		{"missing values", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\nassertions:\n  - {type: matched_fields, step: 0}\n", "values list is required"},
		{"same_query one step", "name: x\ndescription: x\nsteps:\n  - build: {platform: kql}\nassertions:\n  - {type: same_query, steps: [0]}\n", "at least two steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadExampleScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			_, err := LoadScenario(f)
			require.NoError(t, err)
		})
	}
}
