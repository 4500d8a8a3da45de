package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/huntql/internal/platform"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/service"
)

// Scenario is a sequence of build and retrieve requests with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Schemas maps platform names to schema directories. Relative paths
	// resolve against the scenario file. Unlisted platforms use the embedded
	// schemas.
	Schemas map[string]string `yaml:"schemas,omitempty"`

	// MaxLimits overrides per-platform row limit ceilings.
	MaxLimits map[string]int `yaml:"max_limits,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is exactly one of a build or a retrieve request.
type Step struct {
	Build    *service.Request          `yaml:"build,omitempty"`
	Retrieve *service.RetrievalRequest `yaml:"retrieve,omitempty"`

	// Expect is checked against the step's response. If nil, any response
	// is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause describes the expected response of a step.
type ExpectClause struct {
	// Query is the exact expected query. Empty skips the comparison.
	Query string `yaml:"query,omitempty"`

	// Error is the expected error kind. Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace after all steps ran.
type Assertion struct {
	Type   string   `yaml:"type"`
	Step   int      `yaml:"step"`
	Value  string   `yaml:"value,omitempty"`
	Values []string `yaml:"values,omitempty"`
	Count  int      `yaml:"count,omitempty"`
	Steps  []int    `yaml:"steps,omitempty"`
}

// Assertion type constants.
const (
	AssertQueryContains   = "query_contains"
	AssertWarningContains = "warning_contains"
	AssertDataset         = "dataset"
	AssertMatchedFields   = "matched_fields"
	AssertSuggestions     = "suggestions"
	AssertMinMatches      = "min_matches"
	AssertTopMatch        = "top_match"
	AssertSameQuery       = "same_query"
)

// LoadScenario reads and parses a scenario YAML file. Schema paths resolve
// against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// relative schema paths against basePath. Unknown fields are rejected.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for name, dir := range scenario.Schemas {
		if !filepath.IsAbs(dir) && basePath != "" {
			scenario.Schemas[name] = filepath.Join(basePath, dir)
		}
	}
	for name, dir := range scenario.Schemas {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: schema directory for %s not found: %s", name, dir)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Schema paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for name := range s.Schemas {
		if !platform.ParseID(name).Valid() {
			return fmt.Errorf("schemas: unknown platform %q", name)
		}
	}
	for name, n := range s.MaxLimits {
		if !platform.ParseID(name).Valid() {
			return fmt.Errorf("max_limits: unknown platform %q", name)
		}
		if n <= 0 {
			return fmt.Errorf("max_limits: %s must be positive", name)
		}
	}

	for i, step := range s.Steps {
		if (step.Build == nil) == (step.Retrieve == nil) {
			return fmt.Errorf("steps[%d]: exactly one of build or retrieve is required", i)
		}
		if step.Expect == nil {
			continue
		}
		if step.Expect.Error != "" && !slices.Contains(qerr.Kinds(), qerr.Kind(step.Expect.Error)) {
			return fmt.Errorf("steps[%d].expect: unknown error kind %q", i, step.Expect.Error)
		}
		if step.Expect.Error != "" && step.Expect.Query != "" {
			return fmt.Errorf("steps[%d].expect: query and error are mutually exclusive", i)
		}
		if step.Retrieve != nil && step.Expect.Query != "" {
			return fmt.Errorf("steps[%d].expect: retrieve steps have no query", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s.Steps); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps []Step) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	stepKind := func(i int, wantBuild bool) error {
		if i < 0 || i >= len(steps) {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, i)
		}
		if wantBuild && steps[i].Build == nil {
			return fmt.Errorf("assertions[%d]: %s needs a build step, step %d is not", index, a.Type, i)
		}
		if !wantBuild && steps[i].Retrieve == nil {
			return fmt.Errorf("assertions[%d]: %s needs a retrieve step, step %d is not", index, a.Type, i)
		}
		return nil
	}

	switch a.Type {
	case AssertQueryContains, AssertWarningContains, AssertDataset:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
		return stepKind(a.Step, true)
	case AssertMatchedFields, AssertSuggestions:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for %s", index, a.Type)
		}
		return stepKind(a.Step, true)
	case AssertMinMatches:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for min_matches", index)
		}
		return stepKind(a.Step, false)
	case AssertTopMatch:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for top_match", index)
		}
		return stepKind(a.Step, false)
	case AssertSameQuery:
		if len(a.Steps) < 2 {
			return fmt.Errorf("assertions[%d]: same_query needs at least two steps", index)
		}
		for _, i := range a.Steps {
			if err := stepKind(i, true); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
}
