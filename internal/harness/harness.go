package harness

import (
	"context"
	"fmt"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/logging"
	"github.com/roach88/huntql/internal/platform"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/schema"
	"github.com/roach88/huntql/internal/schemasrc"
	"github.com/roach88/huntql/internal/schemasrc/builtin"
	"github.com/roach88/huntql/internal/service"
	"github.com/roach88/huntql/internal/testutil"
)

// Harness executes one scenario against its own service.
type Harness struct {
	svc *service.Service
}

// NewService wires a service for s: schema directories from the scenario,
// embedded schemas for the rest, sequential request IDs and no index cache.
func NewService(s *Scenario) (*service.Service, error) {
	limits := make(map[ir.PlatformID]int, len(s.MaxLimits))
	for name, n := range s.MaxLimits {
		limits[platform.ParseID(name)] = n
	}

	sources := make(map[ir.PlatformID]schema.Source, len(ir.AllPlatforms()))
	for _, id := range ir.AllPlatforms() {
		sources[id] = builtin.Source(id)
	}
	for name, dir := range s.Schemas {
		sources[platform.ParseID(name)] = schemasrc.NewDir(dir)
	}

	return service.New(service.Config{
		Logger:    logging.Discard(),
		Platforms: platform.All(limits),
		Sources:   sources,
		IDs:       testutil.NewSequentialIDGenerator(""),
	})
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh service. Execution flow:
// 1. Wire the service and load every schema
// 2. Execute steps in order, checking expect clauses
// 3. Evaluate assertions against the trace
//
// Failed expectations are reported in the result; the error return is
// reserved for scenarios that cannot run at all.
func Run(scenario *Scenario) (*Result, error) {
	svc, err := NewService(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()
	if err := svc.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	h := &Harness{svc: svc}
	result := NewResult()
	h.executeSteps(ctx, scenario.Steps, result)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		if step.Build != nil {
			resp := h.svc.Build(ctx, *step.Build)
			result.AddBuildTrace(i, resp)
			if msg := checkBuild(step.Expect, resp); msg != "" {
				result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
			}
			continue
		}

		resp := h.svc.Retrieve(ctx, *step.Retrieve)
		result.AddRetrieveTrace(i, resp)
		if msg := checkRetrieve(step.Expect, resp); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
		}
	}
}

// checkBuild returns "" when resp satisfies expect.
func checkBuild(expect *ExpectClause, resp service.Response) string {
	if expect == nil {
		return ""
	}
	if expect.Error != "" {
		if resp.Error == nil {
			return fmt.Sprintf("expected %s, got query %q", expect.Error, resp.Query)
		}
		if resp.Error.Kind != qerr.Kind(expect.Error) {
			return fmt.Sprintf("expected %s, got %s: %s", expect.Error, resp.Error.Kind, resp.Error.Message)
		}
		return ""
	}
	if resp.Error != nil {
		return fmt.Sprintf("expected success, got %s: %s", resp.Error.Kind, resp.Error.Message)
	}
	if expect.Query != "" && resp.Query != expect.Query {
		return fmt.Sprintf("query mismatch\n  expected: %q\n  actual:   %q", expect.Query, resp.Query)
	}
	return ""
}

func checkRetrieve(expect *ExpectClause, resp service.RetrievalResponse) string {
	if expect == nil {
		return ""
	}
	if expect.Error != "" {
		if resp.Error == nil {
			return fmt.Sprintf("expected %s, got %d matches", expect.Error, len(resp.Matches))
		}
		if resp.Error.Kind != qerr.Kind(expect.Error) {
			return fmt.Sprintf("expected %s, got %s: %s", expect.Error, resp.Error.Kind, resp.Error.Message)
		}
		return ""
	}
	if resp.Error != nil {
		return fmt.Sprintf("expected success, got %s: %s", resp.Error.Kind, resp.Error.Message)
	}
	return ""
}
