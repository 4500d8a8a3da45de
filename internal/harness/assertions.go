package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/huntql/internal/service"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Step, event.Type, summarize(event))
	}
	return buf.String()
}

func summarize(e TraceEvent) string {
	switch {
	case e.Build != nil && e.Build.Error != nil:
		return string(e.Build.Error.Kind) + ": " + e.Build.Error.Message
	case e.Build != nil:
		return fmt.Sprintf("%q", e.Build.Query)
	case e.Retrieve != nil && e.Retrieve.Error != nil:
		return string(e.Retrieve.Error.Kind) + ": " + e.Retrieve.Error.Message
	case e.Retrieve != nil:
		return fmt.Sprintf("%d matches", len(e.Retrieve.Matches))
	}
	return ""
}

// event returns the trace event for step, or nil.
func event(trace []TraceEvent, step int) *TraceEvent {
	for i := range trace {
		if trace[i].Step == step {
			return &trace[i]
		}
	}
	return nil
}

// built returns the successful build response of step, or an error
// describing why there is none.
func built(trace []TraceEvent, a Assertion, step int) (*service.Response, error) {
	ev := event(trace, step)
	if ev == nil || ev.Build == nil {
		return nil, &AssertionError{Type: a.Type, Expected: fmt.Sprintf("build at step %d", step), Actual: "no build step", Trace: trace}
	}
	if ev.Build.Error != nil && a.Type != AssertSuggestions {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("successful build at step %d", step),
			Actual:   fmt.Sprintf("%s: %s", ev.Build.Error.Kind, ev.Build.Error.Message),
			Trace:    trace,
		}
	}
	return ev.Build, nil
}

func retrieved(trace []TraceEvent, a Assertion) (*service.RetrievalResponse, error) {
	ev := event(trace, a.Step)
	if ev == nil || ev.Retrieve == nil {
		return nil, &AssertionError{Type: a.Type, Expected: fmt.Sprintf("retrieve at step %d", a.Step), Actual: "no retrieve step", Trace: trace}
	}
	return ev.Retrieve, nil
}

func assertQueryContains(trace []TraceEvent, a Assertion) error {
	resp, err := built(trace, a, a.Step)
	if err != nil {
		return err
	}
	if !strings.Contains(resp.Query, a.Value) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("query containing %q", a.Value), Actual: fmt.Sprintf("%q", resp.Query), Trace: trace}
	}
	return nil
}

func assertWarningContains(trace []TraceEvent, a Assertion) error {
	resp, err := built(trace, a, a.Step)
	if err != nil {
		return err
	}
	for _, w := range resp.Metadata.Warnings {
		if strings.Contains(w, a.Value) {
			return nil
		}
	}
	return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("warning containing %q", a.Value), Actual: fmt.Sprintf("%q", resp.Metadata.Warnings), Trace: trace}
}

func assertDataset(trace []TraceEvent, a Assertion) error {
	resp, err := built(trace, a, a.Step)
	if err != nil {
		return err
	}
	if resp.Metadata.Dataset != a.Value {
		return &AssertionError{Type: a.Type, Expected: a.Value, Actual: resp.Metadata.Dataset, Trace: trace}
	}
	return nil
}

func assertMatchedFields(trace []TraceEvent, a Assertion) error {
	resp, err := built(trace, a, a.Step)
	if err != nil {
		return err
	}
	if !slices.Equal(resp.Metadata.MatchedFields, a.Values) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.Values), Actual: fmt.Sprintf("%v", resp.Metadata.MatchedFields), Trace: trace}
	}
	return nil
}

func assertSuggestions(trace []TraceEvent, a Assertion) error {
	resp, err := built(trace, a, a.Step)
	if err != nil {
		return err
	}
	if resp.Error == nil {
		return &AssertionError{Type: a.Type, Expected: "rejected build", Actual: fmt.Sprintf("query %q", resp.Query), Trace: trace}
	}
	for _, want := range a.Values {
		if !slices.Contains(resp.Error.Suggestions, want) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("suggestion %q", want), Actual: fmt.Sprintf("%v", resp.Error.Suggestions), Trace: trace}
		}
	}
	return nil
}

func assertMinMatches(trace []TraceEvent, a Assertion) error {
	resp, err := retrieved(trace, a)
	if err != nil {
		return err
	}
	if len(resp.Matches) < a.Count {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("at least %d matches", a.Count), Actual: fmt.Sprintf("%d matches", len(resp.Matches)), Trace: trace}
	}
	return nil
}

func assertTopMatch(trace []TraceEvent, a Assertion) error {
	resp, err := retrieved(trace, a)
	if err != nil {
		return err
	}
	if len(resp.Matches) == 0 {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("top match from %s", a.Value), Actual: "no matches", Trace: trace}
	}
	if got := string(resp.Matches[0].Source); got != a.Value {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("top match from %s", a.Value), Actual: got, Trace: trace}
	}
	return nil
}

func assertSameQuery(trace []TraceEvent, a Assertion) error {
	var first *service.Response
	for _, step := range a.Steps {
		resp, err := built(trace, a, step)
		if err != nil {
			return err
		}
		if first == nil {
			first = resp
			continue
		}
		if resp.Query != first.Query || resp.Metadata.ASTDigest != first.Metadata.ASTDigest {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("identical queries at steps %v", a.Steps),
				Actual:   fmt.Sprintf("%q (%s) vs %q (%s)", first.Query, first.Metadata.ASTDigest, resp.Query, resp.Metadata.ASTDigest),
				Trace:    trace,
			}
		}
	}
	return nil
}

// EvaluateAssertions runs all assertions against the result and returns
// a message per failure. All assertions are evaluated.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertQueryContains:
			err = assertQueryContains(result.Trace, a)
		case AssertWarningContains:
			err = assertWarningContains(result.Trace, a)
		case AssertDataset:
			err = assertDataset(result.Trace, a)
		case AssertMatchedFields:
			err = assertMatchedFields(result.Trace, a)
		case AssertSuggestions:
			err = assertSuggestions(result.Trace, a)
		case AssertMinMatches:
			err = assertMinMatches(result.Trace, a)
		case AssertTopMatch:
			err = assertTopMatch(result.Trace, a)
		case AssertSameQuery:
			err = assertSameQuery(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
