package harness

import "github.com/roach88/huntql/internal/service"

// Step types recorded in the trace.
const (
	StepBuild    = "build"
	StepRetrieve = "retrieve"
)

// TraceEvent is one executed step and its response.
type TraceEvent struct {
	Type     string                     `json:"type"`
	Step     int                        `json:"step"`
	Build    *service.Response          `json:"build,omitempty"`
	Retrieve *service.RetrievalResponse `json:"retrieve,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) AddBuildTrace(step int, resp service.Response) {
	r.Trace = append(r.Trace, TraceEvent{Type: StepBuild, Step: step, Build: &resp})
}

func (r *Result) AddRetrieveTrace(step int, resp service.RetrievalResponse) {
	r.Trace = append(r.Trace, TraceEvent{Type: StepRetrieve, Step: step, Retrieve: &resp})
}
