package harness

import "github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"

// TraceEvent is the outcome of one publish, update or instantiate step.
type TraceEvent struct {
	Step         int              `json:"step"`
	Op           string           `json:"op"`
	Publish      *ir.Publish      `json:"publish,omitempty"`
	Propagations []ir.Propagation `json:"propagations,omitempty"`
	Path         string           `json:"path,omitempty"`     // instantiate only
	Error        string           `json:"error,omitempty"`    // engine error code
	Replaced     []string         `json:"replaced,omitempty"` // instances replaced before a failure
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace holds one event per operation step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds the failure messages; empty when Pass is true.
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

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of successful events for op.
func (r *Result) Count(op string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Op == op && e.Error == "" {
			n++
		}
	}
	return n
}
