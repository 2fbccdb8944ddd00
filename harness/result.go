// Package harness verifies benchmark units: it runs every point of a plan
// under the unit's declared state scope, either in-process or in isolated
// child processes, one per fork.
package harness

import "github.com/weiihann/benchunit/bench"

// Result holds the outcome of one point in one fork.
type Result struct {
	RunID         string        `json:"run_id,omitempty"`
	Unit          string        `json:"unit"`
	Operation     string        `json:"operation"`
	Params        bench.Binding `json:"params"`
	Scope         string        `json:"scope"`
	Fork          int           `json:"fork"`
	Threads       int           `json:"threads"`
	Invocations   int           `json:"invocations"`
	Instances     int           `json:"instances"`
	Output        string        `json:"output"`
	Deterministic bool          `json:"deterministic"`
	ElapsedNs     int64         `json:"elapsed_ns"`
	Error         string        `json:"error,omitempty"`
}

// ID returns the point id of the result.
func (r Result) ID() string {
	return bench.PointID(r.Unit, r.Operation, r.Params)
}

// Failed reports whether the point errored or produced differing outputs.
func (r Result) Failed() bool {
	return r.Error != "" || !r.Deterministic
}
