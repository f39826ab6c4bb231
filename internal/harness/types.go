package harness

// TraceEvent records one parse attempt of a scenario flow.
type TraceEvent struct {
	Seq        int      `json:"seq"`
	Input      any      `json:"input"`
	Strategy   string   `json:"strategy"`
	OK         bool     `json:"ok"`
	Timestamp  string   `json:"timestamp,omitempty"`
	Code       string   `json:"code,omitempty"`
	Confidence float64  `json:"confidence"`
	FastPath   bool     `json:"fast_path"`
	Cached     bool     `json:"cached"`
	Transforms []string `json:"transforms,omitempty"`
	AttemptID  string   `json:"attempt_id"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures. Empty if Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends ev to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
