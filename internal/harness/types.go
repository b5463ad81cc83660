package harness

// Trace event types.
const (
	EventPass      = "pass"      // a committed pass that changed something
	EventUnchanged = "unchanged" // a committed pass that changed nothing
	EventAbandoned = "abandoned" // a pass closed without committing
	EventRename    = "rename"    // a downstream default name regenerated
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type       string         `json:"type"`
	Seq        int64          `json:"seq"`
	Pass       string         `json:"pass,omitempty"`
	Node       string         `json:"node"`
	Changes    []ChangeRecord `json:"changes,omitempty"`
	Rejections []string       `json:"rejections,omitempty"`
}

// ChangeRecord is one field a pass changed.
type ChangeRecord struct {
	Kind  string `json:"kind"`
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists pass and rename events in the order they happened.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failed expectations and assertions.
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

// AddEvent appends an event to the trace.
func (r *Result) AddEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
