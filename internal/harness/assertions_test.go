package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventPass, Seq: 1, Pass: "pass-0001", Node: "A", Changes: []ChangeRecord{{Kind: "input", Field: "din", Old: "NULL", New: "scope.CH1"}}},
		{Type: EventRename, Seq: 1, Pass: "pass-0001", Node: "B"},
		{Type: EventUnchanged, Pass: "pass-0002", Node: "B", Rejections: []string{"INVALID_FORMAT"}},
		{Type: EventPass, Seq: 2, Pass: "pass-0003", Node: "B"},
		{Type: EventPass, Seq: 3, Pass: "pass-0004", Node: "A"},
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 pass events",
		Actual:   "3 occurrences",
		Trace:    sampleTrace()[:3],
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count\n")
	assert.Contains(t, msg, "  Expected: 2 pass events\n")
	assert.Contains(t, msg, "  Actual: 3 occurrences\n")
	assert.Contains(t, msg, `  [1] pass A din: "NULL" -> "scope.CH1";`)
	assert.Contains(t, msg, "  [3] unchanged B rejected [INVALID_FORMAT]")
}

func TestAssertionError_NoTrace(t *testing.T) {
	err := &AssertionError{Type: AssertDisplayName, Expected: "x", Actual: "y"}
	assert.NotContains(t, err.Error(), "Full trace")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: EventPass, Count: 3}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: EventPass, Node: "A", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: EventAbandoned, Count: 0}))

	err := assertTraceCount(trace, Assertion{Event: EventRename, Node: "B", Count: 2})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "2 rename events for B", ae.Expected)
	assert.Equal(t, "1 occurrences", ae.Actual)
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertTraceOrder(trace, Assertion{Nodes: []string{"A", "B", "A"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Nodes: []string{"B", "A"}}))

	// Renames and unchanged passes don't count.
	err := assertTraceOrder(trace, Assertion{Nodes: []string{"A", "B", "B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pass for B")
}

func TestEvaluateAssertions_MissingContext(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertBinding, Node: "A", Input: "din", Stream: "NULL"},
		{Type: AssertJournalCount},
		{Type: "final_state"},
	}, nil)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "binding requires a graph")
	assert.Contains(t, errs[1], "journal_count requires a journal")
	assert.Contains(t, errs[2], `unknown assertion type "final_state"`)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
