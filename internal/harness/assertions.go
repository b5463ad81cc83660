package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/param"
	"github.com/mldulaney/scopehal-apps/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", i+1, event.Type, event.Node)
			for _, c := range event.Changes {
				fmt.Fprintf(&buf, " %s: %q -> %q;", c.Field, c.Old, c.New)
			}
			if len(event.Rejections) > 0 {
				fmt.Fprintf(&buf, " rejected %v", event.Rejections)
			}
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

// AssertionContext provides the state assertions are evaluated against.
type AssertionContext struct {
	Graph *graph.Graph
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertBinding, AssertParam, AssertDisplayName:
			if actx == nil || actx.Graph == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a graph", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertBinding:
				err = assertBinding(actx.Graph, assertion)
			case AssertParam:
				err = assertParam(actx.Graph, assertion)
			default:
				err = assertDisplayName(actx.Graph, assertion)
			}
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertJournalCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal_count requires a journal", i)
			} else {
				err = assertJournalCount(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func lookupNode(g *graph.Graph, kind, name string) (*graph.Node, error) {
	n := g.Node(name)
	if n == nil {
		return nil, &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("node %s", name),
			Actual:   "node not found in graph",
		}
	}
	return n, nil
}

// assertBinding checks an input's stream reference.
func assertBinding(g *graph.Graph, assertion Assertion) error {
	n, err := lookupNode(g, AssertBinding, assertion.Node)
	if err != nil {
		return err
	}
	i, ok := n.InputIndex(assertion.Input)
	if !ok {
		return &AssertionError{
			Type:     AssertBinding,
			Expected: fmt.Sprintf("%s input %q", assertion.Node, assertion.Input),
			Actual:   fmt.Sprintf("%s has no such input", n.Type()),
		}
	}
	if got := n.Input(i).Ref(); got != assertion.Stream {
		return &AssertionError{
			Type:     AssertBinding,
			Expected: fmt.Sprintf("%s.%s bound to %s", assertion.Node, assertion.Input, assertion.Stream),
			Actual:   fmt.Sprintf("bound to %s", got),
		}
	}
	return nil
}

// assertParam checks a parameter's display text.
func assertParam(g *graph.Graph, assertion Assertion) error {
	n, err := lookupNode(g, AssertParam, assertion.Node)
	if err != nil {
		return err
	}
	p, ok := n.Params().Get(assertion.Param)
	if !ok {
		return &AssertionError{
			Type:     AssertParam,
			Expected: fmt.Sprintf("%s parameter %q", assertion.Node, assertion.Param),
			Actual:   fmt.Sprintf("%s has no such parameter", n.Type()),
		}
	}
	if got := param.Describe(p); got != assertion.Text {
		return &AssertionError{
			Type:     AssertParam,
			Expected: fmt.Sprintf("%s %q = %q", assertion.Node, assertion.Param, assertion.Text),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

func assertDisplayName(g *graph.Graph, assertion Assertion) error {
	n, err := lookupNode(g, AssertDisplayName, assertion.Node)
	if err != nil {
		return err
	}
	if got := n.DisplayName(); got != assertion.Name {
		return &AssertionError{
			Type:     AssertDisplayName,
			Expected: fmt.Sprintf("%s named %q", assertion.Node, assertion.Name),
			Actual:   fmt.Sprintf("named %q", got),
		}
	}
	return nil
}

// assertTraceCount checks how many events of a type the trace holds.
// An empty node counts every node.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type != assertion.Event {
			continue
		}
		if assertion.Node != "" && event.Node != assertion.Node {
			continue
		}
		count++
	}

	if count != assertion.Count {
		what := assertion.Event + " events"
		if assertion.Node != "" {
			what += " for " + assertion.Node
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that pass events for the given nodes appear in
// order. Intervening events are allowed; each expected entry consumes the
// first matching pass event after the previous one.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Nodes {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Type == EventPass && event.Node == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("passes in order: %v", assertion.Nodes),
				Actual:   fmt.Sprintf("no pass for %s after position %d", want, i),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertJournalCount checks how many passes were journaled.
func assertJournalCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	if ctx == nil {
		ctx = context.Background()
	}
	passes, err := st.ReadPasses(ctx, assertion.Node)
	if err != nil {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: "readable journal",
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}
	if len(passes) != assertion.Count {
		what := "journaled passes"
		if assertion.Node != "" {
			what += " for " + assertion.Node
		}
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d", len(passes)),
		}
	}
	return nil
}
