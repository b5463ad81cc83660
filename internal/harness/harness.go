package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/mldulaney/scopehal-apps/internal/compiler"
	"github.com/mldulaney/scopehal-apps/internal/filters"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/reconfig"
	"github.com/mldulaney/scopehal-apps/internal/store"
	"github.com/mldulaney/scopehal-apps/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs passes with sequential pass IDs and a deterministic clock.
type Harness struct {
	graph   *graph.Graph
	ctrl    *reconfig.Controller
	store   *store.Store
	logger  *slog.Logger
	renames []reconfig.Rename
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a freshly compiled graph and a fresh
// in-memory journal. Failed expectations and assertions are reported in
// the result; the error is for scenarios that cannot run at all, such as a
// graph that does not compile or a step naming an unknown node.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	reg := filters.Builtin()
	g, err := LoadGraph(scenario, reg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		graph:  g,
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	propagator := &reconfig.Propagator{
		Graph:    g,
		Namer:    reg,
		Logger:   h.logger,
		OnRename: func(r reconfig.Rename) { h.renames = append(h.renames, r) },
	}
	h.ctrl = reconfig.New(g,
		reconfig.WithValidators(reg.Validators()),
		reconfig.WithNamer(reg),
		reconfig.WithListener(propagator),
		reconfig.WithListener(&reconfig.JournalListener{Journal: st}),
		reconfig.WithLogger(h.logger),
		reconfig.WithIDGenerator(testutil.NewSequentialIDs("")),
		reconfig.WithClock(testutil.NewDeterministicClock(0)),
	)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step: %w", err)
		}
	}

	actx := &AssertionContext{Graph: g, Store: st, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// LoadGraph compiles the scenario's graph description.
func LoadGraph(scenario *Scenario, reg *filters.Registry) (*graph.Graph, error) {
	cctx := cuecontext.New()

	var v cue.Value
	if scenario.GraphSource != "" {
		v = cctx.CompileString(scenario.GraphSource, cue.Filename(scenario.Name+".cue"))
	} else {
		data, err := os.ReadFile(scenario.Graph)
		if err != nil {
			return nil, fmt.Errorf("failed to read graph file: %w", err)
		}
		v = cctx.CompileBytes(data, cue.Filename(scenario.Graph))
	}

	g, err := compiler.CompileGraph(v, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph: %w", err)
	}
	return g, nil
}

// runStep opens an editor on the step's node and runs one pass.
//
// Inputs are staged in sorted port order so staging refusals are reported
// in a stable order.
func (h *Harness) runStep(ctx context.Context, index int, step Step, result *Result) error {
	n := h.graph.Node(step.Node)
	if n == nil {
		return fmt.Errorf("steps[%d]: unknown node %q", index, step.Node)
	}

	ed := h.ctrl.Open(n)
	defer ed.Close()

	pass, err := ed.BeginPass()
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}

	if step.Expect != nil && step.Expect.Candidates != nil {
		for _, msg := range checkCandidates(n, pass, step.Expect.Candidates) {
			result.AddError(fmt.Sprintf("steps[%d]: %s", index, msg))
		}
	}

	var rejections []string
	ports := make([]string, 0, len(step.Inputs))
	for port := range step.Inputs {
		ports = append(ports, port)
	}
	sort.Strings(ports)
	for _, port := range ports {
		i, ok := n.InputIndex(port)
		if !ok {
			return fmt.Errorf("steps[%d]: %s has no input %q", index, n.Type(), port)
		}
		s, err := h.graph.Resolve(step.Inputs[port])
		if err != nil {
			return fmt.Errorf("steps[%d].inputs[%s]: %w", index, port, err)
		}
		if err := pass.SelectInput(i, s); err != nil {
			var re *reconfig.Error
			if !errors.As(err, &re) {
				return fmt.Errorf("steps[%d].inputs[%s]: %w", index, port, err)
			}
			rejections = append(rejections, string(re.Code))
		}
	}

	for _, p := range step.Params {
		if err := pass.EditParam(p.Name, p.Text); err != nil {
			return fmt.Errorf("steps[%d].params[%s]: %w", index, p.Name, err)
		}
	}

	switch {
	case step.Rename != "":
		err = pass.Rename(step.Rename)
	case step.UseDefault:
		err = pass.UseDefaultName()
	}
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}

	if step.Abandon {
		pass.Abandon()
		result.AddEvent(TraceEvent{Type: EventAbandoned, Node: n.HWName(), Rejections: rejections})
		h.checkExpect(index, step.Expect, false, rejections, result)
		h.logger.Info("step abandoned", "step", index, "node", n.HWName())
		return nil
	}

	h.renames = nil
	out, err := pass.Commit(ctx)
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}
	if len(out.ListenerErrors) > 0 {
		return fmt.Errorf("steps[%d]: listener failed: %w", index, multierror.Append(nil, out.ListenerErrors...))
	}
	for _, r := range out.Rejections {
		rejections = append(rejections, string(r.Code))
	}

	ev := TraceEvent{Type: EventUnchanged, Pass: out.PassID, Node: n.HWName(), Rejections: rejections}
	if out.Event != nil {
		ev.Type = EventPass
		ev.Seq = out.Event.Seq
		for _, c := range out.Changes {
			ev.Changes = append(ev.Changes, ChangeRecord{Kind: string(c.Kind), Field: c.Field, Old: c.Old, New: c.New})
		}
	}
	result.AddEvent(ev)

	for _, r := range h.renames {
		result.AddEvent(TraceEvent{
			Type: EventRename,
			Seq:  ev.Seq,
			Pass: out.PassID,
			Node: r.Node.HWName(),
			Changes: []ChangeRecord{{
				Kind:  string(reconfig.ChangeName),
				Field: reconfig.DisplayNameField,
				Old:   r.Old,
				New:   r.New,
			}},
		})
	}

	h.checkExpect(index, step.Expect, out.Reconfigured(), rejections, result)
	h.logger.Info("step completed",
		"step", index,
		"node", n.HWName(),
		"pass", out.PassID,
		"changes", len(out.Changes),
		"rejections", len(rejections))
	return nil
}

func (h *Harness) checkExpect(index int, want *StepExpect, reconfigured bool, rejections []string, result *Result) {
	if want == nil {
		return
	}
	if want.Reconfigured != nil && *want.Reconfigured != reconfigured {
		result.AddError(fmt.Sprintf("steps[%d]: expected reconfigured=%t, got %t", index, *want.Reconfigured, reconfigured))
	}
	if want.Rejections != nil {
		got := rejections
		if got == nil {
			got = []string{}
		}
		if diff := cmp.Diff(want.Rejections, got); diff != "" {
			result.AddError(fmt.Sprintf("steps[%d]: rejections mismatch (-want +got):\n%s", index, diff))
		}
	}
}

// checkCandidates compares the labels offered for each named port with
// the expected lists.
func checkCandidates(n *graph.Node, pass *reconfig.Pass, want map[string][]string) []string {
	ports := make([]string, 0, len(want))
	for port := range want {
		ports = append(ports, port)
	}
	sort.Strings(ports)

	var msgs []string
	for _, port := range ports {
		i, ok := n.InputIndex(port)
		if !ok {
			msgs = append(msgs, fmt.Sprintf("candidates: %s has no input %q", n.Type(), port))
			continue
		}
		list, _, err := pass.Candidates(i)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("candidates[%s]: %v", port, err))
			continue
		}
		got := make([]string, len(list))
		for j, c := range list {
			got[j] = c.Label
		}
		if diff := cmp.Diff(want[port], got); diff != "" {
			msgs = append(msgs, fmt.Sprintf("candidates[%s] mismatch (-want +got):\n%s", port, diff))
		}
	}
	return msgs
}
