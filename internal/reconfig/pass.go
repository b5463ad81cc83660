package reconfig

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mldulaney/scopehal-apps/internal/catalog"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/param"
)

// Pass stages one round of edits to a node and applies them together.
//
// Staging never touches the node. Commit applies the staged edits in a
// fixed order regardless of the order they were staged in: input bindings
// by index, then parameters in staging order, then the display name, then
// a single event to every listener.
type Pass struct {
	editor     *Editor
	revision   uint64
	candidates [][]graph.StreamDescriptor

	inputs     map[int]graph.StreamDescriptor
	params     []string
	rename     *string
	useDefault bool
	rejections []*Error
	done       bool
}

// Candidates returns the candidate list collected for input i when the pass
// began, and the position of the current binding in it.
func (p *Pass) Candidates(i int) ([]Candidate, int, error) {
	if i < 0 || i >= len(p.candidates) {
		return nil, -1, p.editor.outOfRange(i)
	}
	list := p.candidates[i]
	return labelled(list), catalog.IndexOf(list, p.editor.node.Input(i)), nil
}

// SelectInput stages s for input i. s must be one of the candidates
// collected when the pass began; anything else is an INCOMPATIBLE_STREAM
// defect and is never staged.
func (p *Pass) SelectInput(i int, s graph.StreamDescriptor) error {
	if p.done {
		return p.closedError()
	}
	if i < 0 || i >= len(p.candidates) {
		return p.editor.outOfRange(i)
	}
	if catalog.IndexOf(p.candidates[i], s) < 0 {
		err := &Error{
			Code:    ErrCodeIncompatibleStream,
			Message: s.Ref() + " is not a candidate",
			Node:    p.editor.node.HWName(),
			Field:   inputField(p.editor.node, i),
		}
		p.editor.c.logger.Error("selected stream was never offered",
			"node", err.Node,
			"input", err.Field,
			"stream", s.Ref())
		p.editor.c.metrics.RecordRejection(string(err.Code))
		return err
	}
	p.inputs[i] = s
	return nil
}

// SelectCandidate stages the idx'th candidate of input i.
func (p *Pass) SelectCandidate(i, idx int) error {
	if i < 0 || i >= len(p.candidates) {
		return p.editor.outOfRange(i)
	}
	list := p.candidates[i]
	if idx < 0 || idx >= len(list) {
		return &Error{
			Code:    ErrCodeIncompatibleStream,
			Message: "candidate index " + strconv.Itoa(idx) + " out of range",
			Node:    p.editor.node.HWName(),
			Field:   inputField(p.editor.node, i),
		}
	}
	return p.SelectInput(i, list[idx])
}

// EditParam replaces the pending text for a parameter and stages it for
// commit.
func (p *Pass) EditParam(name, text string) error {
	if p.done {
		return p.closedError()
	}
	p.editor.session.Update(name, text)
	p.stageParam(name)
	return nil
}

// CommitParam stages the parameter's current pending text for commit.
func (p *Pass) CommitParam(name string) error {
	if p.done {
		return p.closedError()
	}
	if _, ok := p.editor.session.Pending(name); !ok {
		if _, err := p.editor.BeginParamEdit(name); err != nil {
			return err
		}
	}
	p.stageParam(name)
	return nil
}

func (p *Pass) stageParam(name string) {
	for _, cur := range p.params {
		if cur == name {
			return
		}
	}
	p.params = append(p.params, name)
}

// Rename stages a user-chosen display name, which turns default naming off.
func (p *Pass) Rename(name string) error {
	if p.done {
		return p.closedError()
	}
	p.rename = &name
	p.useDefault = false
	return nil
}

// UseDefaultName stages a return to the generated display name.
func (p *Pass) UseDefaultName() error {
	if p.done {
		return p.closedError()
	}
	p.useDefault = true
	p.rename = nil
	return nil
}

// Abandon closes the pass without touching the node. Pending parameter
// text stays in the editor's session.
func (p *Pass) Abandon() {
	if p.done {
		return
	}
	p.finish()
	p.editor.c.metrics.RecordPass("abandoned")
	p.editor.c.logger.Debug("pass abandoned", "node", p.editor.node.HWName())
}

func (p *Pass) finish() {
	p.done = true
	if p.editor.pass == p {
		p.editor.pass = nil
	}
	p.editor.c.endPass(p)
}

// Commit applies the staged edits and, if anything changed, emits one
// event. Rejected edits are listed in the outcome and leave their field as
// it was; they do not stop the other edits of the pass.
//
// The only error returned is for a pass that is already closed or a
// context cancelled before the commit started. Once started, a commit runs
// to completion.
func (p *Pass) Commit(ctx context.Context) (*Outcome, error) {
	if p.done {
		return nil, p.closedError()
	}
	if err := ctx.Err(); err != nil {
		p.Abandon()
		return nil, err
	}
	defer p.finish()

	c := p.editor.c
	n := p.editor.node
	start := time.Now()
	out := &Outcome{PassID: c.ids.Generate()}

	p.commitInputs(out)
	p.commitParams(out)
	p.commitName(out)

	for _, r := range p.rejections {
		c.metrics.RecordRejection(string(r.Code))
	}
	out.Rejections = p.rejections

	if !out.Reconfigured() {
		c.metrics.RecordPass("unchanged")
		c.logger.Debug("pass committed without changes",
			"node", n.HWName(),
			"pass", out.PassID,
			"rejections", len(out.Rejections))
		c.metrics.RecordCommitDuration(time.Since(start))
		return out, nil
	}

	ev := Event{
		PassID:  out.PassID,
		Seq:     c.clock.Next(),
		Node:    n,
		Changes: out.Changes,
	}
	out.Event = &ev
	for _, l := range c.listeners {
		if err := l.OnReconfigured(ctx, ev); err != nil {
			c.logger.Warn("listener failed",
				"node", n.HWName(),
				"pass", out.PassID,
				"error", err)
			out.ListenerErrors = append(out.ListenerErrors, err)
		}
	}
	c.metrics.RecordEvent()
	c.metrics.RecordPass("committed")
	c.metrics.RecordCommitDuration(time.Since(start))

	c.logger.Info("node reconfigured",
		"node", n.HWName(),
		"pass", out.PassID,
		"seq", ev.Seq,
		"changes", len(out.Changes),
		"rejections", len(out.Rejections))
	return out, nil
}

func (p *Pass) commitInputs(out *Outcome) {
	c := p.editor.c
	n := p.editor.node

	idx := make([]int, 0, len(p.inputs))
	for i := range p.inputs {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	// Candidates were collected against the graph as it was at BeginPass.
	// If the graph has moved since, or an earlier input of this pass has
	// been rebound, a staged choice is re-checked before it is written:
	// validators may depend on the node's other bindings.
	stale := c.graph.Revision() != p.revision
	rebound := false
	var live []graph.StreamDescriptor
	for _, i := range idx {
		s := p.inputs[i]
		field := inputField(n, i)

		if stale || rebound {
			err := c.validators.Check(n, i, s)
			if err == nil && stale {
				if live == nil {
					live = catalog.Enumerate(c.graph)
				}
				if catalog.IndexOf(live, s) < 0 {
					err = fmt.Errorf("%s is no longer in the graph", s.Ref())
				}
			}
			if err != nil {
				p.reject(&Error{Code: ErrCodeStaleCandidate, Message: err.Error(), Node: n.HWName(), Field: field, Err: err})
				continue
			}
		}

		old := n.Input(i)
		changed, err := n.SetInput(i, s)
		if err != nil {
			p.reject(newError(ErrCodeInputOutOfRange, n.HWName(), field, err))
			continue
		}
		if changed {
			rebound = true
			p.record(out, Change{Kind: ChangeInput, Field: field, Old: old.Ref(), New: s.Ref()})
		}
	}
}

func (p *Pass) commitParams(out *Outcome) {
	n := p.editor.node
	store := n.Params()

	for _, name := range p.params {
		cur, ok := store.Get(name)
		if !ok {
			p.reject(&Error{Code: ErrCodeUnknownParameter, Message: "no such parameter", Node: n.HWName(), Field: name, Err: param.ErrUnknownParameter})
			continue
		}
		if !param.Editable(cur.Kind()) {
			p.reject(&Error{Code: ErrCodeUnsupportedKind, Message: cur.Kind().String() + " parameters cannot be edited as text", Node: n.HWName(), Field: name, Err: param.ErrUnsupportedKind})
			continue
		}

		v, err := p.editor.session.TryCommit(name, func(text string) (param.Value, error) {
			return param.Parse(cur, text)
		})
		if err != nil {
			p.reject(newError(codeFor(err), n.HWName(), name, err))
			continue
		}

		changed, err := store.Set(name, v)
		if err != nil {
			p.reject(newError(codeFor(err), n.HWName(), name, err))
			continue
		}
		if changed {
			next, _ := store.Get(name)
			exact, _ := param.Exact(next)
			p.record(out, Change{
				Kind:  ChangeParam,
				Field: name,
				Old:   param.Describe(cur),
				New:   param.Describe(next),
				Value: exact,
			})
		}
	}
}

// commitName applies a staged rename or default-name switch, then
// regenerates the default name if anything changed. The committed name and
// the editor's working name are updated together.
func (p *Pass) commitName(out *Outcome) {
	e := p.editor
	n := e.node
	old := n.DisplayName()
	wasDefault := n.UsingDefaultName()

	switch {
	case p.rename != nil:
		if *p.rename != old || wasDefault {
			n.Rename(*p.rename)
		}
	case p.useDefault:
		if !wasDefault {
			n.ApplyDefaultName(old)
		}
	}

	regenerate := n.UsingDefaultName() && (out.Reconfigured() || !wasDefault)
	if regenerate && e.c.namer != nil {
		if name, ok := e.c.namer.DefaultName(n); ok {
			n.ApplyDefaultName(name)
		}
	}

	if n.DisplayName() != old || n.UsingDefaultName() != wasDefault {
		p.record(out, Change{Kind: ChangeName, Field: DisplayNameField, Old: old, New: n.DisplayName()})
	}
	e.workingName = n.DisplayName()
}

func (p *Pass) record(out *Outcome, ch Change) {
	out.Changes = append(out.Changes, ch)
	p.editor.c.metrics.RecordChange(string(ch.Kind))
}

func (p *Pass) reject(err *Error) {
	p.rejections = append(p.rejections, err)
	p.editor.c.logger.Debug("edit rejected",
		"node", err.Node,
		"field", err.Field,
		"code", err.Code,
		"error", err.Message)
}

func (p *Pass) closedError() *Error {
	return &Error{Code: ErrCodePassClosed, Message: "pass already committed or abandoned", Node: p.editor.node.HWName()}
}
