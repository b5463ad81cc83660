package reconfig

import (
	"context"
	"strconv"

	"github.com/mldulaney/scopehal-apps/internal/catalog"
	"github.com/mldulaney/scopehal-apps/internal/edit"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/param"
	"github.com/mldulaney/scopehal-apps/internal/unit"
)

// Candidate is one stream offered for an input.
type Candidate struct {
	Stream graph.StreamDescriptor
	Label  string
}

// ParamView is a read-only snapshot of one parameter for display.
type ParamView struct {
	Name       string
	Kind       param.Kind
	Unit       unit.Unit
	Value      param.Value
	Text       string // committed value as text, "(unsupported)" if it has none
	Editable   bool
	Pending    string // in-progress text; valid when HasPending
	HasPending bool
}

// Editor is one configuration interaction with a node: the backing model
// of a properties dialog. It owns the edit session for the node's
// parameters and the working copy of the display name.
//
// Editors are not safe for concurrent use.
type Editor struct {
	c           *Controller
	node        *graph.Node
	session     *edit.Session
	workingName string
	pass        *Pass
	closed      bool
}

// Node returns the node being edited.
func (e *Editor) Node() *graph.Node {
	return e.node
}

// Candidates lists the legal streams for input i, sentinel first, and the
// position of the current binding in that list (-1 if absent).
func (e *Editor) Candidates(i int) ([]Candidate, int, error) {
	if _, ok := e.node.InputPort(i); !ok {
		return nil, -1, e.outOfRange(i)
	}
	var all []graph.StreamDescriptor
	list := e.c.candidates(e.node, i, &all)
	return labelled(list), catalog.IndexOf(list, e.node.Input(i)), nil
}

// SetInput binds input i to s in a pass of its own.
func (e *Editor) SetInput(ctx context.Context, i int, s graph.StreamDescriptor) (*Outcome, error) {
	p, err := e.BeginPass()
	if err != nil {
		return nil, err
	}
	if err := p.SelectInput(i, s); err != nil {
		p.Abandon()
		return nil, err
	}
	return p.Commit(ctx)
}

// Parameters lists the node's parameters in declaration order.
func (e *Editor) Parameters() []ParamView {
	all := e.node.Params().All()
	out := make([]ParamView, len(all))
	for i, p := range all {
		pending, has := e.session.Pending(p.Name)
		out[i] = ParamView{
			Name:       p.Name,
			Kind:       p.Kind(),
			Unit:       p.Unit,
			Value:      p.Value,
			Text:       param.Describe(p),
			Editable:   param.Editable(p.Kind()),
			Pending:    pending,
			HasPending: has,
		}
	}
	return out
}

// BeginParamEdit returns the text to show in the parameter's edit field,
// seeding it from the committed value on first use. Later calls return
// whatever text is pending.
func (e *Editor) BeginParamEdit(name string) (string, error) {
	if e.closed {
		return "", e.closedError()
	}
	p, ok := e.node.Params().Get(name)
	if !ok {
		return "", &Error{Code: ErrCodeUnknownParameter, Message: "no such parameter", Node: e.node.HWName(), Field: name, Err: param.ErrUnknownParameter}
	}
	text, err := param.Format(p)
	if err != nil {
		return "", newError(codeFor(err), e.node.HWName(), name, err)
	}
	return e.session.Begin(name, text)
}

// UpdateParamText replaces the pending text for a parameter. It never fails
// and never touches the stored value.
func (e *Editor) UpdateParamText(name, text string) {
	e.session.Update(name, text)
}

// PendingText returns the in-progress text for a parameter.
func (e *Editor) PendingText(name string) (string, bool) {
	return e.session.Pending(name)
}

// CommitParamEdit sets the pending text for name and commits it in a pass
// of its own. On INVALID_FORMAT the stored value is unchanged and text
// stays pending.
func (e *Editor) CommitParamEdit(ctx context.Context, name, text string) (*Outcome, error) {
	p, err := e.BeginPass()
	if err != nil {
		return nil, err
	}
	if err := p.EditParam(name, text); err != nil {
		p.Abandon()
		return nil, err
	}
	out, err := p.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return out, out.Err()
}

// WorkingName is the display name as currently shown for editing.
func (e *Editor) WorkingName() string {
	return e.workingName
}

// BeginPass collects the candidate set for every input and opens a pass.
// Only one pass may be open per controller.
func (e *Editor) BeginPass() (*Pass, error) {
	if e.closed {
		return nil, e.closedError()
	}
	p := &Pass{
		editor:   e,
		revision: e.c.graph.Revision(),
		inputs:   make(map[int]graph.StreamDescriptor),
	}
	if err := e.c.beginPass(p); err != nil {
		return nil, err
	}

	// At most one catalog enumeration per pass, shared by every input.
	var all []graph.StreamDescriptor
	p.candidates = make([][]graph.StreamDescriptor, e.node.InputCount())
	for i := range p.candidates {
		p.candidates[i] = e.c.candidates(e.node, i, &all)
	}

	e.pass = p
	e.c.logger.Debug("pass begun",
		"node", e.node.HWName(),
		"revision", p.revision,
		"inputs", e.node.InputCount())
	return p, nil
}

// Close ends the interaction: any open pass is abandoned and pending text
// is dropped.
func (e *Editor) Close() {
	if e.closed {
		return
	}
	if e.pass != nil {
		e.pass.Abandon()
	}
	e.session.Close()
	e.closed = true
}

func (e *Editor) outOfRange(i int) *Error {
	return &Error{
		Code:    ErrCodeInputOutOfRange,
		Message: "no input at that index",
		Node:    e.node.HWName(),
		Field:   inputField(e.node, i),
	}
}

func (e *Editor) closedError() *Error {
	return &Error{Code: ErrCodePassClosed, Message: "editor is closed", Node: e.node.HWName(), Err: edit.ErrClosed}
}

func labelled(list []graph.StreamDescriptor) []Candidate {
	out := make([]Candidate, len(list))
	for i, s := range list {
		out[i] = Candidate{Stream: s, Label: s.Name()}
	}
	return out
}

func inputField(n *graph.Node, i int) string {
	if port, ok := n.InputPort(i); ok {
		return port.Name
	}
	return "#" + strconv.Itoa(i)
}
