package reconfig

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/mldulaney/scopehal-apps/internal/graph"
)

// ChangeKind names the part of a node a change touched.
type ChangeKind string

const (
	ChangeInput ChangeKind = "input"
	ChangeParam ChangeKind = "param"
	ChangeName  ChangeKind = "name"
)

// DisplayNameField is the Field of name changes.
const DisplayNameField = "display_name"

// Change is one field a pass changed. Old and New are stream references
// for inputs and display text for parameters and names. Value is set for
// parameters only: the new value as exact text, for replay.
type Change struct {
	Kind  ChangeKind
	Field string
	Old   string
	New   string
	Value string
}

// Event announces that a node was reconfigured. One is emitted per pass
// that changed anything, after every change of the pass is applied.
type Event struct {
	PassID  string
	Seq     int64
	Node    *graph.Node
	Changes []Change
}

// Listener receives reconfiguration events. Listener errors are reported
// in the pass outcome; they never undo the pass.
type Listener interface {
	OnReconfigured(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event) error

// OnReconfigured calls f.
func (f ListenerFunc) OnReconfigured(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Outcome reports what a committed pass did.
type Outcome struct {
	PassID     string
	Changes    []Change
	Rejections []*Error

	// Event is the event delivered to listeners, nil if nothing changed.
	Event *Event

	// ListenerErrors holds errors returned by listeners.
	ListenerErrors []error
}

// Reconfigured reports whether the pass changed anything.
func (o *Outcome) Reconfigured() bool {
	return len(o.Changes) > 0
}

// Err aggregates the rejections, or returns nil if there were none.
func (o *Outcome) Err() error {
	var result *multierror.Error
	for _, r := range o.Rejections {
		result = multierror.Append(result, r)
	}
	return result.ErrorOrNil()
}
