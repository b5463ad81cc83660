package reconfig

import (
	"context"

	"github.com/mldulaney/scopehal-apps/internal/store"
)

// Journal appends passes to durable storage. *store.Store implements it.
type Journal interface {
	AppendPass(ctx context.Context, p store.Pass) error
}

// JournalListener writes every event to a journal.
type JournalListener struct {
	Journal Journal
}

// OnReconfigured implements Listener.
func (j *JournalListener) OnReconfigured(ctx context.Context, ev Event) error {
	return j.Journal.AppendPass(ctx, PassRecord(ev))
}

// PassRecord converts an event to its journal form. Inputs are the node's
// bindings at the time of the call.
func PassRecord(ev Event) store.Pass {
	n := ev.Node
	rec := store.Pass{
		ID:               ev.PassID,
		Seq:              ev.Seq,
		Node:             n.HWName(),
		NodeType:         n.Type(),
		DisplayName:      n.DisplayName(),
		UsingDefaultName: n.UsingDefaultName(),
		Inputs:           make([]store.Binding, n.InputCount()),
		Changes:          make([]store.Change, len(ev.Changes)),
	}
	for i := range rec.Inputs {
		rec.Inputs[i] = store.Binding{Input: inputField(n, i), Stream: n.Input(i).Ref()}
	}
	for i, c := range ev.Changes {
		rec.Changes[i] = store.Change{Kind: string(c.Kind), Field: c.Field, Old: c.Old, New: c.New, Value: c.Value}
	}
	return rec
}
