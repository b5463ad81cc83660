package reconfig

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/store"
)

// Replay re-applies journaled passes to g in journal order, so a graph
// rebuilt from its description picks up where the journal left off.
//
// Each record is applied as one pass through c: the recorded bindings and
// name are staged as a snapshot, and parameter changes are staged as their
// exact text.
// c should not carry a JournalListener, or the replay is journaled again.
// Records for nodes missing from g, or whose type differs, are skipped.
//
// Returns the number of passes that changed the graph. Anything that could
// not be applied is collected into the error; the rest is still applied.
func Replay(ctx context.Context, c *Controller, g *graph.Graph, passes []store.Pass) (int, error) {
	var errs *multierror.Error
	applied := 0
	for _, rec := range passes {
		n := g.Node(rec.Node)
		if n == nil || n.Type() != rec.NodeType {
			c.logger.Warn("journal entry skipped",
				"pass", rec.ID,
				"node", rec.Node,
				"type", rec.NodeType)
			continue
		}

		changed, err := replayPass(ctx, c, g, n, rec)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("pass %s: %w", rec.ID, err))
		}
		if changed {
			applied++
		}
	}
	return applied, errs.ErrorOrNil()
}

func replayPass(ctx context.Context, c *Controller, g *graph.Graph, n *graph.Node, rec store.Pass) (bool, error) {
	ed := c.Open(n)
	defer ed.Close()

	p, err := ed.BeginPass()
	if err != nil {
		return false, err
	}

	var errs *multierror.Error
	for _, b := range rec.Inputs {
		i, ok := n.InputIndex(b.Input)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("%s has no input %q", n.HWName(), b.Input))
			continue
		}
		s, err := g.Resolve(b.Stream)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := p.SelectInput(i, s); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, ch := range rec.Changes {
		if ch.Kind != string(ChangeParam) {
			continue
		}
		// New is rounded for display; journals written before Value
		// existed only have that.
		text := ch.Value
		if text == "" {
			text = ch.New
		}
		if err := p.EditParam(ch.Field, text); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if rec.UsingDefaultName {
		err = p.UseDefaultName()
	} else {
		err = p.Rename(rec.DisplayName)
	}
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	out, err := p.Commit(ctx)
	if err != nil {
		return false, multierror.Append(errs, err)
	}
	if err := out.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return out.Reconfigured(), errs.ErrorOrNil()
}
