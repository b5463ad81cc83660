package reconfig

import (
	"context"
	"io"
	"log/slog"

	"github.com/mldulaney/scopehal-apps/internal/graph"
)

// Rename records a downstream display name the Propagator regenerated.
type Rename struct {
	Node *graph.Node
	Old  string
	New  string
}

// Propagator is the graph-level listener that keeps downstream default
// names consistent. Stream labels are built from producer display names, so
// a consumer named "FFT(CH1 - CH2)" must follow when its input is renamed.
//
// Nodes are visited breadth first in registration order; each is visited
// at most once per event.
type Propagator struct {
	Graph  Graph
	Namer  Namer
	Logger *slog.Logger

	// OnRename, if set, is called for each regenerated name.
	OnRename func(Rename)
}

// OnReconfigured implements Listener.
func (p *Propagator) OnReconfigured(_ context.Context, ev Event) error {
	if p.Namer == nil {
		return nil
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	seen := map[*graph.Node]bool{ev.Node: true}
	queue := []graph.Producer{ev.Node}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, down := range p.Graph.Downstream(cur) {
			if seen[down] {
				continue
			}
			seen[down] = true
			queue = append(queue, down)

			if !down.UsingDefaultName() {
				continue
			}
			name, ok := p.Namer.DefaultName(down)
			if !ok || name == down.DisplayName() {
				continue
			}
			old := down.DisplayName()
			down.ApplyDefaultName(name)
			logger.Debug("downstream name regenerated",
				"node", down.HWName(),
				"old", old,
				"new", name,
				"cause", ev.Node.HWName())
			if p.OnRename != nil {
				p.OnRename(Rename{Node: down, Old: old, New: name})
			}
		}
	}
	return nil
}
