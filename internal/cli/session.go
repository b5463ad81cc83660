package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/mldulaney/scopehal-apps/internal/filters"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/reconfig"
	"github.com/mldulaney/scopehal-apps/internal/store"
)

// session is a graph built from its description with the journal, if
// any, replayed on top.
type session struct {
	graph   *graph.Graph
	filters *filters.Registry
	store   *store.Store // nil without --db
	lastSeq int64
}

// openSession builds the graph at graphPath and replays the journal at
// dbPath onto it. Failures are reported through formatter and returned as
// exit errors.
func openSession(ctx context.Context, opts *RootOptions, formatter *OutputFormatter, graphPath, dbPath string) (*session, error) {
	reg := filters.Builtin()
	g, err := BuildGraph(graphPath, reg)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return nil, formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	s := &session{graph: g, filters: reg}
	if dbPath == "" {
		return s, nil
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("open journal: %v", err))
	}
	s.store = st

	passes, err := st.ReadPasses(ctx, "")
	if err == nil {
		s.lastSeq, err = st.LastSeq(ctx)
	}
	if err != nil {
		st.Close()
		return nil, formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("read journal: %v", err))
	}

	logger := opts.logger()
	replayer := reconfig.New(g,
		reconfig.WithValidators(reg.Validators()),
		reconfig.WithNamer(reg),
		reconfig.WithListener(&reconfig.Propagator{Graph: g, Namer: reg, Logger: logger}),
		reconfig.WithLogger(logger),
	)
	applied, err := reconfig.Replay(ctx, replayer, g, passes)
	if err != nil {
		logger.Warn("journal replayed with errors", "error", err)
	}
	formatter.VerboseLog("Replayed %d of %d journaled pass(es) from %s", applied, len(passes), dbPath)
	return s, nil
}

// node looks up a node by instance name.
func (s *session) node(formatter *OutputFormatter, name string) (*graph.Node, error) {
	n := s.graph.Node(name)
	if n == nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeUnknownNode, fmt.Sprintf("no node named %q", name))
	}
	return n, nil
}

func (s *session) close() {
	if s.store != nil {
		s.store.Close()
	}
}
