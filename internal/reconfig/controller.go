package reconfig

import (
	"io"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mldulaney/scopehal-apps/internal/binding"
	"github.com/mldulaney/scopehal-apps/internal/catalog"
	"github.com/mldulaney/scopehal-apps/internal/edit"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/metrics"
)

// DefaultCacheSize is the default number of candidate lists kept.
const DefaultCacheSize = 256

// Graph is what the controller reads from the producer graph.
// *graph.Graph implements it.
type Graph interface {
	catalog.Registry
	Revision() uint64
	Downstream(p graph.Producer) []*graph.Node
}

// Namer derives a node's default display name. The bool is false for node
// types it does not know. *filters.Registry implements it.
type Namer interface {
	DefaultName(n *graph.Node) (string, bool)
}

// Controller runs reconfiguration passes against the nodes of one graph.
//
// Passes are serialized: at most one is open at a time, and the event of
// pass k is delivered before pass k+1 can begin. The controller keeps no
// reference into node state between passes; every pass re-reads the node.
type Controller struct {
	graph      Graph
	validators *binding.Table
	namer      Namer
	listeners  []Listener
	logger     *slog.Logger
	metrics    *metrics.Metrics
	ids        IDGenerator
	clock      Sequencer
	cacheSize  int

	cache *lru.Cache[cacheKey, []graph.StreamDescriptor] // safe for concurrent use

	mu   sync.Mutex
	open *Pass
}

// Option configures a Controller.
type Option func(*Controller)

// WithValidators sets the per-node-type binding rules.
func WithValidators(t *binding.Table) Option {
	return func(c *Controller) { c.validators = t }
}

// WithNamer sets the default-name policy.
func WithNamer(n Namer) Option {
	return func(c *Controller) { c.namer = n }
}

// WithListener adds a listener. Listeners run in the order added.
func WithListener(l Listener) Option {
	return func(c *Controller) { c.listeners = append(c.listeners, l) }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithIDGenerator sets the pass ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Controller) { c.ids = g }
}

// WithClock sets the event sequencer. Default: NewClock().
func WithClock(clk Sequencer) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithCacheSize sets how many candidate lists are cached. Zero or less
// disables the cache.
func WithCacheSize(n int) Option {
	return func(c *Controller) { c.cacheSize = n }
}

// New creates a controller over g.
func New(g Graph, opts ...Option) *Controller {
	c := &Controller{
		graph:     g,
		logger:    slog.Default(),
		ids:       UUIDv7Generator{},
		clock:     NewClock(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.cacheSize > 0 {
		cache, err := lru.New[cacheKey, []graph.StreamDescriptor](c.cacheSize)
		if err == nil {
			c.cache = cache
		}
	}
	return c
}

// Clock returns the controller's event sequencer.
func (c *Controller) Clock() Sequencer {
	return c.clock
}

// Open starts a configuration interaction for n. The editor owns an edit
// session that lives until Close.
func (c *Controller) Open(n *graph.Node) *Editor {
	return &Editor{
		c:           c,
		node:        n,
		session:     edit.NewSession(),
		workingName: n.DisplayName(),
	}
}

type cacheKey struct {
	revision uint64
	node     *graph.Node
	input    int
}

// candidates returns the legal streams for input i of n, sentinel first.
// On a cache miss the catalog is enumerated into *all unless an earlier
// miss already filled it. The returned slice must not be modified.
func (c *Controller) candidates(n *graph.Node, i int, all *[]graph.StreamDescriptor) []graph.StreamDescriptor {
	key := cacheKey{revision: c.graph.Revision(), node: n, input: i}

	if c.cache != nil {
		if list, ok := c.cache.Get(key); ok {
			c.metrics.RecordCandidateLookup(true)
			return list
		}
		c.metrics.RecordCandidateLookup(false)
	}

	if *all == nil {
		*all = catalog.Enumerate(c.graph)
	}
	list := catalog.Filter(*all, func(s graph.StreamDescriptor) bool {
		return c.validators.Check(n, i, s) == nil
	})
	if c.cache != nil {
		c.cache.Add(key, list)
	}
	return list
}

func (c *Controller) beginPass(p *Pass) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != nil {
		return &Error{
			Code:    ErrCodePassInProgress,
			Message: "another pass is open on node " + c.open.editor.node.HWName(),
			Node:    p.editor.node.HWName(),
		}
	}
	c.open = p
	return nil
}

func (c *Controller) endPass(p *Pass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == p {
		c.open = nil
	}
}
