package graph

import (
	"context"
	"fmt"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/logging"
)

// End is the reserved routing target that terminates a run.
const End = "__end__"

// NodeFunc is one unit of graph work. It receives the accumulated state and
// returns a delta to merge; it must not mutate the input state.
type NodeFunc func(ctx context.Context, run *Run, s core.State) (core.State, error)

// RouteFunc picks the next node from the current state. It must be a total,
// side-effect free function; returning "" or End terminates the run.
type RouteFunc func(s core.State) string

// Definition is a mutable graph under construction. Workflows assemble one in
// their graph builder and hand it to Compile.
type Definition struct {
	nodes  map[string]NodeFunc
	edges  map[string]string
	routes map[string]RouteFunc
	entry  string
}

// NewDefinition creates an empty graph definition.
func NewDefinition() *Definition {
	return &Definition{
		nodes:  make(map[string]NodeFunc),
		edges:  make(map[string]string),
		routes: make(map[string]RouteFunc),
	}
}

// AddNode registers a named node. Returns the definition for chaining.
func (d *Definition) AddNode(name string, fn NodeFunc) *Definition {
	d.nodes[name] = fn
	return d
}

// AddEdge registers a static edge. The target may be End.
func (d *Definition) AddEdge(from, to string) *Definition {
	d.edges[from] = to
	return d
}

// AddConditionalEdge registers a routing function deciding the successor of
// from at runtime.
func (d *Definition) AddConditionalEdge(from string, route RouteFunc) *Definition {
	d.routes[from] = route
	return d
}

// SetEntryPoint declares the node a run starts at.
func (d *Definition) SetEntryPoint(name string) *Definition {
	d.entry = name
	return d
}

// Options holds configuration overrides passed to Compile.
type Options struct {
	// MaxSteps bounds node executions per run, stopping runaway cycles.
	MaxSteps int
	// MaxModelCalls bounds model invocations per run (0 = unlimited).
	MaxModelCalls int
	// EventBufferSize sets channel buffering for emitted events.
	EventBufferSize int
	// Logger receives execution diagnostics.
	Logger logging.Logger
}

// Compile validates the definition and freezes it into an executable Graph.
func (d *Definition) Compile(optFns ...func(o *Options)) (*Graph, error) {
	opts := Options{
		MaxSteps:        50,
		MaxModelCalls:   100,
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if len(d.nodes) == 0 {
		return nil, fmt.Errorf("graph has no nodes")
	}
	if d.entry == "" {
		return nil, fmt.Errorf("graph has no entry point")
	}
	if _, ok := d.nodes[d.entry]; !ok {
		return nil, fmt.Errorf("entry point %q is not a node", d.entry)
	}

	for name := range d.nodes {
		if name == "" || name == End {
			return nil, fmt.Errorf("invalid node name %q", name)
		}
		if _, static := d.edges[name]; static {
			if _, conditional := d.routes[name]; conditional {
				return nil, fmt.Errorf("node %q has both a static and a conditional edge", name)
			}
		}
	}

	for from, to := range d.edges {
		if _, ok := d.nodes[from]; !ok {
			return nil, fmt.Errorf("edge source %q is not a node", from)
		}
		if to != End {
			if _, ok := d.nodes[to]; !ok {
				return nil, fmt.Errorf("edge target %q is not a node", to)
			}
		}
	}
	for from := range d.routes {
		if _, ok := d.nodes[from]; !ok {
			return nil, fmt.Errorf("conditional edge source %q is not a node", from)
		}
	}

	g := &Graph{
		nodes:         make(map[string]NodeFunc, len(d.nodes)),
		edges:         make(map[string]string, len(d.edges)),
		routes:        make(map[string]RouteFunc, len(d.routes)),
		entry:         d.entry,
		maxSteps:      opts.MaxSteps,
		maxModelCalls: opts.MaxModelCalls,
		bufferSize:    opts.EventBufferSize,
		logger:        opts.Logger,
	}
	for k, v := range d.nodes {
		g.nodes[k] = v
	}
	for k, v := range d.edges {
		g.edges[k] = v
	}
	for k, v := range d.routes {
		g.routes[k] = v
	}

	return g, nil
}

// Graph is a compiled, immutable conversation graph. Safe for concurrent use;
// every Stream call gets an isolated run.
type Graph struct {
	nodes  map[string]NodeFunc
	edges  map[string]string
	routes map[string]RouteFunc
	entry  string

	maxSteps      int
	maxModelCalls int
	bufferSize    int
	logger        logging.Logger
}

// Stream executes the graph from the given initial state, emitting token,
// node and done events. Both channels are closed when the run finishes; a
// terminal error arrives on the error channel and means no done event was
// emitted. The initial state is never mutated.
func (g *Graph) Stream(ctx context.Context, initial core.State) (<-chan Event, <-chan error) {
	events := make(chan Event, g.bufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		run := &Run{
			Context: ctx,
			Emit:    events,
			Limiter: core.NewCallLimiter(g.maxModelCalls),
			Logger:  g.logger,
		}

		state := initial.Clone()
		current := g.entry

		for step := 0; ; step++ {
			if step >= g.maxSteps {
				errs <- fmt.Errorf("exceeded max graph steps: %d", g.maxSteps)
				return
			}

			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			default:
			}

			fn, ok := g.nodes[current]
			if !ok {
				errs <- fmt.Errorf("unknown node %q", current)
				return
			}

			run.node = current
			g.logger.Debug("graph.node.start", "node", current, "step", step)

			delta, err := fn(ctx, run, state)
			if err != nil {
				errs <- fmt.Errorf("node %q failed: %w", current, err)
				return
			}

			state = state.Merge(delta)

			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case events <- NewNodeEvent(current, delta):
			}

			next := g.next(current, state)
			g.logger.Debug("graph.node.complete", "node", current, "next", next)

			if next == End {
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
				case events <- NewDoneEvent(state):
				}
				return
			}

			current = next
		}
	}()

	return events, errs
}

// Invoke is a synchronous helper that drains a Stream run and returns the
// final state.
func (g *Graph) Invoke(ctx context.Context, initial core.State) (core.State, error) {
	events, errs := g.Stream(ctx, initial)

	var final core.State
	for ev := range events {
		if ev.IsFinal() {
			final = ev.State
		}
	}

	if err := <-errs; err != nil {
		return nil, err
	}
	if final == nil {
		return nil, fmt.Errorf("graph run produced no final state")
	}

	return final, nil
}

// EntryPoint returns the node a run starts at.
func (g *Graph) EntryPoint() string { return g.entry }

// next resolves the successor of current given the post-merge state. A node
// with no outgoing edge terminates the run.
func (g *Graph) next(current string, s core.State) string {
	if route, ok := g.routes[current]; ok {
		if n := route(s); n != "" {
			return n
		}
		return End
	}
	if to, ok := g.edges[current]; ok {
		return to
	}
	return End
}
