// Package graph is a small state machine: named nodes mutate a shared
// state, static or conditional edges pick the next node, and execution
// stops at End.
package graph

import (
	"context"
	"fmt"
	"sort"
)

// End is the terminal pseudo-node.
const End = "__end__"

// DefaultMaxSteps bounds Run when MaxSteps is not set.
const DefaultMaxSteps = 100

// NodeFunc performs one step against the shared state.
type NodeFunc[S any] func(ctx context.Context, state S) error

// Router returns the name of the next node.
type Router[S any] func(state S) string

type conditional[S any] struct {
	route   Router[S]
	targets map[string]bool
}

// Graph holds nodes and edges over state S. Build it, call Compile, then Run.
type Graph[S any] struct {
	// MaxSteps caps node executions per Run. Zero means DefaultMaxSteps.
	MaxSteps int
	// OnStep, when set, is called before each node runs.
	OnStep func(node string, step int)

	nodes    map[string]NodeFunc[S]
	order    []string
	edges    map[string]string
	branches map[string]conditional[S]
	entry    string
	compiled bool
}

// New returns an empty graph.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:    make(map[string]NodeFunc[S]),
		edges:    make(map[string]string),
		branches: make(map[string]conditional[S]),
	}
}

// AddNode registers a node. Names must be unique and not End.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	g.compiled = false
	if _, dup := g.nodes[name]; !dup {
		g.order = append(g.order, name)
	}
	g.nodes[name] = fn
	return g
}

// AddEdge adds an unconditional transition from -> to.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.compiled = false
	g.edges[from] = to
	return g
}

// AddConditionalEdges lets route choose the next node among targets.
func (g *Graph[S]) AddConditionalEdges(from string, route Router[S], targets ...string) *Graph[S] {
	g.compiled = false
	c := conditional[S]{route: route, targets: make(map[string]bool, len(targets))}
	for _, t := range targets {
		c.targets[t] = true
	}
	g.branches[from] = c
	return g
}

// SetEntry sets the first node.
func (g *Graph[S]) SetEntry(name string) *Graph[S] {
	g.compiled = false
	g.entry = name
	return g
}

// Compile validates the graph structure.
func (g *Graph[S]) Compile() error {
	if g.entry == "" {
		return invalidf("entry point not set")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return invalidf("entry point %q is not a node", g.entry)
	}
	for _, name := range g.order {
		if name == End || name == "" {
			return invalidf("reserved node name %q", name)
		}
		if g.nodes[name] == nil {
			return invalidf("node %q has no function", name)
		}
		_, static := g.edges[name]
		_, cond := g.branches[name]
		switch {
		case static && cond:
			return invalidf("node %q has both a static and a conditional edge", name)
		case !static && !cond:
			return invalidf("node %q has no outgoing edge", name)
		}
	}

	for _, from := range sortedKeys(g.edges) {
		if _, ok := g.nodes[from]; !ok {
			return invalidf("edge from unknown node %q", from)
		}
		if !g.known(g.edges[from]) {
			return invalidf("edge %q -> %q targets an unknown node", from, g.edges[from])
		}
	}
	for _, from := range sortedKeys(g.branches) {
		c := g.branches[from]
		if _, ok := g.nodes[from]; !ok {
			return invalidf("conditional edge from unknown node %q", from)
		}
		if c.route == nil {
			return invalidf("conditional edge from %q has no router", from)
		}
		if len(c.targets) == 0 {
			return invalidf("conditional edge from %q declares no targets", from)
		}
		for _, t := range sortedKeys(c.targets) {
			if !g.known(t) {
				return invalidf("conditional edge %q -> %q targets an unknown node", from, t)
			}
		}
	}

	g.compiled = true
	return nil
}

// Run executes the graph from the entry node until End.
func (g *Graph[S]) Run(ctx context.Context, state S) error {
	if !g.compiled {
		if err := g.Compile(); err != nil {
			return err
		}
	}
	limit := g.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}

	current := g.entry
	for step := 1; current != End; step++ {
		if step > limit {
			return &GraphError{Kind: ErrStepLimit, Msg: fmt.Sprintf("%d steps, last node %q", limit, current)}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if g.OnStep != nil {
			g.OnStep(current, step)
		}
		if err := g.nodes[current](ctx, state); err != nil {
			return fmt.Errorf("node %s: %w", current, err)
		}

		next, err := g.next(current, state)
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}

func (g *Graph[S]) next(current string, state S) (string, error) {
	if to, ok := g.edges[current]; ok {
		return to, nil
	}
	c := g.branches[current]
	to := c.route(state)
	if !c.targets[to] {
		return "", &GraphError{Kind: ErrUnknownRoute, Msg: fmt.Sprintf("%q routed to undeclared %q", current, to)}
	}
	return to, nil
}

func (g *Graph[S]) known(name string) bool {
	if name == End {
		return true
	}
	_, ok := g.nodes[name]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
