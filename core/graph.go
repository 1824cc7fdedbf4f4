package core

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/kernels"
)

// Mark is a position in the arena returned by Graph.Mark.
type Mark int

// Graph is an append-only arena of nodes. Operators may be applied from
// several goroutines at once; the backward pass and parameter updates must not
// overlap with construction on the same graph.
type Graph struct {
	mu    sync.RWMutex
	nodes []Node
	ids   IDSource

	// Scratch buffers reused by every backward pass.
	marks []uint8
	stack []frame
	order []Ref
}

// GraphOptions configures a graph.
type GraphOptions struct {
	Capacity int
	IDs      IDSource
}

// DefaultGraphOptions provides sensible graph defaults
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		Capacity: 1024,
		IDs:      DefaultIDs,
	}
}

// NewGraph creates an empty graph. A nil opts uses DefaultGraphOptions.
func NewGraph(opts *GraphOptions) *Graph {
	o := DefaultGraphOptions()
	if opts != nil {
		if opts.Capacity > 0 {
			o.Capacity = opts.Capacity
		}
		if opts.IDs != nil {
			o.IDs = opts.IDs
		}
	}
	return &Graph{
		nodes: make([]Node, 0, o.Capacity),
		ids:   o.IDs,
	}
}

// Len returns the number of nodes in the arena.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// NextID draws an identifier from the graph's ID source.
func (g *Graph) NextID() uint64 {
	return g.ids.Next()
}

// Mark returns the current end of the arena.
func (g *Graph) Mark() Mark {
	return Mark(g.Len())
}

// Rewind discards every node created after m. Handles to discarded nodes
// become stale.
func (g *Graph) Rewind(m Mark) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m < 0 || int(m) > len(g.nodes) {
		return errors.Wrapf(ErrInvalidMark, "mark %d, arena size %d", m, len(g.nodes))
	}
	clear(g.nodes[m:])
	g.nodes = g.nodes[:m]
	return nil
}

// Reset discards every node.
func (g *Graph) Reset() {
	_ = g.Rewind(0)
}

// ZeroGrad sets the gradient of every node in the arena to zero.
func (g *Graph) ZeroGrad() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.nodes {
		g.nodes[i].Grad = 0
	}
}

// At returns a copy of the node at ref.
func (g *Graph) At(ref Ref) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if ref < 0 || int(ref) >= len(g.nodes) {
		return Node{}, errors.Wrapf(ErrInvalidRef, "ref %d, arena size %d", ref, len(g.nodes))
	}
	return g.nodes[ref], nil
}

// Validate checks every node in the arena.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for i := range g.nodes {
		if err := g.nodes[i].Validate(len(g.nodes)); err != nil {
			return errors.Wrapf(err, "node %d", i)
		}
	}
	return nil
}

// Link replaces the predecessors of v without recomputing its value. It is a
// low-level escape hatch; links that introduce a cycle are reported by
// Backward.
func (g *Graph) Link(v Value, preds ...Value) error {
	if len(preds) > 2 {
		return errors.Wrapf(ErrTooManyOperands, "link of %d predecessors", len(preds))
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.resolveLocked(v)
	n.Prev = [2]Ref{NoRef, NoRef}
	for i, p := range preds {
		g.resolveLocked(p)
		n.Prev[i] = p.ref
	}
	n.NPrev = uint8(len(preds))
	return nil
}

// Leaf creates a leaf node holding x.
func (g *Graph) Leaf(x float64) Value {
	return g.leaf(x, 0)
}

// Leaves creates one leaf per value, in order.
func (g *Graph) Leaves(xs ...float64) []Value {
	out := make([]Value, len(xs))
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, x := range xs {
		out[i] = g.pushLocked(Node{Value: x, Prev: [2]Ref{NoRef, NoRef}})
	}
	return out
}

// Param creates a leaf flagged as a trainable parameter.
func (g *Graph) Param(x float64) Value {
	return g.leaf(x, FlagParam)
}

func (g *Graph) leaf(x float64, flags uint32) Value {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pushLocked(Node{Value: x, Prev: [2]Ref{NoRef, NoRef}, Flags: flags})
}

func (g *Graph) pushLocked(n Node) Value {
	n.ID = g.ids.Next()
	g.nodes = append(g.nodes, n)
	ref := Ref(len(g.nodes) - 1)
	return Value{g: g, ref: ref, id: n.ID}
}

// resolveLocked returns the node behind v, panicking if v does not belong to
// g or no longer names a live node.
func (g *Graph) resolveLocked(v Value) *Node {
	if v.g != g {
		panic(errors.Wrapf(ErrForeignValue, "ref %d", v.ref))
	}
	if v.ref < 0 || int(v.ref) >= len(g.nodes) || g.nodes[v.ref].ID != v.id {
		panic(errors.Wrapf(ErrStaleValue, "ref %d id %d", v.ref, v.id))
	}
	return &g.nodes[v.ref]
}

// apply builds a node for op over the given operands. check, when non-nil,
// sees the operand values before the node is created and may veto it.
func (g *Graph) apply(op kernels.Op, arg float64, check func(a, b float64) error, operands ...Value) (Value, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := Node{Op: op, Arg: arg, Prev: [2]Ref{NoRef, NoRef}, NPrev: uint8(len(operands))}
	var vals [2]float64
	for i, v := range operands {
		vals[i] = g.resolveLocked(v).Value
		n.Prev[i] = v.ref
	}
	if check != nil {
		if err := check(vals[0], vals[1]); err != nil {
			return Value{}, err
		}
	}
	n.Value = kernels.Catalog[op].Forward(vals[0], vals[1], arg)
	return g.pushLocked(n), nil
}

// must is apply for operators that cannot fail.
func (g *Graph) must(op kernels.Op, arg float64, operands ...Value) Value {
	v, _ := g.apply(op, arg, nil, operands...)
	return v
}
