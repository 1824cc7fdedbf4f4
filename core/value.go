package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/kernels"
)

// Value is a handle onto one node of a Graph. The zero Value is invalid.
// Handles are small and meant to be passed by value; every access checks that
// the node still exists, so a handle used after its node was rewound away
// panics instead of silently reading a newer node.
type Value struct {
	g   *Graph
	ref Ref
	id  uint64
}

// Graph returns the graph the value lives in.
func (v Value) Graph() *Graph { return v.g }

// Ref returns the value's arena index.
func (v Value) Ref() Ref { return v.ref }

// ID returns the identifier assigned to the node when it was created.
func (v Value) ID() uint64 { return v.id }

// Valid reports whether v still names a live node.
func (v Value) Valid() bool {
	if v.g == nil {
		return false
	}
	v.g.mu.RLock()
	defer v.g.mu.RUnlock()
	return v.ref >= 0 && int(v.ref) < len(v.g.nodes) && v.g.nodes[v.ref].ID == v.id
}

func (v Value) read(fn func(n *Node)) {
	if v.g == nil {
		panic(errors.Wrap(ErrForeignValue, "zero Value"))
	}
	v.g.mu.RLock()
	defer v.g.mu.RUnlock()
	fn(v.g.resolveLocked(v))
}

func (v Value) write(fn func(n *Node)) {
	if v.g == nil {
		panic(errors.Wrap(ErrForeignValue, "zero Value"))
	}
	v.g.mu.Lock()
	defer v.g.mu.Unlock()
	fn(v.g.resolveLocked(v))
}

// Data returns the node's scalar value.
func (v Value) Data() float64 {
	var x float64
	v.read(func(n *Node) { x = n.Value })
	return x
}

// Grad returns the node's accumulated gradient.
func (v Value) Grad() float64 {
	var x float64
	v.read(func(n *Node) { x = n.Grad })
	return x
}

// Op returns the operator that produced the node.
func (v Value) Op() kernels.Op {
	var op kernels.Op
	v.read(func(n *Node) { op = n.Op })
	return op
}

// IsLeaf reports whether the node has no operator.
func (v Value) IsLeaf() bool {
	return v.Op() == kernels.OpLeaf
}

// IsParam reports whether the node is a trainable parameter.
func (v Value) IsParam() bool {
	var ok bool
	v.read(func(n *Node) { ok = n.HasFlag(FlagParam) })
	return ok
}

// Prev returns handles to the node's predecessors in operand order.
func (v Value) Prev() []Value {
	var out []Value
	v.read(func(n *Node) {
		out = make([]Value, 0, n.NPrev)
		for _, p := range n.Preds() {
			if p < 0 || int(p) >= len(v.g.nodes) {
				panic(errors.Wrapf(ErrInvalidRef, "predecessor %d of node %d", p, v.ref))
			}
			out = append(out, Value{g: v.g, ref: p, id: v.g.nodes[p].ID})
		}
	})
	return out
}

// SetData overwrites a leaf's value. Derived nodes are fixed at construction;
// calling SetData on one panics with ErrNotLeaf.
func (v Value) SetData(x float64) {
	v.write(func(n *Node) {
		if !n.IsLeaf() {
			panic(errors.Wrapf(ErrNotLeaf, "SetData on %s node %d", n.Op, v.ref))
		}
		n.Value = x
	})
}

// ZeroGrad resets the node's gradient.
func (v Value) ZeroGrad() {
	v.write(func(n *Node) { n.Grad = 0 })
}

// Backward computes gradients of v with respect to every node it depends on.
func (v Value) Backward() error {
	if v.g == nil {
		panic(errors.Wrap(ErrForeignValue, "zero Value"))
	}
	return v.g.Backward(v)
}

func (v Value) String() string {
	if !v.Valid() {
		return "Value(invalid)"
	}
	var s string
	v.read(func(n *Node) { s = fmt.Sprintf("Value(data=%g, grad=%g, op=%s)", n.Value, n.Grad, n.Op) })
	return s
}
