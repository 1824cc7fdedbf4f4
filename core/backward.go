package core

import (
	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/kernels"
)

// Traversal colours
const (
	white uint8 = iota // not yet reached
	grey               // on the current path
	black              // finished, appended to the order
)

// frame is one entry of the explicit depth-first stack.
type frame struct {
	ref  Ref
	next uint8 // index of the next predecessor to visit
}

// Topo returns seed and all of its ancestors in topological order: every node
// appears after all of its predecessors, and seed comes last.
func (g *Graph) Topo(seed Value) ([]Value, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolveLocked(seed)

	order, err := g.topoLocked(seed.ref)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(order))
	for i, ref := range order {
		out[i] = Value{g: g, ref: ref, id: g.nodes[ref].ID}
	}
	return out, nil
}

// topoLocked runs an iterative post-order depth-first search from seed. The
// returned slice aliases scratch memory and is only valid until the next pass.
func (g *Graph) topoLocked(seed Ref) ([]Ref, error) {
	marks := g.resetMarksLocked()
	order := g.order[:0]
	stack := append(g.stack[:0], frame{ref: seed})
	marks[seed] = grey

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := &g.nodes[top.ref]

		if top.next < n.NPrev {
			child := n.Prev[top.next]
			top.next++
			if child < 0 || int(child) >= len(g.nodes) {
				return nil, errors.Wrapf(ErrInvalidRef, "predecessor %d of node %d", child, top.ref)
			}
			switch marks[child] {
			case grey:
				return nil, errors.Wrapf(ErrCyclicGraph, "node %d reached again from node %d", child, top.ref)
			case white:
				marks[child] = grey
				stack = append(stack, frame{ref: child})
			}
			continue
		}

		marks[top.ref] = black
		order = append(order, top.ref)
		stack = stack[:len(stack)-1]
	}

	g.stack = stack
	g.order = order
	return order, nil
}

func (g *Graph) resetMarksLocked() []uint8 {
	if cap(g.marks) < len(g.nodes) {
		g.marks = make([]uint8, len(g.nodes))
	}
	g.marks = g.marks[:len(g.nodes)]
	clear(g.marks)
	return g.marks
}

// Backward seeds seed's gradient with 1 and propagates gradients to every
// ancestor in reverse topological order. Gradients accumulate: callers reset
// parameter gradients between independent passes.
func (g *Graph) Backward(seed Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolveLocked(seed)

	order, err := g.topoLocked(seed.ref)
	if err != nil {
		return err
	}

	g.nodes[seed.ref].Grad = 1
	for i := len(order) - 1; i >= 0; i-- {
		n := &g.nodes[order[i]]
		rule := kernels.GetKernel(n.Op).Grad
		if rule == nil || n.NPrev == 0 {
			continue
		}

		a := &g.nodes[n.Prev[0]]
		b := a
		if n.NPrev > 1 {
			b = &g.nodes[n.Prev[1]]
		}
		da, db := rule(n.Value, n.Grad, a.Value, b.Value, n.Arg)
		a.Grad += da
		if n.NPrev > 1 {
			b.Grad += db
		}
	}
	return nil
}
