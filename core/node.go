// Package core provides the computation graph for the gradnet engine.
//
// This package implements the Node arena, the Value handle callers build
// expressions with, the operator set, and the reverse-mode backward pass.
// Nodes live in a Graph, an append-only arena addressed by stable integer
// references. Each node records the opcode that produced it and up to two
// predecessor references; gradient rules are looked up by opcode in the
// kernels catalog rather than stored per node.
//
// Key components:
//   - Node: scalar value, accumulated gradient, opcode, predecessors, flags
//   - Graph: arena with mark/rewind for per-iteration reuse
//   - Value: checked handle onto a node, carrying the arithmetic operators
//   - Backward: topological ordering with cycle detection and gradient accumulation
//
// A typical training iteration creates parameters once, marks the arena,
// then for each example builds a loss, calls Backward, reads the parameter
// gradients and rewinds the arena to the mark.
package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/kernels"
)

// Ref is the stable index of a node inside its Graph.
type Ref int32

// NoRef marks an unused predecessor slot.
const NoRef Ref = -1

// Node is one scalar computation result.
type Node struct {
	Value float64
	Grad  float64
	Arg   float64 // scalar operand: power exponent, exp/softmax shift
	ID    uint64
	Prev  [2]Ref
	NPrev uint8
	Op    kernels.Op
	Flags uint32
}

// Flags bit definitions
const (
	FlagParam = 1 << 0 // trainable parameter owned by a module
	FlagConst = 1 << 1 // constant created for a scalar operand
)

// IsLeaf reports whether the node has no operator.
func (n *Node) IsLeaf() bool {
	return n.Op == kernels.OpLeaf
}

// Preds returns the predecessor references in operand order.
func (n *Node) Preds() []Ref {
	return n.Prev[:n.NPrev]
}

// SetFlag sets a flag
func (n *Node) SetFlag(flag uint32) {
	n.Flags |= flag
}

// ClearFlag clears a flag
func (n *Node) ClearFlag(flag uint32) {
	n.Flags &^= flag
}

// HasFlag checks if a flag is set
func (n *Node) HasFlag(flag uint32) bool {
	return n.Flags&flag != 0
}

// Validate checks the node against an arena holding size nodes.
func (n *Node) Validate(size int) error {
	if n == nil {
		return errors.New("node is nil")
	}
	if !n.Op.Valid() {
		return errors.Errorf("unknown opcode %#x", uint8(n.Op))
	}
	if want := kernels.GetKernel(n.Op).Arity; int(n.NPrev) != want {
		return errors.Errorf("%s node has %d operands, want %d", n.Op, n.NPrev, want)
	}
	for _, p := range n.Preds() {
		if p < 0 || int(p) >= size {
			return errors.Wrapf(ErrInvalidRef, "predecessor %d of arena size %d", p, size)
		}
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(data=%g, grad=%g, op=%s)", n.Value, n.Grad, n.Op)
}
