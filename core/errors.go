package core

import "github.com/pkg/errors"

// Failures reported by graph construction and the backward pass.
var (
	// ErrDivisionByZero is returned when a divisor, or the base of a power
	// with a negative exponent, is exactly zero at construction time.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrDimensionMismatch is returned when two sequences that must be zipped
	// together differ in length.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrCyclicGraph is returned by the backward pass when a node is reached
	// again while it is still on the current traversal path.
	ErrCyclicGraph = errors.New("cyclic graph")

	// ErrEmptyInput is returned by operators that need at least one operand.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidRef is returned when a reference points outside the arena.
	ErrInvalidRef = errors.New("invalid node reference")

	// ErrInvalidMark is returned when rewinding to a mark beyond the arena end.
	ErrInvalidMark = errors.New("invalid arena mark")

	// ErrTooManyOperands is returned by Link for more than two predecessors.
	ErrTooManyOperands = errors.New("too many operands")
)

// Contract violations. These are raised with panic, never returned.
var (
	ErrStaleValue   = errors.New("stale value handle")
	ErrForeignValue = errors.New("value belongs to another graph")
	ErrNotLeaf      = errors.New("node is not a leaf")
)
