package core

import "sync/atomic"

// IDSource hands out identifiers for nodes and modules. Identifiers from one
// source are unique for as long as the source is not reset.
type IDSource interface {
	Next() uint64
}

// Counter is a monotonically increasing IDSource safe for concurrent use.
type Counter struct {
	n atomic.Uint64
}

// DefaultIDs is the process-wide source used by graphs created without one.
var DefaultIDs = &Counter{}

// Next returns the next identifier. The first identifier is 1.
func (c *Counter) Next() uint64 {
	return c.n.Add(1)
}

// Current returns the last identifier handed out.
func (c *Counter) Current() uint64 {
	return c.n.Load()
}

// Reset sets the counter so that the next identifier is n+1. Resetting a
// counter that live graphs still draw from weakens stale-handle detection;
// it is meant for tests that need predictable identifiers.
func (c *Counter) Reset(n uint64) {
	c.n.Store(n)
}
