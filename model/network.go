package model

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/core"
	"github.com/sbl8/gradnet/runtime"
)

// Network is a stack of layers evaluated in order.
type Network struct {
	graph      *core.Graph
	inputWidth int
	layers     []*Layer
	pool       *runtime.Pool
}

// NewNetwork creates a network over g with the given input width and one
// layer per entry of widths. A nil opts uses DefaultOptions. Concurrent
// networks own a worker pool that Close releases.
func NewNetwork(g *core.Graph, inputWidth int, widths []int, opts *Options) (*Network, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if inputWidth <= 0 {
		return nil, errors.Wrapf(ErrInvalidWidth, "input width %d", inputWidth)
	}
	if len(widths) == 0 {
		return nil, errors.Wrap(ErrInvalidWidth, "no layers")
	}
	for i, w := range widths {
		if w <= 0 {
			return nil, errors.Wrapf(ErrInvalidWidth, "layer %d width %d", i, w)
		}
	}

	n := &Network{graph: g, inputWidth: inputWidth}
	if o.Concurrent {
		po := runtime.DefaultEngineOptions()
		if o.Workers > 0 {
			po.Workers = o.Workers
		}
		po.EnableStats = o.EnableStats
		n.pool = runtime.NewPool(&po)
	}

	rng := o.rng()
	in := inputWidth
	for i, w := range widths {
		act := o.Activation
		if i == len(widths)-1 {
			act = o.OutputActivation
		}
		n.layers = append(n.layers, NewLayer(g, i, in, w, act, rng, n.pool))
		in = w
	}
	return n, nil
}

// Graph returns the graph holding the network's parameters.
func (n *Network) Graph() *core.Graph { return n.graph }

// Layers returns the network's layers in order.
func (n *Network) Layers() []*Layer { return n.layers }

// InputWidth returns the number of inputs the network expects.
func (n *Network) InputWidth() int { return n.inputWidth }

// OutputWidth returns the width of the last layer.
func (n *Network) OutputWidth() int { return n.layers[len(n.layers)-1].Width() }

// Concurrent reports whether layers evaluate their units on a worker pool.
func (n *Network) Concurrent() bool { return n.pool != nil }

// Pool returns the network's worker pool, or nil for sequential networks.
func (n *Network) Pool() *runtime.Pool { return n.pool }

// Evaluate feeds inputs through every layer. Each layer finishes before the
// next one starts.
func (n *Network) Evaluate(inputs []core.Value) ([]core.Value, error) {
	x := inputs
	for _, l := range n.layers {
		var err error
		if x, err = l.Evaluate(x); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// Children returns the network's layers.
func (n *Network) Children() []Parameterized {
	out := make([]Parameterized, len(n.layers))
	for i, l := range n.layers {
		out[i] = l
	}
	return out
}

// Parameters returns the parameters of every layer in order.
func (n *Network) Parameters() []core.Value { return collect(n.Children()) }

// ZeroGrad resets the gradients of every parameter.
func (n *Network) ZeroGrad() { ZeroGrad(n) }

// Close stops the worker pool of a concurrent network.
func (n *Network) Close() {
	if n.pool != nil {
		n.pool.Close()
	}
}

func (n *Network) String() string {
	var b strings.Builder
	b.WriteString("Network[")
	for i, l := range n.layers {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.String())
	}
	b.WriteString("]")
	return b.String()
}
