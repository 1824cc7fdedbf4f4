// Package model composes graph nodes into a trainable feed-forward network.
//
// The hierarchy has three levels. A Unit owns one weight per input and a bias
// and evaluates bias + Σ w_i*x_i followed by its activation. A Layer is an
// ordered set of Units reading the same inputs. A Network stacks Layers so
// that each layer's width is the next layer's input width.
//
// Every level exposes the same two capabilities: listing its trainable
// parameters and resetting their gradients. Layers and Networks implement
// them by folding over their children, so the parameter order is always
// weights then bias per Unit, Units in Layer order, Layers in Network order.
// Trainers zip that order against their updates.
//
// Parameters are leaves of a core.Graph and live as long as the graph. All
// other nodes built by Evaluate are per-iteration and are meant to be
// discarded with Graph.Rewind once their gradients have been used.
package model

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/core"
)

// ErrInvalidWidth is returned when a network is built with a non-positive
// width or without layers.
var ErrInvalidWidth = errors.New("invalid layer width")

// Activation selects the nonlinearity applied to a Unit's weighted sum. The
// zero Activation is Tanh.
type Activation uint8

// Supported activations
const (
	Tanh Activation = iota
	ReLU
	Linear
)

var activationNames = [...]string{
	Tanh:   "tanh",
	ReLU:   "relu",
	Linear: "linear",
}

func (a Activation) String() string {
	if int(a) < len(activationNames) {
		return activationNames[a]
	}
	return "activation?"
}

// ParseActivation maps a name produced by String back to its Activation.
func ParseActivation(name string) (Activation, error) {
	for i, n := range activationNames {
		if n == name {
			return Activation(i), nil
		}
	}
	return 0, errors.Errorf("unknown activation %q", name)
}

func (a Activation) apply(v core.Value) core.Value {
	switch a {
	case ReLU:
		return v.Relu()
	case Linear:
		return v
	default:
		return v.Tanh()
	}
}

// Parameterized is anything that owns trainable parameters.
type Parameterized interface {
	Parameters() []core.Value
}

// Composite is a Parameterized made of other Parameterized components.
type Composite interface {
	Parameterized
	Children() []Parameterized
}

// ZeroGrad sets the gradient of every parameter of p to zero.
func ZeroGrad(p Parameterized) {
	for _, v := range p.Parameters() {
		v.ZeroGrad()
	}
}

// CountParameters returns the number of parameters of p without building the
// parameter list when p is a Composite.
func CountParameters(p Parameterized) int {
	c, ok := p.(Composite)
	if !ok {
		return len(p.Parameters())
	}
	n := 0
	for _, child := range c.Children() {
		n += CountParameters(child)
	}
	return n
}

// collect concatenates the parameters of children in order.
func collect(children []Parameterized) []core.Value {
	var out []core.Value
	for _, c := range children {
		out = append(out, c.Parameters()...)
	}
	return out
}

// Options configures network construction.
type Options struct {
	// Concurrent evaluates the units of each layer on a worker pool.
	Concurrent bool
	// Workers sizes the pool; zero means one worker per CPU.
	Workers int
	// EnableStats makes the pool record runtime.ExecutionStats.
	EnableStats bool
	// Activation is used by every layer but the last.
	Activation Activation
	// OutputActivation is used by the last layer.
	OutputActivation Activation
	// Seed initializes the weight generator when Rand is nil.
	Seed int64
	// Rand, when set, supplies the initial weights.
	Rand *rand.Rand
}

// DefaultOptions returns sequential evaluation with tanh everywhere and a
// fixed seed, so repeated runs start from the same weights.
func DefaultOptions() Options {
	return Options{
		Activation:       Tanh,
		OutputActivation: Tanh,
		Seed:             1,
	}
}

func (o *Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(o.Seed))
}
