package model

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/core"
)

// Unit is a single neuron: a weighted sum of its inputs plus a bias, passed
// through an activation.
type Unit struct {
	id      uint64
	weights []core.Value
	bias    core.Value
	act     Activation
}

// NewUnit creates a unit with one weight per input drawn uniformly from
// [-1, 1] and a zero bias. All parameters are created as leaves of g.
func NewUnit(g *core.Graph, inputs int, act Activation, rng *rand.Rand) *Unit {
	u := &Unit{
		id:      g.NextID(),
		weights: make([]core.Value, inputs),
		act:     act,
	}
	for i := range u.weights {
		u.weights[i] = g.Param(rng.Float64()*2 - 1)
	}
	u.bias = g.Param(0)
	return u
}

// ID returns the unit's identifier.
func (u *Unit) ID() uint64 { return u.id }

// InputWidth returns the number of inputs the unit expects.
func (u *Unit) InputWidth() int { return len(u.weights) }

// Activation returns the unit's nonlinearity.
func (u *Unit) Activation() Activation { return u.act }

// Weights returns the weight parameters in input order.
func (u *Unit) Weights() []core.Value { return u.weights }

// Bias returns the bias parameter.
func (u *Unit) Bias() core.Value { return u.bias }

// Evaluate builds act(bias + w_0*x_0 + w_1*x_1 + ...) as a left-to-right fold.
func (u *Unit) Evaluate(inputs []core.Value) (core.Value, error) {
	if len(inputs) != len(u.weights) {
		return core.Value{}, errors.Wrapf(core.ErrDimensionMismatch,
			"unit %d: %d inputs for %d weights", u.id, len(inputs), len(u.weights))
	}
	acc := u.bias
	for i, w := range u.weights {
		acc = acc.Add(w.Mul(inputs[i]))
	}
	return u.act.apply(acc), nil
}

// Parameters returns the weights followed by the bias.
func (u *Unit) Parameters() []core.Value {
	out := make([]core.Value, 0, len(u.weights)+1)
	out = append(out, u.weights...)
	return append(out, u.bias)
}

// ZeroGrad resets the gradients of the unit's parameters.
func (u *Unit) ZeroGrad() { ZeroGrad(u) }

func (u *Unit) String() string {
	return fmt.Sprintf("Unit(%d inputs, %s)", len(u.weights), u.act)
}
