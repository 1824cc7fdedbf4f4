package model

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/core"
	"github.com/sbl8/gradnet/runtime"
)

// Layer is an ordered set of units reading the same inputs.
type Layer struct {
	index int
	units []*Unit
	pool  *runtime.Pool // nil for sequential evaluation
}

// NewLayer creates outputs units of inputs weights each. A non-nil pool makes
// Evaluate fan the units out across its workers.
func NewLayer(g *core.Graph, index, inputs, outputs int, act Activation, rng *rand.Rand, pool *runtime.Pool) *Layer {
	l := &Layer{
		index: index,
		units: make([]*Unit, outputs),
		pool:  pool,
	}
	for i := range l.units {
		l.units[i] = NewUnit(g, inputs, act, rng)
	}
	return l
}

// Index returns the layer's position in its network.
func (l *Layer) Index() int { return l.index }

// Units returns the layer's units in order.
func (l *Layer) Units() []*Unit { return l.units }

// Width returns the number of units, which is the layer's output width.
func (l *Layer) Width() int { return len(l.units) }

// InputWidth returns the number of inputs each unit expects.
func (l *Layer) InputWidth() int {
	if len(l.units) == 0 {
		return 0
	}
	return l.units[0].InputWidth()
}

// Concurrent reports whether Evaluate uses a worker pool.
func (l *Layer) Concurrent() bool { return l.pool != nil }

// Evaluate applies every unit to inputs and returns one output per unit, in
// unit order. In concurrent mode the units run on the pool and Evaluate
// returns once all of them have finished.
func (l *Layer) Evaluate(inputs []core.Value) ([]core.Value, error) {
	out := make([]core.Value, len(l.units))
	if l.pool == nil {
		for i, u := range l.units {
			v, err := u.Evaluate(inputs)
			if err != nil {
				return nil, errors.Wrapf(err, "layer %d unit %d", l.index, i)
			}
			out[i] = v
		}
		return out, nil
	}

	err := l.pool.Scatter(len(l.units), func(i int) error {
		v, err := l.units[i].Evaluate(inputs)
		if err != nil {
			return errors.Wrapf(err, "layer %d unit %d", l.index, i)
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Children returns the layer's units.
func (l *Layer) Children() []Parameterized {
	out := make([]Parameterized, len(l.units))
	for i, u := range l.units {
		out[i] = u
	}
	return out
}

// Parameters returns the parameters of every unit in order.
func (l *Layer) Parameters() []core.Value { return collect(l.Children()) }

// ZeroGrad resets the gradients of the layer's parameters.
func (l *Layer) ZeroGrad() { ZeroGrad(l) }

func (l *Layer) String() string {
	act := Tanh
	if len(l.units) > 0 {
		act = l.units[0].Activation()
	}
	return fmt.Sprintf("Layer(%d: %d -> %d, %s)", l.index, l.InputWidth(), l.Width(), act)
}
