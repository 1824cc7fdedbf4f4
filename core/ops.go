package core

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/sbl8/gradnet/kernels"
)

// Add returns v + o.
func (v Value) Add(o Value) Value {
	return v.g.must(kernels.OpAdd, 0, v, o)
}

// Mul returns v * o.
func (v Value) Mul(o Value) Value {
	return v.g.must(kernels.OpMul, 0, v, o)
}

// Neg returns -v, built as v * (-1).
func (v Value) Neg() Value {
	return v.Mul(v.g.constant(-1))
}

// Sub returns v - o, built as v + (-o).
func (v Value) Sub(o Value) Value {
	return v.Add(o.Neg())
}

// Div returns v / o. It fails with ErrDivisionByZero if o is exactly zero.
func (v Value) Div(o Value) (Value, error) {
	return v.g.apply(kernels.OpDiv, 0, func(_, b float64) error {
		if b == 0 {
			return errors.Wrapf(ErrDivisionByZero, "divisor node %d", o.ref)
		}
		return nil
	}, v, o)
}

// Pow returns v raised to a constant exponent. A zero base with a negative
// exponent fails with ErrDivisionByZero. A negative base with a non-integer
// exponent yields NaN, which propagates through the graph.
func (v Value) Pow(exponent float64) (Value, error) {
	return v.g.apply(kernels.OpPow, exponent, func(a, _ float64) error {
		if a == 0 && exponent < 0 {
			return errors.Wrapf(ErrDivisionByZero, "0^%g at node %d", exponent, v.ref)
		}
		return nil
	}, v)
}

// Tanh returns tanh(v).
func (v Value) Tanh() Value {
	return v.g.must(kernels.OpTanh, 0, v)
}

// Relu returns max(0, v).
func (v Value) Relu() Value {
	return v.g.must(kernels.OpReLU, 0, v)
}

// Exp returns e^v.
func (v Value) Exp() Value {
	return v.g.must(kernels.OpExp, 0, v)
}

// Log returns ln(v). Non-positive inputs give -Inf or NaN.
func (v Value) Log() Value {
	return v.g.must(kernels.OpLog, 0, v)
}

// AddScalar returns v + s.
func (v Value) AddScalar(s float64) Value {
	return v.Add(v.g.constant(s))
}

// SubScalar returns v - s.
func (v Value) SubScalar(s float64) Value {
	return v.Add(v.g.constant(-s))
}

// MulScalar returns v * s.
func (v Value) MulScalar(s float64) Value {
	return v.Mul(v.g.constant(s))
}

// DivScalar returns v * (1/s). It fails with ErrDivisionByZero if s is zero.
func (v Value) DivScalar(s float64) (Value, error) {
	if s == 0 {
		return Value{}, errors.Wrapf(ErrDivisionByZero, "scalar divisor at node %d", v.ref)
	}
	return v.MulScalar(1 / s), nil
}

func (g *Graph) constant(x float64) Value {
	return g.leaf(x, FlagConst)
}

// Sum returns the left fold xs[0] + xs[1] + ... of the given values.
func (g *Graph) Sum(xs ...Value) (Value, error) {
	if len(xs) == 0 {
		return Value{}, errors.Wrap(ErrEmptyInput, "sum")
	}
	acc := xs[0]
	if acc.g != g {
		panic(errors.Wrapf(ErrForeignValue, "sum operand ref %d", acc.ref))
	}
	for _, x := range xs[1:] {
		acc = g.must(kernels.OpAdd, 0, acc, x)
	}
	return acc, nil
}

// Softmax returns exp(x_i)/Σ exp(x_j) for each input. The exponentials are
// shifted by the largest input, and the shared denominator is an ordinary
// node, so gradients follow the exact softmax Jacobian.
func (g *Graph) Softmax(xs ...Value) ([]Value, error) {
	if len(xs) == 0 {
		return nil, errors.Wrap(ErrEmptyInput, "softmax")
	}
	data := make([]float64, len(xs))
	for i, x := range xs {
		data[i] = x.Data()
	}
	shift := floats.Max(data)

	exps := make([]Value, len(xs))
	for i, x := range xs {
		exps[i] = g.must(kernels.OpExp, shift, x)
	}
	denom, err := g.Sum(exps...)
	if err != nil {
		return nil, err
	}

	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = g.must(kernels.OpSoftmax, shift, x, denom)
	}
	return out, nil
}
