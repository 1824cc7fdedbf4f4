// Package kernels provides the scalar operator kernels used by the gradnet graph.
//
// Every operator that can produce a graph node is identified by an opcode and
// described by a Kernel: a pure forward function that computes the node's
// value from its operands, and a pure local gradient rule that, given the
// node's value and accumulated gradient, returns the contributions owed to
// each operand. Kernels never touch the graph; the backward engine in package
// core gathers operand values, calls the rule, and accumulates the results.
//
// Available operations:
//   - Arithmetic: add, multiply, divide, power
//   - Activations: tanh, ReLU
//   - Exponentials: exp (with a constant shift), natural log
//   - Softmax component: exp(x-shift)/S given x and the shared denominator S
//
// All kernels are registered in the Catalog array and dispatched by opcode,
// so the backward pass is a table lookup rather than a stored closure.
package kernels

import "math"

// Op identifies the operator that produced a node.
type Op uint8

// Operator opcodes
const (
	OpLeaf    Op = 0x00 // no operator: input, target, parameter or constant
	OpAdd     Op = 0x01
	OpMul     Op = 0x02
	OpDiv     Op = 0x03
	OpPow     Op = 0x04
	OpTanh    Op = 0x05
	OpReLU    Op = 0x06
	OpExp     Op = 0x07
	OpLog     Op = 0x08
	OpSoftmax Op = 0x09

	// NumOps is the size of the Catalog.
	NumOps = 0x0A
)

// ForwardFn computes a node value from up to two operand values and the
// node's scalar argument.
type ForwardFn func(a, b, arg float64) float64

// GradFn is a local backward rule. out and grad are the node's own value and
// accumulated gradient; a, b and arg are as for ForwardFn. It returns the
// amounts to add to the first and second operand gradients.
type GradFn func(out, grad, a, b, arg float64) (da, db float64)

// Kernel describes one operator.
type Kernel struct {
	Name    string
	Arity   int
	Forward ForwardFn
	Grad    GradFn
}

// Catalog maps opcodes to kernels. OpLeaf has no forward function and no rule.
var Catalog = [NumOps]Kernel{
	OpLeaf:    {Name: "leaf"},
	OpAdd:     {Name: "+", Arity: 2, Forward: add, Grad: addGrad},
	OpMul:     {Name: "*", Arity: 2, Forward: mul, Grad: mulGrad},
	OpDiv:     {Name: "/", Arity: 2, Forward: div, Grad: divGrad},
	OpPow:     {Name: "^", Arity: 1, Forward: pow, Grad: powGrad},
	OpTanh:    {Name: "tanh", Arity: 1, Forward: tanh, Grad: tanhGrad},
	OpReLU:    {Name: "relu", Arity: 1, Forward: relu, Grad: reluGrad},
	OpExp:     {Name: "exp", Arity: 1, Forward: exp, Grad: expGrad},
	OpLog:     {Name: "log", Arity: 1, Forward: logKernel, Grad: logGrad},
	OpSoftmax: {Name: "softmax", Arity: 2, Forward: softmax, Grad: softmaxGrad},
}

// GetKernel returns the kernel for the given opcode. Unknown opcodes yield the
// zero Kernel, whose Grad is nil.
func GetKernel(op Op) Kernel {
	if int(op) >= len(Catalog) {
		return Kernel{}
	}
	return Catalog[op]
}

// Valid reports whether op names a registered operator.
func (op Op) Valid() bool {
	return int(op) < len(Catalog) && Catalog[op].Name != ""
}

// String returns the operator's short name.
func (op Op) String() string {
	if !op.Valid() {
		return "op?"
	}
	return Catalog[op].Name
}

// -------- Forward kernels ----------

func add(a, b, _ float64) float64 { return a + b }

func mul(a, b, _ float64) float64 { return a * b }

func div(a, b, _ float64) float64 { return a / b }

func pow(a, _, exponent float64) float64 { return math.Pow(a, exponent) }

func tanh(a, _, _ float64) float64 { return math.Tanh(a) }

func relu(a, _, _ float64) float64 {
	if a > 0 {
		return a
	}
	return 0
}

// exp computes e^(a-shift). The shift keeps softmax numerically stable and
// does not change the derivative.
func exp(a, _, shift float64) float64 { return math.Exp(a - shift) }

func logKernel(a, _, _ float64) float64 { return math.Log(a) }

// softmax computes one component exp(x-shift)/s.
func softmax(x, s, shift float64) float64 { return math.Exp(x-shift) / s }

// -------- Local gradient rules ----------

func addGrad(_, g, _, _, _ float64) (float64, float64) { return g, g }

func mulGrad(_, g, a, b, _ float64) (float64, float64) { return b * g, a * g }

func divGrad(_, g, a, b, _ float64) (float64, float64) {
	return g / b, -a / (b * b) * g
}

// powGrad: d(a^n)/da = n * a^(n-1). The exponent is a constant and receives nothing.
func powGrad(_, g, a, _, exponent float64) (float64, float64) {
	return exponent * math.Pow(a, exponent-1) * g, 0
}

func tanhGrad(out, g, _, _, _ float64) (float64, float64) {
	return (1 - out*out) * g, 0
}

func reluGrad(out, g, _, _, _ float64) (float64, float64) {
	if out > 0 {
		return g, 0
	}
	return 0, 0
}

func expGrad(out, g, _, _, _ float64) (float64, float64) { return out * g, 0 }

func logGrad(_, g, a, _, _ float64) (float64, float64) { return g / a, 0 }

// softmaxGrad treats the component as exp(x-shift) * s^-1 with s an independent
// operand. Composed with the exp and add rules that built s, this yields the
// exact softmax Jacobian.
func softmaxGrad(out, g, _, s, _ float64) (float64, float64) {
	return out * g, -out / s * g
}
