package core

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/kernels"
)

func approx(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func mustValue(t *testing.T) func(Value, error) Value {
	return func(v Value, err error) Value {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return v
	}
}

// The reference expression from micrograd's README.
func TestWorkedExpression(t *testing.T) {
	t.Parallel()
	g := NewGraph(nil)

	a := g.Leaf(-4.0)
	b := g.Leaf(2.0)

	c := a.Add(b)
	if c.Data() != -2.0 {
		t.Fatalf("c = %v, want -2", c.Data())
	}

	d := a.Mul(b).Add(mustValue(t)(b.Pow(3)))
	if d.Data() != 0.0 {
		t.Fatalf("d = %v, want 0", d.Data())
	}

	c = c.Add(c).AddScalar(1)
	if c.Data() != -3.0 {
		t.Fatalf("c = %v, want -3", c.Data())
	}

	c = c.AddScalar(1).Add(c.Add(a.Neg()))
	if c.Data() != -1.0 {
		t.Fatalf("c = %v, want -1", c.Data())
	}

	d = d.Add(d.MulScalar(2)).Add(b.Add(a).Relu())
	if d.Data() != 0.0 {
		t.Fatalf("d = %v, want 0", d.Data())
	}

	d = d.Add(d.MulScalar(3)).Add(b.Sub(a).Relu())
	if d.Data() != 6.0 {
		t.Fatalf("d = %v, want 6", d.Data())
	}

	e := c.Sub(d)
	if e.Data() != -7.0 {
		t.Fatalf("e = %v, want -7", e.Data())
	}

	f := mustValue(t)(e.Pow(2))
	if f.Data() != 49.0 {
		t.Fatalf("f = %v, want 49", f.Data())
	}

	out := mustValue(t)(f.DivScalar(2))
	if out.Data() != 24.5 {
		t.Fatalf("g = %v, want 24.5", out.Data())
	}

	out = out.Add(mustValue(t)(g.Leaf(10).Div(f)))
	if !approx(out.Data(), 24.70408163265306, 1e-12) {
		t.Fatalf("g = %v, want 24.70408163265306", out.Data())
	}

	if err := out.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	if !approx(a.Grad(), 138.8338, 1e-3) {
		t.Errorf("a.grad = %v, want 138.8338", a.Grad())
	}
	if !approx(b.Grad(), 645.5773, 1e-3) {
		t.Errorf("b.grad = %v, want 645.5773", b.Grad())
	}
}

func TestSimpleBackward(t *testing.T) {
	t.Parallel()
	g := NewGraph(nil)
	v1 := g.Leaf(4.0)
	v2 := g.Leaf(2.0)
	v3 := v1.Mul(v2)

	if err := v3.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	if v1.Grad() != 2.0 {
		t.Errorf("v1.grad = %v, want 2", v1.Grad())
	}
	if v2.Grad() != 4.0 {
		t.Errorf("v2.grad = %v, want 4", v2.Grad())
	}
	if v3.Grad() != 1.0 {
		t.Errorf("seed grad = %v, want 1", v3.Grad())
	}
}

func TestOperatorValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		build func(g *Graph) (Value, error)
		want  float64
	}{
		{"addition", func(g *Graph) (Value, error) { return g.Leaf(5).Add(g.Leaf(3)), nil }, 8},
		{"scalar addition", func(g *Graph) (Value, error) { return g.Leaf(8).AddScalar(4), nil }, 12},
		{"subtraction", func(g *Graph) (Value, error) { return g.Leaf(5).Sub(g.Leaf(3)), nil }, 2},
		{"scalar subtraction", func(g *Graph) (Value, error) { return g.Leaf(5).SubScalar(3), nil }, 2},
		{"multiplication", func(g *Graph) (Value, error) { return g.Leaf(5).Mul(g.Leaf(3)), nil }, 15},
		{"scalar multiplication", func(g *Graph) (Value, error) { return g.Leaf(12).MulScalar(100), nil }, 1200},
		{"division", func(g *Graph) (Value, error) { return g.Leaf(5).Div(g.Leaf(3)) }, 5.0 / 3.0},
		{"scalar division", func(g *Graph) (Value, error) { return g.Leaf(49).DivScalar(2) }, 24.5},
		{"power", func(g *Graph) (Value, error) { return g.Leaf(5).Pow(2) }, 25},
		{"negation", func(g *Graph) (Value, error) { return g.Leaf(-3).Neg(), nil }, 3},
		{"relu positive", func(g *Graph) (Value, error) { return g.Leaf(5).Relu(), nil }, 5},
		{"relu negative", func(g *Graph) (Value, error) { return g.Leaf(-5).Relu(), nil }, 0},
		{"tanh", func(g *Graph) (Value, error) { return g.Leaf(0.5).Tanh(), nil }, math.Tanh(0.5)},
		{"exp", func(g *Graph) (Value, error) { return g.Leaf(1).Exp(), nil }, math.E},
		{"log", func(g *Graph) (Value, error) { return g.Leaf(math.E).Log(), nil }, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := tt.build(NewGraph(nil))
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			if !approx(v.Data(), tt.want, 1e-12) {
				t.Errorf("value = %v, want %v", v.Data(), tt.want)
			}
		})
	}
}

func TestOperatorGradients(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		build func(a, b, c Value) (Value, error)
		wantA float64
		wantB float64
		wantC float64
	}{
		{"a + b", func(a, b, _ Value) (Value, error) { return a.Add(b), nil }, 1, 1, 0},
		{"a - b", func(a, b, _ Value) (Value, error) { return a.Sub(b), nil }, 1, -1, 0},
		{"a * b", func(a, b, _ Value) (Value, error) { return a.Mul(b), nil }, 3, 5, 0},
		{"a / b", func(a, b, _ Value) (Value, error) { return a.Div(b) }, 1.0 / 3.0, -5.0 / 9.0, 0},
		{"a ^ 2", func(a, _, _ Value) (Value, error) { return a.Pow(2) }, 10, 0, 0},
		{"relu(a)", func(a, _, _ Value) (Value, error) { return a.Relu(), nil }, 1, 0, 0},
		{"(a + b) * c", func(a, b, c Value) (Value, error) { return a.Add(b).Mul(c), nil }, 2, 2, 8},
		{"a / (b + c)", func(a, b, c Value) (Value, error) { return a.Div(b.Add(c)) }, 1.0 / 5.0, -5.0 / 25.0, -5.0 / 25.0},
		{"relu(a) + b * c", func(a, b, c Value) (Value, error) { return a.Relu().Add(b.Mul(c)), nil }, 1, 2, 3},
		{"a * a", func(a, _, _ Value) (Value, error) { return a.Mul(a), nil }, 10, 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewGraph(nil)
			a, b, c := g.Leaf(5), g.Leaf(3), g.Leaf(2)
			out, err := tt.build(a, b, c)
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			if err := out.Backward(); err != nil {
				t.Fatalf("Backward failed: %v", err)
			}
			for _, check := range []struct {
				name string
				v    Value
				want float64
			}{{"a", a, tt.wantA}, {"b", b, tt.wantB}, {"c", c, tt.wantC}} {
				if !approx(check.v.Grad(), check.want, 1e-9) {
					t.Errorf("%s.grad = %v, want %v", check.name, check.v.Grad(), check.want)
				}
			}
		})
	}
}

func TestReluNegativeInputHasNoGradient(t *testing.T) {
	t.Parallel()
	g := NewGraph(nil)
	a := g.Leaf(-5)
	if err := a.Relu().Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	if a.Grad() != 0 {
		t.Errorf("grad = %v, want 0", a.Grad())
	}
}

func TestTanhGradient(t *testing.T) {
	t.Parallel()
	g := NewGraph(nil)
	a := g.Leaf(0.7)
	out := a.Tanh()
	if err := out.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	want := 1 - math.Tanh(0.7)*math.Tanh(0.7)
	if !approx(a.Grad(), want, 1e-12) {
		t.Errorf("grad = %v, want %v", a.Grad(), want)
	}
}

func TestDivisionByZero(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		build func(g *Graph) (Value, error)
	}{
		{"node divisor", func(g *Graph) (Value, error) { return g.Leaf(5).Div(g.Leaf(0)) }},
		{"scalar divisor", func(g *Graph) (Value, error) { return g.Leaf(5).DivScalar(0) }},
		{"zero base negative exponent", func(g *Graph) (Value, error) { return g.Leaf(0).Pow(-1) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewGraph(nil)
			before := g.Len()
			_, err := tt.build(g)
			if !errors.Is(err, ErrDivisionByZero) {
				t.Fatalf("error = %v, want ErrDivisionByZero", err)
			}
			// Only the operand leaves may have been created.
			if got := g.Len(); got > before+2 {
				t.Errorf("failed operator left %d nodes behind", got-before)
			}
		})
	}
}

func TestZeroBasePositiveExponent(t *testing.T) {
	t.Parallel()
	v, err := NewGraph(nil).Leaf(0).Pow(2)
	if err != nil {
		t.Fatalf("0^2 failed: %v", err)
	}
	if v.Data() != 0 {
		t.Errorf("0^2 = %v", v.Data())
	}
}

func TestNegativeBaseFractionalPowerPropagatesNaN(t *testing.T) {
	t.Parallel()
	g := NewGraph(nil)
	a := g.Leaf(-8)
	p, err := a.Pow(0.5)
	if err != nil {
		t.Fatalf("Pow returned error: %v", err)
	}
	out := p.AddScalar(1)
	if !math.IsNaN(out.Data()) {
		t.Errorf("value = %v, want NaN", out.Data())
	}
	if err := out.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	if !math.IsNaN(a.Grad()) {
		t.Errorf("grad = %v, want NaN", a.Grad())
	}
}

func TestOperatorKinds(t *testing.T) {
	t.Parallel()
	g := NewGraph(nil)
	a, b := g.Leaf(1), g.Leaf(2)

	tests := []struct {
		name string
		v    Value
		want kernels.Op
	}{
		{"leaf", a, kernels.OpLeaf},
		{"add", a.Add(b), kernels.OpAdd},
		{"neg is multiply", a.Neg(), kernels.OpMul},
		{"sub is add", a.Sub(b), kernels.OpAdd},
		{"tanh", a.Tanh(), kernels.OpTanh},
		{"relu", a.Relu(), kernels.OpReLU},
	}
	for _, tt := range tests {
		if got := tt.v.Op(); got != tt.want {
			t.Errorf("%s: op = %s, want %s", tt.name, got, tt.want)
		}
	}

	prev := a.Sub(b).Prev()
	if len(prev) != 2 || prev[0].Ref() != a.Ref() {
		t.Fatalf("sub predecessors = %v", prev)
	}
	if prev[1].Op() != kernels.OpMul {
		t.Errorf("second operand of sub should be a negation, got %s", prev[1].Op())
	}
}

func TestSetDataOnlyOnLeaves(t *testing.T) {
	t.Parallel()
	g := NewGraph(nil)
	a := g.Leaf(1)
	a.SetData(3)
	if a.Data() != 3 {
		t.Errorf("leaf value = %v, want 3", a.Data())
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotLeaf) {
			t.Errorf("recovered %v, want ErrNotLeaf", r)
		}
	}()
	a.AddScalar(1).SetData(0)
}
