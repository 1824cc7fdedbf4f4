// Package train drives networks built with the model package: it holds
// datasets, builds losses, applies parameter updates and runs the
// per-example training loop.
package train

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sbl8/gradnet/core"
)

// Dataset pairs one row of inputs with one row of targets per example.
type Dataset struct {
	Inputs  *mat.Dense
	Targets *mat.Dense
}

// NewDataset checks that inputs and targets have the same number of rows.
func NewDataset(inputs, targets *mat.Dense) (*Dataset, error) {
	ri, _ := inputs.Dims()
	rt, _ := targets.Dims()
	if ri != rt {
		return nil, errors.Wrapf(core.ErrDimensionMismatch, "%d input rows, %d target rows", ri, rt)
	}
	return &Dataset{Inputs: inputs, Targets: targets}, nil
}

// RandomDataset draws n examples with inputs uniform in [-4, 4) and targets
// uniform in [-1, 1), the range of a tanh output.
func RandomDataset(n, inputWidth, targetWidth int, rng *rand.Rand) *Dataset {
	in := make([]float64, n*inputWidth)
	for i := range in {
		in[i] = rng.Float64()*8 - 4
	}
	out := make([]float64, n*targetWidth)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return &Dataset{
		Inputs:  mat.NewDense(n, inputWidth, in),
		Targets: mat.NewDense(n, targetWidth, out),
	}
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	r, _ := d.Inputs.Dims()
	return r
}

// InputWidth returns the number of inputs per example.
func (d *Dataset) InputWidth() int {
	_, c := d.Inputs.Dims()
	return c
}

// TargetWidth returns the number of targets per example.
func (d *Dataset) TargetWidth() int {
	_, c := d.Targets.Dims()
	return c
}

// Example copies the i-th input and target rows.
func (d *Dataset) Example(i int) (x, y []float64) {
	return mat.Row(nil, i, d.Inputs), mat.Row(nil, i, d.Targets)
}
