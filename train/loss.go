package train

import (
	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/core"
)

// MeanSquaredError builds Σ (t_i - p_i)² / n over matched target and
// prediction pairs.
func MeanSquaredError(targets, preds []core.Value) (core.Value, error) {
	if len(targets) != len(preds) {
		return core.Value{}, errors.Wrapf(core.ErrDimensionMismatch,
			"%d targets, %d predictions", len(targets), len(preds))
	}
	if len(targets) == 0 {
		return core.Value{}, errors.Wrap(core.ErrEmptyInput, "mean squared error")
	}

	terms := make([]core.Value, len(targets))
	for i, t := range targets {
		d := t.Sub(preds[i])
		terms[i] = d.Mul(d)
	}
	sum, err := targets[0].Graph().Sum(terms...)
	if err != nil {
		return core.Value{}, err
	}
	return sum.DivScalar(float64(len(targets)))
}
