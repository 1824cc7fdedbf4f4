package train

import (
	"context"
	"io"
	"log"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/sbl8/gradnet/core"
	"github.com/sbl8/gradnet/model"
)

// ErrNonFiniteLoss is reported for an example whose loss is NaN or infinite.
// Its parameters are left untouched.
var ErrNonFiniteLoss = errors.New("non-finite loss")

// TrainerOptions configures a training run.
type TrainerOptions struct {
	Epochs int
	// LogEvery prints a progress line every LogEvery epochs; zero disables it.
	LogEvery int
	// Logger receives progress and skipped-example messages. Nil discards them.
	Logger *log.Logger
}

// DefaultTrainerOptions provides sensible training defaults
func DefaultTrainerOptions() TrainerOptions {
	return TrainerOptions{
		Epochs:   100,
		LogEvery: 0,
	}
}

// History records the outcome of a training run.
type History struct {
	// EpochLoss holds the mean loss of the examples trained in each epoch.
	EpochLoss []float64
	Steps     int
	Skipped   int
	Duration  time.Duration
}

// Final returns the mean loss of the last epoch, or zero when no epoch ran.
func (h History) Final() float64 {
	if len(h.EpochLoss) == 0 {
		return 0
	}
	return h.EpochLoss[len(h.EpochLoss)-1]
}

// Trainer runs per-example gradient descent on a network.
type Trainer struct {
	net    *model.Network
	opt    Optimizer
	opts   TrainerOptions
	logger *log.Logger
	params []core.Value
}

// NewTrainer creates a trainer. A nil opts uses DefaultTrainerOptions.
func NewTrainer(net *model.Network, opt Optimizer, opts *TrainerOptions) *Trainer {
	o := DefaultTrainerOptions()
	if opts != nil {
		o = *opts
	}
	logger := o.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Trainer{
		net:    net,
		opt:    opt,
		opts:   o,
		logger: logger,
		params: net.Parameters(),
	}
}

func (t *Trainer) check(ds *Dataset) error {
	if ds.InputWidth() != t.net.InputWidth() {
		return errors.Wrapf(core.ErrDimensionMismatch,
			"dataset has %d inputs, network expects %d", ds.InputWidth(), t.net.InputWidth())
	}
	if ds.TargetWidth() != t.net.OutputWidth() {
		return errors.Wrapf(core.ErrDimensionMismatch,
			"dataset has %d targets, network produces %d", ds.TargetWidth(), t.net.OutputWidth())
	}
	return nil
}

// forward builds the loss for one example.
func (t *Trainer) forward(ds *Dataset, i int) (core.Value, error) {
	g := t.net.Graph()
	x, y := ds.Example(i)
	pred, err := t.net.Evaluate(g.Leaves(x...))
	if err != nil {
		return core.Value{}, err
	}
	return MeanSquaredError(g.Leaves(y...), pred)
}

// step trains on one example and returns its loss.
func (t *Trainer) step(ds *Dataset, i int) (float64, error) {
	loss, err := t.forward(ds, i)
	if err != nil {
		return 0, err
	}
	if l := loss.Data(); math.IsNaN(l) || math.IsInf(l, 0) {
		return 0, errors.Wrapf(ErrNonFiniteLoss, "loss %v", l)
	}
	t.net.ZeroGrad()
	if err := loss.Backward(); err != nil {
		return 0, err
	}
	t.opt.Step(t.params)
	return loss.Data(), nil
}

// Run trains for the configured number of epochs. Every example is built on
// top of the network's parameters and rewound away afterwards. An example
// that fails is logged and skipped; cancelling ctx stops the run between
// examples.
func (t *Trainer) Run(ctx context.Context, ds *Dataset) (h History, err error) {
	if err := t.check(ds); err != nil {
		return h, err
	}

	start := time.Now()
	defer func() { h.Duration = time.Since(start) }()

	g := t.net.Graph()
	mark := g.Mark()
	defer func() { _ = g.Rewind(mark) }()

	losses := make([]float64, 0, ds.Len())
	for epoch := 0; epoch < t.opts.Epochs; epoch++ {
		losses = losses[:0]
		for i := 0; i < ds.Len(); i++ {
			if err := ctx.Err(); err != nil {
				return h, errors.Wrapf(err, "epoch %d example %d", epoch, i)
			}
			loss, err := t.step(ds, i)
			if rerr := g.Rewind(mark); rerr != nil {
				return h, rerr
			}
			if err != nil {
				h.Skipped++
				t.logger.Printf("epoch %d example %d skipped: %v", epoch, i, err)
				continue
			}
			h.Steps++
			losses = append(losses, loss)
		}

		mean := 0.0
		if len(losses) > 0 {
			mean = floats.Sum(losses) / float64(len(losses))
		}
		h.EpochLoss = append(h.EpochLoss, mean)
		if t.opts.LogEvery > 0 && (epoch+1)%t.opts.LogEvery == 0 {
			t.logger.Printf("epoch %d/%d loss %.6f", epoch+1, t.opts.Epochs, mean)
		}
	}
	return h, nil
}

// Loss returns the mean loss over ds without updating any parameter.
func (t *Trainer) Loss(ds *Dataset) (float64, error) {
	if err := t.check(ds); err != nil {
		return 0, err
	}
	if ds.Len() == 0 {
		return 0, errors.Wrap(core.ErrEmptyInput, "dataset")
	}

	g := t.net.Graph()
	mark := g.Mark()
	defer func() { _ = g.Rewind(mark) }()

	losses := make([]float64, ds.Len())
	for i := range losses {
		loss, err := t.forward(ds, i)
		if err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		losses[i] = loss.Data()
		if err := g.Rewind(mark); err != nil {
			return 0, err
		}
	}
	return floats.Sum(losses) / float64(len(losses)), nil
}
