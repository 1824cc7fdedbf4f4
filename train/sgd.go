package train

import (
	"gonum.org/v1/gonum/floats"

	"github.com/sbl8/gradnet/core"
)

// Optimizer updates parameters from their accumulated gradients.
type Optimizer interface {
	Step(params []core.Value)
}

// SGD is plain gradient descent: value ← value − LearningRate × grad.
type SGD struct {
	LearningRate float64

	values, grads []float64
}

// NewSGD returns gradient descent with the given learning rate.
func NewSGD(learningRate float64) *SGD {
	return &SGD{LearningRate: learningRate}
}

// Step applies one update to every parameter. It must not run concurrently
// with graph construction or a backward pass on the same graph.
func (s *SGD) Step(params []core.Value) {
	s.values = s.values[:0]
	s.grads = s.grads[:0]
	for _, p := range params {
		s.values = append(s.values, p.Data())
		s.grads = append(s.grads, p.Grad())
	}

	floats.AddScaled(s.values, -s.LearningRate, s.grads)

	for i, p := range params {
		p.SetData(s.values[i])
	}
}
