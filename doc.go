// Package gradnet implements a scalar reverse-mode automatic differentiation
// engine and a small feed-forward network library built on it.
//
// Every value is a single float64 held in a node of an arena-backed graph.
// Operators create new nodes and record which operator produced them; a
// backward pass from any node orders its ancestors topologically and applies
// each operator's gradient rule in reverse, accumulating gradients into every
// node that contributed.
//
// # Architecture Overview
//
// The engine consists of several key components:
//
//   - Kernels: one forward function and one gradient rule per opcode
//   - Graph: append-only node arena with mark/rewind for per-iteration reuse
//   - Backward: iterative topological sort with cycle detection
//   - Model: units, layers and networks whose weights are graph leaves
//   - Runtime: bounded worker pool for evaluating a layer's units concurrently
//
// # Basic Usage
//
//	g := core.NewGraph(nil)
//	a := g.Leaf(-4)
//	b := g.Leaf(2)
//	c := a.Mul(b).Add(b.Tanh())
//	if err := c.Backward(); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(a.Grad(), b.Grad())
//
// Training a network:
//
//	net, err := model.NewNetwork(g, 8, []int{8, 8, 1}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tr := train.NewTrainer(net, train.NewSGD(0.05), nil)
//	history, err := tr.Run(ctx, train.RandomDataset(10, 8, 1, rng))
//
// # Package Structure
//
//   - kernels: opcodes and the gradient-rule catalog
//   - core: nodes, the graph arena, operators and the backward pass
//   - runtime: worker pool and scatter barrier
//   - model: unit, layer and network hierarchy
//   - train: datasets, loss, gradient descent and the training loop
//   - cmd: command-line tools (gradrun, gradperf)
package gradnet
