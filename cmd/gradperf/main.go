package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/sbl8/gradnet/core"
	"github.com/sbl8/gradnet/kernels"
	"github.com/sbl8/gradnet/model"
	"github.com/sbl8/gradnet/train"
)

var (
	testType = flag.String("test", "all", "Test type: all, kernels, graph, mlp")
	size     = flag.Int("size", 1024, "Nodes per graph in the graph test")
	iter     = flag.Int("iter", 100, "Number of iterations (epochs in the mlp test)")
	examples = flag.Int("examples", 10, "Training examples in the mlp test")
	workers  = flag.Int("workers", runtime.NumCPU(), "Worker goroutines for concurrent networks")
	verbose  = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	if *iter < 1 || *size < 1 {
		fmt.Printf("-iter and -size must be positive\n")
		os.Exit(1)
	}

	fmt.Printf("gradnet Performance Analysis Tool\n")
	fmt.Printf("=================================\n")
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("CPUs: %d\n", runtime.NumCPU())
	fmt.Printf("Graph Size: %d nodes\n", *size)
	fmt.Printf("Iterations: %d\n", *iter)
	fmt.Printf("\n")

	switch *testType {
	case "all":
		runAllTests()
	case "kernels":
		runKernelTests()
	case "graph":
		runGraphTests()
	case "mlp":
		runMLPTests()
	default:
		fmt.Printf("Unknown test type: %s\n", *testType)
		os.Exit(1)
	}
}

func runAllTests() {
	fmt.Printf("Running comprehensive performance tests...\n\n")
	runKernelTests()
	runGraphTests()
	runMLPTests()
}

func runKernelTests() {
	fmt.Printf("Kernel Forward/Gradient Performance\n")
	fmt.Printf("-----------------------------------\n")

	a := generateFloat64(*size, 0.1, 4)
	b := generateFloat64(*size, 0.1, 4)

	for op := kernels.OpAdd; op < kernels.NumOps; op++ {
		k := kernels.GetKernel(op)
		var sink float64

		start := time.Now()
		for i := 0; i < *iter; i++ {
			for j := range a {
				out := k.Forward(a[j], b[j], 2)
				da, db := k.Grad(out, 1, a[j], b[j], 2)
				sink += da + db
			}
		}
		duration := time.Since(start)

		opsPerSecond := float64(*size*(*iter)) / duration.Seconds()
		fmt.Printf("%-10s:             %v (%.2f Mops/s)\n", op, duration, opsPerSecond/1e6)
		if *verbose {
			fmt.Printf("  checksum %g\n", sink)
		}
	}

	fmt.Printf("\n")
}

func runGraphTests() {
	fmt.Printf("Graph Build and Backward Performance\n")
	fmt.Printf("------------------------------------\n")

	g := core.NewGraph(&core.GraphOptions{Capacity: *size * 2})
	xs := generateFloat64(*size/4+2, -1, 1)
	leaves := g.Leaves(xs...)
	mark := g.Mark()

	var build, backward time.Duration
	for i := 0; i < *iter; i++ {
		start := time.Now()
		acc := leaves[0]
		for g.Len() < *size {
			for _, x := range leaves[1:] {
				acc = acc.Mul(x).Add(x).Tanh()
			}
		}
		build += time.Since(start)

		start = time.Now()
		if err := acc.Backward(); err != nil {
			fmt.Printf("Backward failed: %v\n", err)
			os.Exit(1)
		}
		backward += time.Since(start)

		if err := g.Rewind(mark); err != nil {
			fmt.Printf("Rewind failed: %v\n", err)
			os.Exit(1)
		}
		g.ZeroGrad()
	}

	nodesPerSecond := func(d time.Duration) float64 {
		return float64(*size*(*iter)) / d.Seconds()
	}
	fmt.Printf("Build:                       %v (%.2f Mnodes/s)\n", build, nodesPerSecond(build)/1e6)
	fmt.Printf("Backward:                    %v (%.2f Mnodes/s)\n", backward, nodesPerSecond(backward)/1e6)
	fmt.Printf("\n")
}

func runMLPTests() {
	fmt.Printf("MLP Training Performance\n")
	fmt.Printf("------------------------\n")

	configs := []struct {
		name   string
		widths []int
	}{
		{"3 hidden", []int{8, 8, 8, 1}},
		{"2 hidden", []int{8, 8, 1}},
	}

	for _, cfg := range configs {
		for _, concurrent := range []bool{false, true} {
			mode := "sequential"
			if concurrent {
				mode = "concurrent"
			}

			epochTimes, h, stats := trainMLP(cfg.widths, concurrent)
			fmt.Printf("%-9s %-10s:        total %v, epoch min %v mean %v max %v, loss %.6f\n",
				cfg.name, mode, h.Duration,
				time.Duration(floats.Min(epochTimes)),
				time.Duration(floats.Sum(epochTimes)/float64(len(epochTimes))),
				time.Duration(floats.Max(epochTimes)),
				h.Final())
			if *verbose && concurrent {
				fmt.Printf("  pool: %d scatters, %d tasks, average latency %v\n",
					stats.scatters, stats.tasks, stats.latency)
			}
		}
	}

	fmt.Printf("\n")
}

type poolSummary struct {
	scatters, tasks int64
	latency         time.Duration
}

// trainMLP trains one network epoch by epoch and records each epoch's duration
func trainMLP(widths []int, concurrent bool) ([]float64, train.History, poolSummary) {
	rng := rand.New(rand.NewSource(1))
	g := core.NewGraph(nil)
	net, err := model.NewNetwork(g, 8, widths, &model.Options{
		Concurrent:  concurrent,
		Workers:     *workers,
		EnableStats: *verbose,
		Rand:        rng,
	})
	if err != nil {
		fmt.Printf("Failed to build network: %v\n", err)
		os.Exit(1)
	}
	defer net.Close()

	ds := train.RandomDataset(*examples, 8, 1, rng)
	tr := train.NewTrainer(net, train.NewSGD(0.05), &train.TrainerOptions{Epochs: 1})

	var total train.History
	epochTimes := make([]float64, 0, *iter)
	for i := 0; i < *iter; i++ {
		h, err := tr.Run(context.Background(), ds)
		if err != nil {
			fmt.Printf("Training failed: %v\n", err)
			os.Exit(1)
		}
		epochTimes = append(epochTimes, float64(h.Duration))
		total.EpochLoss = append(total.EpochLoss, h.EpochLoss...)
		total.Steps += h.Steps
		total.Skipped += h.Skipped
		total.Duration += h.Duration
	}

	var ps poolSummary
	if p := net.Pool(); p != nil {
		s := p.Stats()
		ps = poolSummary{scatters: s.TotalScatters, tasks: s.TotalTasks, latency: s.AverageLatency}
	}
	return epochTimes, total, ps
}

func generateFloat64(size int, lo, hi float64) []float64 {
	data := make([]float64, size)
	for i := range data {
		data[i] = lo + rand.Float64()*(hi-lo)
	}
	return data
}
