package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sbl8/gradnet/core"
	"github.com/sbl8/gradnet/model"
	"github.com/sbl8/gradnet/train"
)

func main() {
	var (
		inputs     = flag.Int("inputs", 8, "Network input width")
		layers     = flag.String("layers", "8,8,8,1", "Comma-separated layer widths")
		examples   = flag.Int("examples", 10, "Number of random training examples")
		epochs     = flag.Int("epochs", 1000, "Training epochs")
		lr         = flag.Float64("lr", 0.025, "Learning rate")
		seed       = flag.Int64("seed", 1, "Seed for weights and data")
		activation = flag.String("activation", "tanh", "Hidden activation: tanh, relu, linear")
		outputAct  = flag.String("output-activation", "tanh", "Output activation: tanh, relu, linear")
		concurrent = flag.Bool("concurrent", false, "Evaluate layer units on a worker pool")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of worker goroutines")
		logEvery   = flag.Int("log-every", 100, "Epochs between progress lines (0 disables)")
		verbose    = flag.Bool("verbose", false, "Enable verbose output")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Println("gradrun - gradnet trainer v1.0.0")
		fmt.Printf("Built with Go %s\n", runtime.Version())
		return
	}

	widths, err := parseWidths(*layers)
	if err != nil {
		log.Fatalf("Invalid -layers: %v", err)
	}
	hidden, err := model.ParseActivation(*activation)
	if err != nil {
		log.Fatalf("Invalid -activation: %v", err)
	}
	output, err := model.ParseActivation(*outputAct)
	if err != nil {
		log.Fatalf("Invalid -output-activation: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	g := core.NewGraph(nil)
	net, err := model.NewNetwork(g, *inputs, widths, &model.Options{
		Concurrent:       *concurrent,
		Workers:          *workers,
		Activation:       hidden,
		OutputActivation: output,
		Rand:             rng,
	})
	if err != nil {
		log.Fatalf("Failed to build network: %v", err)
	}
	defer net.Close()

	if *verbose {
		fmt.Printf("%s\n", net)
		fmt.Printf("Parameters: %d\n", model.CountParameters(net))
		if net.Concurrent() {
			fmt.Printf("Worker pool: %d workers\n", net.Pool().Workers())
		}
	}

	ds := train.RandomDataset(*examples, *inputs, net.OutputWidth(), rng)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.New(os.Stderr, "gradrun: ", log.LstdFlags)
	tr := train.NewTrainer(net, train.NewSGD(*lr), &train.TrainerOptions{
		Epochs:   *epochs,
		LogEvery: *logEvery,
		Logger:   logger,
	})

	h, err := tr.Run(ctx, ds)
	if err != nil {
		log.Fatalf("Training stopped: %v", err)
	}

	fmt.Printf("Trained %d steps in %v (%d skipped)\n", h.Steps, h.Duration, h.Skipped)
	fmt.Printf("Final epoch loss: %.6f\n", h.Final())

	if *verbose {
		printPredictions(net, ds)
	}
}

// parseWidths parses a comma-separated list of positive layer widths
func parseWidths(s string) ([]int, error) {
	var widths []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		w, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrapf(err, "width %q", field)
		}
		widths = append(widths, w)
	}
	if len(widths) == 0 {
		return nil, errors.Errorf("no widths in %q", s)
	}
	return widths, nil
}

// printPredictions writes target and prediction for every example
func printPredictions(net *model.Network, ds *train.Dataset) {
	g := net.Graph()
	mark := g.Mark()
	defer func() { _ = g.Rewind(mark) }()

	for i := 0; i < ds.Len(); i++ {
		x, y := ds.Example(i)
		pred, err := net.Evaluate(g.Leaves(x...))
		if err != nil {
			log.Printf("Example %d: %v", i, err)
			continue
		}
		out := make([]string, len(pred))
		for j, p := range pred {
			out[j] = strconv.FormatFloat(p.Data(), 'f', 4, 64)
		}
		fmt.Printf("example %2d target %v prediction [%s]\n", i, y, strings.Join(out, " "))
		if err := g.Rewind(mark); err != nil {
			log.Fatalf("Rewind failed: %v", err)
		}
	}
}
