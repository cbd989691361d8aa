// Package main provides the autograph CLI.
//
// Usage:
//
//	autograph version
//	autograph run [-strategy memory|compute] [-trace] [-workers N] FILE.hcl
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/born-ml/autograph/internal/autodiff"
	"github.com/born-ml/autograph/internal/autodiff/checkpoint"
	"github.com/born-ml/autograph/internal/graphfile"
	"github.com/born-ml/autograph/internal/parallel"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const version = "v0.0.1-dev"

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()
	defer klog.Flush()

	if err := run(os.Stdout, flag.Args()); err != nil {
		klog.Flush()
		fmt.Fprintln(os.Stderr, "autograph:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "autograph %s - reverse-mode gradients of HCL graph files\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  run        Evaluate a graph file and print the gradients of its root")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Logging flags (-v, -logtostderr, ...) go before the command.")
}

// run executes the command in args, writing its report to outW.
func run(outW io.Writer, args []string) error {
	if len(args) == 0 {
		usage(outW)
		return nil
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(outW, "autograph %s\n", version)
		return nil
	case "run":
		return runGraph(outW, args[1:])
	default:
		usage(outW)
		return errors.Errorf("unknown command %q", args[0])
	}
}

func runGraph(outW io.Writer, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(outW)
	strategyName := fs.String("strategy", checkpoint.MemoryBound.String(), "checkpointing strategy: memory or compute")
	trace := fs.Bool("trace", false, "print the order in which backward steps were visited")
	workers := fs.Int("workers", parallel.DefaultConfig().NumWorkers, "workers for element-wise kernels (1 disables parallelism)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.Errorf("run takes exactly one graph file, got %d arguments", fs.NArg())
	}
	strategy, err := checkpoint.ParseStrategy(*strategyName)
	if err != nil {
		return err
	}

	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = *workers
	cfg.Enabled = *workers > 1
	tensor.SetParallelConfig(cfg)

	f, err := graphfile.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	res, err := graphfile.Evaluate(f, autodiff.WithStrategy(strategy))
	if err != nil {
		return err
	}

	fmt.Fprintf(outW, "%s = %s\n", f.Root, res.Root)
	for _, leaf := range f.Leaves {
		if leaf.Variable {
			fmt.Fprintf(outW, "d%s/d%s = %s\n", f.Root, leaf.Name, res.Gradients[leaf.Name])
		}
	}
	if *trace {
		fmt.Fprintf(outW, "visited: %s\n", strings.Join(res.Visited, " "))
	}
	fmt.Fprintf(outW, "%s steps executed over %s levels on %s streams, %s cross-stream edges, %s steps left (%s strategy)\n",
		humanize.Comma(int64(res.Stats.Executed)),
		humanize.Comma(int64(res.Stats.Levels)),
		humanize.Comma(int64(len(res.Streams))),
		humanize.Comma(int64(res.Stats.CrossStreamEdges)),
		humanize.Comma(int64(res.Stats.Remaining)),
		strategy)
	return nil
}
