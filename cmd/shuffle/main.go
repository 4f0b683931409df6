// Package main provides the shuffle CLI: build a ShuffleNet graph, print
// its structure, or run a random forward pass on the CPU backend.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/shuffle-ml/shuffle/backend/cpu"
	"github.com/shuffle-ml/shuffle/graph"
	"github.com/shuffle-ml/shuffle/shufflenet"
)

const version = "v0.1.0-dev"

func main() {
	var (
		layoutName = flag.String("layout", "nhwc", "channel layout: nhwc or nchw")
		height     = flag.Int("height", 224, "input height")
		width      = flag.Int("width", 224, "input width")
		channels   = flag.Int("channels", 3, "input channels")
		classes    = flag.Int("classes", 1000, "number of output classes")
		batch      = flag.Int("batch", 1, "batch size for run")
		top        = flag.Int("top", 5, "classes to print after run")
	)
	flag.Usage = usage
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "summary"
	}
	if cmd == "version" {
		fmt.Printf("shuffle %s\n", version)
		return
	}

	var layout graph.Layout
	switch *layoutName {
	case "nhwc":
		layout = graph.NHWC
	case "nchw":
		layout = graph.NCHW
	default:
		fatalf("unknown layout %q (want nhwc or nchw)", *layoutName)
	}

	b, err := graph.NewBuilder(layout)
	if err != nil {
		fatalf("%v", err)
	}
	in, out, err := shufflenet.Build(b, shufflenet.NetworkConfig{
		Height:     *height,
		Width:      *width,
		Channels:   *channels,
		NumClasses: *classes,
	})
	if err != nil {
		fatalf("build: %v", err)
	}

	switch cmd {
	case "summary":
		summarize(b, out)
	case "run":
		run(b, in, out, *batch, *top)
	default:
		usage()
		os.Exit(2)
	}
}

func summarize(b *graph.Builder, out graph.Node) {
	fmt.Printf("layout: %s, %d ops, %d parameters\n\n", b.Layout(), b.NumNodes(), b.NumParamElements())
	for i := 0; i <= out.ID(); i++ {
		info := b.Info(i)
		params := 0
		for _, spec := range info.ParamSpecs {
			params += spec.Shape.NumElements()
		}
		fmt.Printf("%4d  %-18s %-16s params=%d\n", info.ID, info.Kind, info.Shape, params)
	}
}

func run(b *graph.Builder, in, out graph.Node, batch, top int) {
	model, err := cpu.New().Compile(b, in, out)
	if err != nil {
		fatalf("compile: %v", err)
	}

	feed := make([]float64, batch*in.Shape().NumElements())
	for i := range feed {
		feed[i] = rand.Float64()
	}

	probs, err := model.Run(batch, feed)
	if err != nil {
		fatalf("run: %v", err)
	}

	classes := out.Shape()[0]
	for n := 0; n < batch; n++ {
		row := probs[n*classes : (n+1)*classes]
		idx := make([]int, classes)
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(i, j int) bool { return row[idx[i]] > row[idx[j]] })

		sum := 0.0
		for _, p := range row {
			sum += p
		}
		fmt.Printf("example %d (probabilities sum to %.6f):\n", n, sum)
		for i := 0; i < top && i < classes; i++ {
			fmt.Printf("  class %4d  p=%.6f\n", idx[i], row[idx[i]])
		}
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: shuffle [flags] [summary|run|version]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  summary    Print the network's ops, shapes and parameter counts (default)")
	fmt.Fprintln(os.Stderr, "  run        Compile on the CPU backend and run a random batch")
	fmt.Fprintln(os.Stderr, "  version    Show version")
	fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "shuffle: "+format+"\n", args...)
	os.Exit(1)
}
