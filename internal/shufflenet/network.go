package shufflenet

import "github.com/shuffle-ml/shuffle/internal/graph"

// Build assembles the full network on b and returns the input and output
// handles for the caller to compile into an executable model:
//
//	input -> 3x3/2 stem conv (24 filters, bias, relu) -> 3x3/2 max pool
//	-> each configured stage in order
//	-> global average pool -> dense(NumClasses) -> softmax
//
// An empty cfg.Stages uses DefaultStages; a zero cfg.BottleneckRatio uses
// DefaultBottleneckRatio. Any configuration violation aborts the build
// with an error and zero-value handles.
func Build(b *graph.Builder, cfg NetworkConfig) (input, output graph.Node, err error) {
	const op = "network"
	if cfg.Height < 1 || cfg.Width < 1 || cfg.Channels < 1 {
		return graph.Node{}, graph.Node{}, configErrorf(op, "invalid input shape %dx%dx%d",
			cfg.Height, cfg.Width, cfg.Channels)
	}
	if cfg.NumClasses < 1 {
		return graph.Node{}, graph.Node{}, configErrorf(op, "num classes must be >= 1, got %d", cfg.NumClasses)
	}

	stages := cfg.Stages
	if len(stages) == 0 {
		stages = DefaultStages()
	}

	input, err = b.Input(b.Layout().ImageShape(cfg.Height, cfg.Width, cfg.Channels))
	if err != nil {
		return graph.Node{}, graph.Node{}, err
	}

	// Stem: strided convolution with bias and relu, then overlapping max
	// pooling. Together they quarter the spatial resolution before the
	// first stage.
	y, err := b.Conv2D(input, StemFilters, 3, 3, 2, true)
	if err != nil {
		return graph.Node{}, graph.Node{}, err
	}
	if y, err = b.ReLU(y); err != nil {
		return graph.Node{}, graph.Node{}, err
	}
	if y, err = b.MaxPool2D(y, 3, 2); err != nil {
		return graph.Node{}, graph.Node{}, err
	}

	for _, stage := range stages {
		if stage.BottleneckRatio == 0 {
			stage.BottleneckRatio = cfg.BottleneckRatio
		}
		if y, err = StageOf(b, y, stage); err != nil {
			return graph.Node{}, graph.Node{}, err
		}
	}

	// Classification head.
	if y, err = b.GlobalAvgPool(y); err != nil {
		return graph.Node{}, graph.Node{}, err
	}
	if y, err = b.Dense(y, cfg.NumClasses); err != nil {
		return graph.Node{}, graph.Node{}, err
	}
	if output, err = b.Softmax(y); err != nil {
		return graph.Node{}, graph.Node{}, err
	}
	return input, output, nil
}
