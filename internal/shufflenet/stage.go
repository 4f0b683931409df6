package shufflenet

import "github.com/shuffle-ml/shuffle/internal/graph"

// StageOf appends cfg.Repeat shuffle units sharing the stage's output
// width. The first unit downsamples with stride 2 and establishes the
// width; the remaining Repeat-1 units are stride-1 residual blocks that
// consume and return that fixed width.
func StageOf(b *graph.Builder, x graph.Node, cfg StageConfig) (graph.Node, error) {
	if cfg.Repeat < 1 {
		return graph.Node{}, configErrorf("stage", "repeat must be >= 1, got %d", cfg.Repeat)
	}

	unit := UnitConfig{
		Filters:         cfg.Filters,
		KernelH:         cfg.KernelH,
		KernelW:         cfg.KernelW,
		Groups:          cfg.Groups,
		Stage:           cfg.Stage,
		BottleneckRatio: cfg.BottleneckRatio,
	}

	unit.Stride = 2
	y, err := ShuffleUnit(b, x, unit)
	if err != nil {
		return graph.Node{}, err
	}

	unit.Stride = 1
	for i := 1; i < cfg.Repeat; i++ {
		if y, err = ShuffleUnit(b, y, unit); err != nil {
			return graph.Node{}, err
		}
	}
	return y, nil
}
