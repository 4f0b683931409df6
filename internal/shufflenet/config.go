// Package shufflenet constructs the computation graph of the ShuffleNet
// image-classification architecture.
//
// ShuffleNet keeps compute low by restricting pointwise convolutions to
// channel groups and re-mixing information across groups with a cheap
// channel-shuffle permutation. This package only builds the graph: it
// composes grouped convolutions, channel shuffles, residual shuffle units
// and stages into a full network over a graph.Builder. Execution, training
// and serialisation are the concern of a backend.
package shufflenet

import (
	"fmt"

	"github.com/shuffle-ml/shuffle/internal/graph"
)

// DefaultBottleneckRatio is the fraction of a unit's output width used as
// its internal bottleneck width when a config leaves the ratio zero.
const DefaultBottleneckRatio = 0.25

// StemFilters is the output channel count of the initial convolution.
const StemFilters = 24

// UnitConfig fully determines one shuffle unit. It is immutable once
// passed in; a zero BottleneckRatio means DefaultBottleneckRatio.
type UnitConfig struct {
	Filters          int // output channel width of the unit
	KernelH, KernelW int // spatial kernel of the depthwise convolution
	Stride           int // 1 (residual add) or 2 (downsampling concat)
	Groups           int // group count for the pointwise convolutions
	Stage            int // stage index, 2-based as in the original network
	BottleneckRatio  float64
}

// ratio returns the effective bottleneck ratio.
func (c UnitConfig) ratio() float64 {
	if c.BottleneckRatio == 0 {
		return DefaultBottleneckRatio
	}
	return c.BottleneckRatio
}

// BottleneckChannels returns floor(Filters * ratio), the unit's internal
// reduced channel width.
func (c UnitConfig) BottleneckChannels() int {
	return int(float64(c.Filters) * c.ratio())
}

// StageConfig determines one stage: Repeat shuffle units sharing an output
// width, the first of which downsamples spatially.
type StageConfig struct {
	Filters          int
	KernelH, KernelW int
	Groups           int
	Repeat           int
	Stage            int // stage index, 2-based
	BottleneckRatio  float64
}

// NetworkConfig determines a whole network build: the input image
// dimensions, the class count of the softmax head, and the ordered stage
// table. An empty Stages slice or a zero BottleneckRatio falls back to the
// defaults of the original architecture.
type NetworkConfig struct {
	Height, Width, Channels int
	NumClasses              int
	Stages                  []StageConfig
	BottleneckRatio         float64
}

// DefaultStages returns the stage table of the original ShuffleNet with 8
// groups: stage 2 = 384x4, stage 3 = 768x8, stage 4 = 1536x4, all with 3x3
// depthwise kernels.
func DefaultStages() []StageConfig {
	return []StageConfig{
		{Filters: 384, KernelH: 3, KernelW: 3, Groups: 8, Repeat: 4, Stage: 2},
		{Filters: 768, KernelH: 3, KernelW: 3, Groups: 8, Repeat: 8, Stage: 3},
		{Filters: 1536, KernelH: 3, KernelW: 3, Groups: 8, Repeat: 4, Stage: 4},
	}
}

// configErrorf builds a *graph.ConfigError for an architecture-level
// configuration violation.
func configErrorf(op, format string, args ...any) error {
	return &graph.ConfigError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
