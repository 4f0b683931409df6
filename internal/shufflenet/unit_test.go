package shufflenet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffle-ml/shuffle/internal/graph"
)

func TestUnitConfig_BottleneckChannels(t *testing.T) {
	assert.Equal(t, 96, UnitConfig{Filters: 384}.BottleneckChannels())
	assert.Equal(t, 192, UnitConfig{Filters: 768}.BottleneckChannels())
	assert.Equal(t, 50, UnitConfig{Filters: 100, BottleneckRatio: 0.5}.BottleneckChannels())
	// floor semantics
	assert.Equal(t, 25, UnitConfig{Filters: 101}.BottleneckChannels())
}

func TestShuffleUnit_Stride1PreservesShape(t *testing.T) {
	for _, layout := range []graph.Layout{graph.NCHW, graph.NHWC} {
		b := newTestBuilder(t, layout)
		in, _ := b.Input(layout.ImageShape(28, 28, 384))

		y, err := ShuffleUnit(b, in, UnitConfig{
			Filters: 384, KernelH: 3, KernelW: 3, Stride: 1, Groups: 8, Stage: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, in.Shape(), y.Shape(), layout.String())
	}
}

func TestShuffleUnit_Stride2DownsamplesAndWidens(t *testing.T) {
	for _, layout := range []graph.Layout{graph.NCHW, graph.NHWC} {
		b := newTestBuilder(t, layout)

		// 24 input channels, like the output of the network stem.
		in, _ := b.Input(layout.ImageShape(56, 56, 24))
		y, err := ShuffleUnit(b, in, UnitConfig{
			Filters: 384, KernelH: 3, KernelW: 3, Stride: 2, Groups: 8, Stage: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, layout.ImageShape(28, 28, 384), y.Shape(), layout.String())

		// Odd spatial input: ceil division.
		odd, _ := b.Input(layout.ImageShape(7, 7, 384))
		y, err = ShuffleUnit(b, odd, UnitConfig{
			Filters: 768, KernelH: 3, KernelW: 3, Stride: 2, Groups: 8, Stage: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, layout.ImageShape(4, 4, 768), y.Shape(), layout.String())
	}
}

func TestShuffleUnit_BottleneckModeByStage(t *testing.T) {
	b := newTestBuilder(t, graph.NHWC)

	// Stage 2 takes the plain bottleneck even with 8 groups configured:
	// 24 input channels would otherwise leave 3 channels per group.
	in, _ := b.Input(graph.Shape{28, 28, 24})
	plan, err := planUnit(b, in, UnitConfig{
		Filters: 384, KernelH: 3, KernelW: 3, Stride: 2, Groups: 8, Stage: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, BottleneckPlain, plan.bottleneck)
	assert.Equal(t, MergeConcatShortcut, plan.merge)
	assert.Equal(t, 96, plan.bottleneckCh)
	assert.Equal(t, 360, plan.expandCh)

	wide, _ := b.Input(graph.Shape{28, 28, 384})
	plan, err = planUnit(b, wide, UnitConfig{
		Filters: 384, KernelH: 3, KernelW: 3, Stride: 1, Groups: 8, Stage: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, BottleneckGrouped, plan.bottleneck)
	assert.Equal(t, MergeAdd, plan.merge)
	assert.Equal(t, 384, plan.expandCh)
}

func TestShuffleUnit_InvalidConfigs(t *testing.T) {
	b := newTestBuilder(t, graph.NHWC)
	in, _ := b.Input(graph.Shape{28, 28, 384})
	before := b.NumNodes()

	// Residual add needs input width == filters.
	_, err := ShuffleUnit(b, in, UnitConfig{
		Filters: 768, KernelH: 3, KernelW: 3, Stride: 1, Groups: 8, Stage: 3,
	})
	requireConfigError(t, b, before, err)

	// Downsampling unit needs filters > input width.
	_, err = ShuffleUnit(b, in, UnitConfig{
		Filters: 384, KernelH: 3, KernelW: 3, Stride: 2, Groups: 8, Stage: 3,
	})
	requireConfigError(t, b, before, err)

	// Bottleneck width not divisible by groups: floor(384*0.25)=96, 96%7 != 0.
	_, err = ShuffleUnit(b, in, UnitConfig{
		Filters: 384, KernelH: 3, KernelW: 3, Stride: 1, Groups: 7, Stage: 3,
	})
	requireConfigError(t, b, before, err)

	// Bottleneck collapses below one channel.
	_, err = ShuffleUnit(b, in, UnitConfig{
		Filters: 384, KernelH: 3, KernelW: 3, Stride: 1, Groups: 8, Stage: 3,
		BottleneckRatio: 0.001,
	})
	requireConfigError(t, b, before, err)

	// Unsupported stride.
	_, err = ShuffleUnit(b, in, UnitConfig{
		Filters: 384, KernelH: 3, KernelW: 3, Stride: 3, Groups: 8, Stage: 3,
	})
	requireConfigError(t, b, before, err)

	// Grouped bottleneck needs divisible input channels.
	narrow, _ := b.Input(graph.Shape{28, 28, 20})
	before = b.NumNodes()
	_, err = ShuffleUnit(b, narrow, UnitConfig{
		Filters: 384, KernelH: 3, KernelW: 3, Stride: 2, Groups: 8, Stage: 3,
	})
	requireConfigError(t, b, before, err)
}

func TestStageOf_RepeatStructure(t *testing.T) {
	b := newTestBuilder(t, graph.NHWC)
	in, _ := b.Input(graph.Shape{56, 56, 24})

	y, err := StageOf(b, in, StageConfig{
		Filters: 384, KernelH: 3, KernelW: 3, Groups: 8, Repeat: 4, Stage: 2,
	})
	require.NoError(t, err)

	// One downsampling unit then three residual units at fixed width.
	assert.Equal(t, graph.Shape{28, 28, 384}, y.Shape())

	before := b.NumNodes()
	_, err = StageOf(b, y, StageConfig{
		Filters: 768, KernelH: 3, KernelW: 3, Groups: 8, Repeat: 0, Stage: 3,
	})
	requireConfigError(t, b, before, err)
}

func TestStageOf_ChainedWidths(t *testing.T) {
	b := newTestBuilder(t, graph.NCHW)
	in, _ := b.Input(graph.Shape{24, 56, 56})

	y := in
	var err error
	widths := []int{}
	for _, cfg := range DefaultStages() {
		y, err = StageOf(b, y, cfg)
		require.NoError(t, err)
		_, _, c := b.Layout().ImageDims(y.Shape())
		widths = append(widths, c)
	}
	assert.Equal(t, []int{384, 768, 1536}, widths)
	assert.Equal(t, graph.Shape{1536, 7, 7}, y.Shape())
}
