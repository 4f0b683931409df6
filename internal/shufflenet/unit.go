package shufflenet

import "github.com/shuffle-ml/shuffle/internal/graph"

// BottleneckMode selects how a unit's first pointwise layer reduces to the
// bottleneck width.
type BottleneckMode int

const (
	// BottleneckGrouped reduces with a grouped 1x1 convolution.
	BottleneckGrouped BottleneckMode = iota
	// BottleneckPlain reduces with an ordinary convolution. Used by the
	// earliest stage, whose input is too narrow for grouping to help.
	BottleneckPlain
)

// MergeMode selects how a unit combines its transformed branch with its
// shortcut branch.
type MergeMode int

const (
	// MergeAdd adds the transformed branch to the unchanged input. The
	// unit preserves both spatial size and channel width.
	MergeAdd MergeMode = iota
	// MergeConcatShortcut concatenates the transformed branch with an
	// average-pooled copy of the input. The unit halves the spatial size
	// and grows the channel width to the stage's target.
	MergeConcatShortcut
)

// unitPlan is the per-call resolution of a UnitConfig into the two tagged
// decisions of the unit plus the widths every branch must produce.
type unitPlan struct {
	bottleneck     BottleneckMode
	merge          MergeMode
	bottleneckCh   int // width after the reduction layer
	expandCh       int // width the final grouped conv produces
	inChannels     int
	shortcutStride int
}

// planUnit validates cfg against the input width and resolves the unit's
// branching up front, before any node is appended. Every divisibility and
// width violation surfaces here as a configuration error.
func planUnit(b *graph.Builder, x graph.Node, cfg UnitConfig) (unitPlan, error) {
	const op = "shuffle_unit"
	if !x.Valid() {
		return unitPlan{}, configErrorf(op, "invalid input node")
	}
	shape := x.Shape()
	if len(shape) != 3 {
		return unitPlan{}, configErrorf(op, "expected an image-shaped input of rank 3, got shape %v", shape)
	}
	if cfg.Groups < 1 {
		return unitPlan{}, configErrorf(op, "groups must be >= 1, got %d", cfg.Groups)
	}
	if cfg.Filters < 1 {
		return unitPlan{}, configErrorf(op, "filters must be >= 1, got %d", cfg.Filters)
	}
	if cfg.KernelH < 1 || cfg.KernelW < 1 {
		return unitPlan{}, configErrorf(op, "kernel must be positive, got %dx%d", cfg.KernelH, cfg.KernelW)
	}
	if cfg.Stride != 1 && cfg.Stride != 2 {
		return unitPlan{}, configErrorf(op, "stride must be 1 or 2, got %d", cfg.Stride)
	}

	_, _, inChannels := b.Layout().ImageDims(shape)

	plan := unitPlan{
		bottleneckCh: cfg.BottleneckChannels(),
		inChannels:   inChannels,
	}
	if plan.bottleneckCh < 1 {
		return unitPlan{}, configErrorf(op, "bottleneck channels %d < 1 (filters %d, ratio %g)",
			plan.bottleneckCh, cfg.Filters, cfg.ratio())
	}
	if plan.bottleneckCh%cfg.Groups != 0 {
		return unitPlan{}, configErrorf(op, "bottleneck channels %d not divisible by groups %d",
			plan.bottleneckCh, cfg.Groups)
	}

	if cfg.Stage == 2 {
		plan.bottleneck = BottleneckPlain
	} else {
		plan.bottleneck = BottleneckGrouped
		if inChannels%cfg.Groups != 0 {
			return unitPlan{}, configErrorf(op, "input channels %d not divisible by groups %d",
				inChannels, cfg.Groups)
		}
	}

	switch cfg.Stride {
	case 1:
		plan.merge = MergeAdd
		plan.expandCh = cfg.Filters
		if inChannels != cfg.Filters {
			return unitPlan{}, configErrorf(op, "residual add needs input channels %d == filters %d",
				inChannels, cfg.Filters)
		}
	case 2:
		plan.merge = MergeConcatShortcut
		plan.expandCh = cfg.Filters - inChannels
		plan.shortcutStride = 2
		if plan.expandCh < 1 {
			return unitPlan{}, configErrorf(op, "downsampling unit needs filters %d > input channels %d",
				cfg.Filters, inChannels)
		}
	}
	if plan.expandCh%cfg.Groups != 0 {
		return unitPlan{}, configErrorf(op, "expansion channels %d not divisible by groups %d",
			plan.expandCh, cfg.Groups)
	}
	return plan, nil
}

// ShuffleUnit appends one bottleneck residual block:
//
//	reduce (plain or grouped conv) -> batch norm -> relu
//	-> channel shuffle
//	-> depthwise conv (unit stride) -> batch norm
//	-> grouped 1x1 expansion -> batch norm
//	-> merge with the shortcut (add, or concat with pooled input)
//
// A stride-1 unit returns a value of exactly the input's shape; a stride-2
// unit halves the spatial dimensions (ceil division) and widens the
// channels to cfg.Filters, the extra width coming from the concatenated
// shortcut.
func ShuffleUnit(b *graph.Builder, x graph.Node, cfg UnitConfig) (graph.Node, error) {
	plan, err := planUnit(b, x, cfg)
	if err != nil {
		return graph.Node{}, err
	}

	// Bottleneck reduction. The plain variant keeps the spatial kernel of
	// the unit; the grouped variant is pointwise.
	var y graph.Node
	switch plan.bottleneck {
	case BottleneckPlain:
		y, err = b.Conv2D(x, plan.bottleneckCh, cfg.KernelH, cfg.KernelW, 1, false)
	case BottleneckGrouped:
		y, err = GroupedConv(b, x, plan.bottleneckCh, 1, 1, 1, cfg.Groups)
	}
	if err != nil {
		return graph.Node{}, err
	}
	if y, err = b.BatchNorm(y); err != nil {
		return graph.Node{}, err
	}
	if y, err = b.ReLU(y); err != nil {
		return graph.Node{}, err
	}

	if y, err = ChannelShuffle(b, y, cfg.Groups); err != nil {
		return graph.Node{}, err
	}

	// Depthwise spatial convolution carries the unit's stride. No
	// activation after its normalisation.
	if y, err = b.DepthwiseConv2D(y, cfg.KernelH, cfg.KernelW, cfg.Stride); err != nil {
		return graph.Node{}, err
	}
	if y, err = b.BatchNorm(y); err != nil {
		return graph.Node{}, err
	}

	// Channel restoration and merge.
	if y, err = GroupedConv(b, y, plan.expandCh, 1, 1, 1, cfg.Groups); err != nil {
		return graph.Node{}, err
	}
	if y, err = b.BatchNorm(y); err != nil {
		return graph.Node{}, err
	}

	switch plan.merge {
	case MergeAdd:
		return b.Add(y, x)
	case MergeConcatShortcut:
		shortcut, err := b.AvgPool2D(x, 3, plan.shortcutStride)
		if err != nil {
			return graph.Node{}, err
		}
		return b.ConcatChannels(y, shortcut)
	}
	return graph.Node{}, configErrorf("shuffle_unit", "unknown merge mode %d", plan.merge)
}
