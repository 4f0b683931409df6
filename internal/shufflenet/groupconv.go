package shufflenet

import "github.com/shuffle-ml/shuffle/internal/graph"

// GroupedConv appends a grouped 2D convolution: the input channels are
// split into groups contiguous ranges, each range is convolved
// independently with its own parameters, and the per-group outputs are
// concatenated in group order along the channel axis.
//
// Both filters and the input channel count must be divisible by groups;
// violations are reported before any node is appended. With groups == 1
// the same path degenerates to an ordinary convolution over all channels,
// which is exactly how the first pointwise layer of the earliest stage is
// built.
func GroupedConv(b *graph.Builder, x graph.Node, filters, kernelH, kernelW, stride, groups int) (graph.Node, error) {
	const op = "grouped_conv"
	if !x.Valid() {
		return graph.Node{}, configErrorf(op, "invalid input node")
	}
	if len(x.Shape()) != 3 {
		return graph.Node{}, configErrorf(op, "expected an image-shaped input of rank 3, got shape %v", x.Shape())
	}
	if groups < 1 {
		return graph.Node{}, configErrorf(op, "groups must be >= 1, got %d", groups)
	}
	if filters < 1 {
		return graph.Node{}, configErrorf(op, "filters must be >= 1, got %d", filters)
	}
	if filters%groups != 0 {
		return graph.Node{}, configErrorf(op, "filters %d not divisible by groups %d", filters, groups)
	}
	if kernelH < 1 || kernelW < 1 {
		return graph.Node{}, configErrorf(op, "kernel must be positive, got %dx%d", kernelH, kernelW)
	}
	if stride < 1 {
		return graph.Node{}, configErrorf(op, "stride must be positive, got %d", stride)
	}

	_, _, inChannels := b.Layout().ImageDims(x.Shape())
	if inChannels%groups != 0 {
		return graph.Node{}, configErrorf(op, "input channels %d not divisible by groups %d", inChannels, groups)
	}

	inPerGroup := inChannels / groups
	outPerGroup := filters / groups

	// One independent slice+conv per group. The channel range is computed
	// and bound here, inside the indexed loop, so every group sees its own
	// immediately materialised slice.
	convs := make([]graph.Node, 0, groups)
	for i := 0; i < groups; i++ {
		lo := i * inPerGroup
		part, err := b.SliceChannels(x, lo, lo+inPerGroup)
		if err != nil {
			return graph.Node{}, err
		}
		conv, err := b.Conv2D(part, outPerGroup, kernelH, kernelW, stride, false)
		if err != nil {
			return graph.Node{}, err
		}
		convs = append(convs, conv)
	}

	if len(convs) == 1 {
		return convs[0], nil
	}
	return b.ConcatChannels(convs...)
}
