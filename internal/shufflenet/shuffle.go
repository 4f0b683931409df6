package shufflenet

import "github.com/shuffle-ml/shuffle/internal/graph"

// ChannelShuffle appends the channel-shuffle permutation: the channel axis
// of length C is viewed as a (groups, C/groups) pair, the two sub-axes are
// swapped, and the result is flattened back to a single axis of length C.
//
// Channel index k moves to (k % (C/groups)) * groups + k / (C/groups),
// spreading each group's channels evenly across the output. This is what
// makes the channels computed inside one isolated convolution group
// visible to every group of the next grouped convolution. The operation is
// a pure layout transform with no parameters, and shuffling again with
// groups' = C/groups restores the original order.
func ChannelShuffle(b *graph.Builder, x graph.Node, groups int) (graph.Node, error) {
	const op = "channel_shuffle"
	if !x.Valid() {
		return graph.Node{}, configErrorf(op, "invalid input node")
	}
	if groups < 1 {
		return graph.Node{}, configErrorf(op, "groups must be >= 1, got %d", groups)
	}

	shape := x.Shape()
	if len(shape) != 3 {
		return graph.Node{}, configErrorf(op, "expected an image-shaped input of rank 3, got shape %v", shape)
	}
	height, width, channels := b.Layout().ImageDims(shape)
	if channels%groups != 0 {
		return graph.Node{}, configErrorf(op, "channels %d not divisible by groups %d", channels, groups)
	}
	perGroup := channels / groups

	var (
		split graph.Shape
		perm  []int
	)
	if b.Layout() == graph.NCHW {
		split = graph.Shape{groups, perGroup, height, width}
		perm = []int{1, 0, 2, 3}
	} else {
		split = graph.Shape{height, width, groups, perGroup}
		perm = []int{0, 1, 3, 2}
	}

	y, err := b.Reshape(x, split)
	if err != nil {
		return graph.Node{}, err
	}
	y, err = b.Transpose(y, perm...)
	if err != nil {
		return graph.Node{}, err
	}
	return b.Reshape(y, shape)
}
