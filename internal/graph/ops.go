package graph

import "fmt"

// samePaddedDim computes the output extent of a spatial dimension under
// "same" padding semantics: ceil(in / stride).
func samePaddedDim(in, stride int) int {
	return (in + stride - 1) / stride
}

// SamePadding returns the leading (top/left) and trailing (bottom/right)
// padding a backend must apply to one spatial dimension so that the output
// extent is ceil(in / stride). The trailing side receives the extra cell
// when the total is odd, matching the convention of the original networks
// this builder targets.
func SamePadding(in, kernel, stride int) (lead, trail int) {
	out := samePaddedDim(in, stride)
	total := (out-1)*stride + kernel - in
	if total < 0 {
		total = 0
	}
	return total / 2, total - total/2
}

// checkImage validates that x is an image-shaped (rank 3) value.
func (b *Builder) checkImage(op string, x Node) error {
	if err := b.checkInput(op, x); err != nil {
		return err
	}
	if s := b.nodes[x.id].shape; len(s) != 3 {
		return configErrorf(op, "expected an image-shaped input of rank 3, got shape %v", s)
	}
	return nil
}

// Input appends a placeholder for externally fed data. The shape is
// per-example; the batch dimension is added by the backend.
func (b *Builder) Input(shape Shape) (Node, error) {
	if len(shape) == 0 {
		return Node{}, configErrorf("input", "empty shape")
	}
	if err := shape.Validate(); err != nil {
		return Node{}, configErrorf("input", "invalid shape %v: %v", shape, err)
	}
	return b.append(opNode{kind: OpInput, shape: shape.Clone()}), nil
}

// Conv2D appends a standard 2D convolution with "same" padding.
//
// Each spatial output dimension is ceil(in / stride). The convolution has
// an independent weight of shape [filters, inChannels, kh, kw] and, when
// useBias is set, a bias of shape [filters].
func (b *Builder) Conv2D(x Node, filters, kernelH, kernelW, stride int, useBias bool) (Node, error) {
	const op = "conv2d"
	if err := b.checkImage(op, x); err != nil {
		return Node{}, err
	}
	if filters <= 0 {
		return Node{}, configErrorf(op, "filters must be positive, got %d", filters)
	}
	if kernelH <= 0 || kernelW <= 0 {
		return Node{}, configErrorf(op, "kernel must be positive, got %dx%d", kernelH, kernelW)
	}
	if stride <= 0 {
		return Node{}, configErrorf(op, "stride must be positive, got %d", stride)
	}

	h, w, c := b.layout.ImageDims(b.nodes[x.id].shape)
	outShape := b.layout.ImageShape(samePaddedDim(h, stride), samePaddedDim(w, stride), filters)

	node := opNode{
		kind:    OpConv2D,
		inputs:  []int{x.id},
		shape:   outShape,
		kernelH: kernelH,
		kernelW: kernelW,
		stride:  stride,
		useBias: useBias,
	}
	node.params = append(node.params, b.addParam(ParamSpec{
		Name:   fmt.Sprintf("conv2d_%d.weight", len(b.nodes)),
		Shape:  Shape{filters, c, kernelH, kernelW},
		Init:   InitXavier,
		FanIn:  c * kernelH * kernelW,
		FanOut: filters * kernelH * kernelW,
	}))
	if useBias {
		node.params = append(node.params, b.addParam(ParamSpec{
			Name:  fmt.Sprintf("conv2d_%d.bias", len(b.nodes)),
			Shape: Shape{filters},
			Init:  InitZeros,
		}))
	}
	return b.append(node), nil
}

// DepthwiseConv2D appends a per-channel spatial convolution with depth
// multiplier 1 and "same" padding. Channel count is preserved; each
// spatial output dimension is ceil(in / stride). The weight has shape
// [channels, kh, kw] and there is no bias.
func (b *Builder) DepthwiseConv2D(x Node, kernelH, kernelW, stride int) (Node, error) {
	const op = "depthwise_conv2d"
	if err := b.checkImage(op, x); err != nil {
		return Node{}, err
	}
	if kernelH <= 0 || kernelW <= 0 {
		return Node{}, configErrorf(op, "kernel must be positive, got %dx%d", kernelH, kernelW)
	}
	if stride <= 0 {
		return Node{}, configErrorf(op, "stride must be positive, got %d", stride)
	}

	h, w, c := b.layout.ImageDims(b.nodes[x.id].shape)
	outShape := b.layout.ImageShape(samePaddedDim(h, stride), samePaddedDim(w, stride), c)

	node := opNode{
		kind:    OpDepthwiseConv2D,
		inputs:  []int{x.id},
		shape:   outShape,
		kernelH: kernelH,
		kernelW: kernelW,
		stride:  stride,
	}
	node.params = append(node.params, b.addParam(ParamSpec{
		Name:   fmt.Sprintf("depthwise_conv2d_%d.weight", len(b.nodes)),
		Shape:  Shape{c, kernelH, kernelW},
		Init:   InitXavier,
		FanIn:  kernelH * kernelW,
		FanOut: kernelH * kernelW,
	}))
	return b.append(node), nil
}

// BatchNorm appends per-channel batch normalisation over the builder's
// channel axis. Four parameters of shape [channels] are recorded: scale
// (ones), shift (zeros), running mean (zeros) and running variance (ones),
// so a freshly compiled graph normalises to near-identity.
func (b *Builder) BatchNorm(x Node) (Node, error) {
	const op = "batch_norm"
	if err := b.checkImage(op, x); err != nil {
		return Node{}, err
	}

	_, _, c := b.layout.ImageDims(b.nodes[x.id].shape)
	node := opNode{
		kind:   OpBatchNorm,
		inputs: []int{x.id},
		shape:  b.nodes[x.id].shape.Clone(),
	}
	id := len(b.nodes)
	node.params = append(node.params,
		b.addParam(ParamSpec{Name: fmt.Sprintf("batch_norm_%d.scale", id), Shape: Shape{c}, Init: InitOnes}),
		b.addParam(ParamSpec{Name: fmt.Sprintf("batch_norm_%d.shift", id), Shape: Shape{c}, Init: InitZeros}),
		b.addParam(ParamSpec{Name: fmt.Sprintf("batch_norm_%d.mean", id), Shape: Shape{c}, Init: InitZeros}),
		b.addParam(ParamSpec{Name: fmt.Sprintf("batch_norm_%d.variance", id), Shape: Shape{c}, Init: InitOnes}),
	)
	return b.append(node), nil
}

// ReLU appends a rectified-linear activation.
func (b *Builder) ReLU(x Node) (Node, error) {
	if err := b.checkInput("relu", x); err != nil {
		return Node{}, err
	}
	return b.append(opNode{kind: OpReLU, inputs: []int{x.id}, shape: b.nodes[x.id].shape.Clone()}), nil
}

// Softmax appends a softmax over a rank-1 feature vector, producing a
// probability distribution.
func (b *Builder) Softmax(x Node) (Node, error) {
	const op = "softmax"
	if err := b.checkInput(op, x); err != nil {
		return Node{}, err
	}
	if s := b.nodes[x.id].shape; len(s) != 1 {
		return Node{}, configErrorf(op, "expected a rank-1 feature input, got shape %v", s)
	}
	return b.append(opNode{kind: OpSoftmax, inputs: []int{x.id}, shape: b.nodes[x.id].shape.Clone()}), nil
}

func (b *Builder) pool2d(kind OpKind, op string, x Node, pool, stride int) (Node, error) {
	if err := b.checkImage(op, x); err != nil {
		return Node{}, err
	}
	if pool <= 0 {
		return Node{}, configErrorf(op, "pool size must be positive, got %d", pool)
	}
	if stride <= 0 {
		return Node{}, configErrorf(op, "stride must be positive, got %d", stride)
	}

	h, w, c := b.layout.ImageDims(b.nodes[x.id].shape)
	outShape := b.layout.ImageShape(samePaddedDim(h, stride), samePaddedDim(w, stride), c)
	return b.append(opNode{
		kind:    kind,
		inputs:  []int{x.id},
		shape:   outShape,
		kernelH: pool,
		kernelW: pool,
		stride:  stride,
	}), nil
}

// MaxPool2D appends square max pooling with "same" padding.
func (b *Builder) MaxPool2D(x Node, pool, stride int) (Node, error) {
	return b.pool2d(OpMaxPool2D, "max_pool2d", x, pool, stride)
}

// AvgPool2D appends square average pooling with "same" padding. Padded
// cells are excluded from the average.
func (b *Builder) AvgPool2D(x Node, pool, stride int) (Node, error) {
	return b.pool2d(OpAvgPool2D, "avg_pool2d", x, pool, stride)
}

// GlobalAvgPool appends a mean over both spatial dimensions, collapsing an
// image-shaped value to a rank-1 channel vector.
func (b *Builder) GlobalAvgPool(x Node) (Node, error) {
	const op = "global_avg_pool"
	if err := b.checkImage(op, x); err != nil {
		return Node{}, err
	}
	_, _, c := b.layout.ImageDims(b.nodes[x.id].shape)
	return b.append(opNode{kind: OpGlobalAvgPool, inputs: []int{x.id}, shape: Shape{c}}), nil
}

// Concat appends a concatenation of two or more values along the given
// axis. All inputs must agree on every other dimension.
func (b *Builder) Concat(xs []Node, axis int) (Node, error) {
	const op = "concat"
	if len(xs) < 2 {
		return Node{}, configErrorf(op, "need at least 2 inputs, got %d", len(xs))
	}
	for _, x := range xs {
		if err := b.checkInput(op, x); err != nil {
			return Node{}, err
		}
	}

	first := b.nodes[xs[0].id].shape
	if axis < 0 || axis >= len(first) {
		return Node{}, configErrorf(op, "axis %d out of range for rank %d", axis, len(first))
	}
	total := 0
	inputs := make([]int, len(xs))
	for i, x := range xs {
		s := b.nodes[x.id].shape
		if len(s) != len(first) {
			return Node{}, configErrorf(op, "input %d has rank %d, expected %d", i, len(s), len(first))
		}
		for d := range s {
			if d == axis {
				continue
			}
			if s[d] != first[d] {
				return Node{}, configErrorf(op, "input %d dimension %d is %d, expected %d", i, d, s[d], first[d])
			}
		}
		total += s[axis]
		inputs[i] = x.id
	}

	outShape := first.Clone()
	outShape[axis] = total
	return b.append(opNode{kind: OpConcat, inputs: inputs, shape: outShape, axis: axis}), nil
}

// ConcatChannels concatenates image-shaped values along the builder's
// channel axis.
func (b *Builder) ConcatChannels(xs ...Node) (Node, error) {
	return b.Concat(xs, b.layout.ChannelAxis())
}

// Add appends an elementwise addition of two values of identical shape.
func (b *Builder) Add(x, y Node) (Node, error) {
	const op = "add"
	if err := b.checkInput(op, x); err != nil {
		return Node{}, err
	}
	if err := b.checkInput(op, y); err != nil {
		return Node{}, err
	}
	sx, sy := b.nodes[x.id].shape, b.nodes[y.id].shape
	if !sx.Equal(sy) {
		return Node{}, configErrorf(op, "shape mismatch: %v vs %v", sx, sy)
	}
	return b.append(opNode{kind: OpAdd, inputs: []int{x.id, y.id}, shape: sx.Clone()}), nil
}

// Reshape appends a metadata-only view of x with a new per-example shape
// of equal element count.
func (b *Builder) Reshape(x Node, shape Shape) (Node, error) {
	const op = "reshape"
	if err := b.checkInput(op, x); err != nil {
		return Node{}, err
	}
	if err := shape.Validate(); err != nil {
		return Node{}, configErrorf(op, "invalid shape %v: %v", shape, err)
	}
	in := b.nodes[x.id].shape
	if in.NumElements() != shape.NumElements() {
		return Node{}, configErrorf(op, "cannot reshape %v (%d elements) to %v (%d elements)",
			in, in.NumElements(), shape, shape.NumElements())
	}
	return b.append(opNode{kind: OpReshape, inputs: []int{x.id}, shape: shape.Clone()}), nil
}

// Transpose appends a permutation of the per-example axes. perm must be a
// permutation of [0, rank).
func (b *Builder) Transpose(x Node, perm ...int) (Node, error) {
	const op = "transpose"
	if err := b.checkInput(op, x); err != nil {
		return Node{}, err
	}
	in := b.nodes[x.id].shape
	if len(perm) != len(in) {
		return Node{}, configErrorf(op, "perm has %d axes, input rank is %d", len(perm), len(in))
	}
	seen := make([]bool, len(in))
	outShape := make(Shape, len(in))
	for i, p := range perm {
		if p < 0 || p >= len(in) || seen[p] {
			return Node{}, configErrorf(op, "perm %v is not a permutation of [0, %d)", perm, len(in))
		}
		seen[p] = true
		outShape[i] = in[p]
	}
	permCopy := make([]int, len(perm))
	copy(permCopy, perm)
	return b.append(opNode{kind: OpTranspose, inputs: []int{x.id}, shape: outShape, perm: permCopy}), nil
}

// SliceChannels appends a view of the half-open channel range [lo, hi) of
// an image-shaped value.
func (b *Builder) SliceChannels(x Node, lo, hi int) (Node, error) {
	const op = "slice_channels"
	if err := b.checkImage(op, x); err != nil {
		return Node{}, err
	}
	h, w, c := b.layout.ImageDims(b.nodes[x.id].shape)
	if lo < 0 || hi > c || lo >= hi {
		return Node{}, configErrorf(op, "channel range [%d, %d) invalid for %d channels", lo, hi, c)
	}
	return b.append(opNode{
		kind:    OpSliceChannels,
		inputs:  []int{x.id},
		shape:   b.layout.ImageShape(h, w, hi-lo),
		sliceLo: lo,
		sliceHi: hi,
	}), nil
}

// Dense appends a fully connected projection of a rank-1 feature vector to
// the given number of units, with bias.
func (b *Builder) Dense(x Node, units int) (Node, error) {
	const op = "dense"
	if err := b.checkInput(op, x); err != nil {
		return Node{}, err
	}
	in := b.nodes[x.id].shape
	if len(in) != 1 {
		return Node{}, configErrorf(op, "expected a rank-1 feature input, got shape %v", in)
	}
	if units <= 0 {
		return Node{}, configErrorf(op, "units must be positive, got %d", units)
	}

	node := opNode{
		kind:   OpDense,
		inputs: []int{x.id},
		shape:  Shape{units},
		units:  units,
	}
	id := len(b.nodes)
	node.params = append(node.params,
		b.addParam(ParamSpec{
			Name:   fmt.Sprintf("dense_%d.weight", id),
			Shape:  Shape{units, in[0]},
			Init:   InitXavier,
			FanIn:  in[0],
			FanOut: units,
		}),
		b.addParam(ParamSpec{
			Name:  fmt.Sprintf("dense_%d.bias", id),
			Shape: Shape{units},
			Init:  InitZeros,
		}),
	)
	return b.append(node), nil
}
