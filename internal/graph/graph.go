// Package graph implements a deferred computation-graph builder for
// feed-forward convolutional networks.
//
// A Builder owns an arena of operation nodes. Every operation appends one
// node and returns an opaque Node handle carrying the statically inferred
// per-example output shape; the batch dimension is implicit and supplied
// by a backend at execution time. Construction is pure bookkeeping: no
// tensor data is touched until a backend compiles and runs the graph.
//
// Shape and configuration violations are reported as *ConfigError before
// the node is appended, so a failed call never leaves a partial node in
// the arena.
package graph

import "fmt"

// OpKind identifies the operation a node performs.
type OpKind int

const (
	OpInput OpKind = iota
	OpConv2D
	OpDepthwiseConv2D
	OpBatchNorm
	OpReLU
	OpSoftmax
	OpMaxPool2D
	OpAvgPool2D
	OpGlobalAvgPool
	OpConcat
	OpAdd
	OpReshape
	OpTranspose
	OpSliceChannels
	OpDense
)

var opNames = map[OpKind]string{
	OpInput:           "input",
	OpConv2D:          "conv2d",
	OpDepthwiseConv2D: "depthwise_conv2d",
	OpBatchNorm:       "batch_norm",
	OpReLU:            "relu",
	OpSoftmax:         "softmax",
	OpMaxPool2D:       "max_pool2d",
	OpAvgPool2D:       "avg_pool2d",
	OpGlobalAvgPool:   "global_avg_pool",
	OpConcat:          "concat",
	OpAdd:             "add",
	OpReshape:         "reshape",
	OpTranspose:       "transpose",
	OpSliceChannels:   "slice_channels",
	OpDense:           "dense",
}

func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// InitKind selects how a backend initialises a parameter.
type InitKind int

const (
	// InitXavier draws from the Glorot uniform distribution.
	InitXavier InitKind = iota
	// InitZeros fills with zeros (biases, batch-norm shift and mean).
	InitZeros
	// InitOnes fills with ones (batch-norm scale and variance).
	InitOnes
)

// ParamSpec describes one trainable or statistical parameter a node needs.
// The builder only records the spec; backends allocate and initialise the
// actual buffers at compile time.
type ParamSpec struct {
	Name  string
	Shape Shape
	Init  InitKind
	// FanIn and FanOut size the Xavier distribution; ignored otherwise.
	FanIn  int
	FanOut int
}

// Node is an opaque handle to one operation in a Builder's arena.
//
// A Node is produced by one operation and consumed by later ones; the
// underlying value is never mutated, every operation yields a fresh node.
// The zero Node is invalid.
type Node struct {
	b  *Builder
	id int
}

// Valid reports whether the node refers to an operation in some builder.
func (n Node) Valid() bool {
	return n.b != nil && n.id >= 0 && n.id < len(n.b.nodes)
}

// Shape returns the node's per-example output shape.
func (n Node) Shape() Shape {
	return n.b.nodes[n.id].shape.Clone()
}

// Op returns the kind of operation the node performs.
func (n Node) Op() OpKind {
	return n.b.nodes[n.id].kind
}

// ID returns the node's position in the builder's arena. Nodes are
// appended in topological order, so id also orders execution.
func (n Node) ID() int {
	return n.id
}

// opNode is one arena entry. Attribute fields are only meaningful for the
// op kinds that use them.
type opNode struct {
	kind   OpKind
	inputs []int
	shape  Shape

	kernelH, kernelW int
	stride           int
	useBias          bool
	axis             int   // concat axis
	perm             []int // transpose axis order
	sliceLo, sliceHi int   // channel range for slice_channels
	units            int   // dense output features

	params []int // indices into Builder.params
}

// Builder accumulates operation nodes for a single feed-forward graph.
//
// A Builder is not safe for concurrent use; graph construction is a
// single synchronous pass. The layout is fixed at creation and must not
// change mid-build.
type Builder struct {
	layout Layout
	nodes  []opNode
	params []ParamSpec
}

// NewBuilder creates an empty graph builder using the given layout
// convention for all image-shaped values.
func NewBuilder(layout Layout) (*Builder, error) {
	if !layout.Valid() {
		return nil, configErrorf("builder", "unsupported layout %d", int(layout))
	}
	return &Builder{layout: layout}, nil
}

// Layout returns the channel-position convention of this builder.
func (b *Builder) Layout() Layout {
	return b.layout
}

// NumNodes returns the number of operations appended so far.
func (b *Builder) NumNodes() int {
	return len(b.nodes)
}

// NumParams returns the number of parameter specs recorded so far.
func (b *Builder) NumParams() int {
	return len(b.params)
}

// Params returns the recorded parameter specs in allocation order.
func (b *Builder) Params() []ParamSpec {
	return b.params
}

// NodeAt returns the handle for the i-th operation in the arena.
func (b *Builder) NodeAt(i int) Node {
	return Node{b: b, id: i}
}

// Inputs returns the handles feeding the given node.
func (b *Builder) Inputs(n Node) []Node {
	ins := b.nodes[n.id].inputs
	out := make([]Node, len(ins))
	for i, id := range ins {
		out[i] = Node{b: b, id: id}
	}
	return out
}

// NumParamElements returns the total element count across all parameters,
// the figure usually quoted as a network's "parameter count".
func (b *Builder) NumParamElements() int {
	total := 0
	for _, p := range b.params {
		total += p.Shape.NumElements()
	}
	return total
}

// append records a fully validated node and returns its handle.
func (b *Builder) append(n opNode) Node {
	b.nodes = append(b.nodes, n)
	return Node{b: b, id: len(b.nodes) - 1}
}

// addParam records a parameter spec and returns its index.
func (b *Builder) addParam(p ParamSpec) int {
	b.params = append(b.params, p)
	return len(b.params) - 1
}

// checkInput validates that a node handle belongs to this builder.
func (b *Builder) checkInput(op string, n Node) error {
	if n.b == nil {
		return configErrorf(op, "input node is the zero Node")
	}
	if n.b != b {
		return configErrorf(op, "input node belongs to a different builder")
	}
	if n.id < 0 || n.id >= len(b.nodes) {
		return configErrorf(op, "input node id %d out of range", n.id)
	}
	return nil
}

// NodeInfo is a read-only view of one operation and its attributes, used
// by backends and summaries.
type NodeInfo struct {
	ID     int
	Kind   OpKind
	Inputs []int
	Shape  Shape

	KernelH, KernelW int
	Stride           int
	UseBias          bool
	Axis             int
	Perm             []int
	SliceLo, SliceHi int
	Units            int

	// ParamIDs index into Params(); the specs are repeated in ParamSpecs
	// for convenience.
	ParamIDs   []int
	ParamSpecs []ParamSpec
}

// Info returns a read-only description of the i-th operation.
func (b *Builder) Info(i int) NodeInfo {
	n := b.nodes[i]
	specs := make([]ParamSpec, len(n.params))
	for j, pi := range n.params {
		specs[j] = b.params[pi]
	}
	inputs := make([]int, len(n.inputs))
	copy(inputs, n.inputs)
	paramIDs := make([]int, len(n.params))
	copy(paramIDs, n.params)
	var perm []int
	if n.perm != nil {
		perm = make([]int, len(n.perm))
		copy(perm, n.perm)
	}
	return NodeInfo{
		ID:         i,
		Kind:       n.kind,
		Inputs:     inputs,
		Shape:      n.shape.Clone(),
		KernelH:    n.kernelH,
		KernelW:    n.kernelW,
		Stride:     n.stride,
		UseBias:    n.useBias,
		Axis:       n.axis,
		Perm:       perm,
		SliceLo:    n.sliceLo,
		SliceHi:    n.sliceHi,
		Units:      n.units,
		ParamIDs:   paramIDs,
		ParamSpecs: specs,
	}
}
