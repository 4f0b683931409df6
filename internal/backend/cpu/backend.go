// Package cpu implements a reference CPU executor for graphs built with
// the graph package.
//
// Compile materialises a graph's parameters into float64 buffers; Run
// walks the arena in insertion order (which is topological by
// construction) and evaluates each operation on plain slices. Dense inner
// products go through gonum's mat package, reductions through floats.
package cpu

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/shuffle-ml/shuffle/internal/graph"
)

// BackendError reports a failure raised while executing a compiled graph,
// such as a feed whose size does not match the input placeholder. It is
// propagated to the caller unchanged; execution is deterministic, so there
// is nothing to retry.
type BackendError struct {
	Op  string
	Msg string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("cpu: %s: %s", e.Op, e.Msg)
}

func backendErrorf(op, format string, args ...any) *BackendError {
	return &BackendError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Backend executes graphs on the CPU.
type Backend struct {
	workers  int
	minChunk int
}

// New creates a CPU backend sized to the machine's CPU count.
func New() *Backend {
	return &Backend{
		workers:  runtime.NumCPU(),
		minChunk: 64,
	}
}

// NewWithWorkers creates a CPU backend with an explicit worker count.
// workers <= 1 disables parallel loops.
func NewWithWorkers(workers int) *Backend {
	return &Backend{workers: workers, minChunk: 64}
}

// Name returns the backend name.
func (be *Backend) Name() string {
	return "cpu"
}

// Model is a compiled graph: the builder's arena plus materialised
// parameter buffers, ready to run forward passes.
type Model struct {
	g       *graph.Builder
	backend *Backend
	params  [][]float64
	input   graph.Node
	output  graph.Node
}

// Compile materialises the graph's parameters and binds the given input
// and output handles into a runnable model.
//
// Weights are drawn from the Glorot uniform distribution, biases and
// batch-norm statistics start at their identity values.
func (be *Backend) Compile(g *graph.Builder, input, output graph.Node) (*Model, error) {
	const op = "compile"
	if g == nil {
		return nil, backendErrorf(op, "nil graph")
	}
	if !input.Valid() || !output.Valid() {
		return nil, backendErrorf(op, "invalid input or output handle")
	}
	if input.Op() != graph.OpInput {
		return nil, backendErrorf(op, "input handle refers to a %s node, not an input placeholder", input.Op())
	}
	if input.ID() > output.ID() {
		return nil, backendErrorf(op, "output node %d precedes input node %d", output.ID(), input.ID())
	}

	specs := g.Params()
	params := make([][]float64, len(specs))
	for i, spec := range specs {
		buf := make([]float64, spec.Shape.NumElements())
		switch spec.Init {
		case graph.InitXavier:
			bound := math.Sqrt(6.0 / float64(spec.FanIn+spec.FanOut))
			for j := range buf {
				//nolint:gosec // math/rand is fine for weight initialisation
				buf[j] = (rand.Float64()*2.0 - 1.0) * bound
			}
		case graph.InitOnes:
			for j := range buf {
				buf[j] = 1.0
			}
		case graph.InitZeros:
			// already zero
		default:
			return nil, backendErrorf(op, "parameter %q has unknown init kind %d", spec.Name, spec.Init)
		}
		params[i] = buf
	}

	return &Model{g: g, backend: be, params: params, input: input, output: output}, nil
}

// InputShape returns the per-example shape the model expects to be fed.
func (m *Model) InputShape() graph.Shape {
	return m.input.Shape()
}

// OutputShape returns the per-example shape of the model's output.
func (m *Model) OutputShape() graph.Shape {
	return m.output.Shape()
}

// NumParamElements returns the total parameter element count.
func (m *Model) NumParamElements() int {
	return m.g.NumParamElements()
}

// Run executes one forward pass over a batch. feed holds batch examples
// of the input shape, row-major; the result holds batch rows of the
// output shape.
func (m *Model) Run(batch int, feed []float64) ([]float64, error) {
	const op = "run"
	if batch < 1 {
		return nil, backendErrorf(op, "batch must be >= 1, got %d", batch)
	}
	want := batch * m.input.Shape().NumElements()
	if len(feed) != want {
		return nil, backendErrorf(op, "feed has %d elements, input shape %v with batch %d needs %d",
			len(feed), m.input.Shape(), batch, want)
	}

	values := make([][]float64, m.output.ID()+1)
	for id := 0; id <= m.output.ID(); id++ {
		info := m.g.Info(id)
		var err error
		if info.Kind == graph.OpInput {
			if id != m.input.ID() {
				return nil, backendErrorf(op, "graph has an unfed input placeholder at node %d", id)
			}
			values[id] = feed
			continue
		}
		values[id], err = m.eval(info, values, batch)
		if err != nil {
			return nil, err
		}
	}
	return values[m.output.ID()], nil
}

// eval dispatches one node to its kernel. Inputs always precede the node
// in the arena, so their values are already present.
func (m *Model) eval(info graph.NodeInfo, values [][]float64, batch int) ([]float64, error) {
	layout := m.g.Layout()
	in := func(i int) []float64 { return values[info.Inputs[i]] }
	inShape := func(i int) graph.Shape { return m.g.NodeAt(info.Inputs[i]).Shape() }

	switch info.Kind {
	case graph.OpConv2D:
		var bias []float64
		if info.UseBias {
			bias = m.params[info.ParamIDs[1]]
		}
		return m.conv2d(in(0), inShape(0), batch, layout, m.params[info.ParamIDs[0]],
			info.KernelH, info.KernelW, info.Stride, bias), nil

	case graph.OpDepthwiseConv2D:
		return m.depthwiseConv2d(in(0), inShape(0), batch, layout, m.params[info.ParamIDs[0]],
			info.KernelH, info.KernelW, info.Stride), nil

	case graph.OpBatchNorm:
		return m.batchNorm(in(0), inShape(0), batch, layout,
			m.params[info.ParamIDs[0]], m.params[info.ParamIDs[1]],
			m.params[info.ParamIDs[2]], m.params[info.ParamIDs[3]]), nil

	case graph.OpReLU:
		return reluKernel(in(0)), nil

	case graph.OpSoftmax:
		return softmaxKernel(in(0), batch, info.Shape[0]), nil

	case graph.OpMaxPool2D:
		return m.pool2d(in(0), inShape(0), batch, layout, info.KernelH, info.Stride, true), nil

	case graph.OpAvgPool2D:
		return m.pool2d(in(0), inShape(0), batch, layout, info.KernelH, info.Stride, false), nil

	case graph.OpGlobalAvgPool:
		return m.globalAvgPool(in(0), inShape(0), batch, layout), nil

	case graph.OpConcat:
		parts := make([][]float64, len(info.Inputs))
		shapes := make([]graph.Shape, len(info.Inputs))
		for i := range info.Inputs {
			parts[i] = in(i)
			shapes[i] = inShape(i)
		}
		return concatKernel(parts, shapes, batch, info.Axis), nil

	case graph.OpAdd:
		return addKernel(in(0), in(1)), nil

	case graph.OpReshape:
		// Row-major contiguous view: the data is shared untouched.
		return in(0), nil

	case graph.OpTranspose:
		return transposeKernel(in(0), inShape(0), batch, info.Perm), nil

	case graph.OpSliceChannels:
		return m.sliceChannels(in(0), inShape(0), batch, layout, info.SliceLo, info.SliceHi), nil

	case graph.OpDense:
		return denseKernel(in(0), batch, inShape(0)[0],
			m.params[info.ParamIDs[0]], m.params[info.ParamIDs[1]], info.Units), nil

	default:
		return nil, backendErrorf("run", "node %d has unsupported op %s", info.ID, info.Kind)
	}
}
