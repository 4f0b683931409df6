package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T, layout Layout) *Builder {
	t.Helper()
	b, err := NewBuilder(layout)
	require.NoError(t, err)
	return b
}

// requireConfigError asserts that err is a *ConfigError and that the
// failed call appended nothing to the builder.
func requireConfigError(t *testing.T, b *Builder, before int, err error) {
	t.Helper()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %T: %v", err, err)
	require.Equal(t, before, b.NumNodes(), "failed call must not append nodes")
}

func TestBuilder_UnsupportedLayout(t *testing.T) {
	_, err := NewBuilder(Layout(42))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestInput_Shapes(t *testing.T) {
	b := newTestBuilder(t, NHWC)

	in, err := b.Input(Shape{224, 224, 3})
	require.NoError(t, err)
	assert.Equal(t, Shape{224, 224, 3}, in.Shape())
	assert.Equal(t, OpInput, in.Op())

	before := b.NumNodes()
	_, err = b.Input(Shape{224, 0, 3})
	requireConfigError(t, b, before, err)
	_, err = b.Input(Shape{})
	requireConfigError(t, b, before, err)
}

func TestConv2D_SamePaddingShapes(t *testing.T) {
	for _, layout := range []Layout{NCHW, NHWC} {
		b := newTestBuilder(t, layout)
		in, err := b.Input(layout.ImageShape(224, 224, 3))
		require.NoError(t, err)

		// Stride 2 halves with ceil division.
		y, err := b.Conv2D(in, 24, 3, 3, 2, true)
		require.NoError(t, err)
		assert.Equal(t, layout.ImageShape(112, 112, 24), y.Shape(), layout.String())

		// Stride 1 preserves spatial size.
		y, err = b.Conv2D(y, 64, 3, 3, 1, false)
		require.NoError(t, err)
		assert.Equal(t, layout.ImageShape(112, 112, 64), y.Shape(), layout.String())

		// Odd input, stride 2.
		odd, err := b.Input(layout.ImageShape(7, 7, 8))
		require.NoError(t, err)
		y, err = b.Conv2D(odd, 16, 3, 3, 2, false)
		require.NoError(t, err)
		assert.Equal(t, layout.ImageShape(4, 4, 16), y.Shape(), layout.String())
	}
}

func TestConv2D_Params(t *testing.T) {
	b := newTestBuilder(t, NHWC)
	in, _ := b.Input(Shape{8, 8, 3})

	y, err := b.Conv2D(in, 16, 3, 3, 1, true)
	require.NoError(t, err)

	info := b.Info(y.ID())
	require.Len(t, info.ParamSpecs, 2)
	assert.Equal(t, Shape{16, 3, 3, 3}, info.ParamSpecs[0].Shape)
	assert.Equal(t, InitXavier, info.ParamSpecs[0].Init)
	assert.Equal(t, 27, info.ParamSpecs[0].FanIn)
	assert.Equal(t, Shape{16}, info.ParamSpecs[1].Shape)
	assert.Equal(t, InitZeros, info.ParamSpecs[1].Init)

	// No bias: a single weight parameter.
	y, err = b.Conv2D(in, 16, 1, 1, 1, false)
	require.NoError(t, err)
	assert.Len(t, b.Info(y.ID()).ParamSpecs, 1)
}

func TestConv2D_InvalidConfig(t *testing.T) {
	b := newTestBuilder(t, NHWC)
	in, _ := b.Input(Shape{8, 8, 3})
	before := b.NumNodes()

	_, err := b.Conv2D(in, 0, 3, 3, 1, false)
	requireConfigError(t, b, before, err)
	_, err = b.Conv2D(in, 16, 0, 3, 1, false)
	requireConfigError(t, b, before, err)
	_, err = b.Conv2D(in, 16, 3, 3, 0, false)
	requireConfigError(t, b, before, err)
	_, err = b.Conv2D(Node{}, 16, 3, 3, 1, false)
	requireConfigError(t, b, before, err)

	// Non-image input.
	flat, _ := b.Input(Shape{10})
	before = b.NumNodes()
	_, err = b.Conv2D(flat, 16, 3, 3, 1, false)
	requireConfigError(t, b, before, err)
}

func TestDepthwiseConv2D_Shapes(t *testing.T) {
	b := newTestBuilder(t, NCHW)
	in, _ := b.Input(Shape{24, 56, 56})

	y, err := b.DepthwiseConv2D(in, 3, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, Shape{24, 28, 28}, y.Shape())

	info := b.Info(y.ID())
	require.Len(t, info.ParamSpecs, 1)
	assert.Equal(t, Shape{24, 3, 3}, info.ParamSpecs[0].Shape)
}

func TestBatchNorm_ShapeAndParams(t *testing.T) {
	b := newTestBuilder(t, NHWC)
	in, _ := b.Input(Shape{8, 8, 12})

	y, err := b.BatchNorm(in)
	require.NoError(t, err)
	assert.Equal(t, Shape{8, 8, 12}, y.Shape())

	info := b.Info(y.ID())
	require.Len(t, info.ParamSpecs, 4)
	for _, spec := range info.ParamSpecs {
		assert.Equal(t, Shape{12}, spec.Shape)
	}
	assert.Equal(t, InitOnes, info.ParamSpecs[0].Init)  // scale
	assert.Equal(t, InitZeros, info.ParamSpecs[1].Init) // shift
	assert.Equal(t, InitZeros, info.ParamSpecs[2].Init) // mean
	assert.Equal(t, InitOnes, info.ParamSpecs[3].Init)  // variance
}

func TestPooling_Shapes(t *testing.T) {
	b := newTestBuilder(t, NHWC)
	in, _ := b.Input(Shape{112, 112, 24})

	y, err := b.MaxPool2D(in, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, Shape{56, 56, 24}, y.Shape())

	y, err = b.AvgPool2D(in, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, Shape{56, 56, 24}, y.Shape())

	g, err := b.GlobalAvgPool(in)
	require.NoError(t, err)
	assert.Equal(t, Shape{24}, g.Shape())

	before := b.NumNodes()
	_, err = b.MaxPool2D(in, 0, 2)
	requireConfigError(t, b, before, err)
	_, err = b.AvgPool2D(in, 3, 0)
	requireConfigError(t, b, before, err)
}

func TestConcat_ChannelAxis(t *testing.T) {
	for _, layout := range []Layout{NCHW, NHWC} {
		b := newTestBuilder(t, layout)
		x, _ := b.Input(layout.ImageShape(8, 8, 6))
		y, _ := b.Input(layout.ImageShape(8, 8, 10))

		z, err := b.ConcatChannels(x, y)
		require.NoError(t, err)
		assert.Equal(t, layout.ImageShape(8, 8, 16), z.Shape(), layout.String())
	}
}

func TestConcat_Mismatch(t *testing.T) {
	b := newTestBuilder(t, NHWC)
	x, _ := b.Input(Shape{8, 8, 6})
	y, _ := b.Input(Shape{4, 4, 6})
	before := b.NumNodes()

	_, err := b.ConcatChannels(x, y)
	requireConfigError(t, b, before, err)

	_, err = b.Concat([]Node{x}, 2)
	requireConfigError(t, b, before, err)

	_, err = b.Concat([]Node{x, y}, 5)
	requireConfigError(t, b, before, err)
}

func TestAdd_ShapeChecked(t *testing.T) {
	b := newTestBuilder(t, NHWC)
	x, _ := b.Input(Shape{8, 8, 6})
	y, _ := b.Input(Shape{8, 8, 6})

	z, err := b.Add(x, y)
	require.NoError(t, err)
	assert.Equal(t, Shape{8, 8, 6}, z.Shape())

	w, _ := b.Input(Shape{8, 8, 7})
	before := b.NumNodes()
	_, err = b.Add(x, w)
	requireConfigError(t, b, before, err)
}

func TestReshapeTranspose(t *testing.T) {
	b := newTestBuilder(t, NHWC)
	x, _ := b.Input(Shape{4, 4, 12})

	r, err := b.Reshape(x, Shape{4, 4, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, Shape{4, 4, 3, 4}, r.Shape())

	tr, err := b.Transpose(r, 0, 1, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, Shape{4, 4, 4, 3}, tr.Shape())

	back, err := b.Reshape(tr, Shape{4, 4, 12})
	require.NoError(t, err)
	assert.Equal(t, Shape{4, 4, 12}, back.Shape())

	before := b.NumNodes()
	_, err = b.Reshape(x, Shape{4, 4, 13})
	requireConfigError(t, b, before, err)
	_, err = b.Transpose(r, 0, 1, 2, 2)
	requireConfigError(t, b, before, err)
	_, err = b.Transpose(r, 0, 1)
	requireConfigError(t, b, before, err)
}

func TestSliceChannels(t *testing.T) {
	for _, layout := range []Layout{NCHW, NHWC} {
		b := newTestBuilder(t, layout)
		x, _ := b.Input(layout.ImageShape(8, 8, 12))

		y, err := b.SliceChannels(x, 3, 9)
		require.NoError(t, err)
		assert.Equal(t, layout.ImageShape(8, 8, 6), y.Shape(), layout.String())

		before := b.NumNodes()
		_, err = b.SliceChannels(x, -1, 6)
		requireConfigError(t, b, before, err)
		_, err = b.SliceChannels(x, 0, 13)
		requireConfigError(t, b, before, err)
		_, err = b.SliceChannels(x, 6, 6)
		requireConfigError(t, b, before, err)
	}
}

func TestDenseSoftmax(t *testing.T) {
	b := newTestBuilder(t, NHWC)
	x, _ := b.Input(Shape{4, 4, 8})
	g, err := b.GlobalAvgPool(x)
	require.NoError(t, err)

	d, err := b.Dense(g, 10)
	require.NoError(t, err)
	assert.Equal(t, Shape{10}, d.Shape())

	info := b.Info(d.ID())
	require.Len(t, info.ParamSpecs, 2)
	assert.Equal(t, Shape{10, 8}, info.ParamSpecs[0].Shape)
	assert.Equal(t, Shape{10}, info.ParamSpecs[1].Shape)

	s, err := b.Softmax(d)
	require.NoError(t, err)
	assert.Equal(t, Shape{10}, s.Shape())

	// Dense and softmax reject image-shaped inputs.
	before := b.NumNodes()
	_, err = b.Dense(x, 10)
	requireConfigError(t, b, before, err)
	_, err = b.Softmax(x)
	requireConfigError(t, b, before, err)
	_, err = b.Dense(g, 0)
	requireConfigError(t, b, before, err)
}

func TestNode_CrossBuilderRejected(t *testing.T) {
	b1 := newTestBuilder(t, NHWC)
	b2 := newTestBuilder(t, NHWC)
	x, _ := b1.Input(Shape{8, 8, 3})

	before := b2.NumNodes()
	_, err := b2.ReLU(x)
	requireConfigError(t, b2, before, err)
}
