package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
	assert.Equal(t, 5, Shape{5}.NumElements())
	assert.Equal(t, 1, Shape{}.NumElements())
}

func TestShape_Equal(t *testing.T) {
	assert.True(t, Shape{2, 3}.Equal(Shape{2, 3}))
	assert.False(t, Shape{2, 3}.Equal(Shape{3, 2}))
	assert.False(t, Shape{2, 3}.Equal(Shape{2, 3, 1}))
}

func TestShape_Validate(t *testing.T) {
	require.NoError(t, Shape{1, 2, 3}.Validate())
	require.Error(t, Shape{1, 0, 3}.Validate())
	require.Error(t, Shape{-2}.Validate())
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{1}, Shape{7}.ComputeStrides())
}

func TestLayout_Axes(t *testing.T) {
	assert.Equal(t, 0, NCHW.ChannelAxis())
	assert.Equal(t, 1, NCHW.HeightAxis())
	assert.Equal(t, 2, NCHW.WidthAxis())

	assert.Equal(t, 2, NHWC.ChannelAxis())
	assert.Equal(t, 0, NHWC.HeightAxis())
	assert.Equal(t, 1, NHWC.WidthAxis())
}

func TestLayout_ImageShapeRoundTrip(t *testing.T) {
	for _, layout := range []Layout{NCHW, NHWC} {
		s := layout.ImageShape(7, 9, 16)
		h, w, c := layout.ImageDims(s)
		assert.Equal(t, 7, h, layout.String())
		assert.Equal(t, 9, w, layout.String())
		assert.Equal(t, 16, c, layout.String())
	}
	assert.Equal(t, Shape{16, 7, 9}, NCHW.ImageShape(7, 9, 16))
	assert.Equal(t, Shape{7, 9, 16}, NHWC.ImageShape(7, 9, 16))
}

func TestSamePadding(t *testing.T) {
	tests := []struct {
		in, kernel, stride  int
		wantLead, wantTrail int
		wantOut             int
	}{
		{224, 3, 2, 0, 1, 112},
		{224, 3, 1, 1, 1, 224},
		{7, 3, 2, 1, 1, 4},
		{4, 3, 2, 0, 1, 2},
		{5, 1, 2, 0, 0, 3},
	}
	for _, tt := range tests {
		lead, trail := SamePadding(tt.in, tt.kernel, tt.stride)
		assert.Equal(t, tt.wantLead, lead, "lead for in=%d k=%d s=%d", tt.in, tt.kernel, tt.stride)
		assert.Equal(t, tt.wantTrail, trail, "trail for in=%d k=%d s=%d", tt.in, tt.kernel, tt.stride)
		assert.Equal(t, tt.wantOut, samePaddedDim(tt.in, tt.stride))
	}
}
