package graph

import (
	"fmt"
	"strings"
)

// Shape represents the dimensions of a tensor value in the graph.
//
// Node shapes are per-example: the batch dimension is implicit and is
// supplied by the backend at execution time.
type Shape []int

// NumElements returns the total number of elements in the shape.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that all dimensions are positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprintf("%d", dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Layout selects where the channel dimension sits in image-shaped values.
//
// The layout is fixed per Builder at construction time and read by every
// operation that indexes or reshapes a value by channel position. It is
// never ambient process state, so builders with different layouts can
// coexist in one process.
type Layout int

const (
	// NCHW places channels before the spatial dimensions: (C, H, W).
	NCHW Layout = iota
	// NHWC places channels after the spatial dimensions: (H, W, C).
	NHWC
)

func (l Layout) String() string {
	switch l {
	case NCHW:
		return "NCHW"
	case NHWC:
		return "NHWC"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l == NCHW || l == NHWC
}

// ChannelAxis returns the channel axis of a per-example image shape.
func (l Layout) ChannelAxis() int {
	if l == NCHW {
		return 0
	}
	return 2
}

// HeightAxis returns the height axis of a per-example image shape.
func (l Layout) HeightAxis() int {
	if l == NCHW {
		return 1
	}
	return 0
}

// WidthAxis returns the width axis of a per-example image shape.
func (l Layout) WidthAxis() int {
	if l == NCHW {
		return 2
	}
	return 1
}

// ImageShape assembles a per-example image shape from its dimensions.
func (l Layout) ImageShape(height, width, channels int) Shape {
	if l == NCHW {
		return Shape{channels, height, width}
	}
	return Shape{height, width, channels}
}

// ImageDims splits a per-example image shape into its dimensions.
func (l Layout) ImageDims(s Shape) (height, width, channels int) {
	return s[l.HeightAxis()], s[l.WidthAxis()], s[l.ChannelAxis()]
}
