package cpu

import "github.com/shuffle-ml/shuffle/internal/graph"

// concatKernel concatenates values along a per-example axis. The batch
// dimension is prepended to every shape, so the effective axis is one to
// the right of the graph-level axis.
func concatKernel(parts [][]float64, shapes []graph.Shape, batch, axis int) []float64 {
	first := shapes[0]

	outer := batch
	for d := 0; d < axis; d++ {
		outer *= first[d]
	}

	// Per input, the contiguous block each outer step contributes.
	blocks := make([]int, len(parts))
	total := 0
	for i, s := range shapes {
		block := 1
		for d := axis; d < len(s); d++ {
			block *= s[d]
		}
		blocks[i] = block
		total += block
	}

	out := make([]float64, outer*total)
	pos := 0
	for o := 0; o < outer; o++ {
		for i, part := range parts {
			copy(out[pos:], part[o*blocks[i]:(o+1)*blocks[i]])
			pos += blocks[i]
		}
	}
	return out
}

// transposeKernel permutes the per-example axes of a value. The batch axis
// stays in place.
func transposeKernel(x []float64, shape graph.Shape, batch int, perm []int) []float64 {
	// Full shape and permutation with the batch axis pinned at 0.
	full := make(graph.Shape, 0, len(shape)+1)
	full = append(full, batch)
	full = append(full, shape...)
	fullPerm := make([]int, 0, len(perm)+1)
	fullPerm = append(fullPerm, 0)
	for _, p := range perm {
		fullPerm = append(fullPerm, p+1)
	}

	outShape := make(graph.Shape, len(full))
	for i, p := range fullPerm {
		outShape[i] = full[p]
	}
	inStrides := full.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	out := make([]float64, len(x))
	for idx := range out {
		rem := idx
		src := 0
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			src += coord * inStrides[fullPerm[d]]
		}
		out[idx] = x[src]
	}
	return out
}

// sliceChannels copies the channel range [lo, hi) of an image value.
func (m *Model) sliceChannels(x []float64, shape graph.Shape, batch int, layout graph.Layout, lo, hi int) []float64 {
	h, w, c := layout.ImageDims(shape)
	width := hi - lo

	out := make([]float64, batch*width*h*w)
	if layout == graph.NCHW {
		// Channel planes are contiguous per example.
		area := h * w
		for n := 0; n < batch; n++ {
			src := x[(n*c+lo)*area : (n*c+hi)*area]
			copy(out[n*width*area:], src)
		}
	} else {
		for p := 0; p < batch*h*w; p++ {
			copy(out[p*width:], x[p*c+lo:p*c+hi])
		}
	}
	return out
}
