package cpu

import (
	"gonum.org/v1/gonum/mat"

	"github.com/shuffle-ml/shuffle/internal/graph"
)

// conv2d runs a same-padded standard convolution. Weight layout is
// [filters, inChannels, kh, kw] regardless of the graph's data layout.
//
// The kernel uses im2col: input patches become rows of a column matrix,
// the weight becomes a [filters, c*kh*kw] matrix, and the convolution
// collapses into one GEMM.
func (m *Model) conv2d(input []float64, shape graph.Shape, batch int, layout graph.Layout,
	weight []float64, kh, kw, stride int, bias []float64) []float64 {

	h, w, c := layout.ImageDims(shape)
	filters := len(weight) / (c * kh * kw)

	if layout == graph.NHWC {
		input = nchwFromNHWC(input, batch, h, w, c)
	}
	out, hOut, wOut := m.conv2dNCHW(input, batch, c, h, w, weight, filters, kh, kw, stride, bias)
	if layout == graph.NHWC {
		out = nhwcFromNCHW(out, batch, filters, hOut, wOut)
	}
	return out
}

func (m *Model) conv2dNCHW(input []float64, n, c, h, w int,
	weight []float64, filters, kh, kw, stride int, bias []float64) ([]float64, int, int) {

	hOut := ceilDiv(h, stride)
	wOut := ceilDiv(w, stride)
	padTop, _ := graph.SamePadding(h, kh, stride)
	padLeft, _ := graph.SamePadding(w, kw, stride)

	// Step 1: im2col. One row per output position, one column per
	// (channel, kernel cell). Out-of-bounds cells stay zero.
	colWidth := c * kh * kw
	rows := n * hOut * wOut
	colBuf := make([]float64, rows*colWidth)

	m.backend.parallelFor(rows, func(row int) {
		ow := row % wOut
		oh := (row / wOut) % hOut
		ni := row / (wOut * hOut)

		hStart := oh*stride - padTop
		wStart := ow*stride - padLeft
		buf := colBuf[row*colWidth:]

		idx := 0
		for ch := 0; ch < c; ch++ {
			for ky := 0; ky < kh; ky++ {
				y := hStart + ky
				for kx := 0; kx < kw; kx++ {
					x := wStart + kx
					if y >= 0 && y < h && x >= 0 && x < w {
						buf[idx] = input[((ni*c+ch)*h+y)*w+x]
					}
					idx++
				}
			}
		}
	})

	// Step 2: GEMM. [rows, colWidth] x [colWidth, filters].
	col := mat.NewDense(rows, colWidth, colBuf)
	ker := mat.NewDense(filters, colWidth, weight)
	var prod mat.Dense
	prod.Mul(col, ker.T())

	// Step 3: scatter [row, filter] back to [N, F, H_out, W_out].
	out := make([]float64, n*filters*hOut*wOut)
	m.backend.parallelFor(rows, func(row int) {
		ow := row % wOut
		oh := (row / wOut) % hOut
		ni := row / (wOut * hOut)
		for f := 0; f < filters; f++ {
			v := prod.At(row, f)
			if bias != nil {
				v += bias[f]
			}
			out[((ni*filters+f)*hOut+oh)*wOut+ow] = v
		}
	})
	return out, hOut, wOut
}

// depthwiseConv2d runs a same-padded per-channel convolution with depth
// multiplier 1. Weight layout is [channels, kh, kw].
func (m *Model) depthwiseConv2d(input []float64, shape graph.Shape, batch int, layout graph.Layout,
	weight []float64, kh, kw, stride int) []float64 {

	h, w, c := layout.ImageDims(shape)
	if layout == graph.NHWC {
		input = nchwFromNHWC(input, batch, h, w, c)
	}

	hOut := ceilDiv(h, stride)
	wOut := ceilDiv(w, stride)
	padTop, _ := graph.SamePadding(h, kh, stride)
	padLeft, _ := graph.SamePadding(w, kw, stride)

	out := make([]float64, batch*c*hOut*wOut)
	m.backend.parallelFor(batch*c, func(k int) {
		ch := k % c
		ni := k / c
		inBase := (ni*c + ch) * h * w
		outBase := (ni*c + ch) * hOut * wOut
		ker := weight[ch*kh*kw:]

		for oh := 0; oh < hOut; oh++ {
			hStart := oh*stride - padTop
			for ow := 0; ow < wOut; ow++ {
				wStart := ow*stride - padLeft
				sum := 0.0
				for ky := 0; ky < kh; ky++ {
					y := hStart + ky
					if y < 0 || y >= h {
						continue
					}
					for kx := 0; kx < kw; kx++ {
						x := wStart + kx
						if x < 0 || x >= w {
							continue
						}
						sum += input[inBase+y*w+x] * ker[ky*kw+kx]
					}
				}
				out[outBase+oh*wOut+ow] = sum
			}
		}
	})

	if layout == graph.NHWC {
		out = nhwcFromNCHW(out, batch, c, hOut, wOut)
	}
	return out
}
