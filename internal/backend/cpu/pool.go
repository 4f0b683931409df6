package cpu

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/shuffle-ml/shuffle/internal/graph"
)

// pool2d runs same-padded square pooling. Average pooling divides by the
// number of in-bounds cells only, so padded borders do not drag the mean
// toward zero.
func (m *Model) pool2d(input []float64, shape graph.Shape, batch int, layout graph.Layout,
	pool, stride int, maxPool bool) []float64 {

	h, w, c := layout.ImageDims(shape)
	if layout == graph.NHWC {
		input = nchwFromNHWC(input, batch, h, w, c)
	}

	hOut := ceilDiv(h, stride)
	wOut := ceilDiv(w, stride)
	padTop, _ := graph.SamePadding(h, pool, stride)
	padLeft, _ := graph.SamePadding(w, pool, stride)

	out := make([]float64, batch*c*hOut*wOut)
	m.backend.parallelFor(batch*c, func(k int) {
		ch := k % c
		ni := k / c
		inBase := (ni*c + ch) * h * w
		outBase := (ni*c + ch) * hOut * wOut

		for oh := 0; oh < hOut; oh++ {
			hStart := oh*stride - padTop
			for ow := 0; ow < wOut; ow++ {
				wStart := ow*stride - padLeft

				best := math.Inf(-1)
				sum := 0.0
				count := 0
				for ky := 0; ky < pool; ky++ {
					y := hStart + ky
					if y < 0 || y >= h {
						continue
					}
					for kx := 0; kx < pool; kx++ {
						x := wStart + kx
						if x < 0 || x >= w {
							continue
						}
						v := input[inBase+y*w+x]
						if v > best {
							best = v
						}
						sum += v
						count++
					}
				}

				var v float64
				if maxPool {
					v = best
				} else if count > 0 {
					v = sum / float64(count)
				}
				out[outBase+oh*wOut+ow] = v
			}
		}
	})

	if layout == graph.NHWC {
		out = nhwcFromNCHW(out, batch, c, hOut, wOut)
	}
	return out
}

// globalAvgPool collapses the spatial dimensions to their mean, producing
// one channel vector per example.
func (m *Model) globalAvgPool(input []float64, shape graph.Shape, batch int, layout graph.Layout) []float64 {
	h, w, c := layout.ImageDims(shape)
	if layout == graph.NHWC {
		input = nchwFromNHWC(input, batch, h, w, c)
	}

	area := h * w
	out := make([]float64, batch*c)
	for k := range out {
		base := k * area
		out[k] = floats.Sum(input[base:base+area]) / float64(area)
	}
	return out
}
