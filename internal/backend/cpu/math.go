package cpu

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/shuffle-ml/shuffle/internal/graph"
)

// batchNormEpsilon guards the variance denominator; the value matches the
// convention of the networks this executor targets.
const batchNormEpsilon = 1e-3

// reluKernel applies max(0, x) elementwise.
func reluKernel(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

// addKernel adds two equally shaped values elementwise.
func addKernel(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.AddTo(out, a, b)
	return out
}

// softmaxKernel normalises each batch row of a feature vector into a
// probability distribution, with the usual max-subtraction for stability.
func softmaxKernel(x []float64, batch, features int) []float64 {
	out := make([]float64, len(x))
	for i := 0; i < batch; i++ {
		src := x[i*features : (i+1)*features]
		dst := out[i*features : (i+1)*features]

		maxVal := floats.Max(src)
		for j, v := range src {
			dst[j] = math.Exp(v - maxVal)
		}
		floats.Scale(1.0/floats.Sum(dst), dst)
	}
	return out
}

// batchNorm applies the inference form of batch normalisation per channel:
// y = scale * (x - mean) / sqrt(variance + eps) + shift.
func (m *Model) batchNorm(x []float64, shape graph.Shape, batch int, layout graph.Layout,
	scale, shift, mean, variance []float64) []float64 {

	h, w, c := layout.ImageDims(shape)

	// Fold scale and variance once per channel.
	mult := make([]float64, c)
	for ch := 0; ch < c; ch++ {
		mult[ch] = scale[ch] / math.Sqrt(variance[ch]+batchNormEpsilon)
	}

	out := make([]float64, len(x))
	if layout == graph.NCHW {
		area := h * w
		m.backend.parallelFor(batch*c, func(k int) {
			ch := k % c
			base := k * area
			for i := base; i < base+area; i++ {
				out[i] = (x[i]-mean[ch])*mult[ch] + shift[ch]
			}
		})
	} else {
		for i, v := range x {
			ch := i % c
			out[i] = (v-mean[ch])*mult[ch] + shift[ch]
		}
	}
	return out
}

// denseKernel projects [batch, in] features to [batch, units] through a
// [units, in] weight plus bias, as one GEMM.
func denseKernel(x []float64, batch, in int, weight, bias []float64, units int) []float64 {
	xm := mat.NewDense(batch, in, x)
	wm := mat.NewDense(units, in, weight)

	var prod mat.Dense
	prod.Mul(xm, wm.T())

	out := make([]float64, batch*units)
	for i := 0; i < batch; i++ {
		row := prod.RawRowView(i)
		dst := out[i*units : (i+1)*units]
		floats.AddTo(dst, row, bias)
	}
	return out
}
