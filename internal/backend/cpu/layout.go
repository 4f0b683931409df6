package cpu

// The spatial kernels below run on channels-first data. When a graph is
// built channels-last, its image values are permuted to NCHW around each
// spatial kernel and back; channel-indexed ops handle both layouts
// directly.

// nchwFromNHWC permutes [N, H, W, C] data to [N, C, H, W].
func nchwFromNHWC(src []float64, n, h, w, c int) []float64 {
	dst := make([]float64, len(src))
	for i := 0; i < n; i++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				srcBase := ((i*h+y)*w + x) * c
				for ch := 0; ch < c; ch++ {
					dst[((i*c+ch)*h+y)*w+x] = src[srcBase+ch]
				}
			}
		}
	}
	return dst
}

// nhwcFromNCHW permutes [N, C, H, W] data to [N, H, W, C].
func nhwcFromNCHW(src []float64, n, c, h, w int) []float64 {
	dst := make([]float64, len(src))
	for i := 0; i < n; i++ {
		for ch := 0; ch < c; ch++ {
			for y := 0; y < h; y++ {
				srcBase := ((i*c+ch)*h + y) * w
				for x := 0; x < w; x++ {
					dst[((i*h+y)*w+x)*c+ch] = src[srcBase+x]
				}
			}
		}
	}
	return dst
}

// ceilDiv is the output extent of a same-padded spatial dimension.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
