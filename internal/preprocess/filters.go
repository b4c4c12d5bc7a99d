package preprocess

import "math"

// gaussianKernel builds a normalized 1-D kernel truncated at truncate*sigma,
// the same radius rule ndimage-style filters use.
func gaussianKernel(sigma, truncate float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflect maps an out-of-range index back into [0, n) mirroring about the
// edge with the edge sample repeated (d c b a | a b c d | d c b a).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

// blur applies the separable kernel along rows, then along columns.
func blur(t *Tensor, k []float64) {
	radius := len(k) / 2
	var tmp Tensor
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			var acc float64
			for j, w := range k {
				acc += w * t[reflect(r+j-radius, Size)][c]
			}
			tmp[r][c] = acc
		}
	}
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			var acc float64
			for j, w := range k {
				acc += w * tmp[r][reflect(c+j-radius, Size)]
			}
			t[r][c] = acc
		}
	}
}

func crop(t *Tensor, b Box) [][]float64 {
	out := make([][]float64, b.Height())
	for r := range out {
		row := make([]float64, b.Width())
		copy(row, t[b.MinRow+r][b.MinCol:b.MaxCol+1])
		out[r] = row
	}
	return out
}

// fitDims scales the longer side to FitSize and the shorter one proportionally.
func fitDims(h, w int) (nh, nw int) {
	if h > w {
		nh = FitSize
		nw = max(1, int(math.Round(float64(w)*FitSize/float64(h))))
	} else {
		nw = FitSize
		nh = max(1, int(math.Round(float64(h)*FitSize/float64(w))))
	}
	return min(nh, FitSize), min(nw, FitSize)
}

// zoomCoord maps an output index onto the input axis with the corner samples
// of both grids aligned.
func zoomCoord(out, inDim, outDim int) float64 {
	if outDim <= 1 {
		return 0
	}
	return float64(out) * float64(inDim-1) / float64(outDim-1)
}

// bilinear resamples src to nh x nw.
func bilinear(src [][]float64, nh, nw int) [][]float64 {
	h, w := len(src), len(src[0])
	out := make([][]float64, nh)
	for r := range out {
		y := zoomCoord(r, h, nh)
		y0 := int(math.Floor(y))
		y1 := min(y0+1, h-1)
		fy := y - float64(y0)
		row := make([]float64, nw)
		for c := range row {
			x := zoomCoord(c, w, nw)
			x0 := int(math.Floor(x))
			x1 := min(x0+1, w-1)
			fx := x - float64(x0)
			top := src[y0][x0]*(1-fx) + src[y0][x1]*fx
			bottom := src[y1][x0]*(1-fx) + src[y1][x1]*fx
			row[c] = top*(1-fy) + bottom*fy
		}
		out[r] = row
	}
	return out
}

// paste centers src in a fresh grid.
func paste(src [][]float64) Tensor {
	var t Tensor
	padY := (Size - len(src)) / 2
	padX := (Size - len(src[0])) / 2
	for r, row := range src {
		copy(t[padY+r][padX:], row)
	}
	return t
}

// shift translates by whole pixels, filling vacated cells with zero.
func shift(t *Tensor, dy, dx int) Tensor {
	var out Tensor
	for r := 0; r < Size; r++ {
		sr := r - dy
		if sr < 0 || sr >= Size {
			continue
		}
		for c := 0; c < Size; c++ {
			sc := c - dx
			if sc < 0 || sc >= Size {
				continue
			}
			out[r][c] = t[sr][sc]
		}
	}
	return out
}
