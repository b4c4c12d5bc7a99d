package preprocess

import "math"

const (
	// Size is the side length of the canonical grid the classifier expects.
	Size = 28
	// Pixels is the length of a flattened raw sample.
	Pixels = Size * Size
	// FitSize is the box the drawing's longer side is scaled to before centering.
	FitSize = 20
)

// Tensor is the canonical 28x28 single-channel image, row-major, values in [0,1].
type Tensor [Size][Size]float64

// Max returns the largest cell value.
func (t *Tensor) Max() float64 {
	m := math.Inf(-1)
	for r := range t {
		for c := range t[r] {
			if t[r][c] > m {
				m = t[r][c]
			}
		}
	}
	return m
}

// Scale multiplies every cell by f.
func (t *Tensor) Scale(f float64) {
	for r := range t {
		for c := range t[r] {
			t[r][c] *= f
		}
	}
}

// rescale divides by the maximum when it is positive.
func (t *Tensor) rescale() {
	m := t.Max()
	if m <= 0 {
		return
	}
	for r := range t {
		for c := range t[r] {
			t[r][c] /= m
		}
	}
}

// IsZero reports whether every cell is zero.
func (t *Tensor) IsZero() bool {
	for r := range t {
		for c := range t[r] {
			if t[r][c] != 0 {
				return false
			}
		}
	}
	return true
}

// CenterOfMass returns the intensity-weighted centroid. ok is false when the
// grid carries no mass.
func (t *Tensor) CenterOfMass() (row, col float64, ok bool) {
	var total, sr, sc float64
	for r := range t {
		for c := range t[r] {
			v := t[r][c]
			total += v
			sr += v * float64(r)
			sc += v * float64(c)
		}
	}
	if total == 0 {
		return 0, 0, false
	}
	row, col = sr/total, sc/total
	if math.IsNaN(row) || math.IsNaN(col) {
		return 0, 0, false
	}
	return row, col, true
}

// Flatten returns the grid row-major as float32, the layout of a
// [1, 28, 28, 1] model input.
func (t *Tensor) Flatten() []float32 {
	out := make([]float32, 0, Pixels)
	for r := range t {
		for c := range t[r] {
			out = append(out, float32(t[r][c]))
		}
	}
	return out
}

// Values returns the grid as nested slices, the shape used in JSON payloads.
func (t *Tensor) Values() [][]float64 {
	out := make([][]float64, Size)
	for r := range t {
		row := make([]float64, Size)
		copy(row, t[r][:])
		out[r] = row
	}
	return out
}

// Box is an inclusive bounding box in grid coordinates.
type Box struct {
	MinRow, MinCol int
	MaxRow, MaxCol int
}

func (b Box) Height() int { return b.MaxRow - b.MinRow + 1 }
func (b Box) Width() int  { return b.MaxCol - b.MinCol + 1 }

// DetectBox returns the tight box around cells strictly above threshold.
func DetectBox(t *Tensor, threshold float64) (Box, bool) {
	b := Box{MinRow: Size, MinCol: Size, MaxRow: -1, MaxCol: -1}
	for r := range t {
		for c := range t[r] {
			if t[r][c] <= threshold {
				continue
			}
			b.MinRow = min(b.MinRow, r)
			b.MinCol = min(b.MinCol, c)
			b.MaxRow = max(b.MaxRow, r)
			b.MaxCol = max(b.MaxCol, c)
		}
	}
	if b.MaxRow < 0 {
		return Box{}, false
	}
	return b, true
}
