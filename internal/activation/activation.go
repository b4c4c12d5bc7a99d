// Package activation derives the two display-only "hidden layer" vectors that
// the drawing UI animates next to a prediction. They are synthetic: hidden1
// pools the canonical image over a grid of overlapping windows and hidden2
// pairs those pools and modulates them by the class probabilities.
package activation

import "github.com/Brownie44l1/letters-api/internal/preprocess"

const (
	Hidden1Size = 128
	Hidden2Size = 64
	Classes     = 26

	// hidden1 anchors sit on a 16-column layout, 3 rows and 2 columns apart.
	gridCols  = 16
	rowStride = 3
	colStride = 2
	window    = 7
)

// Vectors is the activation payload returned with every prediction.
type Vectors struct {
	Hidden1 []float64 `json:"hidden1"`
	Hidden2 []float64 `json:"hidden2"`
}

// Synthesize builds both vectors. It never fails: a blank tensor or an
// all-zero probability vector yields zero vectors of the full lengths.
func Synthesize(t *preprocess.Tensor, probs []float64) Vectors {
	h1 := pool(t)
	normalizeMax(h1)

	h2 := make([]float64, Hidden2Size)
	for i := range h2 {
		a := h1[2*i]
		b := h1[min(2*i+1, Hidden1Size-1)]
		h2[i] = (a + b) / 2 * (0.5 + prob(probs, i%Classes))
	}
	normalizeMax(h2)

	return Vectors{Hidden1: h1, Hidden2: h2}
}

// pool averages the in-bounds cells of each 7x7 window.
func pool(t *preprocess.Tensor) []float64 {
	out := make([]float64, Hidden1Size)
	for i := range out {
		row := (i / gridCols) * rowStride
		col := (i % gridCols) * colStride
		var sum float64
		count := 0
		for dy := 0; dy < window; dy++ {
			y := row + dy
			if y >= preprocess.Size {
				break
			}
			for dx := 0; dx < window; dx++ {
				x := col + dx
				if x >= preprocess.Size {
					break
				}
				sum += t[y][x]
				count++
			}
		}
		out[i] = sum / float64(max(count, 1))
	}
	return out
}

func prob(probs []float64, i int) float64 {
	if i < len(probs) {
		return probs[i]
	}
	return 0
}

// normalizeMax divides by the largest element when it is positive.
func normalizeMax(v []float64) {
	if len(v) == 0 {
		return
	}
	m := v[0]
	for _, x := range v[1:] {
		m = max(m, x)
	}
	if m <= 0 {
		return
	}
	for i := range v {
		v[i] /= m
	}
}
