// Package preprocess turns a raw 784-pixel drawing into the canonical
// 28x28 tensor the letter classifier was trained on: blurred, denoised,
// cropped to the stroke, fitted into a 20x20 box and centered by mass.
package preprocess

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Sigma of the smoothing blur.
	Sigma = 0.5
	// Truncate bounds the blur kernel at Truncate*Sigma.
	Truncate = 4.0
	// DenoiseThreshold zeroes faint cells after max-normalization.
	DenoiseThreshold = 0.15
	// DetectThreshold selects cells for the bounding box. It is looser than
	// DenoiseThreshold and the two must stay separate.
	DetectThreshold = 0.10
)

var (
	ErrInvalidLength = errors.New("invalid input length")
	ErrInvalidPixel  = errors.New("invalid pixel value")
)

var kernel = gaussianKernel(Sigma, Truncate)

// Normalize runs the full pipeline. A drawing with nothing above
// DetectThreshold yields the zero tensor and no error.
func Normalize(raw []float64) (Tensor, error) {
	t, err := Reshape(raw)
	if err != nil {
		return Tensor{}, err
	}

	blur(&t, kernel)
	t.rescale()

	for r := range t {
		for c := range t[r] {
			if t[r][c] <= DenoiseThreshold {
				t[r][c] = 0
			}
		}
	}

	box, ok := DetectBox(&t, DetectThreshold)
	if !ok {
		return Tensor{}, nil
	}

	cropped := crop(&t, box)
	nh, nw := fitDims(box.Height(), box.Width())
	t = paste(bilinear(cropped, nh, nw))

	if cy, cx, ok := t.CenterOfMass(); ok {
		dy := Size/2 - int(math.Round(cy))
		dx := Size/2 - int(math.Round(cx))
		if dy != 0 || dx != 0 {
			t = shift(&t, dy, dx)
		}
	}

	t.rescale()
	return t, nil
}

// Reshape validates a flat sample and lays it out row-major.
func Reshape(raw []float64) (Tensor, error) {
	var t Tensor
	if len(raw) != Pixels {
		return t, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidLength, Pixels, len(raw))
	}
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Tensor{}, fmt.Errorf("%w: pixel %d is %v", ErrInvalidPixel, i, v)
		}
		t[i/Size][i%Size] = v
	}
	return t, nil
}
