package activation

import (
	"math"
	"testing"

	"github.com/Brownie44l1/letters-api/internal/preprocess"
)

func uniform(v float64) preprocess.Tensor {
	var t preprocess.Tensor
	for r := range t {
		for c := range t[r] {
			t[r][c] = v
		}
	}
	return t
}

func uniformProbs() []float64 {
	p := make([]float64, Classes)
	for i := range p {
		p[i] = 1.0 / Classes
	}
	return p
}

func assertZero(t *testing.T, name string, v []float64, n int) {
	t.Helper()
	if len(v) != n {
		t.Fatalf("%s: expected length %d, got %d", name, n, len(v))
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("%s[%d] = %v, want 0", name, i, x)
		}
	}
}

func TestSynthesizeZeroInputs(t *testing.T) {
	var blank preprocess.Tensor
	got := Synthesize(&blank, make([]float64, Classes))
	assertZero(t, "hidden1", got.Hidden1, Hidden1Size)
	assertZero(t, "hidden2", got.Hidden2, Hidden2Size)
}

func TestSynthesizeBlankDrawingEndToEnd(t *testing.T) {
	tensor, err := preprocess.Normalize(make([]float64, preprocess.Pixels))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	got := Synthesize(&tensor, uniformProbs())
	assertZero(t, "hidden1", got.Hidden1, Hidden1Size)
	assertZero(t, "hidden2", got.Hidden2, Hidden2Size)
}

func TestSynthesizeWindowLayout(t *testing.T) {
	ones := uniform(1)
	probs := make([]float64, Classes)
	probs[3] = 1
	got := Synthesize(&ones, probs)

	for i, v := range got.Hidden1 {
		// anchors at columns 28 and 30 have no in-bounds cells
		want := 1.0
		if i%gridCols >= 14 {
			want = 0
		}
		if v != want {
			t.Fatalf("hidden1[%d] = %v, want %v", i, v, want)
		}
	}

	cases := map[int]float64{
		3:  1,
		29: 1,
		0:  1.0 / 3,
		7:  0,
		63: 0,
	}
	for i, want := range cases {
		if math.Abs(got.Hidden2[i]-want) > 1e-12 {
			t.Fatalf("hidden2[%d] = %v, want %v", i, got.Hidden2[i], want)
		}
	}
}

func TestSynthesizePartialWindowAveragesInBounds(t *testing.T) {
	var g preprocess.Tensor
	// anchor for index 13 is (0, 26); only columns 26 and 27 exist
	g[0][27] = 1
	g[20][0] = 1
	got := Synthesize(&g, uniformProbs())
	h := got.Hidden1
	// raw pools: index 13 -> 1/14, index 96 (anchor 18,0) -> 1/49
	if math.Abs(h[96]/h[13]-14.0/49.0) > 1e-12 {
		t.Fatalf("unexpected ratio %v", h[96]/h[13])
	}
}

func TestSynthesizeIgnoresTensorScale(t *testing.T) {
	tensor, err := preprocess.Normalize(letterL())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	probs := uniformProbs()
	probs[11] = 0.6
	base := Synthesize(&tensor, probs)

	scaled := tensor
	scaled.Scale(3.75)
	got := Synthesize(&scaled, probs)

	for i := range base.Hidden1 {
		if math.Abs(base.Hidden1[i]-got.Hidden1[i]) > 1e-12 {
			t.Fatalf("hidden1[%d]: %v vs %v", i, base.Hidden1[i], got.Hidden1[i])
		}
	}
	for i := range base.Hidden2 {
		if math.Abs(base.Hidden2[i]-got.Hidden2[i]) > 1e-12 {
			t.Fatalf("hidden2[%d]: %v vs %v", i, base.Hidden2[i], got.Hidden2[i])
		}
	}
}

func TestSynthesizePeaksAtOne(t *testing.T) {
	tensor, _ := preprocess.Normalize(letterL())
	got := Synthesize(&tensor, uniformProbs())
	for name, v := range map[string][]float64{"hidden1": got.Hidden1, "hidden2": got.Hidden2} {
		peak := 0.0
		for _, x := range v {
			if x < 0 || x > 1 {
				t.Fatalf("%s value out of range: %v", name, x)
			}
			peak = max(peak, x)
		}
		if peak != 1 {
			t.Fatalf("%s peak = %v", name, peak)
		}
	}
}

func TestSynthesizeShortProbabilityVector(t *testing.T) {
	ones := uniform(1)
	got := Synthesize(&ones, []float64{0.5})
	if len(got.Hidden2) != Hidden2Size {
		t.Fatalf("unexpected length %d", len(got.Hidden2))
	}
	// class 0 gets 1.0 modulation, every other class 0.5
	if got.Hidden2[0] != 1 || got.Hidden2[1] != 0.5 {
		t.Fatalf("unexpected modulation: %v %v", got.Hidden2[0], got.Hidden2[1])
	}
}

// letterL draws a crude capital L.
func letterL() []float64 {
	raw := make([]float64, preprocess.Pixels)
	for r := 5; r <= 22; r++ {
		raw[r*preprocess.Size+8] = 255
		raw[r*preprocess.Size+9] = 255
	}
	for c := 8; c <= 19; c++ {
		raw[21*preprocess.Size+c] = 255
		raw[22*preprocess.Size+c] = 255
	}
	return raw
}
