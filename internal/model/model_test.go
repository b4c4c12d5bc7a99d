package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Brownie44l1/letters-api/internal/activation"
	"github.com/Brownie44l1/letters-api/internal/preprocess"
)

func TestAlphabet(t *testing.T) {
	a := Alphabet()
	if len(a) != 26 || a[0] != "A" || a[25] != "Z" {
		t.Fatalf("unexpected alphabet: %v", a)
	}
}

func TestAssemblePicksFirstMaximum(t *testing.T) {
	probs := make([]float64, 26)
	probs[3], probs[7] = 0.4, 0.4
	res, err := Assemble(probs, Alphabet(), activation.Vectors{}, false)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if res.Letter != "D" || res.Confidence != 0.4 {
		t.Fatalf("unexpected result %q %v", res.Letter, res.Confidence)
	}
}

func TestAssembleRejectsMismatchedVector(t *testing.T) {
	for _, probs := range [][]float64{nil, make([]float64, 10)} {
		if _, err := Assemble(probs, Alphabet(), activation.Vectors{}, false); !errors.Is(err, ErrClassCount) {
			t.Fatalf("expected ErrClassCount, got %v", err)
		}
	}
}

func TestRecognizeBlankWithUniformModel(t *testing.T) {
	res, err := Recognize(context.Background(), Uniform(), make([]float64, preprocess.Pixels))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if !res.Blank {
		t.Fatalf("expected blank result")
	}
	for _, v := range append(res.Activations.Hidden1, res.Activations.Hidden2...) {
		if v != 0 {
			t.Fatalf("expected zero activations")
		}
	}
}

func TestRecognizePropagatesValidation(t *testing.T) {
	_, err := Recognize(context.Background(), Uniform(), make([]float64, 783))
	if !errors.Is(err, preprocess.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestStaticHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var blank preprocess.Tensor
	if _, err := Uniform().Predict(ctx, &blank); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type closingStatic struct {
	*Static
	closes int
}

func (c *closingStatic) Close() error {
	c.closes++
	return nil
}

func TestHolderReplace(t *testing.T) {
	h := NewHolder(nil)
	if h.Loaded() {
		t.Fatalf("empty holder reports loaded")
	}
	var blank preprocess.Tensor
	if _, err := h.Predict(context.Background(), &blank); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if err := h.Use(func(Classifier) error { return nil }); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded from Use, got %v", err)
	}

	first := &closingStatic{Static: Uniform()}
	if err := h.Replace(first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !h.Loaded() || len(h.Classes()) != 26 {
		t.Fatalf("holder not serving the new model")
	}
	if err := h.Replace(NewStatic(make([]float64, 26))); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if first.closes != 1 {
		t.Fatalf("expected previous model closed once, got %d", first.closes)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.Loaded() {
		t.Fatalf("closed holder still loaded")
	}
}

// sliceClassifier has value receivers and a slice field, so two copies
// cannot be compared with ==.
type sliceClassifier struct {
	probs  []float64
	closes *int
}

func (s sliceClassifier) Predict(context.Context, *preprocess.Tensor) ([]float64, error) {
	return s.probs, nil
}

func (s sliceClassifier) Classes() []string { return Alphabet() }

func (s sliceClassifier) Close() error {
	*s.closes++
	return nil
}

func TestHolderReplaceWithValueClassifier(t *testing.T) {
	var closes int
	v := sliceClassifier{probs: make([]float64, 26), closes: &closes}
	h := NewHolder(v)
	if err := h.Replace(v); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if closes != 1 {
		t.Fatalf("expected the replaced value closed once, got %d", closes)
	}
	if !h.Loaded() {
		t.Fatalf("holder lost its classifier")
	}
}

func TestHolderReplaceWithSamePointerKeepsItOpen(t *testing.T) {
	c := &closingStatic{Static: Uniform()}
	h := NewHolder(c)
	if err := h.Replace(c); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if c.closes != 0 {
		t.Fatalf("classifier closed while still in use")
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.closes != 1 {
		t.Fatalf("expected close on shutdown, got %d", c.closes)
	}
}

func TestHolderConcurrentUseAndReplace(t *testing.T) {
	h := NewHolder(Uniform())
	raw := make([]float64, preprocess.Pixels)
	raw[14*preprocess.Size+14] = 255

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				err := h.Use(func(c Classifier) error {
					_, err := Recognize(context.Background(), c, raw)
					return err
				})
				if err != nil {
					t.Errorf("recognize: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		if err := h.Replace(Uniform()); err != nil {
			t.Fatalf("replace: %v", err)
		}
	}
	wg.Wait()
}

func TestLoadMetadataDefaults(t *testing.T) {
	md, err := LoadMetadata("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if md.InputName != "input" || md.OutputName != "output" || md.ImageSize != 28 {
		t.Fatalf("unexpected defaults: %+v", md)
	}
	if len(md.InputShape) != 4 || md.InputShape[1] != 28 || md.OutputShape[1] != 26 {
		t.Fatalf("unexpected shapes: %v %v", md.InputShape, md.OutputShape)
	}
}

func TestLoadMetadataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	body := `{"input_shape":[1,28,28,1],"output_shape":[1,26],"input_name":"conv2d_input","output_name":"dense_2"}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	md, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if md.InputName != "conv2d_input" || md.OutputName != "dense_2" || len(md.Classes) != 26 {
		t.Fatalf("unexpected metadata: %+v", md)
	}

	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadMetadata(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
