package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/Brownie44l1/letters-api/internal/activation"
	"github.com/Brownie44l1/letters-api/internal/preprocess"
)

var (
	ErrNotLoaded  = errors.New("model not loaded")
	ErrClassCount = errors.New("probability vector does not match class list")
)

// Classifier maps a canonical tensor to one probability per class.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Predict(ctx context.Context, t *preprocess.Tensor) ([]float64, error)
	Classes() []string
}

// Loader builds a fresh classifier, typically from files on disk.
type Loader func() (Classifier, error)

// Alphabet returns the labels A..Z in class index order.
func Alphabet() []string {
	out := make([]string, activation.Classes)
	for i := range out {
		out[i] = string(rune('A' + i))
	}
	return out
}

// Static always answers with the same distribution. It stands in for the
// real model in tests and in the static development backend.
type Static struct {
	Probs  []float64
	Labels []string
}

func NewStatic(probs []float64) *Static {
	return &Static{Probs: probs, Labels: Alphabet()}
}

// Uniform spreads probability evenly over the alphabet.
func Uniform() *Static {
	p := make([]float64, activation.Classes)
	for i := range p {
		p[i] = 1.0 / activation.Classes
	}
	return NewStatic(p)
}

func (s *Static) Predict(ctx context.Context, _ *preprocess.Tensor) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float64, len(s.Probs))
	copy(out, s.Probs)
	return out, nil
}

func (s *Static) Classes() []string {
	return s.Labels
}

// Holder owns the classifier the service is currently answering with.
// Replace waits for in-flight predictions before closing the old one.
type Holder struct {
	mu      sync.RWMutex
	current Classifier
}

func NewHolder(c Classifier) *Holder {
	return &Holder{current: c}
}

func (h *Holder) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current != nil
}

// Use runs fn against the current classifier, holding it in place until fn
// returns so a concurrent Replace cannot close it mid-request.
func (h *Holder) Use(fn func(Classifier) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return ErrNotLoaded
	}
	return fn(h.current)
}

func (h *Holder) Predict(ctx context.Context, t *preprocess.Tensor) ([]float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return nil, ErrNotLoaded
	}
	return h.current.Predict(ctx, t)
}

func (h *Holder) Classes() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return nil
	}
	return h.current.Classes()
}

// Replace swaps in next and closes the previous classifier when it holds
// resources.
func (h *Holder) Replace(next Classifier) error {
	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	if c, ok := prev.(io.Closer); ok && !sameClassifier(prev, next) {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close previous model: %w", err)
		}
	}
	return nil
}

// sameClassifier reports whether a and b are the same value. Dynamic types
// that cannot be compared are never the same.
func sameClassifier(a, b Classifier) bool {
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.ValueOf(a).Comparable() {
		return false
	}
	return a == b
}

func (h *Holder) Close() error {
	return h.Replace(nil)
}

// Assemble builds the response envelope from a probability vector.
func Assemble(probs []float64, classes []string, acts activation.Vectors, blank bool) (*PredictionResponse, error) {
	if len(probs) == 0 || len(probs) != len(classes) {
		return nil, fmt.Errorf("%w: %d probabilities for %d classes", ErrClassCount, len(probs), len(classes))
	}

	maxIdx := 0
	maxVal := probs[0]
	for i, val := range probs {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	return &PredictionResponse{
		Letter:        classes[maxIdx],
		Confidence:    maxVal,
		Probabilities: probs,
		Activations:   acts,
		Blank:         blank,
	}, nil
}
