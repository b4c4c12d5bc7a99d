package model

import (
	"context"
	"time"

	"github.com/Brownie44l1/letters-api/internal/activation"
	"github.com/Brownie44l1/letters-api/internal/observability"
	"github.com/Brownie44l1/letters-api/internal/preprocess"
)

// Recognize runs one raw drawing through normalization, the classifier and
// the activation synthesizer.
func Recognize(ctx context.Context, c Classifier, raw []float64) (*PredictionResponse, error) {
	start := time.Now()
	tensor, err := preprocess.Normalize(raw)
	if err != nil {
		return nil, err
	}
	observability.ObserveNormalize(time.Since(start))

	return Classify(ctx, c, &tensor)
}

// Classify scores an already canonical tensor.
func Classify(ctx context.Context, c Classifier, tensor *preprocess.Tensor) (*PredictionResponse, error) {
	probs, err := c.Predict(ctx, tensor)
	if err != nil {
		return nil, err
	}

	blank := tensor.IsZero()
	result, err := Assemble(probs, c.Classes(), activation.Synthesize(tensor, probs), blank)
	if err != nil {
		return nil, err
	}
	observability.RecordPrediction(result.Letter, blank)
	return result, nil
}
