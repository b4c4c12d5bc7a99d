package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Brownie44l1/letters-api/internal/imageio"
	"github.com/Brownie44l1/letters-api/internal/model"
	"github.com/Brownie44l1/letters-api/internal/observability"
	"github.com/Brownie44l1/letters-api/internal/preprocess"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Options carries the serving limits taken from configuration.
type Options struct {
	MaxUploadBytes int64
	MaxImageSide   int
	BatchLimit     int
	BatchWorkers   int
	AllowReload    bool
	CorsOrigins    []string
	StaticDir      string
}

type Handler struct {
	models *model.Holder
	loader model.Loader
	opts   Options
}

// NewHandler wires the request handlers to the model holder. loader is used
// by the reload endpoint and may be nil when reloading is disabled.
func NewHandler(models *model.Holder, loader model.Loader, opts Options) *Handler {
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 1
	}
	if opts.MaxImageSide <= 0 {
		opts.MaxImageSide = imageio.DefaultMaxSide
	}
	return &Handler{
		models: models,
		loader: loader,
		opts:   opts,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": h.models.Loaded(),
		"classes":      len(h.models.Classes()),
	})
}

func (h *Handler) Predict(c *gin.Context) {
	var req model.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	result, err := h.recognize(c.Request.Context(), req.Pixels)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) PredictBatch(c *gin.Context) {
	var req model.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeErr(c, http.StatusBadRequest, "No samples provided")
		return
	}
	if len(req.Samples) > h.opts.BatchLimit {
		writeErr(c, http.StatusBadRequest,
			fmt.Sprintf("Batch holds %d samples, limit is %d", len(req.Samples), h.opts.BatchLimit))
		return
	}
	if !h.models.Loaded() {
		h.fail(c, model.ErrNotLoaded)
		return
	}

	ctx := c.Request.Context()
	items := make([]model.BatchItem, len(req.Samples))
	var g errgroup.Group
	g.SetLimit(h.opts.BatchWorkers)
	for i, sample := range req.Samples {
		g.Go(func() error {
			items[i].Index = i
			result, err := h.recognize(ctx, sample)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Result = result
			return nil
		})
	}
	_ = g.Wait()

	c.JSON(http.StatusOK, model.BatchResponse{Results: items})
}

func (h *Handler) Reload(c *gin.Context) {
	if !h.opts.AllowReload || h.loader == nil {
		writeErr(c, http.StatusForbidden, "Model reload is disabled")
		return
	}

	next, err := h.loader()
	if err != nil {
		observability.RecordReload(false)
		log.Error().Err(err).Msg("model reload failed")
		writeErr(c, http.StatusInternalServerError, "Model reload failed")
		return
	}
	if err := h.models.Replace(next); err != nil {
		log.Warn().Err(err).Msg("previous model did not close cleanly")
	}
	observability.RecordReload(true)
	log.Info().Int("classes", len(next.Classes())).Msg("model reloaded")

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Model reloaded successfully",
	})
}

func (h *Handler) recognize(ctx context.Context, pixels []float64) (*model.PredictionResponse, error) {
	var result *model.PredictionResponse
	err := h.models.Use(func(m model.Classifier) error {
		var err error
		result, err = model.Recognize(ctx, m, pixels)
		return err
	})
	return result, err
}

// fail maps pipeline errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, preprocess.ErrInvalidLength), errors.Is(err, preprocess.ErrInvalidPixel):
		writeErr(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotLoaded):
		writeErr(c, http.StatusServiceUnavailable, "Model not loaded")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeErr(c, http.StatusServiceUnavailable, "Request cancelled")
	default:
		log.Error().Err(err).Str(observability.RequestIDKey, c.GetString(observability.RequestIDKey)).Msg("prediction error")
		writeErr(c, http.StatusInternalServerError, "Prediction failed")
	}
}

func writeErr(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
