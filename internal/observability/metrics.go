package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "letters",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "letters",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "letters",
			Subsystem: "model",
			Name:      "predictions_total",
			Help:      "Predictions by winning letter.",
		},
		[]string{"letter"},
	)
	blankDrawings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "letters",
			Subsystem: "model",
			Name:      "blank_drawings_total",
			Help:      "Requests whose drawing normalized to an empty canvas.",
		},
	)
	normalizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "letters",
			Subsystem: "preprocess",
			Name:      "normalize_duration_seconds",
			Help:      "Time spent normalizing one drawing.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)
	modelReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "letters",
			Subsystem: "model",
			Name:      "reloads_total",
			Help:      "Model reload attempts.",
		},
		[]string{"success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, predictions, blankDrawings, normalizeDuration, modelReloads)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordPrediction(letter string, blank bool) {
	RegisterMetrics()
	predictions.WithLabelValues(letter).Inc()
	if blank {
		blankDrawings.Inc()
	}
}

func ObserveNormalize(d time.Duration) {
	RegisterMetrics()
	normalizeDuration.Observe(d.Seconds())
}

func RecordReload(success bool) {
	RegisterMetrics()
	modelReloads.WithLabelValues(strconv.FormatBool(success)).Inc()
}
