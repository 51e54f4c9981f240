// Package metrics instruments model calls with Prometheus collectors.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
	"github.com/minpeter/ai-sdk-middleware/pkg/middleware"
)

const namespace = "aimw"

type Collector struct {
	calls      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	parts      *prometheus.CounterVec
	deltaBytes *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		// mode: generate or stream; status: ok or error
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model calls by mode and outcome.",
		}, []string{"mode", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Model call latency; streams are timed until their last part.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode"}),
		parts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "parts_total",
			Help:      "Stream parts delivered to callers by part type.",
		}, []string{"type"}),
		// kind: text or reasoning
		deltaBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "delta_bytes_total",
			Help:      "Bytes of streamed deltas by kind.",
		}, []string{"kind"}),
	}
}

// Middleware registers a fresh Collector with reg and returns its
// middleware.
func Middleware(reg prometheus.Registerer) middleware.Middleware {
	return New(reg).Middleware()
}

// Middleware observes whatever the wrapped chain returns, so place it
// outermost to count parts after every other transform.
func (c *Collector) Middleware() middleware.Middleware {
	return middleware.Middleware{
		Name: "metrics",
		WrapGenerate: func(next middleware.GenerateFunc) middleware.GenerateFunc {
			return func(ctx context.Context, opts *lm.CallOptions) (*lm.GenerateResult, error) {
				start := time.Now()
				res, err := next(ctx, opts)
				c.duration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
				c.calls.WithLabelValues("generate", status(err)).Inc()
				return res, err
			}
		},
		WrapStream: func(next middleware.StreamFunc) middleware.StreamFunc {
			return func(ctx context.Context, opts *lm.CallOptions) (*lm.StreamResult, error) {
				start := time.Now()
				res, err := next(ctx, opts)
				if err != nil {
					c.calls.WithLabelValues("stream", status(err)).Inc()
					return nil, err
				}
				return &lm.StreamResult{Stream: c.observe(res, start)}, nil
			}
		},
	}
}

func (c *Collector) observe(res *lm.StreamResult, start time.Time) func(yield func(lm.StreamPart, error) bool) {
	return func(yield func(lm.StreamPart, error) bool) {
		var streamErr error
		defer func() {
			c.duration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
			c.calls.WithLabelValues("stream", status(streamErr)).Inc()
		}()

		for part, err := range res.Stream {
			if err != nil {
				streamErr = err
				yield(part, err)
				return
			}
			c.parts.WithLabelValues(part.Type).Inc()
			switch part.Type {
			case lm.PartTextDelta:
				c.deltaBytes.WithLabelValues("text").Add(float64(len(part.Delta)))
			case lm.PartReasoningDelta:
				c.deltaBytes.WithLabelValues("reasoning").Add(float64(len(part.Delta)))
			}
			if !yield(part, nil) {
				return
			}
		}
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
