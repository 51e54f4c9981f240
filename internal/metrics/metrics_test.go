package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minpeter/ai-sdk-middleware/internal/backend/replay"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
	"github.com/minpeter/ai-sdk-middleware/pkg/middleware"
)

func drain(t *testing.T, model lm.Model) error {
	t.Helper()
	res, err := model.Stream(context.Background(), nil)
	require.NoError(t, err)
	for _, err := range res.Stream {
		if err != nil {
			return err
		}
	}
	return nil
}

func TestStreamCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)
	reasoningMW, err := middleware.ExtractReasoning(middleware.ReasoningConfig{
		OpeningTag: "<think>",
		ClosingTag: "</think>",
	})
	require.NoError(t, err)

	base := replay.New(replay.FromText("txt-0", "<think>abc</think>hello", 4))
	model := middleware.Wrap(base, c.Middleware(), reasoningMW)
	require.NoError(t, drain(t, model))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("stream", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.deltaBytes.WithLabelValues("reasoning")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.deltaBytes.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parts.WithLabelValues(lm.PartReasoningStart)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parts.WithLabelValues(lm.PartFinish)))
}

func TestStreamError(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)
	boom := errors.New("reset")
	base := replay.New(replay.FromText("txt-0", "abc", 1), replay.WithFailure(3, boom))

	err := drain(t, middleware.Wrap(base, c.Middleware()))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("stream", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deltaBytes.WithLabelValues("text")))
}

func TestGenerateCounter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	model := middleware.Wrap(replay.New(replay.FromText("txt-0", "hi", 0)), Middleware(reg))
	_, err := model.Generate(context.Background(), nil)
	require.NoError(t, err)

	expected := `
# HELP aimw_model_calls_total Model calls by mode and outcome.
# TYPE aimw_model_calls_total counter
aimw_model_calls_total{mode="generate",status="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "aimw_model_calls_total"))
}
