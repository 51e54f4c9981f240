package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/minpeter/ai-sdk-middleware/internal/backend/replay"
	"github.com/minpeter/ai-sdk-middleware/internal/metrics"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
	"github.com/minpeter/ai-sdk-middleware/pkg/middleware"
)

const testModelID = "think-1"

// recordingModel remembers the options of its last call.
type recordingModel struct {
	lm.Model
	last *lm.CallOptions
}

func (m *recordingModel) Generate(ctx context.Context, opts *lm.CallOptions) (*lm.GenerateResult, error) {
	m.last = opts
	return m.Model.Generate(ctx, opts)
}

func (m *recordingModel) Stream(ctx context.Context, opts *lm.CallOptions) (*lm.StreamResult, error) {
	m.last = opts
	return m.Model.Stream(ctx, opts)
}

func thinkParts() []lm.StreamPart {
	return replay.FromText("txt-0", "<think>plan</think>answer", 4)
}

func wrapThink(t *testing.T, base lm.Model, mws ...middleware.Middleware) lm.Model {
	t.Helper()
	rmw, err := middleware.ExtractReasoning(middleware.ReasoningConfig{
		OpeningTag: "<think>",
		ClosingTag: "</think>",
	})
	if err != nil {
		t.Fatalf("extract reasoning: %v", err)
	}
	return middleware.Wrap(base, append(mws, rmw)...)
}

func newTestEcho(t *testing.T, model lm.Model, opts ...Option) *echo.Echo {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(1700000000, 0) })}, opts...)
	server := NewServer(NewStaticProvider(model), opts...)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ResponseError {
	t.Helper()
	var env struct {
		Error ResponseError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rec.Body.String())
	}
	return env.Error
}

func TestListModels(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, replay.New(thinkParts(), replay.WithModelID(testModelID)))
	rec := doJSON(t, e, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var list ModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
	card := list.Data[0]
	if card.ID != testModelID || card.OwnedBy != replay.Provider || card.Created != 1700000000 {
		t.Fatalf("unexpected card: %+v", card)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, replay.New(thinkParts()))
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	base := replay.New(thinkParts(), replay.WithModelID(testModelID))
	model := wrapThink(t, base, metrics.Middleware(reg))
	e := newTestEcho(t, model, WithGatherer(reg))

	body := `{"model":"think-1","stream":true,"messages":[{"role":"user","content":"hi"}]}`
	if rec := doJSON(t, e, http.MethodPost, "/v1/chat/completions", body); rec.Code != http.StatusOK {
		t.Fatalf("completion status: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: got %d", rec.Code)
	}
	out := rec.Body.String()
	for _, want := range []string{
		`aimw_model_calls_total{mode="stream",status="ok"} 1`,
		`aimw_stream_delta_bytes_total{kind="reasoning"} 4`,
		`aimw_stream_delta_bytes_total{kind="text"} 6`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsEndpointDisabled(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, replay.New(thinkParts()))
	rec := doJSON(t, e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a gatherer, got %d", rec.Code)
	}
}
