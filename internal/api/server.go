package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minpeter/ai-sdk-middleware/internal/logger"
)

// Server exposes wrapped models over an OpenAI-compatible HTTP API.
type Server struct {
	provider ModelProvider
	clock    func() time.Time
	log      logger.Logger
	gatherer prometheus.Gatherer
}

type Option func(*Server)

func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithGatherer enables GET /metrics for the given registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

func NewServer(provider ModelProvider, opts ...Option) *Server {
	s := &Server{
		provider: provider,
		clock:    time.Now,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/chat/completions", s.handleChatCompletions)
	e.GET("/v1/models", s.handleListModels)
	e.GET("/healthz", s.handleHealth)
	if s.gatherer != nil {
		h := promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
		e.GET("/metrics", func(c *echo.Context) error {
			h.ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(c *echo.Context) error {
	var ids []string
	if s.provider != nil {
		ids = s.provider.ListModels()
	}

	created := s.clock().Unix()
	data := make([]ModelCard, 0, len(ids))
	for _, id := range ids {
		m, err := s.provider.Model(id)
		if err != nil {
			continue
		}
		data = append(data, ModelCard{
			ID:      id,
			Object:  "model",
			Created: created,
			OwnedBy: m.Provider(),
		})
	}

	return c.JSON(http.StatusOK, ModelList{
		Object: "list",
		Data:   data,
	})
}
