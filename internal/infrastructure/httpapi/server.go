// Package httpapi is the HTTP surface of the bridge: the legacy /receive and
// /img endpoints, an OpenAI-compatible chat endpoint and operational routes.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"chat-bridge/internal/application/port/input"
	"chat-bridge/internal/application/port/output"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog"
)

const (
	defaultMaxBodyBytes = 32 << 20
	defaultModelID      = "chat-bridge"
	shutdownTimeout     = 10 * time.Second
)

type Config struct {
	Host string
	Port int
	// AccessLog enables per-request logging through httplog.
	AccessLog   bool
	JSONLog     bool
	CORSOrigins []string
	// MaxBodyBytes bounds request bodies; images arrive inline.
	MaxBodyBytes int64
	// ModelID is the single model advertised on /v1/models.
	ModelID string
}

type Server struct {
	cfg       Config
	exchanger input.Exchanger
	metrics   http.Handler
	logger    output.LoggerPort
	router    chi.Router
}

// NewServer builds the router. metrics may be nil, in which case /metrics is
// not mounted.
func NewServer(cfg Config, exchanger input.Exchanger, metrics http.Handler, logger output.LoggerPort) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		cfg:       cfg,
		exchanger: exchanger,
		metrics:   metrics,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	if s.cfg.AccessLog {
		// RequestLogger brings its own RequestID and Recoverer.
		r.Use(httplog.RequestLogger(httplog.NewLogger("chat-bridge", httplog.Options{
			JSON:    s.cfg.JSONLog,
			Concise: true,
		})))
	} else {
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	// Bodies are parsed as JSON whatever the Content-Type says.
	r.Post("/receive", s.handleReceive)
	r.Post("/img", s.handleImage)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.handleModels)
		r.Post("/chat/completions", s.handleChatCompletions)
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run serves until ctx ends, then shuts down gracefully. There is no write
// timeout: a reply may take as long as the completion timeout allows.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
