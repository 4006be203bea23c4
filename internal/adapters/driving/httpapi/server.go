package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
)

// Version is reported by the info endpoint.
const Version = "1.0.0"

const shutdownTimeout = 10 * time.Second

// Ports aggregates the driving ports the HTTP server calls.
type Ports struct {
	// Answer answers questions. Required.
	Answer driving.AnswerService

	// Retriever backs the retrieve endpoint. Required.
	Retriever driving.RetrieverService

	// Scorer adds confidence to retrieve responses. Optional.
	Scorer driving.ConfidenceScorer

	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}

// Config holds server settings.
type Config struct {
	Addr      string
	JWTSecret string
	Users     []string
	TokenTTL  time.Duration
	RateLimit float64
	RateBurst int
}

// ConfigFromSettings extracts server settings.
func ConfigFromSettings(s *domain.ServerSettings) Config {
	return Config{
		Addr:      s.Addr,
		JWTSecret: s.JWTSecret,
		Users:     s.Users,
		TokenTTL:  s.TokenTTL,
		RateLimit: s.RateLimit,
		RateBurst: s.RateBurst,
	}
}

// Server is the HTTP API server for medrag.
type Server struct {
	router  chi.Router
	ports   *Ports
	auth    *Authenticator
	limiter *RateLimiter
	cfg     Config
}

// NewServer creates and configures the HTTP server.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	users, err := ParseUsers(cfg.Users)
	if err != nil {
		return nil, err
	}
	auth, err := NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL, users)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		logger.Warn("No server.users configured, POST /api/v1/token will reject every login")
	}

	s := &Server{
		ports:   ports,
		auth:    auth,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		cfg:     cfg,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Authenticator returns the token issuer used by the server.
func (s *Server) Authenticator() *Authenticator {
	return s.auth
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)

	r.Get("/", s.handleInfo)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Post("/token", s.handleToken)

			r.Group(func(r chi.Router) {
				r.Use(s.auth.RequireAuth)
				r.Post("/query", s.handleQuery)
				r.Post("/query/stream", s.handleQueryStream)
				r.Post("/retrieve", s.handleRetrieve)
			})
		})
	})

	if s.ports.MCP != nil {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAuth)
			r.Handle("/mcp", s.ports.MCP)
		})
	}

	s.router = r
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening on %s", s.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
