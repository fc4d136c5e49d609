// Package api exposes the analysis pipeline over HTTP: starting and
// resuming analyses, reading results and streaming progress events.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sacha-rebbouh/angeldesk/internal/config"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/events"
	"github.com/sacha-rebbouh/angeldesk/internal/logging"
)

// AnalysisStarter runs a full analysis for a deal.
type AnalysisStarter interface {
	Start(ctx context.Context, dealID string, tiers []int) (*core.Analysis, error)
}

// AnalysisResumer re-runs the agents a failed analysis still owes.
type AnalysisResumer interface {
	Resume(ctx context.Context, id core.AnalysisID) (*core.Analysis, error)
}

// Server is the HTTP front of the analysis pipeline.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	store      core.AnalysisStore
	starter    AnalysisStarter
	resumer    AnalysisResumer
	bus        *events.Bus
	log        *logging.Logger
}

// New creates a server wired to the pipeline collaborators. The bus may
// be nil, in which case the event stream endpoint is not registered.
func New(cfg config.ServerConfig, store core.AnalysisStore, starter AnalysisStarter, resumer AnalysisResumer, bus *events.Bus, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Server{
		store:   store,
		starter: starter,
		resumer: resumer,
		bus:     bus,
		log:     log,
	}
	s.router = s.setupRouter(cfg)
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupRouter(cfg config.ServerConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}).Handler)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analyses", func(r chi.Router) {
			r.Get("/", s.handleListAnalyses)
			r.Post("/", s.handleStartAnalysis)
			r.Get("/{id}", s.handleGetAnalysis)
			r.Get("/{id}/checkpoints", s.handleListCheckpoints)
			r.Post("/{id}/resume", s.handleResumeAnalysis)
		})
		if s.bus != nil {
			r.Get("/events", s.handleEvents)
		}
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Start begins serving without blocking. Errors other than a clean
// shutdown are logged.
func (s *Server) Start() {
	s.log.Info("starting http server", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", "error", err.Error())
		}
	}()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the configured router so tests can drive handlers
// without binding a socket.
func (s *Server) Router() chi.Router {
	return s.router
}
