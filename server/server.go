package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/engine"
	"github.com/hupe1980/chatflow/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// Addr is the listen address.
	Addr string
	// AllowedOrigins are the origin patterns accepted on the chat socket.
	// Empty means same-origin only.
	AllowedOrigins []string
	// Logger receives server diagnostics.
	Logger logging.Logger
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Server serves the REST and websocket surfaces over one chi router.
type Server struct {
	engine *engine.Engine
	store  core.ThreadStore
	logger logging.Logger

	allowedOrigins  []string
	shutdownTimeout time.Duration

	router     *chi.Mux
	httpServer *http.Server
}

// New constructs a Server over the given engine and thread store.
func New(eng *engine.Engine, st core.ThreadStore, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:            ":8080",
		Logger:          logging.NoOpLogger{},
		ShutdownTimeout: 10 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		engine:          eng,
		store:           st,
		logger:          opts.Logger,
		allowedOrigins:  opts.AllowedOrigins,
		shutdownTimeout: opts.ShutdownTimeout,
		router:          chi.NewRouter(),
	}

	s.routes()

	// WriteTimeout stays zero: websocket turns stream for arbitrarily long.
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Get("/api/workflows", s.handleListWorkflows)
	r.Get("/api/threads", s.handleListThreads)
	r.Get("/api/threads/{id}", s.handleGetThread)

	r.Get("/ws/chat", s.handleChat)
}

// Router returns the underlying handler, mountable into a larger mux or an
// httptest server.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until the context is canceled, then shuts down gracefully and
// persists all live sessions.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server.listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	if err := s.engine.EndAll(shutdownCtx); err != nil {
		return fmt.Errorf("failed to persist live sessions: %w", err)
	}

	s.logger.Info("server.stopped")

	return nil
}
