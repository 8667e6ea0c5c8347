// Package server exposes the dispatcher over HTTP.
//
// Callers pick a logical session with the X-Session-ID header; each session
// owns its own backend connections. Requests without the header share the
// default session.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/dbpilot/internal/dispatch"
	"github.com/leapstack-labs/dbpilot/internal/history"
	"github.com/leapstack-labs/dbpilot/internal/session"
	"golang.org/x/sync/errgroup"
)

// SessionHeader selects the logical session of a request.
const SessionHeader = "X-Session-ID"

// Request body limits.
const (
	DefaultMaxIntentBytes = 1 << 20
	DefaultMaxUploadBytes = 64 << 20
)

// Config holds configuration for the HTTP server.
type Config struct {
	Addr    string
	Pool    *session.Pool
	History *history.Store // nil disables the history endpoint
	Logger  *slog.Logger

	MaxIntentBytes int64
	MaxUploadBytes int64
}

// Server serves the dbpilot HTTP API.
type Server struct {
	addr      string
	pool      *session.Pool
	history   *history.Store
	logger    *slog.Logger
	maxIntent int64
	maxUpload int64
}

// New creates a server. The pool must not be nil.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		addr:      cfg.Addr,
		pool:      cfg.Pool,
		history:   cfg.History,
		logger:    logger,
		maxIntent: cfg.MaxIntentBytes,
		maxUpload: cfg.MaxUploadBytes,
	}
	if s.maxIntent <= 0 {
		s.maxIntent = DefaultMaxIntentBytes
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	return s
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/operations", s.handleOperations)
		r.Post("/intents", s.handleIntent)
		r.Post("/imports", s.handleImport)
		r.Get("/history", s.handleHistory)
		r.Get("/tables/{name}", s.handleTable)
		r.Post("/sessions", s.handleNewSession)
		r.Delete("/sessions/{id}", s.handleReleaseSession)
	})

	return r
}

// Serve listens on the configured address and blocks until ctx is
// cancelled. Every session is closed on the way out.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting API server", slog.String("addr", s.addr))

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server")
		err := srv.Shutdown(shutdownCtx)
		if cerr := s.pool.Close(shutdownCtx); cerr != nil && err == nil {
			err = cerr
		}
		return err
	})

	return eg.Wait()
}

// dispatcher binds a dispatcher to the request's session.
func (s *Server) dispatcher(r *http.Request) *dispatch.Dispatcher {
	opts := []dispatch.Option{dispatch.WithLogger(s.logger)}
	if s.history != nil {
		opts = append(opts, dispatch.WithRecorder(s.history))
	}
	return dispatch.New(s.pool.Get(r.Header.Get(SessionHeader)), opts...)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
