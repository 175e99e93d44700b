// Package server implements the local studio: a JSON and PNG API over the
// template registry, editing sessions, previews and exports.
//
// The server is meant to run on the loopback interface next to a browser
// UI. It keeps sessions in memory and persists nothing.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/templatestudio/pkg/pipeline"
	"github.com/matzehuels/templatestudio/pkg/scene"
	"github.com/matzehuels/templatestudio/pkg/session"
	"github.com/matzehuels/templatestudio/pkg/template"
)

// Options wires the server to the rest of the studio.
type Options struct {
	Registry *template.Registry
	Sessions *session.Manager
	Exporter session.Exporter
	Previews *pipeline.Runner

	// Loader fetches images for one-shot exports. Sessions carry their own.
	Loader scene.Loader
	Logger *log.Logger

	// CleanupInterval is how often idle sessions are dropped while serving.
	// Zero means every ten minutes.
	CleanupInterval time.Duration
}

// Server serves the studio API.
type Server struct {
	opts    Options
	logger  *log.Logger
	handler http.Handler
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 10 * time.Minute
	}
	s := &Server{opts: opts, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Get("/{id}", s.getTemplate)
		r.Get("/{id}/preview.png", s.templatePreview)
		r.Post("/{id}/export", s.exportTemplate)
	})
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/{id}", s.getSession)
		r.Delete("/{id}", s.deleteSession)
		r.Put("/{id}/template", s.selectTemplate)
		r.Put("/{id}/fields/{key}", s.commitField)
		r.Get("/{id}/preview.png", s.sessionPreview)
		r.Post("/{id}/export", s.exportSession)
	})

	s.handler = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.cleanup(ctx)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("studio listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) cleanup(ctx context.Context) {
	if s.opts.Sessions == nil {
		return
	}
	t := time.NewTicker(s.opts.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.opts.Sessions.Cleanup(); n > 0 {
				s.logger.Debug("dropped idle sessions", "count", n)
			}
		}
	}
}

// requestLogger logs every request at debug level.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request", middleware.GetReqID(r.Context()))
		})
	}
}
