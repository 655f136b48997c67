// Package httpapi serves the JSON API: aggregated search, the local catalog,
// reviews, stats and Prometheus metrics.
package httpapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/lepinkainen/bookfinder/internal/catalog"
	"github.com/lepinkainen/bookfinder/internal/search"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRateLimit is the per-IP request budget per minute on /api.
const DefaultRateLimit = 120

// Server holds the dependencies of the API handlers.
type Server struct {
	search    *search.Service
	library   *catalog.Library
	rateLimit int
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit sets the per-IP requests per minute; 0 or less disables limiting.
func WithRateLimit(n int) Option {
	return func(s *Server) {
		s.rateLimit = n
	}
}

// NewServer creates the API over svc and lib.
func NewServer(svc *search.Service, lib *catalog.Library, opts ...Option) *Server {
	s := &Server{
		search:    svc,
		library:   lib,
		rateLimit: DefaultRateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(clientIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestMetrics)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
		}

		r.Get("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Get("/admin/logs", s.handleActivityLog)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Post("/", s.handleUpload)
			r.Post("/import", s.handleImport)
			r.Get("/{id}", s.handleGetBook)
			r.Delete("/{id}", s.handleDeleteBook)
			r.Get("/{id}/download", s.handleDownload)
			r.Get("/{id}/cover", s.handleCover)
			r.Get("/{id}/reviews", s.handleListReviews)
			r.Post("/{id}/reviews", s.handleAddReview)
		})
	})

	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("Shutting down API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
