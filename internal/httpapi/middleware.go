package httpapi

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/lepinkainen/bookfinder/internal/catalog"
	"github.com/lepinkainen/bookfinder/internal/metrics"
)

// clientIP puts the caller's address, as resolved by RealIP, into the
// request context for the activity log.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(catalog.WithClientIP(r.Context(), ip)))
	})
}

// requestMetrics records every request by its route pattern, so /api/books/1
// and /api/books/2 share a series.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		metrics.RecordAPIRequest(r.Method, route, status, duration)
		slog.Debug("HTTP request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", duration,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
