package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"vidaq/internal/logging"
	"vidaq/internal/services"
)

const requestIDHeader = "X-Request-Id"

// requestID honours an inbound X-Request-Id and mints one otherwise. The id is
// stored under chi's key and as the logging correlation id, and echoed back.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, rid)
		ctx = services.WithRequestID(ctx, rid)
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// observe logs and counts each request once the handler returns.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routePattern(r)
			s.metrics.ObserveHTTP(route, status, elapsed)

			logger := logging.WithContext(ctx, s.logger)
			attrs := []logging.Attr{
				logging.String("method", r.Method),
				logging.String("route", route),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Int("bytes", ww.BytesWritten()),
				logging.Duration("elapsed", elapsed),
				logging.String("remote", r.RemoteAddr),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("http request failed", logging.Args(attrs...)...)
				return
			}
			logger.Debug("http request", logging.Args(attrs...)...)
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern keeps metric label cardinality bounded by using the matched
// chi pattern rather than the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
