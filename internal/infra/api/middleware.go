package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
)

type Middleware func(http.Handler) http.Handler

func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := r.Header.Get("X-Request-ID")
			if tid == "" {
				tid = logging.NewTraceID()
			}
			w.Header().Set("X-Request-ID", tid)
			ctx := logging.WithTraceID(r.Context(), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logging.With(r.Context(), logger)
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests without a valid admin bearer token. With no
// secret configured every request is refused.
func RequireAdmin(auth *AuthManager, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if auth == nil || !auth.Enabled() {
				metrics.IncAdminRequest(route, "disabled")
				logging.With(r.Context(), logger).Error().Msg("admin jwt secret is not configured")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			claims, err := auth.ParseFromRequest(r)
			if err != nil {
				metrics.IncAdminRequest(route, "unauthorized")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if claims.Role != RoleAdmin {
				metrics.IncAdminRequest(route, "forbidden")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			metrics.IncAdminRequest(route, "authorized")
			next.ServeHTTP(w, r)
		})
	}
}
