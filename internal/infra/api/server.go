package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/infra/api/apiv1"
)

// Pinger is anything /healthz should check, such as the pg pool or redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter mounts health, metrics and the guarded admin API.
func NewRouter(v1 *apiv1.Server, auth *AuthManager, checks map[string]Pinger, logger *zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		RequestLog(logger),
		Recover(logger),
		Timeout(10*time.Second),
	)

	r.Get("/healthz", healthHandler(checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin(auth, logger))
		apiv1.RegisterAPIV1(r, v1)
	})
	return r
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				http.Error(w, fmt.Sprintf("%s: unavailable", name), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// Server is the admin HTTP listener.
type Server struct {
	server *http.Server
	log    *zerolog.Logger
}

func NewServer(port int, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}
}

// Start blocks until the listener stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("admin http listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
