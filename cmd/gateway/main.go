// Command gateway serves the signup submission pipeline: CSRF issuance and
// validation, bearer authentication against the backend data service, and
// the three-strategy submission fallback.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/harborlane/signup-gateway/internal/backend"
	"github.com/harborlane/signup-gateway/internal/config"
	"github.com/harborlane/signup-gateway/internal/credentials"
	"github.com/harborlane/signup-gateway/internal/logging"
	"github.com/harborlane/signup-gateway/internal/metrics"
	"github.com/harborlane/signup-gateway/internal/middleware"
	"github.com/harborlane/signup-gateway/internal/submission"
)

const serviceName = "signup-gateway"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)
	m := metrics.New("signup_gateway")

	var markup []byte
	if cfg.MarkupDocument != "" {
		markup, err = os.ReadFile(cfg.MarkupDocument)
		if err != nil {
			logger.WithError(err).Warn("Markup document unreadable, markup credential source disabled")
			markup = nil
		}
	}

	resolver := credentials.NewResolver(logger, m, credentials.CandidatesForMode(cfg, markup))
	factory := backend.NewFactory(resolver, logger, m, cfg.RequestTimeout)

	guard := middleware.NewCSRFGuard(cfg.CSRFTTL, cfg.CSRFSecure, logger)
	gate := middleware.NewAuthGate(factory, logger)

	// The service key exists only on a live server; in static mode the
	// API-mediated strategy reports itself unavailable.
	serviceKey := cfg.BackendServiceKey
	if cfg.Mode != config.ModeServer {
		serviceKey = ""
	}

	router := submission.NewRouter(logger, m,
		submission.NewAPIStrategy(factory, cfg.BackendURL, serviceKey, cfg.SubmissionTable, logger),
		submission.NewDirectStrategy(factory, cfg.SubmissionTable, logger),
		submission.NewStorageStrategy(factory, cfg.StorageBuckets, logger),
	)

	handler := newRouter(cfg, logger, m, resolver, guard, gate, router)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("Gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
	logger.Info("Gateway stopped")
}

// newRouter builds the route table. The CSRF guard wraps the auth gate on
// the mutating endpoint: a forged or stale token short-circuits before any
// identity verification call.
func newRouter(
	cfg *config.Config,
	logger *logging.Logger,
	m *metrics.Metrics,
	resolver *credentials.Resolver,
	guard *middleware.CSRFGuard,
	gate *middleware.AuthGate,
	router *submission.Router,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.MetricsMiddleware(serviceName, m))

	r.HandleFunc("/health", healthHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/csrf", csrfTokenHandler(guard, logger)).Methods(http.MethodGet)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, logger)
	submit := guard.Validate(gate.RequireAuth(signupHandler(router)))
	api.Handle("/signup", limiter.Handler(submit)).Methods(http.MethodPost, http.MethodOptions)

	// Diagnostic endpoint: dynamic-server deployments only.
	if cfg.Mode == config.ModeServer {
		api.HandleFunc("/diagnostics/credentials", credentialIntrospectionHandler(resolver, cfg)).Methods(http.MethodGet)
	}

	return r
}
