// Package main provides the Glasir timetable API server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/glasirfo/glasir-api-go/internal/api"
	"github.com/glasirfo/glasir-api-go/internal/config"
	"github.com/glasirfo/glasir-api-go/internal/glasir"
	"github.com/glasirfo/glasir-api-go/internal/logger"
	"github.com/glasirfo/glasir-api-go/internal/metrics"
	"github.com/glasirfo/glasir-api-go/internal/sentry"
	"github.com/glasirfo/glasir-api-go/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting Glasir timetable API")

	// Initialize Sentry error reporting (optional)
	if cfg.SentryEnabled {
		err := sentry.Initialize(sentry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			Release:          cfg.SentryRelease,
			SampleRate:       cfg.SentrySampleRate,
			TracesSampleRate: cfg.SentryTracesSampleRate,
		})
		if err != nil {
			log.WithError(err).Warn("Sentry initialization failed, continuing without error reporting")
		} else {
			defer sentry.Flush(2 * time.Second)
			log.WithField("environment", cfg.SentryEnvironment).Info("Sentry initialized")
		}
	}

	// Create Prometheus registry with Go and process collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())

	m := metrics.New(registry)
	log.Info("Metrics initialized")

	// Upstream client, teacher cache, and the extraction orchestrator
	client := glasir.NewClient(glasir.ClientConfig{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.UpstreamTimeout,
		MaxRetries:    cfg.MaxRetries,
		BackoffFactor: cfg.BackoffFactor,
	}, log, m)
	log.WithField("base_url", cfg.BaseURL).Info("Upstream client created")

	teacherCache := glasir.NewTeacherCache(cfg.TeacherCacheTTL, log, m)
	svc := service.New(cfg, client, teacherCache, log, m)
	handler := api.NewHandler(svc, log, m)

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))

	// Setup routes
	setupRoutes(router, handler, cfg, registry)

	// Create HTTP server. The write timeout is generous because a full
	// multi-week extraction runs inside the response window.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.ServerHTTPRead,
		WriteTimeout: config.ServerHTTPWrite,
		IdleTimeout:  config.ServerHTTPIdle,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
