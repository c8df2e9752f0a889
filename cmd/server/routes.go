// Package main provides the Glasir timetable API server entry point.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glasirfo/glasir-api-go/internal/api"
	"github.com/glasirfo/glasir-api-go/internal/config"
)

// setupRoutes configures all HTTP routes
func setupRoutes(router *gin.Engine, handler *api.Handler, cfg *config.Config, registry *prometheus.Registry) {
	// Service banner
	rootHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "glasir-api",
			"status":  "ok",
		})
	}
	router.GET("/", rootHandler)
	router.HEAD("/", rootHandler)

	// Liveness probe - only checks that the process is serving.
	// This should NEVER check dependencies.
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness probe - checks the upstream site answers at all. No
	// session is involved; any HTTP status short of a 5xx counts as up.
	readyHandler := func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		upstreamUp := false
		req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, cfg.BaseURL, http.NoBody)
		if err == nil {
			if resp, err := http.DefaultClient.Do(req); err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode < 500 {
					upstreamUp = true
				}
			}
		}

		status := http.StatusOK
		state := "ready"
		if !upstreamUp {
			status = http.StatusServiceUnavailable
			state = "not ready"
		}
		c.JSON(status, gin.H{
			"status":   state,
			"upstream": upstreamUp,
		})
	}
	router.GET("/ready", readyHandler)
	router.HEAD("/ready", readyHandler)

	// Timetable routes
	handler.Register(router)

	// Prometheus metrics endpoint, optionally behind basic auth
	metricsHandler := gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.MetricsAuthEnabled && cfg.MetricsPassword != "" {
		authorized := router.Group("/", gin.BasicAuth(gin.Accounts{
			cfg.MetricsUsername: cfg.MetricsPassword,
		}))
		authorized.GET("/metrics", metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}
}
