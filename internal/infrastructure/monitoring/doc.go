/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the service,
tracking HTTP requests, browser sessions and tabs, proxy verification runs,
profile store calls and the UI event stream.

# Features

- HTTP request metrics (latency, throughput, size)
- Session and tab gauges
- Proxy verification attempts and final statuses
- Profile store call metrics (duration, status)
- Event and WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector on its own registry
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Time operations
	timer := monitoring.NewTimer(metrics, "profiles", "get")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
