/*
Package monitoring provides metrics collection for the node.

# Overview

This package implements Prometheus-based metrics collection tracking the
component lifecycle (spawns, kills, crashes), dispatched commands, status
aggregation failures, shutdown duration and HTTP traffic of the control
API. Each Metrics value owns its own registry, so several nodes can live in
one process.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record lifecycle events
	metrics.RecordSpawn("importer")
	metrics.SetComponentsActive(5)

	// Time commands
	timer := monitoring.NewTimer(metrics, "spawn source csv")
	// ... dispatch ...
	timer.Stop("ok")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
