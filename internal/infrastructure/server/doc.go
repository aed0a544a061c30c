// Package server assembles the control API router and runs the HTTP
// server with graceful shutdown.
package server
