// Package middleware holds the gin middleware of the control API: CORS,
// per-client rate limiting, bearer authentication and request IDs.
package middleware
