// Package client talks to a node's control API. Calls go through a circuit
// breaker so a dead node fails fast; errors returned by the node keep
// their dispatcher code.
package client
