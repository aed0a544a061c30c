// Package pipeline implements the components between sources and sinks:
// the importer, the index, the type registry and the query stages.
//
// Batches flow source -> importer -> {archive, index, sinks}. The importer
// retains one reference per consumer; every consumer releases its own.
package pipeline
