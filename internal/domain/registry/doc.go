// Package registry tracks the components a node supervises.
//
// The Registry maps unique labels to components and keeps a per-type index
// in insertion order. It is a plain data structure without locking: the
// node goroutine is its only reader and writer.
//
// Invariants:
//   - A label maps to at most one component
//   - Every component sits in exactly one type bucket
//   - Singleton types (accountant, archive, eraser, filesystem, importer,
//     index, type-registry) are enforced by the caller via IsSingleton
//
// Example Usage:
//
//	reg := registry.New()
//	label := reg.NextLabel("source")          // "source-1"
//	ok := reg.Add(handle, "source", label)
//	handles := reg.FindByType("source")
//	reg.Remove(handle)
package registry
