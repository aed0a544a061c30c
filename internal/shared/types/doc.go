// Package types provides shared data structures for the node runtime.
//
// Core Types:
//   - Invocation: parsed command request (name, options, arguments)
//   - Settings: nested option map with dotted-path access
//   - Component: a supervised actor plus its type and label
//   - Batch: a table slice of events flowing through the pipeline
//   - Error: typed error carrying one of the node error codes
//
// Example Usage:
//
//	inv := types.Invocation{
//	    FullName:  "spawn source csv",
//	    Options:   types.Settings{"import": types.Settings{"read": "conn.csv"}},
//	    Arguments: nil,
//	}
//	path := inv.Options.GetString("import.read", "-")
package types
