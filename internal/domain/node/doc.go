// Package node implements the orchestration core of a telenode process.
//
// A Node is an actor that owns the component registry and the resolved
// factory and command tables. Every registry mutation happens on the node
// goroutine, so spawns, kills and crash reaping never interleave.
//
// Components:
//   - Node: goroutine-safe facade posting messages into the node mailbox
//   - Control: node state, handed explicitly to every command handler
//   - Commands: name → handler table (kill, send, status, spawn …)
//   - Spawn pipeline: label selection, option overlay, factory call,
//     monitoring and registration
//   - Status aggregator: scatter-gather with per-request timeout
//   - Shutdown sequencer: ordered sequential teardown on node exit
//
// Example Usage:
//
//	n, err := node.Start(ctx, sys, node.Options{
//	    Name:       "node",
//	    Dir:        "telenode.db",
//	    Components: providers.Components(),
//	    Filesystem: filesystem.Factory,
//	})
//	out, err := n.Invoke(ctx, types.Invocation{FullName: "spawn importer"})
//	err = n.Stop(ctx)
package node
