/*
Package actor provides the execution substrate for node components.

# Overview

Every component (and the node itself) runs as an Actor: one goroutine that
drains a private FIFO mailbox. No actor ever observes two messages at once,
and actors never share mutable state; they talk through Send (fire and
forget) and Request/Ask (round trip backed by a promise).

# Lifecycle

	sys := actor.NewSystem(logger)
	a := sys.Spawn("importer", behavior)
	ref := a.Monitor(func(d actor.Down) { ... })
	err := a.Terminate(ctx)

Stop enqueues an exit marker behind the messages already queued, so a
stopping actor drains its mailbox first. Once the marker is reached the
actor context is cancelled, the optional Terminator hook runs, pending
requests fail with ErrExited and monitors receive a Down notification.

A panic inside Receive terminates the actor with an error. That is the
"unexpected death" monitors are meant to observe.

# Well-known handles

System keeps a small directory of process-wide handles (for example the
accountant and the filesystem) that components resolve by name.
*/
package actor
