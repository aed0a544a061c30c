// Command telenode runs a node and talks to running nodes.
//
// Usage:
//
//	# Run a node with its control API
//	telenode start --name node --dir ./node-dir
//
//	# Drive it
//	telenode invoke spawn importer
//	telenode invoke spawn sink json -o export.write=-
//	telenode invoke spawn source zeek -o import.read='logs/*.log.gz'
//	telenode status --format yaml
//
//	# Mint a bearer token when AUTH_SECRET is set
//	telenode token --subject ops --ttl 24h
//
// Configuration comes from defaults, an optional --config file (YAML or
// TOML), the environment (NODE_NAME, PORT, LOG_LEVEL, AUTH_SECRET, ...)
// and flags, in increasing precedence.
package main
