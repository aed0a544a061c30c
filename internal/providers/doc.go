// Package providers assembles the built-in pipeline components.
//
// Components are spawned by the node through a factory table keyed by the
// full spawn command:
//
//	spawn accountant            singleton, published as "accountant"
//	spawn importer              singleton
//	spawn archive               singleton
//	spawn index                 singleton
//	spawn type-registry         singleton
//	spawn source <format>       csv, json, suricata, syslog, test, zeek
//	spawn sink <format>         ascii, csv, json, zeek
//	spawn eraser                singleton
//	spawn exporter|counter|explorer|pivoter
//
// The filesystem is not spawnable; the node creates it at start-up with
// Filesystem.
//
// Example Usage:
//
//	n, err := node.Start(ctx, sys, node.Options{
//		Name:       "node",
//		Dir:        dir,
//		Components: providers.Components(),
//		Filesystem: providers.Filesystem,
//	})
package providers
