// Package paths names the files a node keeps below its state directory.
//
// Paths are slash-separated and relative to the node directory; the
// filesystem component resolves them against its root.
//
// # Directory Structure
//
//	<node dir>/
//	  ├── accountant/      (snap_<ulid>.jsonl snapshots)
//	  ├── archive/         (seg_<ulid>.cbor.zst segments)
//	  ├── importer/
//	  │   └── next-id      (next event ID)
//	  └── type-registry/
//	      └── types.yaml   (known schemas)
//
// # Usage
//
//	fs.Request(ctx, filesystem.Write{Path: paths.Segment(segID), Data: data})
//
//	if err := paths.ValidateID(segID); err != nil {
//	    // reject
//	}
package paths
