package paths

import (
	"fmt"
	"path"
	"strings"
)

// Component directories
const (
	Accountant   = "accountant"
	Archive      = "archive"
	Importer     = "importer"
	TypeRegistry = "type-registry"
)

// Well-known files
const (
	// ImporterNextID holds the next event ID as a decimal line.
	ImporterNextID = Importer + "/next-id"

	// Types holds the type registry as YAML.
	Types = TypeRegistry + "/types.yaml"
)

// File extensions
const (
	SegmentExt  = ".cbor.zst"
	SnapshotExt = ".jsonl"
)

// Segment returns the path of archive segment id.
func Segment(id string) string {
	return path.Join(Archive, id+SegmentExt)
}

// Snapshot returns the path of accountant snapshot id.
func Snapshot(id string) string {
	return path.Join(Accountant, id+SnapshotExt)
}

// ValidateID checks that id can name a file without leaving its directory.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("id %q cannot contain path separators", id)
	}
	if id == "." || id == ".." || path.Clean(id) != id {
		return fmt.Errorf("id %q contains invalid path components", id)
	}
	return nil
}
