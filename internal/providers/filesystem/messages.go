package filesystem

// Write stores Data at Path, creating intermediate directories. Replies
// actor.OK.
type Write struct {
	Path string
	Data []byte
}

// Read returns the contents of Path as []byte.
type Read struct {
	Path string
}

// MMap maps Path read-only and returns the mapping as []byte.
type MMap struct {
	Path string
}

// Unmap releases a mapping returned by MMap. Replies actor.OK. The bytes
// must not be used afterwards.
type Unmap struct {
	Data []byte
}
