// Package filesystem implements the node's file-system component.
//
// All paths are relative to the node directory. The component serializes
// every operation through its mailbox; mapped regions stay valid until the
// component exits.
package filesystem
