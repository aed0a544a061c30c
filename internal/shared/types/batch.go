package types

import "sync/atomic"

var batchInstances atomic.Int64

// BatchInstances returns the number of live batches in the process.
func BatchInstances() int64 {
	return batchInstances.Load()
}

// Event is one row of a batch.
type Event []any

// Batch is a table slice: rows sharing one schema. Batches are shared
// read-only between consumers; each consumer calls Release once.
type Batch struct {
	Schema  string   `cbor:"1,keyasint" json:"schema"`
	Fields  []string `cbor:"2,keyasint" json:"fields"`
	Rows    []Event  `cbor:"3,keyasint" json:"rows"`
	FirstID uint64   `cbor:"4,keyasint" json:"first_id"`

	refs atomic.Int32
}

// NewBatch allocates a tracked batch with one reference.
func NewBatch(schema string, fields []string, rows []Event) *Batch {
	batchInstances.Add(1)
	b := &Batch{Schema: schema, Fields: fields, Rows: rows}
	b.refs.Store(1)
	return b
}

// Retain adds n references for additional consumers.
func (b *Batch) Retain(n int) {
	b.refs.Add(int32(n))
}

// Len returns the number of rows.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// Release drops one reference. The last one removes the batch from the
// instance count; releasing more often than retained is a no-op.
func (b *Batch) Release() {
	for {
		n := b.refs.Load()
		if n <= 0 {
			return
		}
		if b.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				batchInstances.Add(-1)
			}
			return
		}
	}
}

// Record returns row i as a field map.
func (b *Batch) Record(i int) map[string]any {
	out := make(map[string]any, len(b.Fields))
	for j, f := range b.Fields {
		if j < len(b.Rows[i]) {
			out[f] = b.Rows[i][j]
		}
	}
	return out
}
