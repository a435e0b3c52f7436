// Package engine defines the external boundary the object model core is
// built against (spec.md §6): the transactional MVCC storage engine, its
// class scans, indexes, and the changeset wire format used to flush
// buffered mutations. The core (recordbuf, schema, changelist, deleteset,
// idalloc, collection, index, objectmodel) only ever talks to these
// interfaces; boltengine is one concrete implementation used for tests and
// the demo server, not a dependency of the core itself.
package engine

import "context"

// TransactionKind selects read-only vs. read-write semantics for a session.
type TransactionKind int

const (
	Read TransactionKind = iota
	ReadWrite
)

// Engine is the storage engine boundary consumed by the object model
// session (spec.md §6 "Inbound (from the engine)").
type Engine interface {
	CreateTransaction(ctx context.Context, kind TransactionKind) (Transaction, error)
}

// Transaction is a single MVCC transaction handle.
type Transaction interface {
	// GetObject returns the object's canonical record buffer, or ok=false
	// if no such object exists.
	GetObject(classID uint32, id uint64) (buf []byte, ok bool, err error)
	// ObjectExists is a cheaper existence check used by reference setters
	// that only need to validate a target, not read it.
	ObjectExists(classID uint32, id uint64) (bool, error)
	// BeginClassScan opens a scan over every live instance of classID (and,
	// if includeDescendants, every descendant class too).
	BeginClassScan(classID uint32, includeDescendants bool) (ClassScan, error)
	// GetInverseReferences returns the net committed inverse-reference ids
	// for (id, propertyID) — i.e. every other object whose propertyID
	// currently points at id.
	GetInverseReferences(classID uint32, id uint64, propertyID int) ([]uint64, error)
	// ReserveIDRange hands back the first id of a freshly reserved,
	// contiguous range of the given size (spec.md §4.C1).
	ReserveIDRange(classID uint32, size uint32) (first uint64, err error)
	// ApplyChangeset submits a changeset for validation and durable
	// application without ending the transaction (spec.md §4.C6
	// ApplyChanges step 3). validateRefs asks the engine to reject the
	// changeset if it would leave a non-nullable reference dangling.
	ApplyChangeset(cs *Changeset, validateRefs bool) error
	// Commit finalizes the transaction.
	Commit() error
	// CommitAsync finalizes the transaction without blocking the caller;
	// cb is invoked with the commit error once it resolves.
	CommitAsync(cb func(error))
	// Rollback discards every change made in this transaction. Always
	// terminal and idempotent (spec.md §5).
	Rollback() error

	// StringHandle resolves an engine string handle to its value.
	StringHandle(handle uint64) (string, error)
	// InternString stores s in the engine's string store, returning a
	// handle valid after commit (used when refreshing session-local
	// strings into committed form during ApplyChanges).
	InternString(s string) (uint64, error)

	// HashIndex returns the named hash index reader for classID.
	HashIndex(classID uint32, name string) (HashIndex, error)
	// SortedIndex returns the named sorted index reader for classID.
	SortedIndex(classID uint32, name string) (SortedIndex, error)

	// ArrayData resolves an array/blob handle to its raw uint64 elements
	// (spec.md §6 "blob_store.get(handle) -> bytes"; array handles share
	// the blob store's shape, interpreted as a slice of fixed-width slots).
	ArrayData(handle uint64) ([]uint64, error)
	// InternArray stores values in the blob store, returning a handle
	// valid after commit.
	InternArray(values []uint64) (uint64, error)
}

// ClassScan iterates a class's live committed instances in engine-defined
// order (spec.md §6 "scan.next(buf) -> (batch_len, has_more)").
type ClassScan interface {
	// Next returns the next row (id, class id, buffer); ok is false once
	// the scan is exhausted.
	Next() (id uint64, classID uint32, buf []byte, ok bool, err error)
	Close() error
}

// HashIndex is a point-lookup index reader (spec.md §6).
type HashIndex interface {
	Lookup(key []byte) ([]uint64, error)
}

// SortedIndex is a range-capable index reader.
type SortedIndex interface {
	Range(low, high []byte) ([]uint64, error)
}
