package objectmodel

import "fmt"

// Sentinel errors correspond 1:1 to the recoverable error kinds of
// spec.md §7. They are returned, never panicked; the session remains
// usable after any of them except where noted.
var (
	// ErrInvalidObjectType is returned by CreateObject for an unknown or
	// abstract class name.
	ErrInvalidObjectType = fmt.Errorf("objectmodel: invalid object type")
	// ErrObjectDisposed is returned by any operation on a disposed session.
	ErrObjectDisposed = fmt.Errorf("objectmodel: session is disposed")
	// ErrWrongThread is returned when a session is used from a goroutine
	// other than the one that created it.
	ErrWrongThread = fmt.Errorf("objectmodel: session accessed from wrong goroutine")
	// ErrDeletedObjectAccess is returned by a getter/setter/reference
	// traversal on a wrapper flagged Deleted.
	ErrDeletedObjectAccess = fmt.Errorf("objectmodel: access to deleted object")
	// ErrAbandonedObjectAccess is returned by any operation on a wrapper
	// flagged Abandoned.
	ErrAbandonedObjectAccess = fmt.Errorf("objectmodel: access to abandoned object")
	// ErrReadTranWriteAttempt is returned by any mutating call on a session
	// opened with engine.Read.
	ErrReadTranWriteAttempt = fmt.Errorf("objectmodel: write attempted in a read transaction")
	// ErrIdExhausted is returned when the id allocator cannot reserve a
	// fresh range.
	ErrIdExhausted = fmt.Errorf("objectmodel: id allocator exhausted")
	// ErrCrossModelReference is returned when a wrapper from a different
	// session is passed where this session's own wrapper is expected.
	ErrCrossModelReference = fmt.Errorf("objectmodel: reference to object from a different session")
	// ErrObjectNotFound is returned by GetObjectStrict when no such object
	// exists.
	ErrObjectNotFound = fmt.Errorf("objectmodel: object not found")
)

// PreventDeleteError is spec.md §7's PreventDeletedReferenced: raised when
// a cascade-delete fixpoint reaches a live referrer across a PreventDelete
// edge. The session that produced it is disposed before the error is
// returned.
type PreventDeleteError struct {
	ReferrerID   uint64
	PropertyName string
}

func (e *PreventDeleteError) Error() string {
	return fmt.Sprintf("objectmodel: delete prevented: referenced by object %d via property %q",
		e.ReferrerID, e.PropertyName)
}

// CriticalEngineError wraps an unclassified error from the storage engine.
// Per spec.md §7, any such error disposes the session that received it.
type CriticalEngineError struct {
	Cause error
}

func (e *CriticalEngineError) Error() string {
	return fmt.Sprintf("objectmodel: critical engine error: %v", e.Cause)
}

func (e *CriticalEngineError) Unwrap() error { return e.Cause }
