package schema

// Kind classifies a property's storage shape. The first block are simple,
// fixed-width scalars; the second are indirect (handle-based) properties,
// per spec.md §3/§4.C2 ("simple primitives first ... then indirect slots").
type Kind int

const (
	KindBool Kind = iota
	KindInt32
	KindUInt32
	KindInt64
	KindUInt64
	KindFloat64
	KindDateTime // stored as an int64 unix-nanosecond slot

	// simpleKindCount is the number of simple kinds declared above; it is
	// also the first ordinal used for indirect kinds below.
	simpleKindCount
)

const (
	// KindStringHandle is a string property; its 8-byte slot holds either a
	// session string-pool index (when Modified/Inserted and the bit is set)
	// or an engine string handle.
	KindStringHandle Kind = simpleKindCount + iota
	// KindValueArray is a DatabaseArray<T> of simple-kind elements; its slot
	// holds an array handle (engine-owned) or index into the session's
	// locally-promoted array table.
	KindValueArray
	// KindReference is a direct reference to another class; its slot holds
	// the target id (0 = null).
	KindReference
	// KindReferenceArray is a ReferenceArray<T>; its slot holds an array
	// handle over target ids, same promotion rules as KindValueArray.
	KindReferenceArray
)

// IsSimple reports whether k is a fixed-width scalar (no indirection, no
// delete-action bookkeeping).
func (k Kind) IsSimple() bool {
	return k < simpleKindCount
}

// IsIndirect is the complement of IsSimple.
func (k Kind) IsIndirect() bool {
	return !k.IsSimple()
}

// IsReference reports whether k carries a target object id (Reference or
// ReferenceArray) and therefore participates in cascade/prevent/set-to-null
// bookkeeping and inverse-reference tracking.
func (k Kind) IsReference() bool {
	return k == KindReference || k == KindReferenceArray
}

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindUInt32:
		return "uint32"
	case KindInt64:
		return "int64"
	case KindUInt64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindDateTime:
		return "datetime"
	case KindStringHandle:
		return "string"
	case KindValueArray:
		return "array"
	case KindReference:
		return "reference"
	case KindReferenceArray:
		return "referencearray"
	default:
		return "unknown"
	}
}

// DeleteAction is the per-reference-edge policy applied to a referrer when
// its target is deleted (spec.md §4.C6, GLOSSARY).
type DeleteAction int

const (
	// DeleteActionNone applies to non-reference properties.
	DeleteActionNone DeleteAction = iota
	// DeleteActionCascadeDelete deletes the referrer too.
	DeleteActionCascadeDelete
	// DeleteActionPreventDelete aborts the delete if a live referrer exists.
	DeleteActionPreventDelete
	// DeleteActionSetToNull nulls out the reference (or filters the id out
	// of a reference array) instead of touching the referrer's lifecycle.
	DeleteActionSetToNull
)

func (a DeleteAction) String() string {
	switch a {
	case DeleteActionCascadeDelete:
		return "CascadeDelete"
	case DeleteActionPreventDelete:
		return "PreventDelete"
	case DeleteActionSetToNull:
		return "SetToNull"
	default:
		return "None"
	}
}
