package objectmodel

import (
	"github.com/veloxdb/veloxdb/pkg/velox/collection"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

// Flags is the wrapper state set of spec.md §3: "a flag set drawn from
// {Read, Modified, Deleted, Inserted, Abandoned, NotConstructedFully,
// Selected}". They are not mutually exclusive — e.g. Inserted|Deleted is
// reachable when an object created and deleted in the same session.
type Flags uint8

const (
	FlagRead Flags = 1 << iota
	FlagModified
	FlagDeleted
	FlagInserted
	FlagAbandoned
	FlagNotConstructedFully
	FlagSelected
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// Wrapper is the single concrete entity wrapper spec.md §9 calls for in
// place of the source's generated-subclass-per-class design: one struct,
// parameterised at runtime by a class descriptor pointer, covers every
// class. Property access goes through schema.Get*/Set* helpers against
// Buf; collection-typed properties cache their wrapper in arrays/refArrays/
// inverseSets, keyed by property index, so repeated access returns the
// same collection.Value/Reference/InverseReferenceSet instance within one
// wrapper's lifetime.
type Wrapper struct {
	id    uint64
	class *schema.ClassDescriptor
	buf   recordbuf.Buffer
	flags Flags

	sess *Session

	arrays      map[int]any // property index -> *collection.ValueArray[T]
	refArrays   map[int]*collection.ReferenceArray
	inverseSets map[int]*collection.InverseReferenceSet
}

func newWrapper(sess *Session, class *schema.ClassDescriptor, buf recordbuf.Buffer, flags Flags) *Wrapper {
	return &Wrapper{id: buf.ID(class.BitmapBytes), class: class, buf: buf, flags: flags, sess: sess}
}

// ID returns the object's identity.
func (w *Wrapper) ID() uint64 { return w.id }

// ClassID implements changelist.Entry.
func (w *Wrapper) ClassID() uint32 { return w.class.ClassID }

// Class returns the object's class descriptor.
func (w *Wrapper) Class() *schema.ClassDescriptor { return w.class }

// Buffer exposes the current record buffer for use with the schema
// package's Get*/Set* accessors.
func (w *Wrapper) Buffer() recordbuf.Buffer { return w.buf }

func (w *Wrapper) IsRead() bool                { return w.flags.has(FlagRead) }
func (w *Wrapper) IsModified() bool            { return w.flags.has(FlagModified) }
func (w *Wrapper) IsDeleted() bool             { return w.flags.has(FlagDeleted) }
func (w *Wrapper) IsCreated() bool             { return w.flags.has(FlagInserted) }
func (w *Wrapper) IsAbandoned() bool           { return w.flags.has(FlagAbandoned) }
func (w *Wrapper) isNotConstructedFully() bool { return w.flags.has(FlagNotConstructedFully) }

// IsSelected reports the marker spec.md §9's Open Questions leaves as "an
// observable boolean without further contract"; callers use it for
// DTO-shaping decisions of their own.
func (w *Wrapper) IsSelected() bool { return w.flags.has(FlagSelected) }

// Select flips the Selected marker on.
func (w *Wrapper) Select() { w.flags |= FlagSelected }

// Delete marks the wrapper for cascading deletion; see Session.DeleteObject.
func (w *Wrapper) Delete() error { return w.sess.DeleteObject(w, true) }

// Abandon detaches the wrapper from the identity map without affecting
// engine state: subsequent access through it fails with
// ErrAbandonedObjectAccess, and a fresh GetObject call will re-materialise
// a new wrapper for the same id.
func (w *Wrapper) Abandon() error { return w.sess.abandonObject(w) }

func (w *Wrapper) ownsBuffer() bool { return w.flags.has(FlagInserted) || w.flags.has(FlagModified) }
