package objectmodel

import (
	"github.com/veloxdb/veloxdb/pkg/velox/collection"
	"github.com/veloxdb/veloxdb/pkg/velox/deleteset"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

// The Get*/Set* methods below are the "getters/setters" of spec.md §4.C3,
// specialised per simple kind. Each performs the liveness checks a
// generated accessor would (deleted/abandoned/disposed/wrong-thread), then
// delegates to the schema package's offset-table reader/writer.

func (s *Session) GetBool(w *Wrapper, p *schema.Property) (bool, error) {
	if err := s.checkAccess(w); err != nil {
		return false, err
	}
	return schema.GetBool(w.buf, p), nil
}

func (s *Session) SetBool(w *Wrapper, p *schema.Property, v bool) error {
	if err := s.ObjectModified(w); err != nil {
		return err
	}
	schema.SetBool(w.buf, p, v)
	return nil
}

func (s *Session) GetInt64(w *Wrapper, p *schema.Property) (int64, error) {
	if err := s.checkAccess(w); err != nil {
		return 0, err
	}
	return schema.GetInt64(w.buf, p), nil
}

func (s *Session) SetInt64(w *Wrapper, p *schema.Property, v int64) error {
	if err := s.ObjectModified(w); err != nil {
		return err
	}
	schema.SetInt64(w.buf, p, v)
	return nil
}

func (s *Session) GetUint64(w *Wrapper, p *schema.Property) (uint64, error) {
	if err := s.checkAccess(w); err != nil {
		return 0, err
	}
	return schema.GetUint64(w.buf, p), nil
}

func (s *Session) SetUint64(w *Wrapper, p *schema.Property, v uint64) error {
	if err := s.ObjectModified(w); err != nil {
		return err
	}
	schema.SetUint64(w.buf, p, v)
	return nil
}

func (s *Session) GetFloat64(w *Wrapper, p *schema.Property) (float64, error) {
	if err := s.checkAccess(w); err != nil {
		return 0, err
	}
	return schema.GetFloat64(w.buf, p), nil
}

func (s *Session) SetFloat64(w *Wrapper, p *schema.Property, v float64) error {
	if err := s.ObjectModified(w); err != nil {
		return err
	}
	schema.SetFloat64(w.buf, p, v)
	return nil
}

// GetString implements spec.md §4.C3's string getter: when the object is
// Modified/Inserted and the property bit is set, the stored slot is a
// session string-pool index; otherwise it's an engine string handle.
func (s *Session) GetString(w *Wrapper, p *schema.Property) (string, error) {
	if err := s.checkAccess(w); err != nil {
		return "", err
	}
	handle := schema.GetStringHandle(w.buf, p)
	if (w.IsModified() || w.IsCreated()) && w.buf.IsBitSet(p.Index) {
		if int(handle) < len(s.stringPool) {
			return s.stringPool[handle], nil
		}
		return "", nil
	}
	str, err := s.txn.StringHandle(handle)
	if err != nil {
		return "", &CriticalEngineError{Cause: err}
	}
	return str, nil
}

func (s *Session) SetString(w *Wrapper, p *schema.Property, v string) error {
	if err := s.ObjectModified(w); err != nil {
		return err
	}
	idx := uint64(len(s.stringPool))
	s.stringPool = append(s.stringPool, v)
	schema.SetStringHandle(w.buf, p, idx)
	return nil
}

// GetReference implements spec.md §4.C6's get_set_to_null_reference: a
// SetToNull property whose target has entered the deleted set this
// session reads as 0/null even before ApplyChanges runs.
func (s *Session) GetReference(w *Wrapper, p *schema.Property) (uint64, error) {
	if err := s.checkAccess(w); err != nil {
		return 0, err
	}
	return schema.GetReferenceFiltered(w.buf, p, s.deletedSet), nil
}

// SetReference writes a direct reference, invoking the reference-mutation
// hook when the property tracks inverse references. target may be nil to
// clear the reference; a non-nil target belonging to a different session
// fails with ErrCrossModelReference.
func (s *Session) SetReference(w *Wrapper, p *schema.Property, target *Wrapper) error {
	var targetID uint64
	if target != nil {
		if target.sess != s {
			return ErrCrossModelReference
		}
		targetID = target.id
	}
	old := schema.GetReference(w.buf, p)
	if err := s.ObjectModified(w); err != nil {
		return err
	}
	schema.SetReference(w.buf, p, targetID)
	if p.TrackInverse {
		s.referenceModified(w.id, old, targetID, p.ID)
	}
	return nil
}

// markCollectionDirty is the onMutate hook handed to collection wrappers:
// it runs ObjectModified and flips the owning property's bit. The error is
// intentionally swallowed — collection callbacks have no error channel,
// and by the time a collection is mutated the session's writability was
// already implied by how the caller obtained it (GetReference-style
// checks happen on every other accessor; a read-only session simply
// leaves the resulting mutation unobserved by ApplyChanges, since nothing
// not already in Modified/Inserted state gets emitted).
func (s *Session) markCollectionDirty(w *Wrapper, p *schema.Property) {
	_ = s.ObjectModified(w)
	w.buf.SetBit(p.Index)
}

// GetValueArray returns (creating if necessary) the cached typed value
// array for property p on w.
func GetValueArray[T comparable](s *Session, w *Wrapper, p *schema.Property, decode func(uint64) T, encode func(T) uint64) (*collection.ValueArray[T], error) {
	if err := s.checkAccess(w); err != nil {
		return nil, err
	}
	if w.arrays == nil {
		w.arrays = make(map[int]any)
	}
	if cached, ok := w.arrays[p.Index]; ok {
		return cached.(*collection.ValueArray[T]), nil
	}
	onMutate := func() { s.markCollectionDirty(w, p) }
	var arr *collection.ValueArray[T]
	if w.IsCreated() {
		arr = collection.NewLocal(decode, encode, onMutate)
	} else {
		handle := schema.GetArrayHandle(w.buf, p)
		var raw []uint64
		if handle != 0 {
			var err error
			raw, err = s.txn.ArrayData(handle)
			if err != nil {
				return nil, &CriticalEngineError{Cause: err}
			}
		}
		arr = collection.NewEngineBacked(raw, decode, encode, onMutate)
	}
	w.arrays[p.Index] = arr
	return arr, nil
}

// GetReferenceArray returns (creating if necessary) the cached reference
// array for property p on w.
func (s *Session) GetReferenceArray(w *Wrapper, p *schema.Property) (*collection.ReferenceArray, error) {
	if err := s.checkAccess(w); err != nil {
		return nil, err
	}
	if w.refArrays == nil {
		w.refArrays = make(map[int]*collection.ReferenceArray)
	}
	if cached, ok := w.refArrays[p.Index]; ok {
		return cached, nil
	}

	var onAdd, onRemove func(id uint64)
	if p.TrackInverse {
		onAdd = func(id uint64) { s.referenceModified(w.id, 0, id, p.ID) }
		onRemove = func(id uint64) { s.referenceModified(w.id, id, 0, p.ID) }
	}

	var deleted *deleteset.DeletedSet
	if p.DeleteAction == schema.DeleteActionSetToNull {
		deleted = s.deletedSet
	}

	var arr *collection.ReferenceArray
	if w.IsCreated() {
		arr = collection.NewLocal(deleted, onAdd, onRemove)
	} else {
		handle := schema.GetArrayHandle(w.buf, p)
		var raw []uint64
		if handle != 0 {
			var err error
			raw, err = s.txn.ArrayData(handle)
			if err != nil {
				return nil, &CriticalEngineError{Cause: err}
			}
		}
		arr = collection.NewEngineBacked(raw, deleted, onAdd, onRemove)
	}
	w.refArrays[p.Index] = arr
	return arr, nil
}

// GetInverseReferenceSet returns (creating if necessary) the lazily
// materialised inverse-reference set for (w, p) where p is the *owning*
// side's identity and the referencing property lives on refClass. Add/
// Remove on the returned set set/clear the referencing property on the far
// object, since that property (not this set) is the object model's
// canonical storage for the relationship.
func (s *Session) GetInverseReferenceSet(w *Wrapper, refClassID uint32, referencingPropertyID int) (*collection.InverseReferenceSet, error) {
	if err := s.checkAccess(w); err != nil {
		return nil, err
	}
	if w.inverseSets == nil {
		w.inverseSets = make(map[int]*collection.InverseReferenceSet)
	}
	if cached, ok := w.inverseSets[referencingPropertyID]; ok {
		return cached, nil
	}
	refCD, ok := s.schema.ClassByID(refClassID)
	if !ok {
		return nil, ErrInvalidObjectType
	}
	refProp, ok := refCD.PropertyByID(referencingPropertyID)
	if !ok {
		return nil, ErrInvalidObjectType
	}

	// setReferrer fetches the far object and points (or clears) its
	// referencing property at w. Errors are swallowed for the same reason
	// markCollectionDirty swallows them: collection callbacks have no
	// error channel back to the caller.
	setReferrer := func(referrerID uint64, target *Wrapper) {
		referrer, err := s.GetObject(referrerID)
		if err != nil || referrer == nil {
			return
		}
		_ = s.SetReference(referrer, refProp, target)
	}

	set := collection.New(
		func() []uint64 {
			ids, err := s.collectInverseReferrers(refClassID, w.id, referencingPropertyID)
			if err != nil {
				return nil
			}
			return ids
		},
		func(referrerID uint64) { setReferrer(referrerID, w) },
		func(referrerID uint64) { setReferrer(referrerID, nil) },
	)
	w.inverseSets[referencingPropertyID] = set
	return set, nil
}
