package collection

import "github.com/veloxdb/veloxdb/pkg/velox/deleteset"

// ReferenceArray implements spec.md §4.C8's reference array: a ValueArray
// over object ids, with two extras value arrays don't need: when the
// parent property tracks inverse references, every add/remove additionally
// invokes the reference-mutation hook (spec.md §4.C6); when the parent
// property's delete action is SetToNull, the array lazily filters out ids
// that have entered the session's deleted set, re-filtering whenever the
// deleted set's version has moved since the last filter.
type ReferenceArray struct {
	raw      []uint64
	local    []uint64
	promoted bool
	version  uint64

	deleted       *deleteset.DeletedSet // non-nil only for SetToNull properties
	filterVersion uint64
	filtered      []uint64
	filterValid   bool

	onAdd    func(id uint64)
	onRemove func(id uint64)
}

// NewEngineBacked wraps raw engine id data. deleted may be nil if the
// parent property's delete action is not SetToNull; onAdd/onRemove may be
// nil if the property does not track inverse references.
func NewEngineBacked(raw []uint64, deleted *deleteset.DeletedSet, onAdd, onRemove func(id uint64)) *ReferenceArray {
	return &ReferenceArray{raw: raw, deleted: deleted, onAdd: onAdd, onRemove: onRemove}
}

// NewLocal returns an already-promoted reference array for a newly inserted
// object.
func NewLocal(deleted *deleteset.DeletedSet, onAdd, onRemove func(id uint64)) *ReferenceArray {
	return &ReferenceArray{local: []uint64{}, promoted: true, deleted: deleted, onAdd: onAdd, onRemove: onRemove}
}

func (r *ReferenceArray) promote() {
	if r.promoted {
		return
	}
	r.local = append([]uint64(nil), r.view()...)
	r.promoted = true
	r.raw = nil
}

// view returns the engine-backed source filtered through the deleted set,
// caching the result until the deleted set's version advances again.
func (r *ReferenceArray) view() []uint64 {
	if r.promoted {
		return r.local
	}
	if r.deleted == nil {
		return r.raw
	}
	if r.filterValid && r.filterVersion == r.deleted.Version() {
		return r.filtered
	}
	r.filtered = r.filtered[:0]
	for _, id := range r.raw {
		if !r.deleted.Contains(id) {
			r.filtered = append(r.filtered, id)
		}
	}
	r.filterVersion = r.deleted.Version()
	r.filterValid = true
	return r.filtered
}

func (r *ReferenceArray) Version() uint64 { return r.version }

func (r *ReferenceArray) Len() int { return len(r.view()) }

func (r *ReferenceArray) Get(i int) uint64 { return r.view()[i] }

func (r *ReferenceArray) Add(id uint64) {
	r.promote()
	r.local = append(r.local, id)
	r.version++
	if r.onAdd != nil {
		r.onAdd(id)
	}
}

func (r *ReferenceArray) AddRange(ids []uint64) {
	for _, id := range ids {
		r.Add(id)
	}
}

func (r *ReferenceArray) RemoveAt(i int) {
	r.promote()
	id := r.local[i]
	r.local = append(r.local[:i], r.local[i+1:]...)
	r.version++
	if r.onRemove != nil {
		r.onRemove(id)
	}
}

// Remove removes the first occurrence of id, reporting whether it was
// found.
func (r *ReferenceArray) Remove(id uint64) bool {
	i := r.IndexOf(id)
	if i < 0 {
		return false
	}
	r.RemoveAt(i)
	return true
}

func (r *ReferenceArray) Contains(id uint64) bool { return r.IndexOf(id) >= 0 }

func (r *ReferenceArray) IndexOf(id uint64) int {
	v := r.view()
	for i, x := range v {
		if x == id {
			return i
		}
	}
	return -1
}

func (r *ReferenceArray) Clear() {
	r.promote()
	for _, id := range r.local {
		if r.onRemove != nil {
			r.onRemove(id)
		}
	}
	r.local = r.local[:0]
	r.version++
}

// RawIDs returns the current contents for an insert/update changeset row.
func (r *ReferenceArray) RawIDs() []uint64 {
	return append([]uint64(nil), r.view()...)
}
