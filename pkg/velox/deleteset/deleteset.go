// Package deleteset implements spec.md §4.C5: the session's deleted-id set
// and the inverse-reference delta store used to reconcile committed
// inverse-reference reads against uncommitted direct-reference mutations.
package deleteset

// DeletedSet is a per-session set of ids scheduled for deletion, with a
// version counter bumped once per cascade sequence in which the set grew
// (spec.md §3 "Deleted set"). Collection wrappers compare against Version()
// to know when their cached filtered views need recomputing.
type DeletedSet struct {
	ids     map[uint64]struct{}
	version uint64
}

// New returns an empty DeletedSet.
func New() *DeletedSet {
	return &DeletedSet{ids: make(map[uint64]struct{})}
}

// Add inserts id into the set. It does not touch the version counter;
// callers that run a cascade call IncVersion once per cascade sequence in
// which any Add call actually grew the set (spec.md §4.C6 step 4).
func (d *DeletedSet) Add(id uint64) (grew bool) {
	if _, ok := d.ids[id]; ok {
		return false
	}
	d.ids[id] = struct{}{}
	return true
}

// Contains reports whether id is scheduled for deletion.
func (d *DeletedSet) Contains(id uint64) bool {
	_, ok := d.ids[id]
	return ok
}

// Len returns the number of deleted ids.
func (d *DeletedSet) Len() int {
	return len(d.ids)
}

// ForEach calls fn for every deleted id. Iteration order is unspecified.
func (d *DeletedSet) ForEach(fn func(id uint64)) {
	for id := range d.ids {
		fn(id)
	}
}

// Clear empties the set without touching the version counter (ApplyChanges
// clears the set but version history is immaterial once there is nothing
// left to invalidate against).
func (d *DeletedSet) Clear() {
	d.ids = make(map[uint64]struct{})
}

// Version returns the current generation counter.
func (d *DeletedSet) Version() uint64 {
	return d.version
}

// IncVersion bumps the generation counter. Called once per cascade pass
// sequence in which the set actually grew (spec.md §4.C6 step 4).
func (d *DeletedSet) IncVersion() {
	d.version++
}
