package collection

// InverseReferenceSet implements spec.md §4.C8's lazily-materialised
// inverse-reference set. The session provides a fetch function that merges
// the engine's committed adjacency list with the session's delta store
// (spec.md §4.C5 TryCollectChanges); this package only owns the
// materialised-or-not state machine and invalidation. Mutation has
// list-semantics (spec.md §6: "InverseReferenceSet<T> with list-semantics
// operations plus contains, index_of, add_range") but has no backing array
// of its own to mutate: Add/Remove instead set or clear the referencing
// property on the far object, via hooks the session wires in, since only
// the session can fetch and mutate that object's wrapper.
type InverseReferenceSet struct {
	fetch        func() []uint64
	materialized bool
	ids          []uint64
	version      uint64

	onAdd    func(referrerID uint64)
	onRemove func(referrerID uint64)
}

// New returns an unmaterialised set backed by fetch, called at most once
// per materialisation window. onAdd/onRemove set/clear the referencing
// property on the far object named by referrerID; either may be nil if
// this set should be read-only.
func New(fetch func() []uint64, onAdd, onRemove func(referrerID uint64)) *InverseReferenceSet {
	return &InverseReferenceSet{fetch: fetch, onAdd: onAdd, onRemove: onRemove}
}

func (s *InverseReferenceSet) ensure() {
	if s.materialized {
		return
	}
	s.ids = s.fetch()
	s.materialized = true
}

func (s *InverseReferenceSet) Len() int {
	s.ensure()
	return len(s.ids)
}

// All returns the materialised id list; callers must not mutate it.
func (s *InverseReferenceSet) All() []uint64 {
	s.ensure()
	return s.ids
}

// Add points referrerID's referencing property at the object this set
// belongs to. The hook itself invalidates this set (the far object's
// mutation routes back through the session's reference-mutation tracking),
// so the next read re-fetches the merged committed+delta view.
func (s *InverseReferenceSet) Add(referrerID uint64) {
	if s.onAdd != nil {
		s.onAdd(referrerID)
	}
}

// AddRange adds every id in ids, in order.
func (s *InverseReferenceSet) AddRange(ids []uint64) {
	for _, id := range ids {
		s.Add(id)
	}
}

// Remove clears referrerID's referencing property, reporting whether
// referrerID was present beforehand.
func (s *InverseReferenceSet) Remove(referrerID uint64) bool {
	if !s.Contains(referrerID) {
		return false
	}
	if s.onRemove != nil {
		s.onRemove(referrerID)
	}
	return true
}

// Clear removes every current member, one at a time, so each clears its own
// referencing property (and fires the session's reference-mutation hook).
func (s *InverseReferenceSet) Clear() {
	s.ensure()
	ids := append([]uint64(nil), s.ids...)
	for _, id := range ids {
		if s.onRemove != nil {
			s.onRemove(id)
		}
	}
}

func (s *InverseReferenceSet) Contains(id uint64) bool { return s.IndexOf(id) >= 0 }

func (s *InverseReferenceSet) IndexOf(id uint64) int {
	s.ensure()
	for i, x := range s.ids {
		if x == id {
			return i
		}
	}
	return -1
}

// Invalidate drops the cached materialisation by truncating it; the next
// access runs fetch again and replaces the slice with the fetched one.
// Call sites: reference-mutation hooks for
// the owner/property this set is keyed on, and any explicit refresh cycle.
func (s *InverseReferenceSet) Invalidate() {
	if !s.materialized {
		return
	}
	s.ids = s.ids[:0]
	s.materialized = false
	s.version++
}

// ReleaseMemory implements spec.md §4.C8's release_memory(): it drops the
// cached array entirely, unlike Invalidate, which only truncates it and so
// keeps the old backing array referenced until the next fetch.
func (s *InverseReferenceSet) ReleaseMemory() {
	s.ids = nil
	s.materialized = false
	s.version++
}

func (s *InverseReferenceSet) Version() uint64 { return s.version }
