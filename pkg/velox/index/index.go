// Package index implements spec.md §4.C7: index readers that unify an
// engine-backed hash or sorted index with the session's local, not-yet-
// flushed changes. The package does not know about sessions, classes, or
// record layout directly — objectmodel supplies a Source that answers the
// three questions a reader needs (how many local changes exist for this
// class, which local objects match a key, and whether an engine-returned id
// is still a live Read-state object this session hasn't deleted or already
// counted).
package index

import "github.com/veloxdb/veloxdb/pkg/velox/engine"

// KeyMatcher reports whether a record buffer's indexed column(s) match the
// lookup key. objectmodel builds one per call from the index's declared key
// properties, applying the index's case-sensitivity/culture comparer
// (spec.md §4.C7 "synthesised key comparer").
type KeyMatcher func(buf []byte) bool

// Source is the session-facing seam index readers use to reach local state
// without importing objectmodel.
type Source interface {
	// ChangeCount returns how many objects of exactly classID the session's
	// change list holds (changelist.List.TypeChangeCount).
	ChangeCount(classID uint32) int
	// Flush applies every buffered local change via ApplyChanges, so a
	// subsequent engine-path lookup sees it.
	Flush() error
	// ScanLocal iterates every change-list entry whose class is in
	// descendantClassIDs, returning the ids of entries (inserted or modified)
	// whose buffer satisfies match. Deleted and Abandoned entries are excluded.
	ScanLocal(descendantClassIDs []uint32, match KeyMatcher) []uint64
	// IsLiveEngineResult reports whether an id returned from the engine's
	// index is still a live, Read-state object this session hasn't deleted
	// — used to exclude objects present in both the engine and local
	// sources from being double-counted (spec.md §4.C7).
	IsLiveEngineResult(id uint64) bool
}

// defaultThreshold is the default cascade_local_threshold of spec.md §6.
const defaultThreshold = 4

// HashReader implements a point-lookup index reader over a class and its
// descendants.
type HashReader struct {
	engineIndex        engine.HashIndex
	classID            uint32
	descendantClassIDs []uint32
	threshold          int
	src                Source
}

// NewHashReader returns a reader combining engineIndex with src. threshold
// of 0 uses spec.md's default of 4.
func NewHashReader(engineIndex engine.HashIndex, classID uint32, descendantClassIDs []uint32, threshold int, src Source) *HashReader {
	if threshold == 0 {
		threshold = defaultThreshold
	}
	return &HashReader{engineIndex: engineIndex, classID: classID, descendantClassIDs: descendantClassIDs, threshold: threshold, src: src}
}

// Lookup returns every live id matching key, whether committed or only
// buffered locally this session.
func (r *HashReader) Lookup(key []byte, match KeyMatcher) ([]uint64, error) {
	if r.src.ChangeCount(r.classID) > r.threshold {
		if err := r.src.Flush(); err != nil {
			return nil, err
		}
		return r.engineOnly(key)
	}

	ids, err := r.engineIndex.Lookup(key)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if r.src.IsLiveEngineResult(id) {
			out = append(out, id)
		}
	}
	out = append(out, r.src.ScanLocal(r.descendantClassIDs, match)...)
	return out, nil
}

func (r *HashReader) engineOnly(key []byte) ([]uint64, error) {
	ids, err := r.engineIndex.Lookup(key)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if r.src.IsLiveEngineResult(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// SortedReader implements a range-capable index reader over a class and its
// descendants.
type SortedReader struct {
	engineIndex        engine.SortedIndex
	classID            uint32
	descendantClassIDs []uint32
	threshold          int
	src                Source
}

func NewSortedReader(engineIndex engine.SortedIndex, classID uint32, descendantClassIDs []uint32, threshold int, src Source) *SortedReader {
	if threshold == 0 {
		threshold = defaultThreshold
	}
	return &SortedReader{engineIndex: engineIndex, classID: classID, descendantClassIDs: descendantClassIDs, threshold: threshold, src: src}
}

// Range returns every live id with a key in [low, high], combining the
// engine's committed range scan with local changes matched by match.
func (r *SortedReader) Range(low, high []byte, match KeyMatcher) ([]uint64, error) {
	if r.src.ChangeCount(r.classID) > r.threshold {
		if err := r.src.Flush(); err != nil {
			return nil, err
		}
		return r.engineOnly(low, high)
	}

	ids, err := r.engineIndex.Range(low, high)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if r.src.IsLiveEngineResult(id) {
			out = append(out, id)
		}
	}
	out = append(out, r.src.ScanLocal(r.descendantClassIDs, match)...)
	return out, nil
}

func (r *SortedReader) engineOnly(low, high []byte) ([]uint64, error) {
	ids, err := r.engineIndex.Range(low, high)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if r.src.IsLiveEngineResult(id) {
			out = append(out, id)
		}
	}
	return out, nil
}
