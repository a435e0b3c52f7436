package deleteset

// deltaKey identifies one inverse-reference bucket: every other object that
// points at targetID via propertyID.
type deltaKey struct {
	targetID   uint64
	propertyID int
}

type deltaEntry struct {
	inverseID uint64
	insert    bool // true = added this session, false = removed this session
}

// DeltaStore is the session's additive/subtractive amendment to committed
// inverse-reference reads (spec.md §3 "Inverse-reference delta store",
// §4.C5 "Delta store"). It is emptied on every ApplyChanges.
type DeltaStore struct {
	buckets map[deltaKey][]deltaEntry
}

// NewDeltaStore returns an empty DeltaStore.
func NewDeltaStore() *DeltaStore {
	return &DeltaStore{buckets: make(map[deltaKey][]deltaEntry)}
}

// Add records that inverseID started (isInsert) or stopped (!isInsert)
// referencing targetID via propertyID, within the current session.
func (d *DeltaStore) Add(targetID uint64, inverseID uint64, propertyID int, isInsert bool) {
	k := deltaKey{targetID, propertyID}
	d.buckets[k] = append(d.buckets[k], deltaEntry{inverseID: inverseID, insert: isInsert})
}

// Clear empties the store (ApplyChanges step 6).
func (d *DeltaStore) Clear() {
	d.buckets = make(map[deltaKey][]deltaEntry)
}

// TryCollectChanges computes the net live inverse references for
// (targetID, propertyID) given the engine's committed inverse-id array and
// the session's deleted set, per spec.md §4.C5's three-step algorithm:
//  1. partition this session's delta entries into added ids (appended to
//     the working set, which starts as the committed array) and removed
//     ids (counted in a per-id multiset);
//  2. walk the working set once, dropping one occurrence per removal
//     recorded against that id;
//  3. walk it again, dropping any id that is itself in the deleted set
//     (a referrer deleted this session is no longer a live referrer).
func (d *DeltaStore) TryCollectChanges(targetID uint64, propertyID int, committed []uint64, deleted *DeletedSet) []uint64 {
	k := deltaKey{targetID, propertyID}
	entries, ok := d.buckets[k]

	ids := make([]uint64, len(committed))
	copy(ids, committed)

	if ok {
		removedCount := make(map[uint64]int)
		for _, e := range entries {
			if e.insert {
				ids = append(ids, e.inverseID)
			} else {
				removedCount[e.inverseID]++
			}
		}
		if len(removedCount) > 0 {
			filtered := ids[:0]
			for _, id := range ids {
				if removedCount[id] > 0 {
					removedCount[id]--
					continue
				}
				filtered = append(filtered, id)
			}
			ids = filtered
		}
	}

	if deleted != nil && deleted.Len() > 0 {
		filtered := ids[:0]
		for _, id := range ids {
			if !deleted.Contains(id) {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}

	return ids
}
