package objectmodel

import (
	"github.com/veloxdb/veloxdb/pkg/velox/changelist"
	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
)

// ObjectIterator implements spec.md §4.C6's get_all_objects: it first
// walks the engine's class scan (skipping ids that are dirty — those
// surface later via the change-list segment — or deleted), then switches
// to the per-class change-list iterator to yield newly inserted objects.
// The two segments' relative order is an explicit Open Question the spec
// leaves unspecified; this implementation always does engine-scan first.
type ObjectIterator struct {
	sess    *Session
	scan    engine.ClassScan
	pending []*Wrapper
	pendIdx int
	phase   int // 0 = engine scan, 1 = change-list segment, 2 = done
	err     error
}

// GetAllObjects returns a lazy iterator over every live instance of
// className (optionally including descendant classes).
func (s *Session) GetAllObjects(className string, includeDescendants bool) (*ObjectIterator, error) {
	if err := s.checkThreadAndDisposed(); err != nil {
		return nil, err
	}
	cd, ok := s.schema.Class(className)
	if !ok {
		return nil, ErrInvalidObjectType
	}
	scan, err := s.txn.BeginClassScan(cd.ClassID, includeDescendants)
	if err != nil {
		return nil, &CriticalEngineError{Cause: err}
	}
	descendants := cd.DescendantClassIDs
	if !includeDescendants {
		descendants = []uint32{cd.ClassID}
	}
	var pending []*Wrapper
	s.changeList.ForEachOfClass(descendants, func(e changelist.Entry) {
		w := e.(*Wrapper)
		if w.IsDeleted() || w.IsAbandoned() {
			return
		}
		pending = append(pending, w)
	})
	return &ObjectIterator{sess: s, scan: scan, pending: pending}, nil
}

// Next advances the iterator, returning (wrapper, true) or (nil, false) at
// the end. It also returns (nil, false) when an engine error stops
// iteration early; Err then reports that error.
func (it *ObjectIterator) Next() (*Wrapper, bool) {
	if it.err != nil {
		return nil, false
	}
	for it.phase == 0 {
		id, classID, raw, ok, err := it.scan.Next()
		if err != nil {
			it.err = &CriticalEngineError{Cause: err}
			it.phase = 2
			return nil, false
		}
		if !ok {
			it.phase = 1
			break
		}
		if it.sess.deletedSet.Contains(id) {
			continue
		}
		if w, dirty := it.sess.identity[id]; dirty {
			// Already tracked: if it's still Read, the engine copy is
			// still authoritative and we can yield it now; anything
			// Modified/Inserted/Deleted is skipped here and picked up (or
			// excluded) by the change-list segment.
			if w.IsRead() && !w.IsModified() && !w.IsDeleted() {
				return w, true
			}
			continue
		}
		cd, ok := it.sess.schema.ClassByID(classID)
		if !ok {
			continue
		}
		w := newWrapper(it.sess, cd, recordbuf.Buffer(raw), FlagRead)
		it.sess.identity[id] = w
		return w, true
	}
	if it.phase == 1 {
		if it.pendIdx < len(it.pending) {
			w := it.pending[it.pendIdx]
			it.pendIdx++
			return w, true
		}
		it.phase = 2
		it.scan.Close()
	}
	return nil, false
}

// Err returns any error that stopped iteration early.
func (it *ObjectIterator) Err() error { return it.err }
