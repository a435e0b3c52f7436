package objectmodel

import (
	"github.com/veloxdb/veloxdb/pkg/velox/collection"
	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/metrics"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

// ApplyChanges flushes buffered mutations into the engine as a changeset
// without ending the transaction (spec.md §4.C6 ApplyChanges, non-commit
// path).
func (s *Session) ApplyChanges() error {
	return s.applyChanges(false)
}

// Commit flushes remaining changes, skips the refresh steps ApplyChanges
// performs for a continuing session, and commits the transaction.
func (s *Session) Commit() error {
	if err := s.checkThreadAndDisposed(); err != nil {
		return err
	}
	if err := s.applyChanges(true); err != nil {
		return err
	}
	if err := s.txn.Commit(); err != nil {
		s.disposeOnCriticalError()
		return &CriticalEngineError{Cause: err}
	}
	return s.disposeInternal("commit")
}

// CommitAsync submits the commit without blocking the caller; cb is
// invoked with the result once it resolves. ApplyChanges still runs
// synchronously first, matching spec.md §4.C6's "Commit" step.
func (s *Session) CommitAsync(cb func(error)) {
	if err := s.checkThreadAndDisposed(); err != nil {
		cb(err)
		return
	}
	if err := s.applyChanges(true); err != nil {
		cb(err)
		return
	}
	s.txn.CommitAsync(func(err error) {
		if err != nil {
			s.disposeOnCriticalError()
			cb(&CriticalEngineError{Cause: err})
			return
		}
		cb(s.disposeInternal("commit"))
	})
}

// Rollback discards every change made in this transaction and disposes the
// session. Always terminal and idempotent.
func (s *Session) Rollback() error {
	if s.disposed {
		return nil
	}
	if err := s.txn.Rollback(); err != nil {
		return s.disposeInternalWithErr("rollback", &CriticalEngineError{Cause: err})
	}
	return s.disposeInternal("rollback")
}

// Dispose frees every session-owned buffer and detaches the transaction
// without committing or rolling back (the caller is expected to have
// already done one of those, or to be abandoning a read-only session).
func (s *Session) Dispose() error {
	return s.disposeInternal("dispose")
}

func (s *Session) disposeInternal(outcome string) error {
	return s.disposeInternalWithErr(outcome, nil)
}

func (s *Session) disposeInternalWithErr(outcome string, err error) error {
	if s.disposed {
		return err
	}
	s.disposed = true
	s.identity = nil
	s.changeList = nil
	metrics.SessionsOpen.Dec()
	metrics.SessionsTotal.WithLabelValues(outcome).Inc()
	return err
}

// applyChanges implements spec.md §4.C6's ApplyChanges algorithm. When
// isCommit is true, steps 4-6 (refresh and clear) are skipped since the
// session is about to be disposed anyway.
func (s *Session) applyChanges(isCommit bool) error {
	if err := s.checkThreadAndDisposed(); err != nil {
		return err
	}
	if s.changeList.Len() == 0 && s.deletedSet.Len() == 0 {
		return nil
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ApplyChangesDuration)

	cs := engine.NewChangeset()

	// Step 1: a delete block per touched id in the deleted set that was
	// not also newly inserted this session (insert+delete cancels out).
	s.deletedSet.ForEach(func(id uint64) {
		if w, ok := s.identity[id]; ok && w.IsCreated() {
			return
		}
		cs.AddDelete(classIDOfID(id), id)
		metrics.ChangesetRows.WithLabelValues("delete").Inc()
	})

	// Step 2: walk the change list; emit insert/update for surviving
	// entries.
	entries := s.changeList.All()
	for _, e := range entries {
		w := e.(*Wrapper)
		if w.IsDeleted() {
			continue
		}
		s.internStrings(w)
		s.internArrays(w)
		if w.IsCreated() {
			schema.EmitInsertRow(cs, w.class, w.buf, s.deletedSet)
			metrics.ChangesetRows.WithLabelValues("insert").Inc()
		} else {
			schema.EmitUpdateRow(cs, w.class, w.buf, s.deletedSet)
			metrics.ChangesetRows.WithLabelValues("update").Inc()
		}
	}

	// Step 3: submit.
	if !cs.IsEmpty() {
		if err := s.txn.ApplyChangeset(cs, true); err != nil {
			s.disposeOnCriticalError()
			return &CriticalEngineError{Cause: err}
		}
	}

	if isCommit {
		return nil
	}

	// Step 4: refresh surviving change-list entries from the engine and
	// drop their stale collection caches so the next access rebinds.
	affected := make(map[uint64]struct{}, len(entries))
	for _, e := range entries {
		w := e.(*Wrapper)
		affected[w.id] = struct{}{}
		if w.IsDeleted() {
			continue
		}
		s.refreshWrapper(w)
	}

	// Step 5: any object holding a tracked SetToNull reference to an id
	// deleted this pass needs the same refresh, even if it wasn't itself
	// touched (its on-disk reference slot changed underneath it).
	s.deletedSet.ForEach(func(deletedID uint64) {
		cd, ok := s.schema.ClassByID(classIDOfID(deletedID))
		if !ok {
			return
		}
		for _, ref := range s.schema.ReferrersOf(cd.Name) {
			if ref.Property.DeleteAction != schema.DeleteActionSetToNull || !ref.Property.TrackInverse {
				continue
			}
			referrers, err := s.collectInverseReferrers(ref.Class.ClassID, deletedID, ref.Property.ID)
			if err != nil {
				continue
			}
			for _, rid := range referrers {
				if _, done := affected[rid]; done {
					continue
				}
				if w, ok := s.identity[rid]; ok && w.IsRead() {
					s.refreshWrapper(w)
					affected[rid] = struct{}{}
				}
			}
		}
	})

	// Step 6: clear session-scoped accumulation.
	s.deletedSet.Clear()
	s.deltaStore.Clear()
	s.stringPool = s.stringPool[:0]
	s.changeList.Clear()
	return nil
}

func (s *Session) refreshWrapper(w *Wrapper) {
	raw, ok, err := s.txn.GetObject(w.class.ClassID, w.id)
	if err != nil || !ok {
		return
	}
	w.buf = recordbuf.Buffer(raw)
	w.flags = FlagRead
	w.arrays = nil
	w.refArrays = nil
	w.inverseSets = nil
}

// internStrings replaces every session-local string-pool index held in a
// Modified/Inserted property with a committed engine string handle, so the
// emitted row carries a handle valid after this changeset lands (spec.md
// §4.C3's string getter distinguishes pool index vs. engine handle purely
// by the Modified/Inserted + bit-set condition, so once the row is emitted
// the bit can stay set — refreshWrapper discards the buffer entirely on
// the next ApplyChanges refresh anyway).
func (s *Session) internStrings(w *Wrapper) {
	for _, p := range w.class.UserProperties() {
		if p.Kind != schema.KindStringHandle || !w.buf.IsBitSet(p.Index) {
			continue
		}
		idx := schema.GetStringHandle(w.buf, p)
		if int(idx) >= len(s.stringPool) {
			continue
		}
		handle, err := s.txn.InternString(s.stringPool[idx])
		if err != nil {
			continue
		}
		schema.SetStringHandle(w.buf, p, handle)
	}
}

// internArrays mirrors internStrings for array and reference-array
// properties: any cached collection wrapper whose property bit is set
// (i.e. it was promoted and mutated) is re-interned into the engine's blob
// store and its handle slot updated before the row is emitted.
func (s *Session) internArrays(w *Wrapper) {
	for idx, c := range w.arrays {
		if !w.buf.IsBitSet(idx) {
			continue
		}
		raw := c.(collection.RawValueSource).RawSlots()
		handle, err := s.txn.InternArray(raw)
		if err != nil {
			continue
		}
		schema.SetArrayHandle(w.buf, w.class.Properties[idx], handle)
	}
	for idx, c := range w.refArrays {
		if !w.buf.IsBitSet(idx) {
			continue
		}
		handle, err := s.txn.InternArray(c.RawIDs())
		if err != nil {
			continue
		}
		schema.SetArrayHandle(w.buf, w.class.Properties[idx], handle)
	}
}
