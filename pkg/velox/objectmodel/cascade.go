package objectmodel

import (
	"github.com/veloxdb/veloxdb/pkg/velox/changelist"
	"github.com/veloxdb/veloxdb/pkg/velox/metrics"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

// DeleteObject marks w Deleted and, if performCascade, seeds the
// cascade-delete fixpoint of spec.md §4.C6. A PreventDeleteError found
// during the fixpoint disposes the session before being returned.
func (s *Session) DeleteObject(w *Wrapper, performCascade bool) error {
	if err := s.checkWritable(w); err != nil {
		return err
	}
	if w.IsDeleted() {
		return nil
	}
	wasRead := w.IsRead() && !w.flags.has(FlagModified) && !w.flags.has(FlagInserted)
	w.flags |= FlagDeleted
	w.inverseSets = nil
	if wasRead {
		s.changeList.Add(w)
	}
	grew := s.deletedSet.Add(w.id)

	if performCascade {
		if err := s.runCascade([]uint64{w.id}); err != nil {
			return err
		}
	}
	if grew {
		s.deletedSet.IncVersion()
	}
	return nil
}

// scanRegistration is one (class, property) pair awaiting a later
// for_each_object scan because the referring property does not track
// inverse references (spec.md §4.C6 fixpoint step 2).
type scanRegistration struct {
	refClass *schema.ClassDescriptor
	prop     *schema.Property
}

func (s *Session) runCascade(seed []uint64) error {
	a := seed
	anyGrew := false
	for len(a) > 0 {
		metrics.CascadePassesTotal.Inc()
		b := []uint64{}
		scanClasses := make(map[uint32][]scanRegistration)

		for _, id := range a {
			grew := s.deletedSet.Add(id)
			anyGrew = anyGrew || grew
			if w, ok := s.identity[id]; ok && !w.IsDeleted() {
				w.flags |= FlagDeleted
				w.inverseSets = nil
			}

			cd, ok := s.schema.ClassByID(classIDOfID(id))
			if !ok {
				continue
			}
			for _, ref := range s.schema.ReferrersOf(cd.Name) {
				if ref.Property.TrackInverse {
					referrers, err := s.collectInverseReferrers(ref.Class.ClassID, id, ref.Property.ID)
					if err != nil {
						return err
					}
					for _, rid := range referrers {
						if s.deletedSet.Contains(rid) {
							continue
						}
						if ref.Property.DeleteAction == schema.DeleteActionPreventDelete {
							s.disposeOnCriticalError()
							return &PreventDeleteError{ReferrerID: rid, PropertyName: ref.Property.Name}
						}
						b = append(b, rid)
					}
				} else {
					scanClasses[ref.Class.ClassID] = append(scanClasses[ref.Class.ClassID], scanRegistration{refClass: ref.Class, prop: ref.Property})
				}
			}
		}

		for classID, regs := range scanClasses {
			matches, err := s.scanForDeletedReferences(classID, regs)
			if err != nil {
				return err
			}
			for _, m := range matches {
				if s.deletedSet.Contains(m.id) {
					continue
				}
				if m.action == schema.DeleteActionPreventDelete {
					s.disposeOnCriticalError()
					return &PreventDeleteError{ReferrerID: m.id, PropertyName: m.propName}
				}
				b = append(b, m.id)
			}
		}

		a = b
	}
	if anyGrew {
		metrics.CascadeFixpointSize.Observe(float64(s.deletedSet.Len()))
	}
	return nil
}

// collectInverseReferrers reads the net live inverse references for
// (id, propertyID) on refClassID by merging the engine's committed view
// with this session's delta store (spec.md §4.C5).
func (s *Session) collectInverseReferrers(refClassID uint32, id uint64, propertyID int) ([]uint64, error) {
	committed, err := s.txn.GetInverseReferences(refClassID, id, propertyID)
	if err != nil {
		return nil, &CriticalEngineError{Cause: err}
	}
	return s.deltaStore.TryCollectChanges(id, propertyID, committed, s.deletedSet), nil
}

type scanMatch struct {
	id       uint64
	action   schema.DeleteAction
	propName string
}

// scanForDeletedReferences implements the non-tracked half of spec.md
// §4.C6 fixpoint step 2/3: for every registered (class, property), scan
// the class's live instances (engine committed plus session change list,
// mirroring for_each_object) and report those whose property currently
// points at a now-deleted id.
func (s *Session) scanForDeletedReferences(classID uint32, regs []scanRegistration) ([]scanMatch, error) {
	var matches []scanMatch
	var checkErr error
	check := func(id uint64, buf recordbuf.Buffer) {
		for _, r := range regs {
			hit, err := s.matchesDeleted(buf, r.prop)
			if err != nil {
				checkErr = err
				return
			}
			if hit {
				matches = append(matches, scanMatch{id: id, action: r.prop.DeleteAction, propName: r.prop.Name})
			}
		}
	}

	scan, err := s.txn.BeginClassScan(classID, false)
	if err != nil {
		return nil, &CriticalEngineError{Cause: err}
	}
	defer scan.Close()
	for {
		id, _, raw, ok, err := scan.Next()
		if err != nil {
			return nil, &CriticalEngineError{Cause: err}
		}
		if !ok {
			break
		}
		if s.deletedSet.Contains(id) {
			continue
		}
		if w, tracked := s.identity[id]; tracked {
			if w.IsRead() && !w.flags.has(FlagModified) && !w.flags.has(FlagInserted) && !w.IsDeleted() {
				check(id, w.buf)
			}
			continue
		}
		check(id, recordbuf.Buffer(raw))
		if checkErr != nil {
			return nil, checkErr
		}
	}
	if checkErr != nil {
		return nil, checkErr
	}

	s.changeList.ForEachOfClass([]uint32{classID}, func(e changelist.Entry) {
		if checkErr != nil {
			return
		}
		w := e.(*Wrapper)
		if w.IsDeleted() {
			return
		}
		check(w.id, w.buf)
	})
	if checkErr != nil {
		return nil, checkErr
	}

	return matches, nil
}

// matchesDeleted is schema.MatchesDeleted generalized to ReferenceArray
// properties, which schema.MatchesDeleted cannot itself predicate since
// doing so needs engine access to read the array's id list (spec.md §4.C6
// fixpoint step 2 does not exempt array-typed referrers).
func (s *Session) matchesDeleted(buf recordbuf.Buffer, p *schema.Property) (bool, error) {
	if p.Kind != schema.KindReferenceArray {
		return schema.MatchesDeleted(buf, p, s.deletedSet), nil
	}
	handle := schema.GetArrayHandle(buf, p)
	if handle == 0 {
		return false, nil
	}
	ids, err := s.txn.ArrayData(handle)
	if err != nil {
		return false, &CriticalEngineError{Cause: err}
	}
	for _, id := range ids {
		if id != 0 && s.deletedSet.Contains(id) {
			return true, nil
		}
	}
	return false, nil
}
