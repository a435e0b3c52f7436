package objectmodel

import (
	"github.com/veloxdb/veloxdb/pkg/velox/changelist"
	"github.com/veloxdb/veloxdb/pkg/velox/index"
)

// Session implements index.Source so index.HashReader/SortedReader can
// reach local session state without importing objectmodel.

func (s *Session) ChangeCount(classID uint32) int {
	return s.changeList.TypeChangeCount(classID)
}

func (s *Session) Flush() error {
	return s.ApplyChanges()
}

func (s *Session) ScanLocal(descendantClassIDs []uint32, match index.KeyMatcher) []uint64 {
	var out []uint64
	s.changeList.ForEachOfClass(descendantClassIDs, func(e changelist.Entry) {
		w := e.(*Wrapper)
		if w.IsDeleted() || w.IsAbandoned() {
			return
		}
		if match([]byte(w.buf)) {
			out = append(out, w.id)
		}
	})
	return out
}

func (s *Session) IsLiveEngineResult(id uint64) bool {
	if s.deletedSet.Contains(id) {
		return false
	}
	if w, ok := s.identity[id]; ok {
		return w.IsRead() && !w.IsModified() && !w.IsDeleted()
	}
	return true
}

// GetHashIndex returns a hash-index reader over className's declared index
// named name.
func (s *Session) GetHashIndex(className, name string) (*index.HashReader, error) {
	if err := s.checkThreadAndDisposed(); err != nil {
		return nil, err
	}
	cd, ok := s.schema.Class(className)
	if !ok {
		return nil, ErrInvalidObjectType
	}
	engineIdx, err := s.txn.HashIndex(cd.ClassID, name)
	if err != nil {
		return nil, &CriticalEngineError{Cause: err}
	}
	return index.NewHashReader(engineIdx, cd.ClassID, cd.DescendantClassIDs, s.cfg.CascadeLocalThreshold, s), nil
}

// GetSortedIndex returns a sorted-index reader over className's declared
// index named name.
func (s *Session) GetSortedIndex(className, name string) (*index.SortedReader, error) {
	if err := s.checkThreadAndDisposed(); err != nil {
		return nil, err
	}
	cd, ok := s.schema.Class(className)
	if !ok {
		return nil, ErrInvalidObjectType
	}
	engineIdx, err := s.txn.SortedIndex(cd.ClassID, name)
	if err != nil {
		return nil, &CriticalEngineError{Cause: err}
	}
	return index.NewSortedReader(engineIdx, cd.ClassID, cd.DescendantClassIDs, s.cfg.CascadeLocalThreshold, s), nil
}
