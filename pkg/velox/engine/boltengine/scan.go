package boltengine

import bolt "go.etcd.io/bbolt"

// classScan implements engine.ClassScan over one or more class buckets in
// turn, the way the teacher's List* methods walk a single bucket with a
// Cursor (pkg/storage/boltdb.go's GetIngressByName et al.), generalized to
// a sequence of buckets for the include-descendants case.
type classScan struct {
	tx        *bolt.Tx
	classIDs  []uint32
	idx       int
	cursor    *bolt.Cursor
	k, v      []byte
	started   bool
}

func newClassScan(tx *bolt.Tx, classIDs []uint32) *classScan {
	return &classScan{tx: tx, classIDs: classIDs}
}

func (s *classScan) openNext() bool {
	for s.idx < len(s.classIDs) {
		classID := s.classIDs[s.idx]
		s.idx++
		b := s.tx.Bucket(classBucketName(classID))
		if b == nil {
			continue
		}
		s.cursor = b.Cursor()
		s.k, s.v = s.cursor.First()
		s.started = true
		if s.k != nil {
			return true
		}
	}
	return false
}

// Next implements engine.ClassScan.
func (s *classScan) Next() (id uint64, classID uint32, buf []byte, ok bool, err error) {
	for {
		if !s.started {
			if !s.openNext() {
				return 0, 0, nil, false, nil
			}
		}
		if s.k == nil {
			s.started = false
			if !s.openNext() {
				return 0, 0, nil, false, nil
			}
			continue
		}
		id = decodeU64(s.k)
		classID = s.classIDs[s.idx-1]
		out := make([]byte, len(s.v))
		copy(out, s.v)
		s.k, s.v = s.cursor.Next()
		return id, classID, out, true, nil
	}
}

// Close implements engine.ClassScan. The scan shares its transaction's
// cursors, which are invalidated by the transaction itself, so there is
// nothing to release here.
func (s *classScan) Close() error { return nil }
