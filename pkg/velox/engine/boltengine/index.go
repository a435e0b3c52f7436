package boltengine

import bolt "go.etcd.io/bbolt"

// hashIndex implements engine.HashIndex over one declared index bucket:
// key -> concatenated 8-byte id list, maintained incrementally by
// reindex in changeset.go.
type hashIndex struct {
	bucket *bolt.Bucket
}

func (h *hashIndex) Lookup(key []byte) ([]uint64, error) {
	v := h.bucket.Get(key)
	if v == nil {
		return nil, nil
	}
	return decodeUint64Slice(v), nil
}

// sortedIndex implements engine.SortedIndex over the same key->ids shape,
// using bbolt's natural byte-ordered keys for the range scan.
type sortedIndex struct {
	bucket *bolt.Bucket
}

func (s *sortedIndex) Range(low, high []byte) ([]uint64, error) {
	var out []uint64
	c := s.bucket.Cursor()
	for k, v := c.Seek(low); k != nil && bytesLTE(k, high); k, v = c.Next() {
		out = append(out, decodeUint64Slice(v)...)
	}
	return out, nil
}

func bytesLTE(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] < b[i] {
			return true
		}
		if a[i] > b[i] {
			return false
		}
	}
	return len(a) <= len(b)
}
