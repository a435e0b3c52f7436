package boltengine

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
)

type transaction struct {
	eng  *Engine
	tx   *bolt.Tx
	kind engine.TransactionKind
}

// GetObject implements engine.Transaction.
func (t *transaction) GetObject(classID uint32, id uint64) ([]byte, bool, error) {
	b := t.tx.Bucket(classBucketName(classID))
	if b == nil {
		return nil, false, nil
	}
	v := b.Get(encodeU64(id))
	if v == nil {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// ObjectExists implements engine.Transaction.
func (t *transaction) ObjectExists(classID uint32, id uint64) (bool, error) {
	b := t.tx.Bucket(classBucketName(classID))
	if b == nil {
		return false, nil
	}
	return b.Get(encodeU64(id)) != nil, nil
}

// BeginClassScan implements engine.Transaction.
func (t *transaction) BeginClassScan(classID uint32, includeDescendants bool) (engine.ClassScan, error) {
	classIDs := []uint32{classID}
	if includeDescendants {
		if cd, ok := t.eng.schema.ClassByID(classID); ok {
			classIDs = cd.DescendantClassIDs
		}
	}
	return newClassScan(t.tx, classIDs), nil
}

// GetInverseReferences implements engine.Transaction.
func (t *transaction) GetInverseReferences(classID uint32, id uint64, propertyID int) ([]uint64, error) {
	b := t.tx.Bucket(inverseBucketName(classID, propertyID))
	if b == nil {
		return nil, nil
	}
	prefix := encodeU64(id)
	var out []uint64
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && string(k[:8]) == string(prefix); k, _ = c.Next() {
		out = append(out, decodeU64(k[8:]))
	}
	return out, nil
}

// ReserveIDRange implements engine.Transaction.
func (t *transaction) ReserveIDRange(classID uint32, size uint32) (uint64, error) {
	if !t.tx.Writable() {
		return 0, fmt.Errorf("boltengine: id range reservation requires a writable transaction")
	}
	b := t.tx.Bucket(bucketIDRanges)
	key := encodeU32(classID)
	var next uint64 = 1
	if v := b.Get(key); v != nil {
		next = decodeU64(v)
	}
	if err := b.Put(key, encodeU64(next+uint64(size))); err != nil {
		return 0, err
	}
	return next, nil
}

// StringHandle implements engine.Transaction.
func (t *transaction) StringHandle(handle uint64) (string, error) {
	b := t.tx.Bucket(bucketStrings)
	v := b.Get(encodeU64(handle))
	if v == nil {
		return "", fmt.Errorf("boltengine: no string for handle %d", handle)
	}
	return string(v), nil
}

// InternString implements engine.Transaction.
func (t *transaction) InternString(s string) (uint64, error) {
	b := t.tx.Bucket(bucketStrings)
	handle, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	if err := b.Put(encodeU64(handle), []byte(s)); err != nil {
		return 0, err
	}
	return handle, nil
}

// ArrayData implements engine.Transaction.
func (t *transaction) ArrayData(handle uint64) ([]uint64, error) {
	b := t.tx.Bucket(bucketArrays)
	v := b.Get(encodeU64(handle))
	if v == nil {
		return nil, fmt.Errorf("boltengine: no array for handle %d", handle)
	}
	return decodeUint64Slice(v), nil
}

// InternArray implements engine.Transaction.
func (t *transaction) InternArray(values []uint64) (uint64, error) {
	b := t.tx.Bucket(bucketArrays)
	handle, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	if err := b.Put(encodeU64(handle), encodeUint64Slice(values)); err != nil {
		return 0, err
	}
	return handle, nil
}

// HashIndex implements engine.Transaction.
func (t *transaction) HashIndex(classID uint32, name string) (engine.HashIndex, error) {
	b := t.tx.Bucket(hashIndexBucketName(classID, name))
	if b == nil {
		return nil, fmt.Errorf("boltengine: no hash index %q declared for class %d", name, classID)
	}
	return &hashIndex{bucket: b}, nil
}

// SortedIndex implements engine.Transaction.
func (t *transaction) SortedIndex(classID uint32, name string) (engine.SortedIndex, error) {
	b := t.tx.Bucket(sortedIndexBucketName(classID, name))
	if b == nil {
		return nil, fmt.Errorf("boltengine: no sorted index %q declared for class %d", name, classID)
	}
	return &sortedIndex{bucket: b}, nil
}

// Commit implements engine.Transaction.
func (t *transaction) Commit() error { return t.tx.Commit() }

// CommitAsync implements engine.Transaction. bbolt has no native async
// commit path, so this runs the commit synchronously and reports the
// result through cb, matching the interface's non-blocking contract for
// callers that don't care which thread invokes cb.
func (t *transaction) CommitAsync(cb func(error)) {
	cb(t.tx.Commit())
}

// Rollback implements engine.Transaction.
func (t *transaction) Rollback() error { return t.tx.Rollback() }

func encodeUint64Slice(vs []uint64) []byte {
	out := make([]byte, len(vs)*8)
	for i, v := range vs {
		recordbuf.WriteUint64(recordbuf.Buffer(out), i*8, v)
	}
	return out
}

func decodeUint64Slice(data []byte) []uint64 {
	out := make([]uint64, len(data)/8)
	for i := range out {
		out[i] = recordbuf.ReadUint64(recordbuf.Buffer(data), i*8)
	}
	return out
}
