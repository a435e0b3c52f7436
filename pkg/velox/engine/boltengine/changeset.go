package boltengine

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

// ApplyChangeset implements engine.Transaction. validateRefs is honored by
// rejecting any row whose scalar Reference property targets an id this
// transaction cannot find and that isn't also being inserted in the same
// changeset (a forward reference to a sibling insert in the same batch).
func (t *transaction) ApplyChangeset(cs *engine.Changeset, validateRefs bool) error {
	if !t.tx.Writable() {
		return fmt.Errorf("boltengine: ApplyChangeset requires a writable transaction")
	}

	insertedIDs := make(map[uint64]bool)
	for _, b := range cs.Inserts() {
		for _, row := range b.Rows {
			insertedIDs[row[0]] = true
		}
	}

	for _, b := range cs.Deletes() {
		if err := t.applyDelete(b.ClassID, b.IDs); err != nil {
			return err
		}
	}
	for _, b := range cs.Inserts() {
		if err := t.applyInsert(b.ClassID, b.PropIDs, b.Rows, validateRefs, insertedIDs); err != nil {
			return err
		}
	}
	for _, b := range cs.Updates() {
		if err := t.applyUpdate(b.ClassID, b.PropIDs, b.Rows, validateRefs, insertedIDs); err != nil {
			return err
		}
	}
	return nil
}

func (t *transaction) classOf(classID uint32) (*schema.ClassDescriptor, error) {
	cd, ok := t.eng.schema.ClassByID(classID)
	if !ok {
		return nil, fmt.Errorf("boltengine: unknown class id %d", classID)
	}
	return cd, nil
}

func (t *transaction) validateReference(target uint64, insertedIDs map[uint64]bool) error {
	if target == 0 || insertedIDs[target] {
		return nil
	}
	classID := uint32(target >> 40)
	ok, err := t.ObjectExists(classID, target)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("boltengine: dangling reference to object %d", target)
	}
	return nil
}

func (t *transaction) applyInsert(classID uint32, propIDs []int, rows [][]uint64, validateRefs bool, insertedIDs map[uint64]bool) error {
	cd, err := t.classOf(classID)
	if err != nil {
		return err
	}
	bucket := t.tx.Bucket(classBucketName(classID))
	for _, row := range rows {
		id := row[0]
		buf := cd.NewBuffer(id)
		for i, propID := range propIDs {
			p, ok := cd.PropertyByID(propID)
			if !ok {
				return fmt.Errorf("boltengine: class %d has no property %d", classID, propID)
			}
			v := row[1+i]
			if validateRefs && p.Kind == schema.KindReference {
				if err := t.validateReference(v, insertedIDs); err != nil {
					return err
				}
			}
			recordbuf.WriteUint64(buf, p.Offset, v)
		}
		if err := bucket.Put(encodeU64(id), buf); err != nil {
			return err
		}
		if err := t.addInverseEdges(cd, propIDs, row); err != nil {
			return err
		}
		if err := t.reindex(cd, nil, buf); err != nil {
			return err
		}
	}
	return nil
}

func (t *transaction) applyUpdate(classID uint32, propIDs []int, rows [][]uint64, validateRefs bool, insertedIDs map[uint64]bool) error {
	cd, err := t.classOf(classID)
	if err != nil {
		return err
	}
	bucket := t.tx.Bucket(classBucketName(classID))
	for _, row := range rows {
		id := row[0]
		old := bucket.Get(encodeU64(id))
		if old == nil {
			return fmt.Errorf("boltengine: update for nonexistent object %d", id)
		}
		oldBuf := make(recordbuf.Buffer, len(old))
		copy(oldBuf, old)
		newBuf := oldBuf.Clone()

		oldTargets := make(map[int]uint64, len(propIDs))
		for i, propID := range propIDs {
			p, ok := cd.PropertyByID(propID)
			if !ok {
				return fmt.Errorf("boltengine: class %d has no property %d", classID, propID)
			}
			if p.Kind == schema.KindReference {
				oldTargets[propID] = recordbuf.ReadUint64(oldBuf, p.Offset)
			}
			v := row[1+i]
			if validateRefs && p.Kind == schema.KindReference {
				if err := t.validateReference(v, insertedIDs); err != nil {
					return err
				}
			}
			recordbuf.WriteUint64(newBuf, p.Offset, v)
		}
		if err := bucket.Put(encodeU64(id), newBuf); err != nil {
			return err
		}
		if err := t.updateInverseEdges(cd, propIDs, id, oldTargets, row); err != nil {
			return err
		}
		if err := t.reindex(cd, oldBuf, newBuf); err != nil {
			return err
		}
	}
	return nil
}

func (t *transaction) applyDelete(classID uint32, ids []uint64) error {
	cd, err := t.classOf(classID)
	if err != nil {
		return err
	}
	bucket := t.tx.Bucket(classBucketName(classID))
	for _, id := range ids {
		old := bucket.Get(encodeU64(id))
		if old != nil {
			oldBuf := make(recordbuf.Buffer, len(old))
			copy(oldBuf, old)
			for _, p := range cd.UserProperties() {
				if p.Kind == schema.KindReference && p.TrackInverse {
					target := recordbuf.ReadUint64(oldBuf, p.Offset)
					if target != 0 {
						if err := t.removeInverseEdge(classID, p.ID, target, id); err != nil {
							return err
						}
					}
				}
			}
			if err := t.reindex(cd, oldBuf, nil); err != nil {
				return err
			}
		}
		if err := bucket.Delete(encodeU64(id)); err != nil {
			return err
		}
	}
	return nil
}

func (t *transaction) addInverseEdges(cd *schema.ClassDescriptor, propIDs []int, row []uint64) error {
	for i, propID := range propIDs {
		p, ok := cd.PropertyByID(propID)
		if !ok || p.Kind != schema.KindReference || !p.TrackInverse {
			continue
		}
		target := row[1+i]
		if target == 0 {
			continue
		}
		if err := t.addInverseEdge(cd.ClassID, propID, target, row[0]); err != nil {
			return err
		}
	}
	return nil
}

func (t *transaction) updateInverseEdges(cd *schema.ClassDescriptor, propIDs []int, id uint64, oldTargets map[int]uint64, row []uint64) error {
	for i, propID := range propIDs {
		p, ok := cd.PropertyByID(propID)
		if !ok || p.Kind != schema.KindReference || !p.TrackInverse {
			continue
		}
		oldTarget := oldTargets[propID]
		newTarget := row[1+i]
		if oldTarget == newTarget {
			continue
		}
		if oldTarget != 0 {
			if err := t.removeInverseEdge(cd.ClassID, propID, oldTarget, id); err != nil {
				return err
			}
		}
		if newTarget != 0 {
			if err := t.addInverseEdge(cd.ClassID, propID, newTarget, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *transaction) addInverseEdge(classID uint32, propertyID int, target, referrer uint64) error {
	b, err := t.tx.CreateBucketIfNotExists(inverseBucketName(classID, propertyID))
	if err != nil {
		return err
	}
	return b.Put(invKey(target, referrer), []byte{})
}

func (t *transaction) removeInverseEdge(classID uint32, propertyID int, target, referrer uint64) error {
	b := t.tx.Bucket(inverseBucketName(classID, propertyID))
	if b == nil {
		return nil
	}
	return b.Delete(invKey(target, referrer))
}

// reindex applies the delta of every index declared over cd: oldBuf nil
// means "no prior row" (insert), newBuf nil means "row removed" (delete).
func (t *transaction) reindex(cd *schema.ClassDescriptor, oldBuf, newBuf recordbuf.Buffer) error {
	for _, spec := range t.eng.indexes[cd.ClassID] {
		var bucketName []byte
		if spec.Sorted {
			bucketName = sortedIndexBucketName(spec.ClassID, spec.Name)
		} else {
			bucketName = hashIndexBucketName(spec.ClassID, spec.Name)
		}
		b, err := t.tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		id := idOf(cd, oldBuf, newBuf)
		if oldBuf != nil {
			if err := removeFromIndexEntry(b, spec.KeyOf(oldBuf), id); err != nil {
				return err
			}
		}
		if newBuf != nil {
			if err := addToIndexEntry(b, spec.KeyOf(newBuf), id); err != nil {
				return err
			}
		}
	}
	return nil
}

func idOf(cd *schema.ClassDescriptor, oldBuf, newBuf recordbuf.Buffer) uint64 {
	if newBuf != nil {
		return newBuf.ID(cd.BitmapBytes)
	}
	return oldBuf.ID(cd.BitmapBytes)
}

func addToIndexEntry(b *bolt.Bucket, key []byte, id uint64) error {
	existing := b.Get(key)
	ids := decodeUint64Slice(existing)
	for _, v := range ids {
		if v == id {
			return nil
		}
	}
	ids = append(ids, id)
	return b.Put(key, encodeUint64Slice(ids))
}

func removeFromIndexEntry(b *bolt.Bucket, key []byte, id uint64) error {
	existing := b.Get(key)
	if existing == nil {
		return nil
	}
	ids := decodeUint64Slice(existing)
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return b.Delete(key)
	}
	return b.Put(key, encodeUint64Slice(out))
}
