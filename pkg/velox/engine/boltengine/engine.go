package boltengine

import (
	"context"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

// IndexSpec declares one hash or sorted index over a class, the way the
// demo server registers them at startup. KeyOf computes the index key from
// a stored record buffer; it is supplied by the caller because only
// schema-aware code knows which properties compose the key.
type IndexSpec struct {
	ClassID uint32
	Name    string
	Sorted  bool
	KeyOf   func(buf []byte) []byte
}

// Engine is a bbolt-backed engine.Engine, grounded on the teacher's
// BoltStore (pkg/storage/boltdb.go): one bolt.DB, opened once, with buckets
// created up front instead of lazily per resource type.
type Engine struct {
	db      *bolt.DB
	schema  *schema.Schema
	indexes map[uint32][]IndexSpec // classID -> its declared indexes
}

// Open creates or opens a bbolt database at dataDir/"veloxdb.db" and
// prepares one bucket per class declared in sch, plus the ambient buckets
// for id ranges, interned strings/arrays, and every declared index.
func Open(dataDir string, sch *schema.Schema, indexes []IndexSpec) (*Engine, error) {
	dbPath := filepath.Join(dataDir, "veloxdb.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltengine: open %s: %w", dbPath, err)
	}

	e := &Engine{db: db, schema: sch, indexes: make(map[uint32][]IndexSpec)}
	for _, spec := range indexes {
		e.indexes[spec.ClassID] = append(e.indexes[spec.ClassID], spec)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{bucketIDRanges, bucketStrings, bucketArrays}
		for _, cd := range sch.Classes() {
			buckets = append(buckets, classBucketName(cd.ClassID))
			for _, p := range cd.UserProperties() {
				if p.Kind.IsReference() && p.TrackInverse {
					buckets = append(buckets, inverseBucketName(cd.ClassID, p.ID))
				}
			}
		}
		for _, spec := range indexes {
			if spec.Sorted {
				buckets = append(buckets, sortedIndexBucketName(spec.ClassID, spec.Name))
			} else {
				buckets = append(buckets, hashIndexBucketName(spec.ClassID, spec.Name))
			}
		}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Close closes the underlying database.
func (e *Engine) Close() error { return e.db.Close() }

// CreateTransaction implements engine.Engine.
func (e *Engine) CreateTransaction(ctx context.Context, kind engine.TransactionKind) (engine.Transaction, error) {
	tx, err := e.db.Begin(kind == engine.ReadWrite)
	if err != nil {
		return nil, fmt.Errorf("boltengine: begin transaction: %w", err)
	}
	return &transaction{eng: e, tx: tx, kind: kind}, nil
}
