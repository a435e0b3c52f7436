package boltengine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/engine/boltengine"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

// classIDBits mirrors objectmodel's id layout (a per-class sequence in the
// low 40 bits, classID in the bits above) so references built here resolve
// the way the object model would construct them.
const classIDBits = 40

func makeID(classID uint32, seq uint64) uint64 {
	return uint64(classID)<<classIDBits | seq
}

func loadDemoSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.LoadFile(filepath.Join("..", "..", "schema", "testdata", "demo.schema.yaml"))
	require.NoError(t, err)
	return sch
}

func openEngine(t *testing.T, sch *schema.Schema, indexes []boltengine.IndexSpec) *boltengine.Engine {
	t.Helper()
	eng, err := boltengine.Open(t.TempDir(), sch, indexes)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func beginTxn(t *testing.T, eng *boltengine.Engine, kind engine.TransactionKind) engine.Transaction {
	t.Helper()
	txn, err := eng.CreateTransaction(context.Background(), kind)
	require.NoError(t, err)
	return txn
}

func TestOpenedEngineHasNoObjects(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)

	cd, ok := sch.Class("City")
	require.True(t, ok)

	txn := beginTxn(t, eng, engine.Read)
	defer txn.Rollback()

	ok, err := txn.ObjectExists(cd.ClassID, makeID(cd.ClassID, 1))
	require.NoError(t, err)
	assert.False(t, ok, "a freshly opened engine has no objects yet")
}

func TestApplyChangesetInsertThenGetObject(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	cd, ok := sch.Class("City")
	require.True(t, ok)
	nameProp, _ := cd.PropertyByName("Name")
	popProp, _ := cd.PropertyByName("Population")

	id := makeID(cd.ClassID, 1)
	cs := engine.NewChangeset()
	cs.AddInsertRow(cd.ClassID, []int{nameProp.ID, popProp.ID}, id, []uint64{0, 8_000_000})

	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(cs, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()

	raw, found, err := txn.GetObject(cd.ClassID, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(8_000_000), schema.GetInt64(recordbuf.Buffer(raw), popProp))

	exists, err := txn.ObjectExists(cd.ClassID, id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApplyChangesetUpdateOverwritesOnlyGivenProperties(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	cd, _ := sch.Class("City")
	nameProp, _ := cd.PropertyByName("Name")
	popProp, _ := cd.PropertyByName("Population")
	id := makeID(cd.ClassID, 1)

	insert := engine.NewChangeset()
	insert.AddInsertRow(cd.ClassID, []int{nameProp.ID, popProp.ID}, id, []uint64{0, 100})
	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(insert, false))
	require.NoError(t, txn.Commit())

	update := engine.NewChangeset()
	update.AddUpdateRow(cd.ClassID, []int{popProp.ID}, id, []uint64{200})
	txn = beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(update, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	raw, found, err := txn.GetObject(cd.ClassID, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(200), schema.GetInt64(recordbuf.Buffer(raw), popProp))
}

func TestApplyChangesetDeleteRemovesObject(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	cd, _ := sch.Class("City")
	id := makeID(cd.ClassID, 1)

	insert := engine.NewChangeset()
	insert.AddInsertRow(cd.ClassID, nil, id, nil)
	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(insert, false))
	require.NoError(t, txn.Commit())

	del := engine.NewChangeset()
	del.AddDelete(cd.ClassID, id)
	txn = beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(del, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	_, found, err := txn.GetObject(cd.ClassID, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestApplyChangesetValidatesReferences(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	blogCD, _ := sch.Class("Blog")
	postCD, _ := sch.Class("Post")
	blogProp, _ := postCD.PropertyByName("Blog")

	dangling := makeID(blogCD.ClassID, 1) // never inserted
	cs := engine.NewChangeset()
	cs.AddInsertRow(postCD.ClassID, []int{blogProp.ID}, makeID(postCD.ClassID, 2), []uint64{dangling})

	txn := beginTxn(t, eng, engine.ReadWrite)
	err := txn.ApplyChangeset(cs, true)
	assert.Error(t, err, "a reference to an object that doesn't exist must be rejected when validateRefs is true")
	txn.Rollback()
}

func TestApplyChangesetAllowsForwardReferenceWithinSameBatch(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	blogCD, _ := sch.Class("Blog")
	postCD, _ := sch.Class("Post")
	blogProp, _ := postCD.PropertyByName("Blog")

	blogID := makeID(blogCD.ClassID, 1)
	postID := makeID(postCD.ClassID, 1)

	cs := engine.NewChangeset()
	cs.AddInsertRow(blogCD.ClassID, nil, blogID, nil)
	cs.AddInsertRow(postCD.ClassID, []int{blogProp.ID}, postID, []uint64{blogID})

	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(cs, true), "a sibling insert in the same batch is a valid forward reference")
	require.NoError(t, txn.Commit())
}

func TestApplyChangesetMaintainsInverseReferences(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	blogCD, _ := sch.Class("Blog")
	postCD, _ := sch.Class("Post")
	blogProp, _ := postCD.PropertyByName("Blog")

	blogID := makeID(blogCD.ClassID, 1)
	post1 := makeID(postCD.ClassID, 1)
	post2 := makeID(postCD.ClassID, 2)

	cs := engine.NewChangeset()
	cs.AddInsertRow(blogCD.ClassID, nil, blogID, nil)
	cs.AddInsertRow(postCD.ClassID, []int{blogProp.ID}, post1, []uint64{blogID})
	cs.AddInsertRow(postCD.ClassID, []int{blogProp.ID}, post2, []uint64{blogID})

	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(cs, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	referrers, err := txn.GetInverseReferences(blogCD.ClassID, blogID, blogProp.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{post1, post2}, referrers)
}

func TestApplyChangesetUpdateMovesInverseReference(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	blogCD, _ := sch.Class("Blog")
	postCD, _ := sch.Class("Post")
	blogProp, _ := postCD.PropertyByName("Blog")

	blogA := makeID(blogCD.ClassID, 1)
	blogB := makeID(blogCD.ClassID, 2)
	post := makeID(postCD.ClassID, 1)

	insert := engine.NewChangeset()
	insert.AddInsertRow(blogCD.ClassID, nil, blogA, nil)
	insert.AddInsertRow(blogCD.ClassID, nil, blogB, nil)
	insert.AddInsertRow(postCD.ClassID, []int{blogProp.ID}, post, []uint64{blogA})
	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(insert, false))
	require.NoError(t, txn.Commit())

	update := engine.NewChangeset()
	update.AddUpdateRow(postCD.ClassID, []int{blogProp.ID}, post, []uint64{blogB})
	txn = beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(update, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()

	fromA, err := txn.GetInverseReferences(blogCD.ClassID, blogA, blogProp.ID)
	require.NoError(t, err)
	assert.Empty(t, fromA, "moving the reference must drop the stale inverse edge on the old target")

	fromB, err := txn.GetInverseReferences(blogCD.ClassID, blogB, blogProp.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{post}, fromB)
}

func TestReserveIDRangeIsMonotonicAcrossTransactions(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	cd, _ := sch.Class("City")

	txn := beginTxn(t, eng, engine.ReadWrite)
	first, err := txn.ReserveIDRange(cd.ClassID, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first)
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.ReadWrite)
	second, err := txn.ReserveIDRange(cd.ClassID, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), second, "a later reservation continues after the prior range")
	require.NoError(t, txn.Commit())
}

func TestReserveIDRangeRequiresWritableTransaction(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	cd, _ := sch.Class("City")

	txn := beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	_, err := txn.ReserveIDRange(cd.ClassID, 10)
	assert.Error(t, err)
}

func TestStringInterningRoundTrips(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)

	txn := beginTxn(t, eng, engine.ReadWrite)
	handle, err := txn.InternString("Springfield")
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	s, err := txn.StringHandle(handle)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", s)
}

func TestStringHandleUnknownHandleErrors(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	txn := beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	_, err := txn.StringHandle(999)
	assert.Error(t, err)
}

func TestArrayInterningRoundTrips(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)

	txn := beginTxn(t, eng, engine.ReadWrite)
	handle, err := txn.InternArray([]uint64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	values, err := txn.ArrayData(handle)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, values)
}

func TestBeginClassScanWalksAllInsertedObjects(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	cd, _ := sch.Class("City")

	cs := engine.NewChangeset()
	cs.AddInsertRow(cd.ClassID, nil, makeID(cd.ClassID, 1), nil)
	cs.AddInsertRow(cd.ClassID, nil, makeID(cd.ClassID, 2), nil)
	cs.AddInsertRow(cd.ClassID, nil, makeID(cd.ClassID, 3), nil)
	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(cs, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	scan, err := txn.BeginClassScan(cd.ClassID, false)
	require.NoError(t, err)
	defer scan.Close()

	var ids []uint64
	for {
		id, classID, _, ok, err := scan.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.Equal(t, cd.ClassID, classID)
		ids = append(ids, id)
	}
	assert.ElementsMatch(t, []uint64{
		makeID(cd.ClassID, 1), makeID(cd.ClassID, 2), makeID(cd.ClassID, 3),
	}, ids)
}

func encodeKeyBE(v int64) []byte {
	u := uint64(v) ^ (1 << 63)
	key := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		key[i] = byte(u)
		u >>= 8
	}
	return key
}

func TestHashIndexReflectsInsertsAndUpdates(t *testing.T) {
	sch := loadDemoSchema(t)
	cd, ok := sch.Class("City")
	require.True(t, ok)
	popProp, _ := cd.PropertyByName("Population")

	spec := boltengine.IndexSpec{
		ClassID: cd.ClassID,
		Name:    "by_population",
		KeyOf: func(buf []byte) []byte {
			return encodeKeyBE(schema.GetInt64(recordbuf.Buffer(buf), popProp))
		},
	}
	eng := openEngine(t, sch, []boltengine.IndexSpec{spec})

	id := makeID(cd.ClassID, 1)
	insert := engine.NewChangeset()
	insert.AddInsertRow(cd.ClassID, []int{popProp.ID}, id, []uint64{uint64(1000)})
	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(insert, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	idx, err := txn.HashIndex(cd.ClassID, "by_population")
	require.NoError(t, err)
	ids, err := idx.Lookup(encodeKeyBE(1000))
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, ids)
	txn.Rollback()

	update := engine.NewChangeset()
	update.AddUpdateRow(cd.ClassID, []int{popProp.ID}, id, []uint64{uint64(2000)})
	txn = beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(update, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	idx, err = txn.HashIndex(cd.ClassID, "by_population")
	require.NoError(t, err)

	stale, err := idx.Lookup(encodeKeyBE(1000))
	require.NoError(t, err)
	assert.Empty(t, stale, "reindex must drop the old key's entry on update")

	fresh, err := idx.Lookup(encodeKeyBE(2000))
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, fresh)
}

func TestSortedIndexRangeScanIsOrderPreserving(t *testing.T) {
	sch := loadDemoSchema(t)
	cd, _ := sch.Class("City")
	popProp, _ := cd.PropertyByName("Population")

	spec := boltengine.IndexSpec{
		ClassID: cd.ClassID,
		Name:    "by_population_sorted",
		Sorted:  true,
		KeyOf: func(buf []byte) []byte {
			return encodeKeyBE(schema.GetInt64(recordbuf.Buffer(buf), popProp))
		},
	}
	eng := openEngine(t, sch, []boltengine.IndexSpec{spec})

	cs := engine.NewChangeset()
	cs.AddInsertRow(cd.ClassID, []int{popProp.ID}, makeID(cd.ClassID, 1), []uint64{uint64(100)})
	cs.AddInsertRow(cd.ClassID, []int{popProp.ID}, makeID(cd.ClassID, 2), []uint64{uint64(500)})
	cs.AddInsertRow(cd.ClassID, []int{popProp.ID}, makeID(cd.ClassID, 3), []uint64{uint64(900)})
	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(cs, false))
	require.NoError(t, txn.Commit())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	idx, err := txn.SortedIndex(cd.ClassID, "by_population_sorted")
	require.NoError(t, err)

	ids, err := idx.Range(encodeKeyBE(200), encodeKeyBE(900))
	require.NoError(t, err)
	assert.Equal(t, []uint64{makeID(cd.ClassID, 2), makeID(cd.ClassID, 3)}, ids)
}

func TestHashIndexUnknownNameErrors(t *testing.T) {
	sch := loadDemoSchema(t)
	cd, _ := sch.Class("City")
	eng := openEngine(t, sch, nil)

	txn := beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	_, err := txn.HashIndex(cd.ClassID, "nonexistent")
	assert.Error(t, err)
}

func TestCommitAsyncInvokesCallbackSynchronously(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	txn := beginTxn(t, eng, engine.ReadWrite)

	var called bool
	txn.CommitAsync(func(err error) {
		called = true
		assert.NoError(t, err)
	})
	assert.True(t, called)
}

func TestRollbackDiscardsUncommittedChanges(t *testing.T) {
	sch := loadDemoSchema(t)
	eng := openEngine(t, sch, nil)
	cd, _ := sch.Class("City")
	id := makeID(cd.ClassID, 1)

	cs := engine.NewChangeset()
	cs.AddInsertRow(cd.ClassID, nil, id, nil)
	txn := beginTxn(t, eng, engine.ReadWrite)
	require.NoError(t, txn.ApplyChangeset(cs, false))
	require.NoError(t, txn.Rollback())

	txn = beginTxn(t, eng, engine.Read)
	defer txn.Rollback()
	_, found, err := txn.GetObject(cd.ClassID, id)
	require.NoError(t, err)
	assert.False(t, found, "a rolled-back transaction must not persist its writes")
}
