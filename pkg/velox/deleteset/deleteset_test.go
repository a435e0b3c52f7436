package deleteset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veloxdb/veloxdb/pkg/velox/deleteset"
)

func TestDeletedSetAddContains(t *testing.T) {
	d := deleteset.New()
	assert.False(t, d.Contains(1))

	grew := d.Add(1)
	assert.True(t, grew)
	assert.True(t, d.Contains(1))
	assert.Equal(t, 1, d.Len())

	grew = d.Add(1)
	assert.False(t, grew, "adding an id already in the set reports no growth")
	assert.Equal(t, 1, d.Len())
}

func TestDeletedSetVersionOnlyMovesExplicitly(t *testing.T) {
	d := deleteset.New()
	assert.Equal(t, uint64(0), d.Version())
	d.Add(1)
	assert.Equal(t, uint64(0), d.Version(), "Add alone never bumps the version")
	d.IncVersion()
	assert.Equal(t, uint64(1), d.Version())
}

func TestDeletedSetClear(t *testing.T) {
	d := deleteset.New()
	d.Add(1)
	d.Add(2)
	d.IncVersion()
	d.Clear()
	assert.Equal(t, 0, d.Len())
	assert.False(t, d.Contains(1))
	assert.Equal(t, uint64(1), d.Version(), "Clear does not reset the version counter")
}

func TestDeltaStoreTryCollectChanges(t *testing.T) {
	store := deleteset.NewDeltaStore()
	committed := []uint64{10, 20, 30}

	ids := store.TryCollectChanges(100, 5, committed, nil)
	assert.ElementsMatch(t, committed, ids)

	store.Add(100, 40, 5, true)
	store.Add(100, 20, 5, false)
	ids = store.TryCollectChanges(100, 5, committed, nil)
	assert.ElementsMatch(t, []uint64{10, 30, 40}, ids)
}

func TestDeltaStoreDropsDeletedReferrers(t *testing.T) {
	store := deleteset.NewDeltaStore()
	committed := []uint64{10, 20}
	store.Add(100, 30, 1, true)

	deleted := deleteset.New()
	deleted.Add(10)

	ids := store.TryCollectChanges(100, 1, committed, deleted)
	assert.ElementsMatch(t, []uint64{20, 30}, ids)
}

func TestDeltaStoreClear(t *testing.T) {
	store := deleteset.NewDeltaStore()
	store.Add(100, 1, 1, true)
	store.Clear()

	ids := store.TryCollectChanges(100, 1, []uint64{5}, nil)
	assert.Equal(t, []uint64{5}, ids)
}
