package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxdb/veloxdb/pkg/velox/engine"
)

func TestChangesetIsEmpty(t *testing.T) {
	cs := engine.NewChangeset()
	assert.True(t, cs.IsEmpty())

	cs.AddDelete(1, 100)
	assert.False(t, cs.IsEmpty())
}

func TestChangesetGroupsRowsByClassAndPropIDs(t *testing.T) {
	cs := engine.NewChangeset()
	cs.AddInsertRow(1, []int{2, 3}, 10, []uint64{1, 2})
	cs.AddInsertRow(1, []int{2, 3}, 11, []uint64{3, 4})
	cs.AddInsertRow(1, []int{2}, 12, []uint64{5})

	inserts := cs.Inserts()
	require.Len(t, inserts, 2, "rows sharing (classID, propIDs) collapse into one block")
	assert.Equal(t, []int{2, 3}, inserts[0].PropIDs)
	assert.Len(t, inserts[0].Rows, 2)
	assert.Equal(t, []int{2}, inserts[1].PropIDs)
	assert.Len(t, inserts[1].Rows, 1)
}

func TestChangesetDeleteGroupsByClass(t *testing.T) {
	cs := engine.NewChangeset()
	cs.AddDelete(1, 10)
	cs.AddDelete(1, 11)
	cs.AddDelete(2, 20)

	deletes := cs.Deletes()
	require.Len(t, deletes, 2)
	assert.Equal(t, []uint64{10, 11}, deletes[0].IDs)
	assert.Equal(t, []uint64{20}, deletes[1].IDs)
}

func TestChangesetEncodeDecodeRoundTrip(t *testing.T) {
	cs := engine.NewChangeset()
	cs.AddInsertRow(1, []int{2, 3}, 100, []uint64{7, 8})
	cs.AddUpdateRow(1, []int{3}, 101, []uint64{9})
	cs.AddDelete(2, 200)

	data := cs.Encode()
	require.NotEmpty(t, data)

	decoded, err := engine.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, cs.Inserts(), decoded.Inserts())
	assert.Equal(t, cs.Updates(), decoded.Updates())
	assert.Equal(t, cs.Deletes(), decoded.Deletes())
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	cs := engine.NewChangeset()
	cs.AddDelete(1, 10)
	data := cs.Encode()

	_, err := engine.Decode(data[:len(data)-1])
	assert.Error(t, err)
}
