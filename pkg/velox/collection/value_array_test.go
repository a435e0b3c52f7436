package collection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veloxdb/veloxdb/pkg/velox/collection"
)

func int64Decode(v uint64) int64 { return int64(v) }
func int64Encode(v int64) uint64 { return uint64(v) }

func TestValueArrayEngineBackedStaysUnpromotedUntilMutated(t *testing.T) {
	mutated := 0
	raw := []uint64{1, 2, 3}
	arr := collection.NewEngineBacked(raw, int64Decode, int64Encode, func() { mutated++ })

	assert.Equal(t, 3, arr.Len())
	assert.Equal(t, int64(2), arr.Get(1))
	assert.Equal(t, 0, mutated, "reads alone never promote or fire onMutate")

	arr.Add(4)
	assert.Equal(t, 1, mutated)
	assert.Equal(t, 4, arr.Len())
	assert.Equal(t, int64(4), arr.Get(3))

	arr.Add(5)
	assert.Equal(t, 1, mutated, "onMutate fires once, at promotion, not on every later mutation")
}

func TestValueArrayLocalStartsPromoted(t *testing.T) {
	mutated := 0
	arr := collection.NewLocal(int64Decode, int64Encode, func() { mutated++ })
	arr.AddRange([]int64{10, 20, 30})
	assert.Equal(t, 0, mutated, "a freshly created object's array is already promoted; onMutate never fires")
	assert.Equal(t, 3, arr.Len())
}

func TestValueArrayRemoveAtAndIndexOf(t *testing.T) {
	arr := collection.NewLocal(int64Decode, int64Encode, func() {})
	arr.AddRange([]int64{33, 39, 41, 34})

	idx := arr.IndexOf(41)
	assert.Equal(t, 2, idx)
	arr.RemoveAt(idx)

	assert.False(t, arr.Contains(41))
	assert.Equal(t, 3, arr.Len())
	assert.Equal(t, []int64{33, 39, 34}, rawValueArray(arr))
}

func TestValueArrayVersionTracksStructuralChangesOnly(t *testing.T) {
	arr := collection.NewLocal(int64Decode, int64Encode, func() {})
	assert.Equal(t, uint64(0), arr.Version())

	arr.Add(1)
	assert.Equal(t, uint64(1), arr.Version())

	arr.Set(0, 2)
	assert.Equal(t, uint64(1), arr.Version(), "Set does not bump version")

	arr.Clear()
	assert.Equal(t, uint64(2), arr.Version())
}

func TestValueArrayRawSlotsRoundTrips(t *testing.T) {
	raw := []uint64{uint64(1), uint64(2)}
	arr := collection.NewEngineBacked(raw, int64Decode, int64Encode, func() {})
	arr.Add(3)
	assert.Equal(t, []uint64{1, 2, 3}, arr.RawSlots())
}

func rawValueArray(arr *collection.ValueArray[int64]) []int64 {
	out := make([]int64, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		out[i] = arr.Get(i)
	}
	return out
}
