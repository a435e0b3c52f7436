package collection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veloxdb/veloxdb/pkg/velox/collection"
)

func TestInverseReferenceSetFetchesLazilyAndOnce(t *testing.T) {
	calls := 0
	set := collection.New(func() []uint64 {
		calls++
		return []uint64{1, 2, 3}
	}, nil, nil)

	assert.Equal(t, 0, calls, "constructing the set does not fetch")
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 1, calls)

	assert.True(t, set.Contains(2))
	assert.Equal(t, 1, calls, "Contains after Len reuses the cached materialisation")
}

func TestInverseReferenceSetInvalidateRefetches(t *testing.T) {
	calls := 0
	set := collection.New(func() []uint64 {
		calls++
		return []uint64{uint64(calls)}
	}, nil, nil)

	assert.Equal(t, []uint64{1}, set.All())
	assert.Equal(t, uint64(0), set.Version())

	set.Invalidate()
	assert.Equal(t, uint64(1), set.Version())
	assert.Equal(t, []uint64{2}, set.All())
	assert.Equal(t, 2, calls)
}

func TestInverseReferenceSetReleaseMemoryDropsBackingArray(t *testing.T) {
	set := collection.New(func() []uint64 { return []uint64{1, 2} }, nil, nil)
	set.All()
	set.ReleaseMemory()
	assert.Equal(t, uint64(1), set.Version())
	assert.Equal(t, 2, set.Len(), "a later call refetches after release")
}

func TestInverseReferenceSetIndexOf(t *testing.T) {
	set := collection.New(func() []uint64 { return []uint64{5, 6, 7} }, nil, nil)
	assert.Equal(t, 1, set.IndexOf(6))
	assert.Equal(t, -1, set.IndexOf(99))
}

func TestInverseReferenceSetAddInvokesHook(t *testing.T) {
	var added []uint64
	set := collection.New(func() []uint64 { return nil }, func(id uint64) {
		added = append(added, id)
	}, nil)

	set.Add(42)
	set.AddRange([]uint64{7, 8})
	assert.Equal(t, []uint64{42, 7, 8}, added)
}

func TestInverseReferenceSetRemoveOnlyFiresForPresentMembers(t *testing.T) {
	var removed []uint64
	set := collection.New(func() []uint64 { return []uint64{1, 2} }, nil, func(id uint64) {
		removed = append(removed, id)
	})

	assert.False(t, set.Remove(99), "removing an id that isn't a member reports false and fires no hook")
	assert.Empty(t, removed)

	assert.True(t, set.Remove(1))
	assert.Equal(t, []uint64{1}, removed)
}

func TestInverseReferenceSetClearFiresRemoveForEveryMember(t *testing.T) {
	var removed []uint64
	set := collection.New(func() []uint64 { return []uint64{1, 2, 3} }, nil, func(id uint64) {
		removed = append(removed, id)
	})

	set.Clear()
	assert.ElementsMatch(t, []uint64{1, 2, 3}, removed)
}

func TestInverseReferenceSetWithNilHooksIsReadOnly(t *testing.T) {
	set := collection.New(func() []uint64 { return []uint64{1} }, nil, nil)
	// Add/Remove/Clear must not panic when no session wired mutation hooks.
	set.Add(2)
	set.Remove(1)
	set.Clear()
}
