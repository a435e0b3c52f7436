package recordbuf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
)

func TestBitmapBytes(t *testing.T) {
	assert.Equal(t, 0, recordbuf.BitmapBytes(0))
	assert.Equal(t, 1, recordbuf.BitmapBytes(1))
	assert.Equal(t, 1, recordbuf.BitmapBytes(8))
	assert.Equal(t, 2, recordbuf.BitmapBytes(9))
}

func TestBitIndexRoundTrip(t *testing.T) {
	bitmapBytes := recordbuf.BitmapBytes(10)
	buf := recordbuf.New(bitmapBytes, bitmapBytes+recordbuf.IDSize+recordbuf.VersionSize+10*recordbuf.SlotSize, 42)

	for propIndex := 2; propIndex < 12; propIndex++ {
		assert.False(t, buf.IsBitSet(propIndex))
		buf.SetBit(propIndex)
		assert.True(t, buf.IsBitSet(propIndex))
	}
	assert.True(t, buf.AnyBitSet(bitmapBytes))

	buf.ClearBitmap(bitmapBytes)
	assert.False(t, buf.AnyBitSet(bitmapBytes))
	for propIndex := 2; propIndex < 12; propIndex++ {
		assert.False(t, buf.IsBitSet(propIndex))
	}
}

func TestIDAndVersion(t *testing.T) {
	bitmapBytes := 1
	buf := recordbuf.New(bitmapBytes, bitmapBytes+recordbuf.IDSize+recordbuf.VersionSize, 123456)

	assert.Equal(t, uint64(123456), buf.ID(bitmapBytes))
	assert.Equal(t, uint64(0), buf.Version(bitmapBytes))

	buf.SetVersion(bitmapBytes, 7)
	assert.Equal(t, uint64(7), buf.Version(bitmapBytes))
	assert.Equal(t, uint64(123456), buf.ID(bitmapBytes), "setting version must not disturb the id slot")
}

func TestClone(t *testing.T) {
	bitmapBytes := 1
	buf := recordbuf.New(bitmapBytes, bitmapBytes+recordbuf.IDSize+recordbuf.VersionSize+recordbuf.SlotSize, 1)
	offset := bitmapBytes + recordbuf.IDSize + recordbuf.VersionSize
	recordbuf.WriteInt64(buf, offset, 99)

	clone := buf.Clone()
	recordbuf.WriteInt64(clone, offset, 1)

	assert.Equal(t, int64(99), recordbuf.ReadInt64(buf, offset))
	assert.Equal(t, int64(1), recordbuf.ReadInt64(clone, offset))
}

func TestScalarAccessors(t *testing.T) {
	bitmapBytes := 1
	offset := bitmapBytes + recordbuf.IDSize + recordbuf.VersionSize
	buf := recordbuf.New(bitmapBytes, offset+4*recordbuf.SlotSize, 1)

	recordbuf.WriteInt64(buf, offset, -7)
	assert.Equal(t, int64(-7), recordbuf.ReadInt64(buf, offset))

	recordbuf.WriteUint64(buf, offset+recordbuf.SlotSize, 1<<40)
	assert.Equal(t, uint64(1<<40), recordbuf.ReadUint64(buf, offset+recordbuf.SlotSize))

	recordbuf.WriteBool(buf, offset+2*recordbuf.SlotSize, true)
	assert.True(t, recordbuf.ReadBool(buf, offset+2*recordbuf.SlotSize))
	recordbuf.WriteBool(buf, offset+2*recordbuf.SlotSize, false)
	assert.False(t, recordbuf.ReadBool(buf, offset+2*recordbuf.SlotSize))

	recordbuf.WriteFloat64(buf, offset+3*recordbuf.SlotSize, 3.25)
	assert.Equal(t, 3.25, recordbuf.ReadFloat64(buf, offset+3*recordbuf.SlotSize))
}
