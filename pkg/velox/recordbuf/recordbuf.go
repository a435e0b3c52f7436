// Package recordbuf implements the packed per-object byte layout described
// in spec.md §3/§4.C2: a leading modification bitmap, an 8-byte id slot, an
// 8-byte engine version slot, and then the class's properties in declared
// order. It knows nothing about classes; schema.ClassDescriptor computes the
// byte offsets this package's accessors read and write.
package recordbuf

import (
	"encoding/binary"
	"math"
)

// IDSize and VersionSize are the two reserved 8-byte slots that precede the
// first user property in every record buffer. They correspond to property
// indexes 0 and 1, which spec.md §4.C2 says are "never bit-tracked".
const (
	IDSize      = 8
	VersionSize = 8
	headerSize  = IDSize + VersionSize
)

// BitmapBytes returns the number of modification-bitmap bytes needed for a
// class with propCount user properties (property indexes 2..propCount+1).
func BitmapBytes(propCount int) int {
	return (propCount + 7) / 8
}

// BitIndex returns the (byte, mask) pair for user property index propIndex
// (propIndex >= 2; 0 and 1 are reserved for id/version and are never
// bit-tracked, per spec.md §4.C2).
func BitIndex(propIndex int) (byteOffset int, mask byte) {
	i := propIndex - 2
	return i / 8, 1 << uint(i%8)
}

// Buffer is a packed record: [bitmap | id(8) | version(8) | properties...].
type Buffer []byte

// New allocates a zeroed buffer of the given total size with the id written
// at its header slot.
func New(bitmapBytes, totalSize int, id uint64) Buffer {
	b := make(Buffer, totalSize)
	binary.LittleEndian.PutUint64(b[bitmapBytes:], id)
	return b
}

// Clone returns an independent copy, used when a Read object is promoted to
// a session-owned (Modified) buffer.
func (b Buffer) Clone() Buffer {
	c := make(Buffer, len(b))
	copy(c, b)
	return c
}

// ID reads the id slot given the bitmap size preceding it.
func (b Buffer) ID(bitmapBytes int) uint64 {
	return binary.LittleEndian.Uint64(b[bitmapBytes:])
}

// Version reads the engine version slot.
func (b Buffer) Version(bitmapBytes int) uint64 {
	return binary.LittleEndian.Uint64(b[bitmapBytes+IDSize:])
}

// SetVersion writes the engine version slot. It does not flip any
// modification bit: the version is not a user property.
func (b Buffer) SetVersion(bitmapBytes int, version uint64) {
	binary.LittleEndian.PutUint64(b[bitmapBytes+IDSize:], version)
}

// IsBitSet reports whether the modification bit for propIndex is set.
func (b Buffer) IsBitSet(propIndex int) bool {
	byteOffset, mask := BitIndex(propIndex)
	return b[byteOffset]&mask != 0
}

// SetBit flips the modification bit for propIndex on.
func (b Buffer) SetBit(propIndex int) {
	byteOffset, mask := BitIndex(propIndex)
	b[byteOffset] |= mask
}

// ClearBitmap zeroes every modification bit (used right after an insert
// emitter runs, or when constructing a fresh buffer for creation).
func (b Buffer) ClearBitmap(bitmapBytes int) {
	for i := 0; i < bitmapBytes; i++ {
		b[i] = 0
	}
}

// AnyBitSet reports whether the modification bitmap has any bit set,
// the invariant spec.md §3 ties to the Modified flag.
func (b Buffer) AnyBitSet(bitmapBytes int) bool {
	for i := 0; i < bitmapBytes; i++ {
		if b[i] != 0 {
			return true
		}
	}
	return false
}

// --- fixed-width scalar accessors, all little-endian, all 8-byte slots ---
// per spec.md §3 ("8-byte slots such as boolean, integer widths, float /
// double, datetime-as-int64"). Every simple property, and every indirect
// handle (string/array/reference/reference-array), occupies one 8-byte slot;
// this keeps offset arithmetic a single multiply and keeps the simple-prefix
// fast-path copy a single contiguous memcpy.
const SlotSize = 8

func ReadUint64(b Buffer, offset int) uint64 {
	return binary.LittleEndian.Uint64(b[offset:])
}

func WriteUint64(b Buffer, offset int, v uint64) {
	binary.LittleEndian.PutUint64(b[offset:], v)
}

func ReadInt64(b Buffer, offset int) int64 {
	return int64(ReadUint64(b, offset))
}

func WriteInt64(b Buffer, offset int, v int64) {
	WriteUint64(b, offset, uint64(v))
}

func ReadBool(b Buffer, offset int) bool {
	return ReadUint64(b, offset) != 0
}

func WriteBool(b Buffer, offset int, v bool) {
	if v {
		WriteUint64(b, offset, 1)
	} else {
		WriteUint64(b, offset, 0)
	}
}

func ReadFloat64(b Buffer, offset int) float64 {
	return math.Float64frombits(ReadUint64(b, offset))
}

func WriteFloat64(b Buffer, offset int, v float64) {
	WriteUint64(b, offset, math.Float64bits(v))
}
