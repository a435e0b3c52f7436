package boltengine

import "encoding/binary"

// Bucket layout, one flat namespace of top-level buckets (mirrors the
// teacher's bucketNodes/bucketServices/... var block, generalized to a
// per-class bucket computed at open time instead of one var per resource).
var (
	bucketIDRanges = []byte("idranges")
	bucketStrings  = []byte("strings")
	bucketArrays   = []byte("arrays")
)

func classBucketName(classID uint32) []byte {
	b := make([]byte, 6)
	copy(b, "class:")
	return append(b, encodeU32(classID)...)
}

func inverseBucketName(classID uint32, propertyID int) []byte {
	b := make([]byte, 4)
	copy(b, "inv:")
	b = append(b, encodeU32(classID)...)
	return append(b, encodeU32(uint32(propertyID))...)
}

func hashIndexBucketName(classID uint32, name string) []byte {
	b := make([]byte, 5)
	copy(b, "hidx:")
	b = append(b, encodeU32(classID)...)
	b = append(b, ':')
	return append(b, []byte(name)...)
}

func sortedIndexBucketName(classID uint32, name string) []byte {
	b := make([]byte, 5)
	copy(b, "sidx:")
	b = append(b, encodeU32(classID)...)
	b = append(b, ':')
	return append(b, []byte(name)...)
}

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// invKey concatenates the target id and referrer id into the composite key
// the inverse-reference bucket is ordered by, so a Seek(targetID) prefix
// scan visits every referrer of that target contiguously.
func invKey(targetID, referrerID uint64) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k, targetID)
	binary.BigEndian.PutUint64(k[8:], referrerID)
	return k
}
