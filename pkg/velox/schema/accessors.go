package schema

import (
	"github.com/veloxdb/veloxdb/pkg/velox/deleteset"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
)

// The getters/setters below are the interpreter spec.md §9 calls for in
// place of the source's runtime-IL-emitted accessors: they walk the
// precomputed offset table once per access instead of synthesizing code.
// Setters assume the caller (objectmodel) has already verified modify
// access and promoted buf to a session-owned clone; they only write the
// value and flip the modification bit.

func GetBool(buf recordbuf.Buffer, p *Property) bool       { return recordbuf.ReadBool(buf, p.Offset) }
func GetInt32(buf recordbuf.Buffer, p *Property) int32      { return int32(recordbuf.ReadInt64(buf, p.Offset)) }
func GetUint32(buf recordbuf.Buffer, p *Property) uint32     { return uint32(recordbuf.ReadUint64(buf, p.Offset)) }
func GetInt64(buf recordbuf.Buffer, p *Property) int64      { return recordbuf.ReadInt64(buf, p.Offset) }
func GetUint64(buf recordbuf.Buffer, p *Property) uint64     { return recordbuf.ReadUint64(buf, p.Offset) }
func GetFloat64(buf recordbuf.Buffer, p *Property) float64  { return recordbuf.ReadFloat64(buf, p.Offset) }

func SetBool(buf recordbuf.Buffer, p *Property, v bool) {
	recordbuf.WriteBool(buf, p.Offset, v)
	buf.SetBit(p.Index)
}

func SetInt32(buf recordbuf.Buffer, p *Property, v int32) {
	recordbuf.WriteInt64(buf, p.Offset, int64(v))
	buf.SetBit(p.Index)
}

func SetUint32(buf recordbuf.Buffer, p *Property, v uint32) {
	recordbuf.WriteUint64(buf, p.Offset, uint64(v))
	buf.SetBit(p.Index)
}

func SetInt64(buf recordbuf.Buffer, p *Property, v int64) {
	recordbuf.WriteInt64(buf, p.Offset, v)
	buf.SetBit(p.Index)
}

func SetUint64(buf recordbuf.Buffer, p *Property, v uint64) {
	recordbuf.WriteUint64(buf, p.Offset, v)
	buf.SetBit(p.Index)
}

func SetFloat64(buf recordbuf.Buffer, p *Property, v float64) {
	recordbuf.WriteFloat64(buf, p.Offset, v)
	buf.SetBit(p.Index)
}

// GetStringHandle/SetStringHandle, GetHandle/SetHandle (arrays) and
// GetReference/SetReference all share the uint64-slot shape; they are kept
// separate from the simple getters above so call sites read as intent
// (string pool index vs. array handle vs. object id), matching how the
// class metadata layer distinguishes them for codegen purposes.

func GetStringHandle(buf recordbuf.Buffer, p *Property) uint64  { return recordbuf.ReadUint64(buf, p.Offset) }
func SetStringHandle(buf recordbuf.Buffer, p *Property, h uint64) {
	recordbuf.WriteUint64(buf, p.Offset, h)
	buf.SetBit(p.Index)
}

func GetArrayHandle(buf recordbuf.Buffer, p *Property) uint64 { return recordbuf.ReadUint64(buf, p.Offset) }
func SetArrayHandle(buf recordbuf.Buffer, p *Property, h uint64) {
	recordbuf.WriteUint64(buf, p.Offset, h)
	buf.SetBit(p.Index)
}

// GetReference reads the raw target id, 0 meaning null. It performs no
// deleted-set filtering; use GetReferenceFiltered for that.
func GetReference(buf recordbuf.Buffer, p *Property) uint64 { return recordbuf.ReadUint64(buf, p.Offset) }

func SetReference(buf recordbuf.Buffer, p *Property, targetID uint64) {
	recordbuf.WriteUint64(buf, p.Offset, targetID)
	buf.SetBit(p.Index)
}

// GetReferenceFiltered implements spec.md §4.C6's
// get_set_to_null_reference: a SetToNull reference property reads as null
// once its target has been deleted this session, even before the delete is
// applied to the engine.
func GetReferenceFiltered(buf recordbuf.Buffer, p *Property, deleted *deleteset.DeletedSet) uint64 {
	target := GetReference(buf, p)
	if target == 0 {
		return 0
	}
	if p.DeleteAction == DeleteActionSetToNull && deleted != nil && deleted.Contains(target) {
		return 0
	}
	return target
}

// MatchesDeleted is the compiled cascade predicate spec.md §4.C3 describes
// as "(wrapper, deleted_id_set, offset) -> bool", specialized here to
// direct Reference properties: it reads the raw target id out of buf at
// p.Offset and reports whether it is in deleted. ReferenceArray properties
// need the array's element ids, which live in the engine rather than buf,
// so those are predicated by objectmodel instead, which has engine access
// this package doesn't.
func MatchesDeleted(buf recordbuf.Buffer, p *Property, deleted *deleteset.DeletedSet) bool {
	if p.Kind != KindReference {
		return false
	}
	target := recordbuf.ReadUint64(buf, p.Offset)
	return target != 0 && deleted.Contains(target)
}
