package schema

import (
	"github.com/veloxdb/veloxdb/pkg/velox/deleteset"
	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
)

// EmitInsertRow appends one inserted object to cs, carrying every declared
// user property in class order (spec.md §6 "insert rows always carry every
// declared property"). SetToNull reference properties whose target is
// already in deleted are written as 0, matching the engine-visible value a
// later get would see.
func EmitInsertRow(cs *engine.Changeset, c *ClassDescriptor, buf recordbuf.Buffer, deleted *deleteset.DeletedSet) {
	props := c.UserProperties()
	propIDs := make([]int, len(props))
	values := make([]uint64, len(props))
	for i, p := range props {
		propIDs[i] = p.ID
		values[i] = rawValueForEmit(buf, p, deleted)
	}
	cs.AddInsertRow(c.ClassID, propIDs, buf.ID(c.BitmapBytes), values)
}

// EmitUpdateRow appends one updated object, carrying only the properties
// whose modification bit is set (spec.md §6 "update rows carry only
// modified properties"). It is a no-op if no property bit is set.
func EmitUpdateRow(cs *engine.Changeset, c *ClassDescriptor, buf recordbuf.Buffer, deleted *deleteset.DeletedSet) {
	var propIDs []int
	var values []uint64
	for _, p := range c.UserProperties() {
		if !buf.IsBitSet(p.Index) {
			continue
		}
		propIDs = append(propIDs, p.ID)
		values = append(values, rawValueForEmit(buf, p, deleted))
	}
	if len(propIDs) == 0 {
		return
	}
	cs.AddUpdateRow(c.ClassID, propIDs, buf.ID(c.BitmapBytes), values)
}

// rawValueForEmit reads the raw uint64 slot for p, filtering SetToNull
// reference targets that are pending deletion this session down to 0 so the
// engine never observes a dangling reference (spec.md §4.C3).
func rawValueForEmit(buf recordbuf.Buffer, p *Property, deleted *deleteset.DeletedSet) uint64 {
	if p.Kind == KindReference && p.DeleteAction == DeleteActionSetToNull {
		return GetReferenceFiltered(buf, p, deleted)
	}
	return recordbuf.ReadUint64(buf, p.Offset)
}
