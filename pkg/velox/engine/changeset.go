package engine

import (
	"encoding/binary"
	"fmt"
)

// blockTag identifies one of the three changeset block shapes fixed by
// spec.md §6 ("Changeset block format: bit-exact contract with engine").
type blockTag byte

const (
	tagInsert blockTag = 1
	tagUpdate blockTag = 2
	tagDelete blockTag = 3
)

// rowMarker terminates every row, per §6 ("last_value_written marker").
const rowMarker uint64 = 0xFFFFFFFFFFFFFFFF

// insertBlock holds every inserted row for one class: "insert_block(class_id,
// [prop_id...], prop_count)" followed by rows of "id(8) + prop_values...".
// Inserts always carry every declared property, in class order.
type insertBlock struct {
	classID uint32
	propIDs []int
	rows    [][]uint64 // one id + len(propIDs) values, per row
}

// updateBlock holds every updated row that shares the exact same set of
// modified property ids — the block header's [prop_id...] only has one
// natural reading if every row in the block shares it, so rows are grouped
// by their live modification bitmap before being blocked up.
type updateBlock struct {
	classID uint32
	propIDs []int
	rows    [][]uint64
}

// deleteBlock holds every deleted id for one class: "delete_block(class_id)"
// followed by bare id(8) entries.
type deleteBlock struct {
	classID uint32
	ids     []uint64
}

// Changeset accumulates insert/update/delete blocks for one ApplyChanges or
// Commit call (spec.md §4.C6). Blocks are appended in the order the object
// model session discovers them: deletes first, then inserts/updates, per
// the ApplyChanges algorithm.
type Changeset struct {
	inserts []insertBlock
	updates []updateBlock
	deletes []deleteBlock
}

// NewChangeset returns an empty changeset.
func NewChangeset() *Changeset {
	return &Changeset{}
}

// AddInsertRow appends one inserted row. values must align 1:1 with propIDs
// in class-declared order.
func (c *Changeset) AddInsertRow(classID uint32, propIDs []int, id uint64, values []uint64) {
	for i := range c.inserts {
		b := &c.inserts[i]
		if b.classID == classID && sameInts(b.propIDs, propIDs) {
			b.rows = append(b.rows, rowOf(id, values))
			return
		}
	}
	c.inserts = append(c.inserts, insertBlock{classID: classID, propIDs: propIDs, rows: [][]uint64{rowOf(id, values)}})
}

// AddUpdateRow appends one updated row, grouping by (classID, propIDs) so
// the block header's declared property list applies to every row in it.
func (c *Changeset) AddUpdateRow(classID uint32, propIDs []int, id uint64, values []uint64) {
	for i := range c.updates {
		b := &c.updates[i]
		if b.classID == classID && sameInts(b.propIDs, propIDs) {
			b.rows = append(b.rows, rowOf(id, values))
			return
		}
	}
	c.updates = append(c.updates, updateBlock{classID: classID, propIDs: propIDs, rows: [][]uint64{rowOf(id, values)}})
}

// AddDelete appends one deleted id.
func (c *Changeset) AddDelete(classID uint32, id uint64) {
	for i := range c.deletes {
		if c.deletes[i].classID == classID {
			c.deletes[i].ids = append(c.deletes[i].ids, id)
			return
		}
	}
	c.deletes = append(c.deletes, deleteBlock{classID: classID, ids: []uint64{id}})
}

// IsEmpty reports whether the changeset has no blocks at all.
func (c *Changeset) IsEmpty() bool {
	return len(c.inserts) == 0 && len(c.updates) == 0 && len(c.deletes) == 0
}

// Deletes, Inserts, Updates expose the accumulated blocks for an Engine
// implementation to apply; they are read-only views.
func (c *Changeset) Deletes() []struct {
	ClassID uint32
	IDs     []uint64
} {
	out := make([]struct {
		ClassID uint32
		IDs     []uint64
	}, len(c.deletes))
	for i, b := range c.deletes {
		out[i].ClassID = b.classID
		out[i].IDs = b.ids
	}
	return out
}

func (c *Changeset) Inserts() []struct {
	ClassID uint32
	PropIDs []int
	Rows    [][]uint64
} {
	out := make([]struct {
		ClassID uint32
		PropIDs []int
		Rows    [][]uint64
	}, len(c.inserts))
	for i, b := range c.inserts {
		out[i].ClassID = b.classID
		out[i].PropIDs = b.propIDs
		out[i].Rows = b.rows
	}
	return out
}

func (c *Changeset) Updates() []struct {
	ClassID uint32
	PropIDs []int
	Rows    [][]uint64
} {
	out := make([]struct {
		ClassID uint32
		PropIDs []int
		Rows    [][]uint64
	}, len(c.updates))
	for i, b := range c.updates {
		out[i].ClassID = b.classID
		out[i].PropIDs = b.propIDs
		out[i].Rows = b.rows
	}
	return out
}

func rowOf(id uint64, values []uint64) []uint64 {
	row := make([]uint64, 0, 1+len(values))
	row = append(row, id)
	row = append(row, values...)
	return row
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Encode serializes the changeset to the wire format fixed by spec.md §6:
// each block is its tag, class id, the declared property-id list and a
// prevVersionPlaceholder (delete blocks omit both), a row count, then the rows
// themselves (id + values), each row closed by rowMarker. The row count is
// this implementation's choice for how a reader knows where a block ends;
// §6 fixes the row shape, not the block-length framing.
func (c *Changeset) Encode() []byte {
	var buf []byte
	putU32 := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }
	putU64 := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }

	for _, b := range c.inserts {
		buf = append(buf, byte(tagInsert))
		putU32(b.classID)
		putU32(uint32(len(b.propIDs)))
		for _, id := range b.propIDs {
			putU32(uint32(id))
		}
		putU64(0) // prevVersionPlaceholder
		putU32(uint32(len(b.rows)))
		for _, row := range b.rows {
			for _, v := range row {
				putU64(v)
			}
			putU64(rowMarker)
		}
	}
	for _, b := range c.updates {
		buf = append(buf, byte(tagUpdate))
		putU32(b.classID)
		putU32(uint32(len(b.propIDs)))
		for _, id := range b.propIDs {
			putU32(uint32(id))
		}
		putU64(0)
		putU32(uint32(len(b.rows)))
		for _, row := range b.rows {
			for _, v := range row {
				putU64(v)
			}
			putU64(rowMarker)
		}
	}
	for _, b := range c.deletes {
		buf = append(buf, byte(tagDelete))
		putU32(b.classID)
		putU32(uint32(len(b.ids)))
		for _, id := range b.ids {
			putU64(id)
			putU64(rowMarker)
		}
	}
	return buf
}

// Decode parses the wire format produced by Encode back into an in-memory
// Changeset, used by an Engine implementation that only receives bytes
// (e.g. across a process boundary) rather than the in-memory value.
func Decode(data []byte) (*Changeset, error) {
	c := NewChangeset()
	r := data
	readByte := func() (byte, error) {
		if len(r) < 1 {
			return 0, fmt.Errorf("engine: truncated changeset")
		}
		v := r[0]
		r = r[1:]
		return v, nil
	}
	readU32 := func() (uint32, error) {
		if len(r) < 4 {
			return 0, fmt.Errorf("engine: truncated changeset")
		}
		v := binary.LittleEndian.Uint32(r)
		r = r[4:]
		return v, nil
	}
	readU64 := func() (uint64, error) {
		if len(r) < 8 {
			return 0, fmt.Errorf("engine: truncated changeset")
		}
		v := binary.LittleEndian.Uint64(r)
		r = r[8:]
		return v, nil
	}
	readRow := func(valueCount int) ([]uint64, error) {
		row := make([]uint64, 0, 1+valueCount)
		id, err := readU64()
		if err != nil {
			return nil, err
		}
		row = append(row, id)
		for i := 0; i < valueCount; i++ {
			v, err := readU64()
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		marker, err := readU64()
		if err != nil {
			return nil, err
		}
		if marker != rowMarker {
			return nil, fmt.Errorf("engine: row marker mismatch, changeset is corrupt")
		}
		return row, nil
	}

	for len(r) > 0 {
		tagByte, err := readByte()
		if err != nil {
			return nil, err
		}
		tag := blockTag(tagByte)
		classID, err := readU32()
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagInsert, tagUpdate:
			propCount, err := readU32()
			if err != nil {
				return nil, err
			}
			propIDs := make([]int, propCount)
			for i := range propIDs {
				v, err := readU32()
				if err != nil {
					return nil, err
				}
				propIDs[i] = int(v)
			}
			if _, err := readU64(); err != nil { // prevVersionPlaceholder
				return nil, err
			}
			rowCount, err := readU32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < rowCount; i++ {
				row, err := readRow(len(propIDs))
				if err != nil {
					return nil, err
				}
				if tag == tagInsert {
					c.AddInsertRow(classID, propIDs, row[0], row[1:])
				} else {
					c.AddUpdateRow(classID, propIDs, row[0], row[1:])
				}
			}
		case tagDelete:
			rowCount, err := readU32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < rowCount; i++ {
				row, err := readRow(0)
				if err != nil {
					return nil, err
				}
				c.AddDelete(classID, row[0])
			}
		default:
			return nil, fmt.Errorf("engine: unknown changeset block tag %d", tagByte)
		}
	}
	return c, nil
}
