package objectmodel

import "github.com/veloxdb/veloxdb/pkg/velox/engine"

// Config mirrors spec.md §6's session creation configuration, field for
// field.
type Config struct {
	TransactionKind engine.TransactionKind

	IDRangeSize           uint32  // default 5_000_000
	IDRangeRequest        uint32  // default 1_000
	IDRefillWaterMark     float64 // default 0.4
	CascadeLocalThreshold int     // default 4

	ChangeListInitialCapacity int    // default 8192
	BufferStringPoolInitial   uint32 // default 8192
}

// withDefaults fills in spec.md §6's default magnitudes for any zero field.
func (c Config) withDefaults() Config {
	if c.IDRangeSize == 0 {
		c.IDRangeSize = 5_000_000
	}
	if c.IDRangeRequest == 0 {
		c.IDRangeRequest = 1_000
	}
	if c.IDRefillWaterMark == 0 {
		c.IDRefillWaterMark = 0.4
	}
	if c.CascadeLocalThreshold == 0 {
		c.CascadeLocalThreshold = 4
	}
	if c.ChangeListInitialCapacity == 0 {
		c.ChangeListInitialCapacity = 8192
	}
	if c.BufferStringPoolInitial == 0 {
		c.BufferStringPoolInitial = 8192
	}
	return c
}
