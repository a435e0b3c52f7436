package objectmodel

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns the id of the calling goroutine, parsed out of its
// own stack trace header ("goroutine 123 [running]: ..."). The runtime
// does not export this; every session stores the id of its creating
// goroutine at construction and compares against it on every public call
// to enforce spec.md §5's single-threaded-affine rule (ErrWrongThread).
// This is the standard workaround used anywhere Go code needs to assert
// goroutine affinity without threading a context value through every call.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.Fields(buf[:n])
	if len(field) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(string(field[1]), 10, 64)
	return id
}
