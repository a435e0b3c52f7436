package collection

// RawValueSource is implemented by every *ValueArray[T] regardless of T,
// letting a caller that only knows "this property index holds some array"
// (objectmodel, flushing dirty arrays before emitting a changeset row)
// fetch its encoded contents without knowing T.
type RawValueSource interface {
	RawSlots() []uint64
}

// ValueArray implements spec.md §4.C8's typed value array: a read-only view
// over an engine-owned packed slice of raw uint64 slots until the first
// mutation promotes it to a session-owned, independently growable []T. The
// caller supplies the encode/decode pair for its element kind (bool, int32,
// uint32, int64, uint64, float64, or datetime, all of which this package
// sees only as their raw uint64 slot representation) and an onMutate hook
// invoked exactly once, on promotion, to flip the owning property's
// modification bit and mark the owning object modified (spec.md §4.C6).
type ValueArray[T comparable] struct {
	raw      []uint64
	local    []T
	promoted bool
	version  uint64

	decode   func(uint64) T
	encode   func(T) uint64
	onMutate func()
}

// NewEngineBacked wraps raw engine slot data; it stays a read-only view
// until the first mutating call.
func NewEngineBacked[T comparable](raw []uint64, decode func(uint64) T, encode func(T) uint64, onMutate func()) *ValueArray[T] {
	return &ValueArray[T]{raw: raw, decode: decode, encode: encode, onMutate: onMutate}
}

// NewLocal returns an already-promoted array for a newly inserted object,
// which has no engine-owned data to view.
func NewLocal[T comparable](decode func(uint64) T, encode func(T) uint64, onMutate func()) *ValueArray[T] {
	return &ValueArray[T]{local: []T{}, promoted: true, decode: decode, encode: encode, onMutate: onMutate}
}

func (a *ValueArray[T]) promote() {
	if a.promoted {
		return
	}
	a.local = make([]T, len(a.raw))
	for i, v := range a.raw {
		a.local[i] = a.decode(v)
	}
	a.promoted = true
	a.raw = nil
	if a.onMutate != nil {
		a.onMutate()
	}
}

// Version returns the current invalidation counter; it increments on every
// structural mutation (Add/AddRange/RemoveAt/Clear), never on Set or Get.
func (a *ValueArray[T]) Version() uint64 { return a.version }

func (a *ValueArray[T]) Len() int {
	if a.promoted {
		return len(a.local)
	}
	return len(a.raw)
}

func (a *ValueArray[T]) Get(i int) T {
	if a.promoted {
		return a.local[i]
	}
	return a.decode(a.raw[i])
}

// Set overwrites one element in place; it promotes on first call but does
// not bump Version since the element count is unchanged.
func (a *ValueArray[T]) Set(i int, v T) {
	a.promote()
	a.local[i] = v
}

func (a *ValueArray[T]) Add(v T) {
	a.promote()
	a.local = append(a.local, v)
	a.version++
}

func (a *ValueArray[T]) AddRange(vs []T) {
	a.promote()
	a.local = append(a.local, vs...)
	a.version++
}

func (a *ValueArray[T]) RemoveAt(i int) {
	a.promote()
	a.local = append(a.local[:i], a.local[i+1:]...)
	a.version++
}

func (a *ValueArray[T]) Contains(v T) bool {
	for i := 0; i < a.Len(); i++ {
		if a.Get(i) == v {
			return true
		}
	}
	return false
}

func (a *ValueArray[T]) IndexOf(v T) int {
	for i := 0; i < a.Len(); i++ {
		if a.Get(i) == v {
			return i
		}
	}
	return -1
}

// Clear empties the array, promoting it if it wasn't already.
func (a *ValueArray[T]) Clear() {
	a.promote()
	a.local = a.local[:0]
	a.version++
}

// RawSlots encodes the current contents back to raw uint64 slots, for an
// insert/update changeset row.
func (a *ValueArray[T]) RawSlots() []uint64 {
	out := make([]uint64, a.Len())
	for i := 0; i < a.Len(); i++ {
		out[i] = a.encode(a.Get(i))
	}
	return out
}
