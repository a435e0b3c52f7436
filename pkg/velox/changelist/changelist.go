// Package changelist implements spec.md §4.C4: an ordered list of touched
// objects plus a per-class singly-linked chain over the same backing array,
// so a caller can iterate either "every touched object, insertion order" or
// "every touched object of class X (and its descendants), insertion order"
// without a second data structure.
package changelist

// Entry is anything the change list can track. Object models wrap their own
// per-object state in a type implementing Entry; the list itself never
// looks past ClassID().
type Entry interface {
	// ClassID identifies which per-class chain this entry belongs to.
	ClassID() uint32
}

type node struct {
	entry Entry
	next  int // index into nodes of the next entry added after this one in this class's chain, or -1
}

type classChain struct {
	head  int // index of the first (earliest) entry, or -1
	tail  int // index of the last (most recently added) entry, or -1
	count int
}

// List is the growable backing array plus per-class chain heads described
// in spec.md §4.C4.
type List struct {
	nodes       []node
	chains      map[uint32]*classChain
	initialCap  int
}

// New returns an empty List with the given initial backing-array capacity
// (spec.md §6 config: change_list_initial_capacity, default ~8192).
func New(initialCapacity int) *List {
	return &List{
		nodes:      make([]node, 0, initialCapacity),
		chains:     make(map[uint32]*classChain),
		initialCap: initialCapacity,
	}
}

// Add appends entry to the backing array and to the tail of its class's
// chain, so ForEachOfClass walks each class in insertion order.
func (l *List) Add(entry Entry) {
	classID := entry.ClassID()
	chain, ok := l.chains[classID]
	if !ok {
		chain = &classChain{head: -1, tail: -1}
		l.chains[classID] = chain
	}
	idx := len(l.nodes)
	l.nodes = append(l.nodes, node{entry: entry, next: -1})
	if chain.tail == -1 {
		chain.head = idx
	} else {
		l.nodes[chain.tail].next = idx
	}
	chain.tail = idx
	chain.count++
}

// Len returns the total number of tracked entries across all classes.
func (l *List) Len() int {
	return len(l.nodes)
}

// All returns every entry in insertion order.
func (l *List) All() []Entry {
	out := make([]Entry, len(l.nodes))
	for i, n := range l.nodes {
		out[i] = n.entry
	}
	return out
}

// HasLocalChange reports whether any entry of classID (exactly, not
// descendants) has been tracked.
func (l *List) HasLocalChange(classID uint32) bool {
	c, ok := l.chains[classID]
	return ok && c.count > 0
}

// TypeChangeCount returns how many entries of exactly classID are tracked
// (spec.md §9 "GetTypeChangeCount"), used by index readers to decide
// whether to flush via ApplyChanges instead of scanning locally (spec.md
// §4.C7's cascade_local_threshold check).
func (l *List) TypeChangeCount(classID uint32) int {
	c, ok := l.chains[classID]
	if !ok {
		return 0
	}
	return c.count
}

// ForEachOfClass walks every tracked entry whose class is classID or one of
// descendantClassIDs, in the order §4.C4 describes: each class's own chain,
// then each descendant's chain. descendantClassIDs should already include
// classID itself if self-entries are wanted (schema.ClassDescriptor's
// DescendantClassIDs is inclusive).
func (l *List) ForEachOfClass(descendantClassIDs []uint32, fn func(Entry)) {
	for _, cid := range descendantClassIDs {
		chain, ok := l.chains[cid]
		if !ok {
			continue
		}
		for i := chain.head; i != -1; i = l.nodes[i].next {
			fn(l.nodes[i].entry)
		}
	}
}

// Clear resets every touched class's chain head and truncates the backing
// array, shrinking it back to the initial capacity if it had grown past it
// (spec.md §4.C4).
func (l *List) Clear() {
	for _, c := range l.chains {
		c.head = -1
		c.tail = -1
		c.count = 0
	}
	if cap(l.nodes) > l.initialCap {
		l.nodes = make([]node, 0, l.initialCap)
	} else {
		l.nodes = l.nodes[:0]
	}
}
