/*
Package idalloc implements the id-range allocator of spec.md §4.C1. A
session serves object-creation ids out of a local [current, limit) window;
when the window is exhausted it blocks on a single inflight engine
reservation, and once the window's remaining fraction drops under a
low-water mark it kicks off the next reservation in the background so the
common case never blocks. Two mutexes enforce spec.md §5's "at most one
inflight reservation": reserveMu serializes the engine-facing call itself
(shared by the synchronous and background paths), while mu guards the
current/limit/prefetched-range bookkeeping callers observe.
*/
package idalloc
