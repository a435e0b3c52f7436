// Package boltengine is a bbolt-backed implementation of the engine
// package's Engine/Transaction boundary (spec.md §6), adapted from the
// teacher's single-file BoltDB store: one bucket per class holds canonical
// record buffers keyed by 8-byte big-endian id, with sibling buckets for
// inverse-reference adjacency, id-range reservation, interned strings and
// arrays, and declared hash/sorted indexes.
//
// Where the teacher's BoltStore hand-marshals one JSON bucket per resource
// type, boltengine stores the object model's own packed recordbuf.Buffer
// bytes directly and uses schema.Schema (property ids, kinds, offsets and
// inverse-tracking flags) to build, patch, delete and index those buffers.
package boltengine
