/*
Package recordbuf implements the per-object packed byte layout: a leading
modification bitmap, an 8-byte id, an 8-byte engine version, then one 8-byte
slot per declared property in class order (spec.md §3, §4.C2). Reads are
zero-copy against the underlying []byte; a write first requires the caller
(schema.ClassDescriptor's accessors, via the object model session) to have
promoted the buffer to a session-owned Clone.
*/
package recordbuf
