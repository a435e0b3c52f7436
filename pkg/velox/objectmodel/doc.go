// Package objectmodel implements spec.md §4.C6, the object model
// transactional session: identity map, dirty marking, cascade-delete
// fixpoint, inverse-reference reconciliation, and the two-phase
// ApplyChanges pipeline, built on top of recordbuf, schema, changelist,
// deleteset, idalloc, collection, index, and engine.
package objectmodel
