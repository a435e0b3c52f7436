/*
Package deleteset implements the two per-session structures spec.md §4.C5
describes together: the DeletedSet (ids scheduled for deletion, with a
cascade-generation version counter) and the DeltaStore (the session's net
additions/removals to committed inverse-reference sets, keyed by
(target id, property id)). Both are emptied by ApplyChanges.
*/
package deleteset
