/*
Package collection implements spec.md §4.C8's typed collection wrappers:
ValueArray, ReferenceArray, and InverseReferenceSet. ValueArray and
ReferenceArray are read-only views over an engine-owned packed buffer until
the first mutation promotes them to a session-owned, independently growable
copy; InverseReferenceSet has no storage of its own: it fetches its ids
lazily and passes mutations to the hooks it was built with. All three keep a
monotonic version counter so a caller holding a live iterator across a
mutation observes the invalidation rather than silently stale data.
*/
package collection
