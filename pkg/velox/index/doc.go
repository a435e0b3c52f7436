/*
Package index implements spec.md §4.C7's hash- and sorted-index readers.
Neither reader talks to a session or a class descriptor directly; both are
handed an engine index plus a Source that answers the three local-state
questions a lookup needs. objectmodel constructs one HashReader/SortedReader
per (class, index name) the first time get_hash_index/get_sorted_index is
called for it.
*/
package index
