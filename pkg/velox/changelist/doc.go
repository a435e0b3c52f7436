/*
Package changelist implements the session's change list: an ordered record
of every object that stopped being clean (spec.md §3 "Change list", §4.C4).
A single growable backing array holds every entry in first-touched order;
a per-class linked chain over the same array lets callers iterate only the
entries of one class (plus, via ForEachOfClass, its descendants) without a
second container. Clear() resets chain heads for classes actually touched
and truncates the array back toward its initial capacity.
*/
package changelist
