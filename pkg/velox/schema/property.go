package schema

// Property describes one user-declared class member. Index 0 and 1 of a
// ClassDescriptor's Properties slice are always the reserved id/version
// slots (see recordbuf); user properties start at Index 2.
type Property struct {
	ID   int    // stable property id, used in changeset blocks (§6)
	Name string
	Kind Kind

	// Index is this property's position in ClassDescriptor.Properties
	// (>= 2); Offset is its byte offset into a record buffer.
	Index  int
	Offset int

	// ElementKind is the simple Kind of each element, valid only when
	// Kind == KindValueArray.
	ElementKind Kind

	// ReferencedClass names the target class, valid only when
	// Kind.IsReference().
	ReferencedClass string
	// DeleteAction governs this reference's behavior when its target is
	// deleted. Valid only when Kind.IsReference().
	DeleteAction DeleteAction
	// TrackInverse marks that the inverse side of this reference (the set
	// of referrers) is queried at runtime and therefore must be kept
	// consistent via the delta store (spec.md §4.C5/§4.C6). Untracked
	// reference properties still honour DeleteAction but are discovered by
	// a cascade-time class scan instead (spec.md §4.C6 step 2).
	TrackInverse bool
}

// IsUserProperty reports whether p occupies a bit in the modification
// bitmap (true for every Property returned by ClassDescriptor.UserProperties,
// false for the synthetic id/version entries at index 0/1).
func (p *Property) IsUserProperty() bool {
	return p.Index >= 2
}
