package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Referrer is one edge in the reverse reference graph: Class.Property
// references the class a Schema.ReferrersOf call was made for.
type Referrer struct {
	Class    *ClassDescriptor
	Property *Property
}

// Schema is the full set of class descriptors for one object model, plus
// the cross-class indexes (descendant sets, reverse-reference edges) the
// cascade-delete fixpoint and the change-list iterator need.
type Schema struct {
	classesByName map[string]*ClassDescriptor
	classesByID   map[uint32]*ClassDescriptor
	// referrers maps a target class name to every (class, property) edge
	// that points at it with a CascadeDelete or PreventDelete action —
	// spec.md §4.C6 step 2's "cascade/prevent inverse references".
	referrers map[string][]Referrer
}

// schemaFile is the YAML document shape: a flat list of classes.
type schemaFile struct {
	Classes []classDef `yaml:"classes"`
}

// LoadFile parses a YAML schema description (see testdata/demo.schema.yaml)
// into a Schema. This replaces the source's attribute-based reflection
// discovery (spec.md §9): in a systems language the class list is a
// compile-time-known schema description, loaded once at process start.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Load(data)
}

// Load parses raw YAML bytes into a Schema.
func Load(data []byte) (*Schema, error) {
	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}
	return build(sf.Classes)
}

func build(defs []classDef) (*Schema, error) {
	s := &Schema{
		classesByName: make(map[string]*ClassDescriptor, len(defs)),
		classesByID:   make(map[uint32]*ClassDescriptor, len(defs)),
		referrers:     make(map[string][]Referrer),
	}

	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("schema: class at index %d has no name", i)
		}
		if _, dup := s.classesByName[def.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate class %q", def.Name)
		}
		cd, err := buildClassDescriptor(uint32(i+1), def)
		if err != nil {
			return nil, err
		}
		s.classesByName[def.Name] = cd
		s.classesByID[cd.ClassID] = cd
	}

	// Validate referenced classes exist and index reverse reference edges.
	for _, cd := range s.classesByName {
		for _, p := range cd.UserProperties() {
			if !p.Kind.IsReference() {
				continue
			}
			target, ok := s.classesByName[p.ReferencedClass]
			if !ok {
				return nil, fmt.Errorf("schema: class %s property %s references unknown class %q", cd.Name, p.Name, p.ReferencedClass)
			}
			if p.DeleteAction == DeleteActionCascadeDelete || p.DeleteAction == DeleteActionPreventDelete {
				s.referrers[target.Name] = append(s.referrers[target.Name], Referrer{Class: cd, Property: p})
			}
		}
	}

	// Resolve parent chains and compute inclusive descendant class-id sets.
	for _, cd := range s.classesByName {
		if cd.ParentName == "" {
			continue
		}
		if _, ok := s.classesByName[cd.ParentName]; !ok {
			return nil, fmt.Errorf("schema: class %s has unknown parent %q", cd.Name, cd.ParentName)
		}
	}
	for _, cd := range s.classesByName {
		cd.DescendantClassIDs = []uint32{cd.ClassID}
	}
	for _, cd := range s.classesByName {
		for anc := s.classesByName[cd.ParentName]; anc != nil; anc = s.classesByName[anc.ParentName] {
			anc.DescendantClassIDs = append(anc.DescendantClassIDs, cd.ClassID)
		}
	}

	return s, nil
}

// Class looks up a class descriptor by name.
func (s *Schema) Class(name string) (*ClassDescriptor, bool) {
	cd, ok := s.classesByName[name]
	return cd, ok
}

// ClassByID looks up a class descriptor by its numeric id.
func (s *Schema) ClassByID(id uint32) (*ClassDescriptor, bool) {
	cd, ok := s.classesByID[id]
	return cd, ok
}

// ReferrersOf returns every (class, property) edge that references
// className with a CascadeDelete or PreventDelete action, used by the
// cascade-delete fixpoint (spec.md §4.C6).
func (s *Schema) ReferrersOf(className string) []Referrer {
	return s.referrers[className]
}

// Classes returns every class descriptor, in no particular order.
func (s *Schema) Classes() []*ClassDescriptor {
	out := make([]*ClassDescriptor, 0, len(s.classesByName))
	for _, cd := range s.classesByName {
		out = append(out, cd)
	}
	return out
}
