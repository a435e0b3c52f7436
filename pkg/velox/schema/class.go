package schema

import (
	"fmt"
	"sort"

	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
)

// idProperty and versionProperty occupy the two reserved, never-bit-tracked
// slots described in spec.md §4.C2.
var (
	idProperty      = Property{ID: 0, Name: "Id", Kind: KindInt64, Index: 0, Offset: 0}
	versionProperty = Property{ID: 1, Name: "Version", Kind: KindInt64, Index: 1, Offset: recordbuf.IDSize}
)

// ClassDescriptor is the compile-time (here: schema-load-time) metadata for
// one persistent class: its property list in on-disk order, byte offsets,
// and the flags/emitters §4.C3 describes as "codegen".
type ClassDescriptor struct {
	ClassID    uint32
	Name       string
	ParentName string
	IsAbstract bool
	IsSealed   bool

	// Properties holds every property including the synthetic id (index 0)
	// and version (index 1) entries, in on-buffer order: simple first
	// (ascending by name), then indirect (ascending by name within each of
	// string / array / reference / reference-array).
	Properties     []*Property
	byName         map[string]*Property
	byID           map[int]*Property

	BitmapBytes      int // leading modification-bitmap byte count
	SimplePrefixSize int // bytes from buffer start through the last simple property (bitmap+id+version+simples)
	BufferSize       int // total fixed record size

	// DescendantClassIDs includes ClassID itself and every descendant's,
	// used by the change-list class-chain iterator (spec.md §4.C4) and by
	// engine class scans that want inclusive-descendant semantics.
	DescendantClassIDs []uint32
}

// UserProperties returns Properties[2:], i.e. everything that participates
// in the modification bitmap.
func (c *ClassDescriptor) UserProperties() []*Property {
	return c.Properties[2:]
}

// PropertyByName looks up a property (including id/version) by name.
func (c *ClassDescriptor) PropertyByName(name string) (*Property, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// PropertyByID looks up a property by its stable id.
func (c *ClassDescriptor) PropertyByID(id int) (*Property, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// NewBuffer allocates a zeroed record buffer of this class's fixed size
// with the id slot populated.
func (c *ClassDescriptor) NewBuffer(id uint64) recordbuf.Buffer {
	return recordbuf.New(c.BitmapBytes, c.BufferSize, id)
}

// classDef is the YAML-facing shape; see (*Schema).Load.
type classDef struct {
	Name       string         `yaml:"name"`
	Parent     string         `yaml:"parent"`
	Abstract   bool           `yaml:"abstract"`
	Sealed     bool           `yaml:"sealed"`
	Properties []propertyDef  `yaml:"properties"`
}

type propertyDef struct {
	Name            string `yaml:"name"`
	Kind            string `yaml:"kind"`
	ElementKind     string `yaml:"elementKind"`
	ReferencedClass string `yaml:"referencedClass"`
	DeleteAction    string `yaml:"deleteAction"`
	TrackInverse    bool   `yaml:"trackInverse"`
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "bool":
		return KindBool, nil
	case "int32":
		return KindInt32, nil
	case "uint32":
		return KindUInt32, nil
	case "int64":
		return KindInt64, nil
	case "uint64":
		return KindUInt64, nil
	case "float64":
		return KindFloat64, nil
	case "datetime":
		return KindDateTime, nil
	case "string":
		return KindStringHandle, nil
	case "array":
		return KindValueArray, nil
	case "reference":
		return KindReference, nil
	case "referencearray":
		return KindReferenceArray, nil
	default:
		return 0, fmt.Errorf("schema: unknown property kind %q", s)
	}
}

func parseDeleteAction(s string) (DeleteAction, error) {
	switch s {
	case "", "None":
		return DeleteActionNone, nil
	case "CascadeDelete":
		return DeleteActionCascadeDelete, nil
	case "PreventDelete":
		return DeleteActionPreventDelete, nil
	case "SetToNull":
		return DeleteActionSetToNull, nil
	default:
		return 0, fmt.Errorf("schema: unknown delete action %q", s)
	}
}

// buildClassDescriptor computes offsets and bitmap sizing for one class from
// its parsed property list. Property ordering follows spec.md §4.C2: simple
// primitives ascending by name, then indirect properties ascending by name
// within kind-group (string, array, reference, reference-array).
func buildClassDescriptor(classID uint32, def classDef) (*ClassDescriptor, error) {
	var simple, strs, arrays, refs, refArrays []*Property
	nextPropID := 2

	for i := range def.Properties {
		pd := def.Properties[i]
		kind, err := parseKind(pd.Kind)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", def.Name, err)
		}
		var elemKind Kind
		if kind == KindValueArray {
			if elemKind, err = parseKind(pd.ElementKind); err != nil {
				return nil, fmt.Errorf("class %s property %s: %w", def.Name, pd.Name, err)
			}
			if !elemKind.IsSimple() {
				return nil, fmt.Errorf("class %s property %s: array element kind must be simple", def.Name, pd.Name)
			}
		}
		action, err := parseDeleteAction(pd.DeleteAction)
		if err != nil {
			return nil, fmt.Errorf("class %s property %s: %w", def.Name, pd.Name, err)
		}
		if kind.IsReference() && pd.ReferencedClass == "" {
			return nil, fmt.Errorf("class %s property %s: reference properties require referencedClass", def.Name, pd.Name)
		}

		p := &Property{
			ID:              nextPropID,
			Name:            pd.Name,
			Kind:            kind,
			ElementKind:     elemKind,
			ReferencedClass: pd.ReferencedClass,
			DeleteAction:    action,
			TrackInverse:    pd.TrackInverse,
		}
		nextPropID++

		switch kind {
		case KindStringHandle:
			strs = append(strs, p)
		case KindValueArray:
			arrays = append(arrays, p)
		case KindReference:
			refs = append(refs, p)
		case KindReferenceArray:
			refArrays = append(refArrays, p)
		default:
			simple = append(simple, p)
		}
	}

	byName := func(ps []*Property) { sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name }) }
	byName(simple)
	byName(strs)
	byName(arrays)
	byName(refs)
	byName(refArrays)

	ordered := make([]*Property, 0, len(def.Properties)+2)
	ordered = append(ordered, &idProperty, &versionProperty)
	ordered = append(ordered, simple...)
	ordered = append(ordered, strs...)
	ordered = append(ordered, arrays...)
	ordered = append(ordered, refs...)
	ordered = append(ordered, refArrays...)

	bitmapBytes := recordbuf.BitmapBytes(len(ordered) - 2)
	offset := bitmapBytes
	byNameMap := make(map[string]*Property, len(ordered))
	byIDMap := make(map[int]*Property, len(ordered))
	for i, p := range ordered {
		p.Index = i
		p.Offset = offset
		offset += recordbuf.SlotSize
		byNameMap[p.Name] = p
		byIDMap[p.ID] = p
	}
	simplePrefixSize := bitmapBytes + recordbuf.IDSize + recordbuf.VersionSize + len(simple)*recordbuf.SlotSize

	return &ClassDescriptor{
		ClassID:          classID,
		Name:             def.Name,
		ParentName:       def.Parent,
		IsAbstract:       def.Abstract,
		IsSealed:         def.Sealed,
		Properties:       ordered,
		byName:           byNameMap,
		byID:             byIDMap,
		BitmapBytes:      bitmapBytes,
		SimplePrefixSize: simplePrefixSize,
		BufferSize:       offset,
	}, nil
}
