package irtype

import "github.com/rather-labs/move-stylus-wasm/errors"

// Field is one named, typed field of a struct declaration, or one named,
// typed field of an enum variant's payload.
type Field struct {
	Name string
	Type Type
}

// StructDecl is a registered struct declaration. TypeParams is the arity of
// its generic parameter list (0 for a non-generic struct); Fields may
// reference TypeParameter(ix) for ix < TypeParams.
type StructDecl struct {
	Module     string
	Name       string
	TypeParams int
	Fields     []Field
}

// Variant is one arm of an enum declaration.
type Variant struct {
	Name   string
	Fields []Field
}

// EnumDecl is a registered enum declaration.
type EnumDecl struct {
	Module     string
	Name       string
	TypeParams int
	Variants   []Variant
}

// IsSimple reports whether every variant carries an empty payload — the
// "simple enum" class spec.md §3.2/§4.2 treats specially.
func (e *EnumDecl) IsSimple() bool {
	for _, v := range e.Variants {
		if len(v.Fields) > 0 {
			return false
		}
	}
	return true
}

// Registry canonicalizes and resolves struct/enum declarations, by
// module-qualified name. It is not safe for concurrent use: per spec.md §5
// the compiler is single-threaded and owns one Registry per compilation.
type Registry struct {
	structs map[string]*StructDecl
	enums   map[string]*EnumDecl
}

func NewRegistry() *Registry {
	return &Registry{
		structs: make(map[string]*StructDecl),
		enums:   make(map[string]*EnumDecl),
	}
}

func key(module, name string) string { return module + "::" + name }

// RegisterStruct declares a struct type. It fails with a Cycle error if the
// declaration, together with already-registered declarations, forms a
// reference cycle — spec.md §9 requires acyclicity to be enforced at
// registration so no runtime cycle can arise.
func (r *Registry) RegisterStruct(d StructDecl) error {
	k := key(d.Module, d.Name)
	r.structs[k] = &d
	if cyc := r.findCycle(k, nil, make(map[string]bool)); cyc != nil {
		delete(r.structs, k)
		return errors.Cycle(cyc)
	}
	return nil
}

// RegisterEnum declares an enum type. Enum variants may reference struct
// declarations (as payload fields) but not other enums as direct payload,
// so only the struct graph is walked for cycles.
func (r *Registry) RegisterEnum(d EnumDecl) error {
	r.enums[key(d.Module, d.Name)] = &d
	return nil
}

// LookupStruct resolves a module-qualified struct name.
func (r *Registry) LookupStruct(module, name string) (*StructDecl, bool) {
	d, ok := r.structs[key(module, name)]
	return d, ok
}

// LookupEnum resolves a module-qualified enum name.
func (r *Registry) LookupEnum(module, name string) (*EnumDecl, bool) {
	d, ok := r.enums[key(module, name)]
	return d, ok
}

// findCycle walks the struct reference graph depth-first starting at k,
// returning the cycle path if one is found.
func (r *Registry) findCycle(k string, path []string, onPath map[string]bool) []string {
	if onPath[k] {
		return append(append([]string{}, path...), k)
	}
	d, ok := r.structs[k]
	if !ok {
		return nil
	}
	onPath[k] = true
	path = append(path, k)
	defer func() { onPath[k] = false }()

	for _, f := range d.Fields {
		refKey, ok := structRefKey(f.Type)
		if !ok {
			continue
		}
		if cyc := r.findCycle(refKey, path, onPath); cyc != nil {
			return cyc
		}
	}
	return nil
}

// structRefKey extracts the declaration key a type transitively depends on
// through direct struct embedding (not through a Vector or Ref boundary,
// both of which are heap-indirected and cannot themselves form a layout
// cycle).
func structRefKey(t Type) (string, bool) {
	switch t.Kind() {
	case KindStruct, KindGenericStructInstance:
		ref := t.StructRef()
		return key(ref.Module, ref.Name), true
	default:
		return "", false
	}
}
