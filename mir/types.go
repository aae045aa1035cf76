package mir

import (
	"fmt"
	"strings"
)

// TypeKind identifies the shape of a declared type.
type TypeKind string

const (
	TypeInt       TypeKind = "int"
	TypeFloat     TypeKind = "float"
	TypeBool      TypeKind = "bool"
	TypeString    TypeKind = "string"
	TypeUnit      TypeKind = "unit"
	TypeStruct    TypeKind = "struct"
	TypeArray     TypeKind = "array" // fixed length
	TypeSlice     TypeKind = "slice" // dynamic length
	TypePtr       TypeKind = "ptr"
	TypeInterface TypeKind = "iface"
	TypeHandle    TypeKind = "handle"
	TypeParam     TypeKind = "param" // generic type parameter, never reaches the vm
)

// Type is a declared type. Struct, interface and param types are named;
// array, slice and pointer types carry an element type.
type Type struct {
	Kind TypeKind `yaml:"kind" cbor:"kind"`
	Name string   `yaml:"name,omitempty" cbor:"name,omitempty"`
	Elem *Type    `yaml:"elem,omitempty" cbor:"elem,omitempty"`
	Len  int      `yaml:"len,omitempty" cbor:"len,omitempty"`

	// Args are the type arguments of a generic struct reference. They are
	// resolved away by the Instantiator.
	Args []*Type `yaml:"args,omitempty" cbor:"args,omitempty"`
}

// Shared primitive types.
var (
	Int    = &Type{Kind: TypeInt}
	Float  = &Type{Kind: TypeFloat}
	Bool   = &Type{Kind: TypeBool}
	String = &Type{Kind: TypeString}
	Unit   = &Type{Kind: TypeUnit}
	Handle = &Type{Kind: TypeHandle}
)

// StructOf returns a reference to the named struct type.
func StructOf(name string, args ...*Type) *Type {
	return &Type{Kind: TypeStruct, Name: name, Args: args}
}

// ArrayOf returns a fixed-length array type.
func ArrayOf(elem *Type, n int) *Type {
	return &Type{Kind: TypeArray, Elem: elem, Len: n}
}

// SliceOf returns a dynamic array type.
func SliceOf(elem *Type) *Type {
	return &Type{Kind: TypeSlice, Elem: elem}
}

// PtrTo returns a pointer type. Pointers are Boxes at run time.
func PtrTo(elem *Type) *Type {
	return &Type{Kind: TypePtr, Elem: elem}
}

// InterfaceOf returns the named interface type.
func InterfaceOf(name string) *Type {
	return &Type{Kind: TypeInterface, Name: name}
}

// Param returns a generic type parameter reference.
func Param(name string) *Type {
	return &Type{Kind: TypeParam, Name: name}
}

// IsAggregate reports whether values of t have value semantics that
// require a clone on copy.
func (t *Type) IsAggregate() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case TypeStruct, TypeArray, TypeSlice:
		return true
	}
	return false
}

// IsGeneric reports whether t still mentions a type parameter.
func (t *Type) IsGeneric() bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeParam {
		return true
	}
	if t.Elem.IsGeneric() {
		return true
	}
	for _, a := range t.Args {
		if a.IsGeneric() {
			return true
		}
	}
	return false
}

// Equal reports structural equality of two types.
func (t *Type) Equal(u *Type) bool {
	if t == nil || u == nil {
		return t == u
	}
	if t.Kind != u.Kind || t.Name != u.Name || t.Len != u.Len || len(t.Args) != len(u.Args) {
		return false
	}
	if !t.Elem.Equal(u.Elem) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(u.Args[i]) {
			return false
		}
	}
	return true
}

// String renders the type in source-like notation.
func (t *Type) String() string {
	if t == nil {
		return "unit"
	}
	switch t.Kind {
	case TypeStruct:
		if len(t.Args) == 0 {
			return t.Name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.String()
		}
		return t.Name + "<" + strings.Join(args, ", ") + ">"
	case TypeInterface, TypeParam:
		return t.Name
	case TypeArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	case TypeSlice:
		return t.Elem.String() + "[]"
	case TypePtr:
		return t.Elem.String() + "*"
	default:
		return string(t.Kind)
	}
}

// Mangle returns the deterministic name component for t used when naming
// instantiations.
func (t *Type) Mangle() string {
	if t == nil {
		return "unit"
	}
	switch t.Kind {
	case TypeStruct:
		if len(t.Args) == 0 {
			return t.Name
		}
		return MangleName(t.Name, t.Args...)
	case TypeInterface, TypeParam:
		return t.Name
	case TypeArray:
		return fmt.Sprintf("%s_arr%d", t.Elem.Mangle(), t.Len)
	case TypeSlice:
		return t.Elem.Mangle() + "_slice"
	case TypePtr:
		return "ptr_" + t.Elem.Mangle()
	default:
		return string(t.Kind)
	}
}

// MangleName names the specialization of base for the given type
// arguments: MangleName("Container", Int) == "Container__int".
func MangleName(base string, args ...*Type) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, a := range args {
		sb.WriteString("__")
		sb.WriteString(a.Mangle())
	}
	return sb.String()
}

// Clone returns a deep copy of t.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	c := *t
	c.Elem = t.Elem.Clone()
	if t.Args != nil {
		c.Args = make([]*Type, len(t.Args))
		for i, a := range t.Args {
			c.Args[i] = a.Clone()
		}
	}
	return &c
}

// Field is a named struct member.
type Field struct {
	Name string `yaml:"name" cbor:"name"`
	Type *Type  `yaml:"type" cbor:"type"`
}

// StructDef declares a concrete struct. Field order is declaration order
// and is used for construction defaults and printing.
type StructDef struct {
	Name   string  `yaml:"name" cbor:"name"`
	Fields []Field `yaml:"fields" cbor:"fields"`
}

// Field returns the named field, or nil.
func (s *StructDef) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// InterfaceDef declares an interface by its method names.
type InterfaceDef struct {
	Name    string   `yaml:"name" cbor:"name"`
	Methods []string `yaml:"methods" cbor:"methods"`
}

// VTableEntry binds one interface method to a free function taking the
// receiver as its first parameter.
type VTableEntry struct {
	Method string `yaml:"method" cbor:"method"`
	Func   string `yaml:"func" cbor:"func"`
}

// VTable is the statically built method table for one concrete type
// implementing one interface, e.g. Point_Printable.
type VTable struct {
	Name      string        `yaml:"name" cbor:"name"`
	Type      string        `yaml:"type" cbor:"type"`
	Interface string        `yaml:"interface" cbor:"interface"`
	Entries   []VTableEntry `yaml:"entries" cbor:"entries"`
}

// VTableName returns the conventional table name for typ implementing iface.
func VTableName(typ, iface string) string {
	return typ + "_" + iface + "_vtable"
}
