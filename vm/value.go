package vm

import (
	"fmt"
	"math"
)

// Kind is the runtime variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindStruct
	KindArray
	KindBox
	KindInterface
	KindHandle
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindArray:
		return "array"
	case KindBox:
		return "box"
	case KindInterface:
		return "interface"
	case KindHandle:
		return "handle"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is the host representation of a lowered-language value.
//
// Primitives are stored inline. Aggregates (*Struct, *Array) are
// pointer-backed, so the host by itself gives them reference semantics;
// value semantics are restored by cloning at every copy point. A Box is
// the index of an Arena slot and is always shared by copy.
type Value struct {
	kind  Kind
	num   int64 // bool, int, box slot
	flt   float64
	str   string
	st    *Struct
	arr   *Array
	iface *Interface
	host  any
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool}
}

// Int returns an integer value.
func Int(n int64) Value {
	return Value{kind: KindInt, num: n}
}

// Float returns a floating-point value.
func Float(f float64) Value {
	return Value{kind: KindFloat, flt: f}
}

// Str returns a string value.
func Str(s string) Value {
	return Value{kind: KindString, str: s}
}

// StructVal wraps a struct. A nil struct yields null.
func StructVal(s *Struct) Value {
	if s == nil {
		return Null()
	}
	return Value{kind: KindStruct, st: s}
}

// ArrayVal wraps an array. A nil array yields null.
func ArrayVal(a *Array) Value {
	if a == nil {
		return Null()
	}
	return Value{kind: KindArray, arr: a}
}

// BoxVal wraps a Box handle.
func BoxVal(b Box) Value {
	return Value{kind: KindBox, num: int64(b)}
}

// HandleVal wraps an opaque host object.
func HandleVal(h any) Value {
	return Value{kind: KindHandle, host: h}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber reports whether v is an int or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// IsAggregate reports whether v has value semantics requiring a clone.
func (v Value) IsAggregate() bool { return v.kind == KindStruct || v.kind == KindArray }

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.kind == KindBool && v.num != 0 }

// AsInt returns v as an integer. Floats truncate; other kinds are 0.
func (v Value) AsInt() int64 {
	switch v.kind {
	case KindInt, KindBool:
		return v.num
	case KindFloat:
		if math.IsNaN(v.flt) {
			return 0
		}
		return int64(v.flt)
	}
	return 0
}

// AsFloat returns v as a float. Other kinds are 0.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return v.flt
	case KindInt, KindBool:
		return float64(v.num)
	}
	return 0
}

// AsString returns the string payload, or "" for other kinds.
func (v Value) AsString() string { return v.str }

// Struct returns the struct payload, or nil.
func (v Value) Struct() *Struct { return v.st }

// Array returns the array payload, or nil.
func (v Value) Array() *Array { return v.arr }

// Box returns the Box handle. Only meaningful when Kind is KindBox.
func (v Value) Box() Box { return Box(v.num) }

// Interface returns the interface payload, or nil.
func (v Value) Interface() *Interface { return v.iface }

// Handle returns the host object, or nil.
func (v Value) Handle() any { return v.host }

// Truthy reports whether v selects the true edge of a branch.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool, KindInt:
		return v.num != 0
	case KindFloat:
		return v.flt != 0 && !math.IsNaN(v.flt)
	case KindString:
		return v.str != ""
	default:
		return true
	}
}

// String returns the default stringification of v.
func (v Value) String() string {
	return ToString(v)
}

// ---------------------------------------------------------------------------
// Aggregates
// ---------------------------------------------------------------------------

// StructField is one named member of a struct value.
type StructField struct {
	Name  string
	Value Value
}

// Struct is a struct aggregate. Members keep declaration order; lookups
// are by name.
type Struct struct {
	Type   string
	fields []StructField
}

// NewStruct returns an empty struct of the named type.
func NewStruct(typ string) *Struct {
	return &Struct{Type: typ}
}

// Get returns the named member.
func (s *Struct) Get(name string) (Value, bool) {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return s.fields[i].Value, true
		}
	}
	return Null(), false
}

// Set stores a member, appending it if not yet present.
func (s *Struct) Set(name string, v Value) {
	for i := range s.fields {
		if s.fields[i].Name == name {
			s.fields[i].Value = v
			return
		}
	}
	s.fields = append(s.fields, StructField{Name: name, Value: v})
}

// Has reports whether the struct has the named member.
func (s *Struct) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Fields returns the members in order. The slice must not be modified.
func (s *Struct) Fields() []StructField {
	return s.fields
}

// Len returns the number of members.
func (s *Struct) Len() int {
	return len(s.fields)
}

// Array is an array aggregate, fixed or dynamic length.
type Array struct {
	elems []Value
}

// NewArray returns an array holding elems.
func NewArray(elems ...Value) *Array {
	if elems == nil {
		elems = []Value{}
	}
	return &Array{elems: elems}
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.elems)
}

// At returns element i.
func (a *Array) At(i int) (Value, bool) {
	if i < 0 || i >= len(a.elems) {
		return Null(), false
	}
	return a.elems[i], true
}

// Set stores element i. It reports false when i is out of range.
func (a *Array) Set(i int, v Value) bool {
	if i < 0 || i >= len(a.elems) {
		return false
	}
	a.elems[i] = v
	return true
}

// Push appends an element.
func (a *Array) Push(v Value) {
	a.elems = append(a.elems, v)
}

// Elems returns the elements. The slice must not be modified.
func (a *Array) Elems() []Value {
	return a.elems
}
