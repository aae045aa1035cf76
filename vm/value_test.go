package vm

import (
	"errors"
	"math"
	"testing"
)

func point(x, y int64) Value {
	s := NewStruct("Point")
	s.Set("x", Int(x))
	s.Set("y", Int(y))
	return StructVal(s)
}

func ints(ns ...int64) Value {
	elems := make([]Value, len(ns))
	for i, n := range ns {
		elems[i] = Int(n)
	}
	return ArrayVal(NewArray(elems...))
}

func expectFault(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected fault %v, got none", want)
		}
		f, ok := r.(*Fault)
		if !ok {
			t.Fatalf("expected *Fault, got %T: %v", r, r)
		}
		if !errors.Is(f, want) {
			t.Errorf("fault = %v, want %v", f, want)
		}
	}()
	fn()
}

// ---------------------------------------------------------------------------
// Kinds and truthiness
// ---------------------------------------------------------------------------

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{KindNull, "null"},
		{KindInt, "int"},
		{KindStruct, "struct"},
		{KindBox, "box"},
		{KindInterface, "interface"},
		{Kind(99), "Kind(99)"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero", Int(0), false},
		{"int", Int(-3), true},
		{"NaN", Float(math.NaN()), false},
		{"empty string", Str(""), false},
		{"string", Str("x"), true},
		{"empty array", ints(), true},
		{"box", BoxVal(0), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("%s: Truthy() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNilAggregatesAreNull(t *testing.T) {
	if !StructVal(nil).IsNull() {
		t.Error("StructVal(nil) should be null")
	}
	if !ArrayVal(nil).IsNull() {
		t.Error("ArrayVal(nil) should be null")
	}
}

func TestStructSetKeepsOrder(t *testing.T) {
	s := NewStruct("P")
	s.Set("b", Int(1))
	s.Set("a", Int(2))
	s.Set("b", Int(3))

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if f := s.Fields(); f[0].Name != "b" || f[1].Name != "a" {
		t.Errorf("field order = %s, %s", f[0].Name, f[1].Name)
	}
	if v, _ := s.Get("b"); v.AsInt() != 3 {
		t.Errorf("b = %v, want 3", v)
	}
	if s.Has("c") {
		t.Error("Has(c) should be false")
	}
}

// ---------------------------------------------------------------------------
// Clone
// ---------------------------------------------------------------------------

func TestCloneStructIsDistinctButEqual(t *testing.T) {
	orig := point(1, 2)
	c := Clone(orig)

	if c.Struct() == orig.Struct() {
		t.Fatal("clone shares storage with original")
	}
	if !DeepEqual(c, orig) {
		t.Fatal("clone is not deep-equal to original")
	}

	c.Struct().Set("x", Int(99))
	if v, _ := orig.Struct().Get("x"); v.AsInt() != 1 {
		t.Errorf("mutating clone changed original: x = %v", v)
	}
}

func TestCloneNested(t *testing.T) {
	line := NewStruct("Line")
	line.Set("from", point(0, 0))
	line.Set("to", point(3, 4))
	arr := ArrayVal(NewArray(StructVal(line), ints(1, 2)))

	c := Clone(arr)
	if !DeepEqual(c, arr) {
		t.Fatal("nested clone not equal")
	}

	inner, _ := c.Array().At(0)
	to, _ := inner.Struct().Get("to")
	to.Struct().Set("x", Int(-1))

	origTo, _ := line.Get("to")
	if v, _ := origTo.Struct().Get("x"); v.AsInt() != 3 {
		t.Errorf("deep member aliased: x = %v", v)
	}
	if DeepEqual(c, arr) {
		t.Error("mutated clone should no longer be equal")
	}
}

func TestCloneKeepsBoxAliasing(t *testing.T) {
	a := NewArena()
	b := a.Alloc(Int(1))

	holder := NewStruct("Holder")
	holder.Set("p", BoxVal(b))
	c := Clone(StructVal(holder))

	p, _ := c.Struct().Get("p")
	if p.Kind() != KindBox || p.Box() != b {
		t.Fatalf("cloned box = %v, want %v", p, b)
	}
	a.Store(p.Box(), Int(7))
	if got := a.Load(b); got.AsInt() != 7 {
		t.Errorf("write through cloned box not visible: %v", got)
	}
}

func TestClonePrimitivesUnchanged(t *testing.T) {
	for _, v := range []Value{Null(), Int(4), Float(1.5), Str("s"), Bool(true), BoxVal(3)} {
		if !DeepEqual(Clone(v), v) {
			t.Errorf("Clone(%v) changed the value", v)
		}
	}
}

// ---------------------------------------------------------------------------
// DeepEqual
// ---------------------------------------------------------------------------

func TestDeepEqual(t *testing.T) {
	withExtra := point(1, 2)
	withExtra.Struct().Set("z", Int(0))

	reordered := NewStruct("Point")
	reordered.Set("y", Int(2))
	reordered.Set("x", Int(1))

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal ints", Int(3), Int(3), true},
		{"int vs float", Int(3), Float(3), false},
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"strings", Str("a"), Str("a"), true},
		{"null vs int", Null(), Int(0), false},
		{"null vs null", Null(), Null(), true},
		{"arrays", ints(1, 2, 3), ints(1, 2, 3), true},
		{"array order matters", ints(1, 2, 3), ints(3, 2, 1), false},
		{"array length", ints(1, 2), ints(1, 2, 3), false},
		{"structs", point(1, 2), point(1, 2), true},
		{"key order irrelevant", point(1, 2), StructVal(reordered), true},
		{"extra key", point(1, 2), withExtra, false},
		{"array vs struct", ints(1, 2), point(1, 2), false},
		{"struct vs primitive", point(1, 2), Int(1), false},
		{"same box", BoxVal(1), BoxVal(1), true},
		{"different box", BoxVal(1), BoxVal(2), false},
	}
	for _, tt := range tests {
		if got := DeepEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: DeepEqual = %v, want %v", tt.name, got, tt.want)
		}
		if got := DeepEqual(tt.b, tt.a); got != tt.want {
			t.Errorf("%s: DeepEqual not symmetric", tt.name)
		}
	}
}

func TestDeepEqualReflexive(t *testing.T) {
	for _, v := range []Value{Null(), Int(0), Float(math.NaN()), Str(""), point(1, 1), ints(), BoxVal(0)} {
		if !DeepEqual(v, v) {
			t.Errorf("DeepEqual(%v, %v) = false", v, v)
		}
	}
}

func TestDeepEqualHandles(t *testing.T) {
	type conn struct{ id int }
	c1, c2 := &conn{1}, &conn{1}
	if !DeepEqual(HandleVal(c1), HandleVal(c1)) {
		t.Error("same handle should be equal")
	}
	if DeepEqual(HandleVal(c1), HandleVal(c2)) {
		t.Error("distinct handles should not be equal")
	}
	m := map[string]int{}
	if !DeepEqual(HandleVal(m), HandleVal(m)) {
		t.Error("same map handle should be equal")
	}
}

// ---------------------------------------------------------------------------
// Arena
// ---------------------------------------------------------------------------

func TestArenaAliasing(t *testing.T) {
	a := NewArena()
	b := a.Alloc(Int(1))
	alias := BoxVal(b)
	other := alias

	a.Store(alias.Box(), Int(42))
	if got := a.Load(other.Box()); got.AsInt() != 42 {
		t.Errorf("alias read = %v, want 42", got)
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestArenaBoxOfBox(t *testing.T) {
	a := NewArena()
	inner := a.Alloc(Int(5))
	outer := a.Alloc(BoxVal(inner))

	through := a.Load(outer)
	a.Store(through.Box(), Int(6))
	if got := a.Load(inner); got.AsInt() != 6 {
		t.Errorf("**pp write not visible: %v", got)
	}
}

func TestArenaDanglingBox(t *testing.T) {
	a := NewArena()
	expectFault(t, ErrDanglingBox, func() { a.Load(Box(3)) })
	expectFault(t, ErrDanglingBox, func() { a.Store(Box(-1), Null()) })
}
