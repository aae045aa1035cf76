package mir

import (
	"errors"
	"testing"
)

func TestMangleName(t *testing.T) {
	tests := []struct {
		base string
		args []*Type
		want string
	}{
		{"Container", []*Type{Int}, "Container__int"},
		{"Pair", []*Type{String, Float}, "Pair__string__float"},
		{"Box", []*Type{StructOf("Pair", Int, Bool)}, "Box__Pair__int__bool"},
		{"Wrap", []*Type{SliceOf(Int)}, "Wrap__int_slice"},
		{"Wrap", []*Type{ArrayOf(Int, 4)}, "Wrap__int_arr4"},
		{"Wrap", []*Type{PtrTo(Int)}, "Wrap__ptr_int"},
		{"Plain", nil, "Plain"},
	}
	for _, tt := range tests {
		if got := MangleName(tt.base, tt.args...); got != tt.want {
			t.Errorf("MangleName(%s) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func genericProgram() *Program {
	// fn identity<T>(x: T) -> T { return x }
	id := NewFunctionBuilder("identity", Param("T")).TypeParams("T")
	x := id.Param("x", Param("T"))
	id.Terminate(id.NewBlock(), Return(Copy(LocalPlace(x))))

	// fn wrap<T>(x: T) -> Container<T> { return Container<T>{value: identity<T>(x)} }
	wr := NewFunctionBuilder("wrap", StructOf("Container", Param("T"))).TypeParams("T")
	wx := wr.Param("x", Param("T"))
	tmp := wr.Local("tmp", Param("T"))
	out := wr.Local("out", StructOf("Container", Param("T")))
	bb0, bb1 := wr.NewBlock(), wr.NewBlock()
	tp := LocalPlace(tmp)
	call := Call("identity", []Operand{Copy(LocalPlace(wx))}, &tp, bb1)
	call.TypeArgs = []*Type{Param("T")}
	wr.Terminate(bb0, call)
	lit := StructLit("Container", []string{"value"}, Copy(LocalPlace(tmp)))
	lit.Type = StructOf("Container", Param("T"))
	wr.Assign(bb1, LocalPlace(out), lit)
	wr.Terminate(bb1, Return(Copy(LocalPlace(out))))

	main := NewFunctionBuilder("main", Unit)
	a := main.Local("a", StructOf("Container", Int))
	b := main.Local("b", StructOf("Container", String))
	c := main.Local("c", StructOf("Container", Int))
	m0, m1, m2, m3 := main.NewBlock(), main.NewBlock(), main.NewBlock(), main.NewBlock()
	ap, bp, cpl := LocalPlace(a), LocalPlace(b), LocalPlace(c)
	c1 := Call("wrap", []Operand{IntConst(1)}, &ap, m1)
	c1.TypeArgs = []*Type{Int}
	c2 := Call("wrap", []Operand{StrConst("s")}, &bp, m2)
	c2.TypeArgs = []*Type{String}
	c3 := Call("wrap", []Operand{IntConst(2)}, &cpl, m3)
	c3.TypeArgs = []*Type{Int}
	main.Terminate(m0, c1)
	main.Terminate(m1, c2)
	main.Terminate(m2, c3)
	main.Terminate(m3, ReturnVoid())

	return &Program{
		Name:      "generic",
		Functions: []*Function{main.Build()},
		GenericStructs: []*GenericStruct{{
			Name: "Container", TypeParams: []string{"T"},
			Fields: []Field{{Name: "value", Type: Param("T")}},
		}},
		GenericFuncs: []*Function{id.Build(), wr.Build()},
	}
}

func TestResolveInstantiatesOncePerTypeArgs(t *testing.T) {
	prog := genericProgram()
	in := NewInstantiator(prog)
	if err := in.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for _, name := range []string{"wrap__int", "wrap__string", "identity__int", "identity__string"} {
		if prog.Func(name) == nil {
			t.Errorf("missing function %s", name)
		}
	}
	for _, name := range []string{"Container__int", "Container__string"} {
		if prog.Struct(name) == nil {
			t.Errorf("missing struct %s", name)
		}
	}
	if got := len(prog.Functions); got != 5 {
		t.Errorf("len(Functions) = %d, want 5", got)
	}
	if got := in.Instances(); got != 6 {
		t.Errorf("Instances() = %d, want 6", got)
	}
	if err := prog.Validate(); err != nil {
		t.Errorf("resolved program invalid: %v", err)
	}

	main := prog.Func("main")
	if got := main.Blocks[2].Term.Func; got != "wrap__int" {
		t.Errorf("third call targets %s, want wrap__int", got)
	}
	if main.Locals[0].Type.Name != "Container__int" {
		t.Errorf("local a type = %s", main.Locals[0].Type)
	}

	w := prog.Func("wrap__string")
	if w.Returns.Name != "Container__string" {
		t.Errorf("wrap__string returns %s", w.Returns)
	}
	if w.Blocks[0].Term.Func != "identity__string" || w.Blocks[0].Term.TypeArgs != nil {
		t.Errorf("inner call not resolved: %s", &w.Blocks[0].Term)
	}
	if w.Locals[0].Type.Kind != TypeString {
		t.Errorf("param type = %s, want string", w.Locals[0].Type)
	}
}

func TestTemplatesAreNotMutated(t *testing.T) {
	prog := genericProgram()
	if err := NewInstantiator(prog).Resolve(); err != nil {
		t.Fatal(err)
	}
	tmpl := prog.GenericFuncs[1]
	if tmpl.Locals[0].Type.Kind != TypeParam {
		t.Errorf("template param rewritten to %s", tmpl.Locals[0].Type)
	}
	if tmpl.Blocks[0].Term.Func != "identity" {
		t.Errorf("template call rewritten to %s", tmpl.Blocks[0].Term.Func)
	}
}

func TestInstantiationErrors(t *testing.T) {
	prog := genericProgram()
	in := NewInstantiator(prog)

	if _, err := in.Func("nope", []*Type{Int}); !errors.Is(err, ErrUnknownGeneric) {
		t.Errorf("unknown generic: %v", err)
	}
	if _, err := in.Struct("Container", []*Type{Int, Int}); !errors.Is(err, ErrTypeArity) {
		t.Errorf("arity: %v", err)
	}

	b := NewFunctionBuilder("stray", Param("U"))
	b.Terminate(b.NewBlock(), ReturnVoid())
	prog.Functions = append(prog.Functions, b.Build())
	if err := in.Resolve(); !errors.Is(err, ErrUnboundParam) {
		t.Errorf("unbound param: %v", err)
	}
}

func TestFunctionCloneIsDeep(t *testing.T) {
	fn := diamond()
	c := fn.Clone()
	c.Blocks[1].Stmts[0].Value.Args[0] = IntConst(99)
	c.Locals[1].Type = String
	c.Blocks[0].Term.Then = 3

	if fn.Blocks[1].Stmts[0].Value.Args[0].Const.Int != 1 {
		t.Error("clone shares rvalue operands")
	}
	if fn.Locals[1].Type != Int {
		t.Error("clone shares locals")
	}
	if fn.Blocks[0].Term.Then != 1 {
		t.Error("clone shares terminators")
	}
}
