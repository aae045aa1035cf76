package mir

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

// Instantiation errors.
var (
	ErrUnknownGeneric = errors.New("unknown generic definition")
	ErrTypeArity      = errors.New("wrong number of type arguments")
	ErrUnboundParam   = errors.New("unbound type parameter")
)

var monoLog = commonlog.GetLogger("cmrt.mir")

// Instantiator is the monomorphization cache of a program. Each
// (generic definition, concrete type arguments) pair is specialized at
// most once; the specialization is appended to the program under its
// mangled name and every later request returns that name.
type Instantiator struct {
	prog    *Program
	structs map[string]*GenericStruct
	funcs   map[string]*Function
	done    map[string]bool
	created int
}

// NewInstantiator indexes the generic definitions of p.
func NewInstantiator(p *Program) *Instantiator {
	in := &Instantiator{
		prog:    p,
		structs: make(map[string]*GenericStruct),
		funcs:   make(map[string]*Function),
		done:    make(map[string]bool),
	}
	for _, g := range p.GenericStructs {
		in.structs[g.Name] = g
	}
	for _, g := range p.GenericFuncs {
		in.funcs[g.Name] = g
	}
	for _, s := range p.Structs {
		in.done[s.Name] = true
	}
	for _, f := range p.Functions {
		in.done[f.Name] = true
	}
	return in
}

// Instances returns the number of specializations created so far.
func (in *Instantiator) Instances() int {
	return in.created
}

// Struct returns the name of the specialization of the generic struct
// name for args, creating it on first use.
func (in *Instantiator) Struct(name string, args []*Type) (string, error) {
	key := MangleName(name, args...)
	if in.done[key] {
		return key, nil
	}
	g, ok := in.structs[name]
	if !ok {
		return "", fmt.Errorf("struct %s: %w", name, ErrUnknownGeneric)
	}
	if len(args) != len(g.TypeParams) {
		return "", fmt.Errorf("struct %s: want %d, got %d: %w", name, len(g.TypeParams), len(args), ErrTypeArity)
	}
	in.done[key] = true

	subst := bind(g.TypeParams, args)
	def := &StructDef{Name: key, Fields: make([]Field, len(g.Fields))}
	for i, f := range g.Fields {
		t, err := in.substitute(f.Type, subst)
		if err != nil {
			delete(in.done, key)
			return "", fmt.Errorf("struct %s field %s: %w", key, f.Name, err)
		}
		def.Fields[i] = Field{Name: f.Name, Type: t}
	}
	in.prog.Structs = append(in.prog.Structs, def)
	in.created++
	monoLog.Debugf("instantiated struct %s", key)
	return key, nil
}

// Func returns the name of the specialization of the generic function
// name for args, creating it on first use. Recursive generic calls see
// the name as soon as specialization starts.
func (in *Instantiator) Func(name string, args []*Type) (string, error) {
	key := MangleName(name, args...)
	if in.done[key] {
		return key, nil
	}
	g, ok := in.funcs[name]
	if !ok {
		return "", fmt.Errorf("function %s: %w", name, ErrUnknownGeneric)
	}
	if len(args) != len(g.TypeParams) {
		return "", fmt.Errorf("function %s: want %d, got %d: %w", name, len(g.TypeParams), len(args), ErrTypeArity)
	}
	in.done[key] = true

	fn := g.Clone()
	fn.Name = key
	fn.TypeParams = nil
	if err := in.rewrite(fn, bind(g.TypeParams, args)); err != nil {
		delete(in.done, key)
		return "", fmt.Errorf("function %s: %w", key, err)
	}
	in.prog.Functions = append(in.prog.Functions, fn)
	in.created++
	monoLog.Debugf("instantiated function %s", key)
	return key, nil
}

// Resolve rewrites every concrete function so that generic struct
// references and generic calls name concrete specializations. Functions
// created along the way are resolved too.
func (in *Instantiator) Resolve() error {
	for i := 0; i < len(in.prog.Functions); i++ {
		if err := in.rewrite(in.prog.Functions[i], nil); err != nil {
			return fmt.Errorf("function %s: %w", in.prog.Functions[i].Name, err)
		}
	}
	return nil
}

func bind(params []string, args []*Type) map[string]*Type {
	subst := make(map[string]*Type, len(params))
	for i, p := range params {
		subst[p] = args[i]
	}
	return subst
}

// substitute replaces type parameters in t and specializes generic struct
// references.
func (in *Instantiator) substitute(t *Type, subst map[string]*Type) (*Type, error) {
	if t == nil {
		return nil, nil
	}
	switch t.Kind {
	case TypeParam:
		bound, ok := subst[t.Name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", t.Name, ErrUnboundParam)
		}
		return bound.Clone(), nil
	case TypeStruct:
		if len(t.Args) == 0 {
			return t.Clone(), nil
		}
		args := make([]*Type, len(t.Args))
		for i, a := range t.Args {
			s, err := in.substitute(a, subst)
			if err != nil {
				return nil, err
			}
			args[i] = s
		}
		name, err := in.Struct(t.Name, args)
		if err != nil {
			return nil, err
		}
		return StructOf(name), nil
	}
	c := t.Clone()
	if t.Elem != nil {
		e, err := in.substitute(t.Elem, subst)
		if err != nil {
			return nil, err
		}
		c.Elem = e
	}
	return c, nil
}

// rewrite substitutes types throughout fn in place and retargets calls
// that carry type arguments.
func (in *Instantiator) rewrite(fn *Function, subst map[string]*Type) error {
	var err error
	sub := func(t *Type) *Type {
		if err != nil || t == nil {
			return t
		}
		var s *Type
		s, err = in.substitute(t, subst)
		return s
	}

	fn.Returns = sub(fn.Returns)
	for i := range fn.Locals {
		fn.Locals[i].Type = sub(fn.Locals[i].Type)
	}
	for _, b := range fn.Blocks {
		if b == nil {
			continue
		}
		for _, s := range b.Stmts {
			if s.Value != nil && s.Value.Type != nil {
				s.Value.Type = sub(s.Value.Type)
			}
		}
		t := &b.Term
		if t.Kind == TermCall && len(t.TypeArgs) > 0 {
			args := make([]*Type, len(t.TypeArgs))
			for i, a := range t.TypeArgs {
				args[i] = sub(a)
			}
			if err != nil {
				return err
			}
			name, ferr := in.Func(t.Func, args)
			if ferr != nil {
				return ferr
			}
			t.Func = name
			t.TypeArgs = nil
		}
	}
	return err
}
