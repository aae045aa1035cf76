package mir

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrNoBlocks       = errors.New("function has no blocks")
	ErrBlockID        = errors.New("block id does not match its table position")
	ErrBadTarget      = errors.New("terminator targets a missing block")
	ErrBadLocal       = errors.New("reference to an undeclared local")
	ErrDuplicate      = errors.New("duplicate definition")
	ErrUnknownVTable  = errors.New("unknown vtable")
	ErrUnknownStruct  = errors.New("unknown struct")
	ErrIncompleteVTab = errors.New("vtable does not cover its interface")
	ErrUnknownFunc    = errors.New("unknown function")
)

// Validate checks the structural invariants of a single function: the
// block table is dense from the entry block, every terminator target
// exists and every local reference is declared.
func (f *Function) Validate() error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("%s: %w", f.Name, ErrNoBlocks)
	}
	var errs []error
	for i, b := range f.Blocks {
		if b == nil || b.ID != BlockID(i) {
			errs = append(errs, fmt.Errorf("%s: block %d: %w", f.Name, i, ErrBlockID))
			continue
		}
		for _, s := range b.Term.Successors() {
			if f.Block(s) == nil {
				errs = append(errs, fmt.Errorf("%s: bb%d -> bb%d: %w", f.Name, b.ID, s, ErrBadTarget))
			}
		}
		check := func(id LocalID) {
			if f.Local(id) == nil {
				errs = append(errs, fmt.Errorf("%s: bb%d: _%d: %w", f.Name, b.ID, id, ErrBadLocal))
			}
		}
		for _, s := range b.Stmts {
			if s.Kind != StmtAssign {
				continue
			}
			walkPlace(s.Place, check)
			walkRvalue(s.Value, check)
		}
		walkOperand(b.Term.Cond, check)
		walkOperand(b.Term.Value, check)
		for i := range b.Term.Args {
			walkOperand(&b.Term.Args[i], check)
		}
		walkPlace(b.Term.Dest, check)
	}
	for _, p := range f.Params {
		if f.Local(p) == nil {
			errs = append(errs, fmt.Errorf("%s: param _%d: %w", f.Name, p, ErrBadLocal))
		}
	}
	return errors.Join(errs...)
}

// Validate checks every concrete function, the vtables and the struct and
// vtable references made from rvalues. Callees are not resolved here:
// the runtime may supply builtins the program does not define.
func (p *Program) Validate() error {
	var errs []error

	funcs := map[string]bool{}
	for _, f := range p.Functions {
		if funcs[f.Name] {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, ErrDuplicate))
		}
		funcs[f.Name] = true
	}
	structs := map[string]bool{}
	for _, s := range p.Structs {
		if structs[s.Name] {
			errs = append(errs, fmt.Errorf("struct %s: %w", s.Name, ErrDuplicate))
		}
		structs[s.Name] = true
	}
	vtables := map[string]bool{}
	for _, vt := range p.VTables {
		if vtables[vt.Name] {
			errs = append(errs, fmt.Errorf("vtable %s: %w", vt.Name, ErrDuplicate))
		}
		vtables[vt.Name] = true
		bound := map[string]bool{}
		for _, e := range vt.Entries {
			if !funcs[e.Func] {
				errs = append(errs, fmt.Errorf("vtable %s: method %s -> %s: %w", vt.Name, e.Method, e.Func, ErrUnknownFunc))
			}
			bound[e.Method] = true
		}
		if iface := p.Interface(vt.Interface); iface != nil {
			for _, m := range iface.Methods {
				if !bound[m] {
					errs = append(errs, fmt.Errorf("vtable %s: method %s: %w", vt.Name, m, ErrIncompleteVTab))
				}
			}
		}
	}

	for _, f := range p.Functions {
		if err := f.Validate(); err != nil {
			errs = append(errs, err)
		}
		for _, b := range f.Blocks {
			if b == nil {
				continue
			}
			for _, s := range b.Stmts {
				if s.Kind != StmtAssign || s.Value == nil {
					continue
				}
				rv := s.Value
				switch rv.Kind {
				case RvIface:
					if !vtables[rv.VTable] {
						errs = append(errs, fmt.Errorf("%s: bb%d: %s: %w", f.Name, b.ID, rv.VTable, ErrUnknownVTable))
					}
				case RvAggregate:
					if rv.Type != nil && rv.Type.Kind == TypeStruct && !structs[rv.Type.Name] {
						errs = append(errs, fmt.Errorf("%s: bb%d: %s: %w", f.Name, b.ID, rv.Type.Name, ErrUnknownStruct))
					}
				}
			}
		}
	}
	return errors.Join(errs...)
}

func walkPlace(p *Place, fn func(LocalID)) {
	if p == nil {
		return
	}
	fn(p.Local)
	for _, pr := range p.Proj {
		walkOperand(pr.Index, fn)
	}
}

func walkOperand(o *Operand, fn func(LocalID)) {
	if o == nil {
		return
	}
	walkPlace(o.Place, fn)
}

func walkRvalue(rv *Rvalue, fn func(LocalID)) {
	if rv == nil {
		return
	}
	for i := range rv.Args {
		walkOperand(&rv.Args[i], fn)
	}
	walkPlace(rv.Place, fn)
}
