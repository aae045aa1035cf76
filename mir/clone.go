package mir

// Deep copies of IR nodes. Templates are copied before their type
// parameters are substituted so every instantiation owns its body.

func (p *Place) Clone() *Place {
	if p == nil {
		return nil
	}
	c := Place{Local: p.Local}
	if p.Proj != nil {
		c.Proj = make([]Projection, len(p.Proj))
		for i, pr := range p.Proj {
			c.Proj[i] = Projection{Kind: pr.Kind, Field: pr.Field, Index: pr.Index.Clone()}
		}
	}
	return &c
}

func (o *Operand) Clone() *Operand {
	if o == nil {
		return nil
	}
	c := Operand{Kind: o.Kind, Place: o.Place.Clone()}
	if o.Const != nil {
		k := *o.Const
		c.Const = &k
	}
	return &c
}

func cloneOperands(ops []Operand) []Operand {
	if ops == nil {
		return nil
	}
	out := make([]Operand, len(ops))
	for i := range ops {
		out[i] = *ops[i].Clone()
	}
	return out
}

func (r *Rvalue) Clone() *Rvalue {
	if r == nil {
		return nil
	}
	c := *r
	c.Args = cloneOperands(r.Args)
	c.Place = r.Place.Clone()
	c.Type = r.Type.Clone()
	if r.Fields != nil {
		c.Fields = append([]string(nil), r.Fields...)
	}
	return &c
}

func (t *Terminator) Clone() Terminator {
	c := *t
	c.Cond = t.Cond.Clone()
	c.Value = t.Value.Clone()
	c.Args = cloneOperands(t.Args)
	c.Dest = t.Dest.Clone()
	if t.Cases != nil {
		c.Cases = append([]SwitchCase(nil), t.Cases...)
	}
	if t.TypeArgs != nil {
		c.TypeArgs = make([]*Type, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			c.TypeArgs[i] = a.Clone()
		}
	}
	return c
}

func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := &Block{ID: b.ID, Term: b.Term.Clone()}
	if b.Stmts != nil {
		c.Stmts = make([]Stmt, len(b.Stmts))
		for i, s := range b.Stmts {
			c.Stmts[i] = Stmt{Kind: s.Kind, Place: s.Place.Clone(), Value: s.Value.Clone()}
		}
	}
	return c
}

// Clone returns a deep copy of f.
func (f *Function) Clone() *Function {
	c := &Function{
		Name:    f.Name,
		Returns: f.Returns.Clone(),
	}
	if f.Params != nil {
		c.Params = append([]LocalID(nil), f.Params...)
	}
	if f.TypeParams != nil {
		c.TypeParams = append([]string(nil), f.TypeParams...)
	}
	if f.Locals != nil {
		c.Locals = make([]Local, len(f.Locals))
		for i, l := range f.Locals {
			c.Locals[i] = Local{Name: l.Name, Type: l.Type.Clone(), Addressable: l.Addressable}
		}
	}
	c.Blocks = make([]*Block, len(f.Blocks))
	for i, b := range f.Blocks {
		c.Blocks[i] = b.Clone()
	}
	return c
}
