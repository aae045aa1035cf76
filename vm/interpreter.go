package vm

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/cmrt/mir"
)

// ---------------------------------------------------------------------------
// Block dispatcher
// ---------------------------------------------------------------------------

// frame is one function activation: the function and its local slot table.
// Addressable locals hold the Box of their arena slot instead of a value.
type frame struct {
	fn     *mir.Function
	locals []Value
	slots  []Box
}

// invoke runs fn with args already evaluated by the caller.
func (m *Machine) invoke(fn *mir.Function, args []Value) Value {
	if len(args) != len(fn.Params) {
		raise(ErrArity, "%s wants %d, got %d", fn.Name, len(fn.Params), len(args))
	}
	if m.depth >= m.maxDepth {
		raise(ErrStackOverflow, "%s at depth %d", fn.Name, m.depth)
	}
	m.depth++
	defer func() { m.depth-- }()

	fr := &frame{fn: fn, locals: make([]Value, len(fn.Locals))}
	for i, l := range fn.Locals {
		v := m.zero(l.Type)
		if l.Addressable {
			b := m.arena.Alloc(v)
			fr.slots = append(fr.slots, b)
			v = BoxVal(b)
		}
		fr.locals[i] = v
	}
	v := Null()
	defer func() { m.release(fr, v) }()
	for i, p := range fn.Params {
		m.store(fr, mir.LocalPlace(p), args[i])
	}
	v = m.run(fr)
	return v
}

// release frees the arena slots of a returning frame. A Box carried out
// in the result pins its slot first, as does any Box written into memory
// the frame does not own (see store).
func (m *Machine) release(fr *frame, result Value) {
	if len(fr.slots) == 0 {
		return
	}
	m.arena.Pin(result)
	for _, b := range fr.slots {
		m.arena.Release(b)
	}
}

// run executes the block table of fr from the entry block until a return.
// Dead blocks are never visited and forwarding blocks are ordinary
// one-step transitions.
func (m *Machine) run(fr *frame) Value {
	fn := fr.fn
	cur := mir.EntryBlock
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(*Fault); ok && f.Func == "" {
				f.Func, f.Block = fn.Name, cur
			}
			panic(r)
		}
	}()

	trace := m.log.AllowLevel(commonlog.Debug)
	if m.profiler != nil {
		m.profiler.RecordCall(fn)
	}

	for {
		blk := fn.Block(cur)
		if blk == nil {
			raise(ErrBadBlock, "bb%d", cur)
		}
		if trace {
			m.log.Debugf("%s: bb%d", fn.Name, cur)
		}
		if m.profiler != nil {
			m.profiler.RecordBlock(fn, cur)
		}

		for i := range blk.Stmts {
			m.exec(fr, &blk.Stmts[i])
		}

		t := &blk.Term
		switch t.Kind {
		case mir.TermGoto:
			cur = t.Target
		case mir.TermBranch:
			if m.operand(fr, t.Cond).Truthy() {
				cur = t.Then
			} else {
				cur = t.Else
			}
		case mir.TermSwitch:
			d := m.operand(fr, t.Cond).AsInt()
			cur = t.Otherwise
			for _, c := range t.Cases {
				if c.Value == d {
					cur = c.Target
					break
				}
			}
		case mir.TermReturn:
			if t.Value == nil {
				return Null()
			}
			return m.operand(fr, t.Value)
		case mir.TermCall:
			v := m.call(fr, t)
			if t.Dest != nil {
				m.store(fr, *t.Dest, v)
			}
			cur = t.Target
		case mir.TermUnreachable:
			raise(ErrUnreachable, "bb%d", cur)
		default:
			raise(ErrMalformed, "terminator %q", t.Kind)
		}
	}
}

func (m *Machine) exec(fr *frame, s *mir.Stmt) {
	switch s.Kind {
	case mir.StmtNop:
	case mir.StmtAssign:
		v := m.rvalue(fr, s.Value)
		m.store(fr, *s.Place, v)
	default:
		raise(ErrMalformed, "statement %q", s.Kind)
	}
}

func (m *Machine) call(fr *frame, t *mir.Terminator) Value {
	args := make([]Value, len(t.Args))
	for i := range t.Args {
		args[i] = m.operand(fr, &t.Args[i])
	}
	if t.Method != "" {
		if len(args) == 0 {
			raise(ErrMalformed, "method call %s without receiver", t.Method)
		}
		return CallMethod(args[0], t.Method, args[1:]...)
	}
	if len(t.TypeArgs) > 0 {
		raise(ErrMalformed, "unresolved generic call %s", t.Func)
	}
	if fn, ok := m.funcs[t.Func]; ok {
		return m.invoke(fn, args)
	}
	if b, ok := m.builtins[t.Func]; ok {
		for _, a := range args {
			m.arena.Pin(a)
		}
		return b(m, args)
	}
	raise(ErrUnknownFunction, "%s", t.Func)
	return Null()
}

// ---------------------------------------------------------------------------
// Operands and places
// ---------------------------------------------------------------------------

// operand evaluates o. Copy operands clone, so an aggregate read out of a
// local or out of a larger aggregate never aliases its source.
func (m *Machine) operand(fr *frame, o *mir.Operand) Value {
	if o == nil {
		return Null()
	}
	switch o.Kind {
	case mir.OpConst:
		return constValue(o.Const)
	case mir.OpMove:
		return m.load(fr, o.Place)
	case mir.OpCopy:
		return Clone(m.load(fr, o.Place))
	}
	raise(ErrMalformed, "operand %q", o.Kind)
	return Null()
}

func constValue(c *mir.Const) Value {
	if c == nil {
		return Null()
	}
	switch c.Kind {
	case mir.TypeInt:
		return Int(c.Int)
	case mir.TypeFloat:
		return Float(c.Float)
	case mir.TypeBool:
		return Bool(c.Bool)
	case mir.TypeString:
		return Str(c.Str)
	}
	return Null()
}

// base returns the current value of the local p starts from, looking
// through the arena slot of an addressable local.
func (m *Machine) base(fr *frame, id mir.LocalID) Value {
	l := fr.fn.Local(id)
	if l == nil {
		raise(ErrBadLocal, "_%d", id)
	}
	v := fr.locals[id]
	if l.Addressable {
		return m.arena.Load(v.Box())
	}
	return v
}

func (m *Machine) load(fr *frame, p *mir.Place) Value {
	if p == nil {
		raise(ErrMalformed, "operand without place")
	}
	v := m.base(fr, p.Local)
	for i := range p.Proj {
		v = m.project(fr, v, &p.Proj[i])
	}
	return v
}

func (m *Machine) project(fr *frame, v Value, pr *mir.Projection) Value {
	switch pr.Kind {
	case mir.ProjField:
		if v.kind != KindStruct {
			raise(ErrTypeMismatch, "field %s of %s", pr.Field, v.kind)
		}
		f, ok := v.st.Get(pr.Field)
		if !ok {
			raise(ErrNoField, "%s.%s", v.st.Type, pr.Field)
		}
		return f
	case mir.ProjIndex:
		i := int(m.operand(fr, pr.Index).AsInt())
		switch v.kind {
		case KindArray:
			e, ok := v.arr.At(i)
			if !ok {
				raise(ErrIndexOutOfRange, "index %d, length %d", i, v.arr.Len())
			}
			return e
		case KindString:
			r := []rune(v.str)
			if i < 0 || i >= len(r) {
				raise(ErrIndexOutOfRange, "index %d, length %d", i, len(r))
			}
			return Str(string(r[i]))
		}
		raise(ErrTypeMismatch, "index into %s", v.kind)
	case mir.ProjDeref:
		if v.kind != KindBox {
			raise(ErrNotABox, "%s", v.kind)
		}
		return m.arena.Load(v.Box())
	}
	raise(ErrMalformed, "projection %q", pr.Kind)
	return Null()
}

// store writes v to p. Containers along the projection path are mutated
// in place; a write through a deref lands in the shared arena slot.
// Anything but a whole-value write to a plain local may be visible past
// this frame, since moved containers alias, so Boxes in v are pinned.
func (m *Machine) store(fr *frame, p mir.Place, v Value) {
	l := fr.fn.Local(p.Local)
	if l == nil {
		raise(ErrBadLocal, "_%d", p.Local)
	}
	if l.Addressable || len(p.Proj) > 0 {
		m.arena.Pin(v)
	}
	if len(p.Proj) == 0 {
		if l.Addressable {
			m.arena.Store(fr.locals[p.Local].Box(), v)
		} else {
			fr.locals[p.Local] = v
		}
		return
	}

	c := m.base(fr, p.Local)
	last := len(p.Proj) - 1
	for i := 0; i < last; i++ {
		c = m.project(fr, c, &p.Proj[i])
	}
	pr := &p.Proj[last]
	switch pr.Kind {
	case mir.ProjField:
		if c.kind != KindStruct {
			raise(ErrTypeMismatch, "field %s of %s", pr.Field, c.kind)
		}
		c.st.Set(pr.Field, v)
	case mir.ProjIndex:
		if c.kind != KindArray {
			raise(ErrTypeMismatch, "index into %s", c.kind)
		}
		i := int(m.operand(fr, pr.Index).AsInt())
		if !c.arr.Set(i, v) {
			raise(ErrIndexOutOfRange, "index %d, length %d", i, c.arr.Len())
		}
	case mir.ProjDeref:
		if c.kind != KindBox {
			raise(ErrNotABox, "%s", c.kind)
		}
		m.arena.Store(c.Box(), v)
	default:
		raise(ErrMalformed, "projection %q", pr.Kind)
	}
}

// ref takes the address of p. Only an addressable local, or a deref of a
// Box (which yields that Box again), has an address.
func (m *Machine) ref(fr *frame, p *mir.Place) Value {
	if p == nil {
		raise(ErrMalformed, "ref without place")
	}
	if len(p.Proj) == 0 {
		l := fr.fn.Local(p.Local)
		if l == nil {
			raise(ErrBadLocal, "_%d", p.Local)
		}
		if !l.Addressable {
			raise(ErrNotAddressable, "%s", p)
		}
		return fr.locals[p.Local]
	}
	last := len(p.Proj) - 1
	if p.Proj[last].Kind != mir.ProjDeref {
		raise(ErrNotAddressable, "%s", p)
	}
	inner := mir.Place{Local: p.Local, Proj: p.Proj[:last]}
	b := m.load(fr, &inner)
	if b.kind != KindBox {
		raise(ErrNotABox, "%s", b.kind)
	}
	return b
}

// ---------------------------------------------------------------------------
// Rvalues
// ---------------------------------------------------------------------------

func (m *Machine) rvalue(fr *frame, rv *mir.Rvalue) Value {
	if rv == nil {
		raise(ErrMalformed, "assignment without value")
	}
	arg := func(i int) Value {
		if i >= len(rv.Args) {
			raise(ErrMalformed, "%s wants operand %d", rv.Kind, i)
		}
		return m.operand(fr, &rv.Args[i])
	}

	switch rv.Kind {
	case mir.RvUse:
		return arg(0)
	case mir.RvBinary:
		return binary(rv.Bin, arg(0), arg(1))
	case mir.RvUnary:
		return unary(rv.Un, arg(0))
	case mir.RvRef:
		return m.ref(fr, rv.Place)
	case mir.RvAggregate:
		return m.aggregate(fr, rv)
	case mir.RvCast:
		return cast(arg(0), rv.Type)
	case mir.RvFormat:
		vals := make([]Value, len(rv.Args))
		for i := range rv.Args {
			vals[i] = arg(i)
		}
		return Str(FormatString(rv.Template, vals))
	case mir.RvSlice:
		seq := arg(0)
		if seq.kind != KindArray {
			raise(ErrTypeMismatch, "slice of %s", seq.kind)
		}
		return ArrayVal(Slice(seq.arr, int(arg(1).AsInt()), m.bound(fr, rv)))
	case mir.RvStrSlice:
		seq := arg(0)
		if seq.kind != KindString {
			raise(ErrTypeMismatch, "string slice of %s", seq.kind)
		}
		return Str(StrSlice(seq.str, int(arg(1).AsInt()), m.bound(fr, rv)))
	case mir.RvIface:
		t, ok := m.tables[rv.VTable]
		if !ok {
			raise(ErrUnknownVTable, "%s", rv.VTable)
		}
		return NewInterface(arg(0), t)
	case mir.RvLen:
		return Int(int64(length(arg(0))))
	}
	raise(ErrMalformed, "rvalue %q", rv.Kind)
	return Null()
}

func (m *Machine) bound(fr *frame, rv *mir.Rvalue) Bound {
	if len(rv.Args) < 3 {
		return Open
	}
	end := m.operand(fr, &rv.Args[2])
	if end.IsNull() {
		return Open
	}
	return End(int(end.AsInt()))
}

func (m *Machine) aggregate(fr *frame, rv *mir.Rvalue) Value {
	if rv.Type == nil {
		raise(ErrMalformed, "aggregate without type")
	}
	switch rv.Type.Kind {
	case mir.TypeStruct:
		s := m.zero(rv.Type).Struct()
		for i := range rv.Args {
			if i >= len(rv.Fields) {
				raise(ErrMalformed, "%s literal has %d values for %d fields", rv.Type.Name, len(rv.Args), len(rv.Fields))
			}
			s.Set(rv.Fields[i], m.operand(fr, &rv.Args[i]))
		}
		return StructVal(s)
	case mir.TypeArray, mir.TypeSlice:
		elems := make([]Value, 0, max(len(rv.Args), rv.Type.Len))
		for i := range rv.Args {
			elems = append(elems, m.operand(fr, &rv.Args[i]))
		}
		for len(elems) < rv.Type.Len {
			elems = append(elems, m.zero(rv.Type.Elem))
		}
		return ArrayVal(NewArray(elems...))
	}
	raise(ErrTypeMismatch, "aggregate of %s", rv.Type)
	return Null()
}

// zero returns the declared default for t: 0, 0.0, false, "", null, or an
// aggregate whose members hold their own defaults.
func (m *Machine) zero(t *mir.Type) Value {
	if t == nil {
		return Null()
	}
	switch t.Kind {
	case mir.TypeInt:
		return Int(0)
	case mir.TypeFloat:
		return Float(0)
	case mir.TypeBool:
		return Bool(false)
	case mir.TypeString:
		return Str("")
	case mir.TypeStruct:
		def, ok := m.structs[t.Name]
		if !ok {
			raise(ErrUnknownType, "struct %s", t.Name)
		}
		s := NewStruct(def.Name)
		for _, f := range def.Fields {
			s.Set(f.Name, m.zero(f.Type))
		}
		return StructVal(s)
	case mir.TypeArray:
		elems := make([]Value, t.Len)
		for i := range elems {
			elems[i] = m.zero(t.Elem)
		}
		return ArrayVal(NewArray(elems...))
	case mir.TypeSlice:
		return ArrayVal(NewArray())
	}
	return Null()
}

func length(v Value) int {
	switch v.kind {
	case KindArray:
		return v.arr.Len()
	case KindString:
		return len([]rune(v.str))
	}
	raise(ErrTypeMismatch, "length of %s", v.kind)
	return 0
}
