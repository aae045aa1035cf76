package mir

import (
	"fmt"
	"strconv"
	"strings"
)

// BlockID identifies a basic block within a function. Ids are dense and
// start at EntryBlock.
type BlockID int

// LocalID identifies a slot in a function's local table.
type LocalID int

// EntryBlock is the block every function starts in.
const EntryBlock BlockID = 0

// ---------------------------------------------------------------------------
// Places
// ---------------------------------------------------------------------------

// ProjKind identifies one step of a place projection.
type ProjKind string

const (
	ProjField ProjKind = "field" // struct member
	ProjIndex ProjKind = "index" // array element
	ProjDeref ProjKind = "deref" // through a Box
)

// Projection is one step from a local towards the storage a place names.
type Projection struct {
	Kind  ProjKind `yaml:"kind" cbor:"kind"`
	Field string   `yaml:"field,omitempty" cbor:"field,omitempty"`
	Index *Operand `yaml:"index,omitempty" cbor:"index,omitempty"`
}

// Place names a storage location: a local followed by projections.
type Place struct {
	Local LocalID      `yaml:"local" cbor:"local"`
	Proj  []Projection `yaml:"proj,omitempty" cbor:"proj,omitempty"`
}

// LocalPlace returns the place naming a whole local.
func LocalPlace(id LocalID) Place {
	return Place{Local: id}
}

func (p Place) with(pr Projection) Place {
	proj := make([]Projection, len(p.Proj), len(p.Proj)+1)
	copy(proj, p.Proj)
	return Place{Local: p.Local, Proj: append(proj, pr)}
}

// Field returns the place naming member name of p.
func (p Place) Field(name string) Place {
	return p.with(Projection{Kind: ProjField, Field: name})
}

// Index returns the place naming element idx of p.
func (p Place) Index(idx Operand) Place {
	return p.with(Projection{Kind: ProjIndex, Index: &idx})
}

// Deref returns the place naming the slot the Box in p refers to.
func (p Place) Deref() Place {
	return p.with(Projection{Kind: ProjDeref})
}

// IsLocal reports whether p names a whole local.
func (p Place) IsLocal() bool {
	return len(p.Proj) == 0
}

func (p Place) String() string {
	s := fmt.Sprintf("_%d", p.Local)
	for _, pr := range p.Proj {
		switch pr.Kind {
		case ProjField:
			s += "." + pr.Field
		case ProjIndex:
			s += "[" + pr.Index.String() + "]"
		case ProjDeref:
			s = "(*" + s + ")"
		}
	}
	return s
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

// Const is a literal primitive. Kind is one of the primitive TypeKinds.
type Const struct {
	Kind  TypeKind `yaml:"kind" cbor:"kind"`
	Int   int64    `yaml:"int,omitempty" cbor:"int,omitempty"`
	Float float64  `yaml:"float,omitempty" cbor:"float,omitempty"`
	Bool  bool     `yaml:"bool,omitempty" cbor:"bool,omitempty"`
	Str   string   `yaml:"str,omitempty" cbor:"str,omitempty"`
}

func (c *Const) String() string {
	switch c.Kind {
	case TypeInt:
		return strconv.FormatInt(c.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case TypeBool:
		return strconv.FormatBool(c.Bool)
	case TypeString:
		return strconv.Quote(c.Str)
	default:
		return "null"
	}
}

// OperandKind says how an operand reads its value.
type OperandKind string

const (
	OpCopy  OperandKind = "copy"  // read and clone aggregates
	OpMove  OperandKind = "move"  // read without cloning; the source is dead afterwards
	OpConst OperandKind = "const" // literal
)

// Operands is an argument list. Its YAML form keeps null elements, which
// the decoder would otherwise drop from a slice of structs.
type Operands []Operand

// Operand is an input to an rvalue, terminator or projection.
type Operand struct {
	Kind  OperandKind `yaml:"kind" cbor:"kind"`
	Place *Place      `yaml:"place,omitempty" cbor:"place,omitempty"`
	Const *Const      `yaml:"const,omitempty" cbor:"const,omitempty"`
}

// Copy reads p, cloning aggregate values.
func Copy(p Place) Operand {
	return Operand{Kind: OpCopy, Place: &p}
}

// Move reads p without cloning.
func Move(p Place) Operand {
	return Operand{Kind: OpMove, Place: &p}
}

// IntConst returns an integer literal operand.
func IntConst(n int64) Operand {
	return Operand{Kind: OpConst, Const: &Const{Kind: TypeInt, Int: n}}
}

// FloatConst returns a float literal operand.
func FloatConst(f float64) Operand {
	return Operand{Kind: OpConst, Const: &Const{Kind: TypeFloat, Float: f}}
}

// BoolConst returns a boolean literal operand.
func BoolConst(b bool) Operand {
	return Operand{Kind: OpConst, Const: &Const{Kind: TypeBool, Bool: b}}
}

// StrConst returns a string literal operand.
func StrConst(s string) Operand {
	return Operand{Kind: OpConst, Const: &Const{Kind: TypeString, Str: s}}
}

// NullConst returns the unit/null literal operand.
func NullConst() Operand {
	return Operand{Kind: OpConst, Const: &Const{Kind: TypeUnit}}
}

func (o *Operand) String() string {
	if o == nil {
		return "null"
	}
	switch o.Kind {
	case OpConst:
		if o.Const == nil {
			return "null"
		}
		return "const " + o.Const.String()
	case OpMove:
		return "move " + o.Place.String()
	default:
		return o.Place.String()
	}
}

// ---------------------------------------------------------------------------
// Rvalues
// ---------------------------------------------------------------------------

// RvalueKind identifies what an assignment computes.
type RvalueKind string

const (
	RvUse       RvalueKind = "use"
	RvBinary    RvalueKind = "binary"
	RvUnary     RvalueKind = "unary"
	RvRef       RvalueKind = "ref"       // address of an addressable local
	RvAggregate RvalueKind = "aggregate" // struct or array literal
	RvCast      RvalueKind = "cast"
	RvFormat    RvalueKind = "format"   // interpolated string
	RvSlice     RvalueKind = "slice"    // array slice
	RvStrSlice  RvalueKind = "strslice" // string slice
	RvIface     RvalueKind = "iface"    // concrete value to interface value
	RvLen       RvalueKind = "len"
)

// BinOp is a binary operator.
type BinOp string

const (
	BinAdd    BinOp = "add"
	BinSub    BinOp = "sub"
	BinMul    BinOp = "mul"
	BinDiv    BinOp = "div"
	BinMod    BinOp = "mod"
	BinBitAnd BinOp = "bitand"
	BinBitOr  BinOp = "bitor"
	BinBitXor BinOp = "bitxor"
	BinShl    BinOp = "shl"
	BinShr    BinOp = "shr"
	BinEq     BinOp = "eq"
	BinNe     BinOp = "ne"
	BinLt     BinOp = "lt"
	BinLe     BinOp = "le"
	BinGt     BinOp = "gt"
	BinGe     BinOp = "ge"
	BinAnd    BinOp = "and"
	BinOr     BinOp = "or"
)

// UnOp is a unary operator.
type UnOp string

const (
	UnNeg    UnOp = "neg"
	UnNot    UnOp = "not"
	UnBitNot UnOp = "bitnot"
)

// Rvalue is the right-hand side of an assignment.
type Rvalue struct {
	Kind RvalueKind `yaml:"kind" cbor:"kind"`
	Bin  BinOp      `yaml:"bin,omitempty" cbor:"bin,omitempty"`
	Un   UnOp       `yaml:"un,omitempty" cbor:"un,omitempty"`
	Args Operands   `yaml:"args,omitempty" cbor:"args,omitempty"`

	// Place is the operand of ref.
	Place *Place `yaml:"place,omitempty" cbor:"place,omitempty"`

	// Type is the constructed type of an aggregate or the target of a cast.
	Type *Type `yaml:"type,omitempty" cbor:"type,omitempty"`

	// Fields names the struct members of an aggregate, parallel to Args.
	Fields []string `yaml:"fields,omitempty" cbor:"fields,omitempty"`

	Template string `yaml:"template,omitempty" cbor:"template,omitempty"`
	VTable   string `yaml:"vtable,omitempty" cbor:"vtable,omitempty"`
}

// Use reads a single operand.
func Use(op Operand) Rvalue {
	return Rvalue{Kind: RvUse, Args: []Operand{op}}
}

// Binary applies op to a and b.
func Binary(op BinOp, a, b Operand) Rvalue {
	return Rvalue{Kind: RvBinary, Bin: op, Args: []Operand{a, b}}
}

// Unary applies op to a.
func Unary(op UnOp, a Operand) Rvalue {
	return Rvalue{Kind: RvUnary, Un: op, Args: []Operand{a}}
}

// Ref takes the address of p.
func Ref(p Place) Rvalue {
	return Rvalue{Kind: RvRef, Place: &p}
}

// StructLit builds a struct value of the named type. Members not listed
// take their declared defaults.
func StructLit(name string, fields []string, args ...Operand) Rvalue {
	return Rvalue{Kind: RvAggregate, Type: StructOf(name), Fields: fields, Args: args}
}

// ArrayLit builds an array (fixed or dynamic, per t) from args.
func ArrayLit(t *Type, args ...Operand) Rvalue {
	return Rvalue{Kind: RvAggregate, Type: t, Args: args}
}

// CastTo converts op to t.
func CastTo(op Operand, t *Type) Rvalue {
	return Rvalue{Kind: RvCast, Type: t, Args: []Operand{op}}
}

// Format interpolates args into template.
func Format(template string, args ...Operand) Rvalue {
	return Rvalue{Kind: RvFormat, Template: template, Args: args}
}

// SliceArray slices seq from start to the optional end.
func SliceArray(seq, start Operand, end ...Operand) Rvalue {
	return Rvalue{Kind: RvSlice, Args: append([]Operand{seq, start}, end...)}
}

// SliceString slices the string seq from start to the optional end.
func SliceString(seq, start Operand, end ...Operand) Rvalue {
	return Rvalue{Kind: RvStrSlice, Args: append([]Operand{seq, start}, end...)}
}

// MakeIface converts op to an interface value bound to vtable.
func MakeIface(op Operand, vtable string) Rvalue {
	return Rvalue{Kind: RvIface, VTable: vtable, Args: []Operand{op}}
}

// Length returns the length of an array or string.
func Length(op Operand) Rvalue {
	return Rvalue{Kind: RvLen, Args: []Operand{op}}
}

func (r *Rvalue) String() string {
	args := make([]string, len(r.Args))
	for i := range r.Args {
		args[i] = r.Args[i].String()
	}
	switch r.Kind {
	case RvUse:
		return strings.Join(args, ", ")
	case RvBinary:
		return fmt.Sprintf("%s(%s)", r.Bin, strings.Join(args, ", "))
	case RvUnary:
		return fmt.Sprintf("%s(%s)", r.Un, strings.Join(args, ", "))
	case RvRef:
		return "&" + r.Place.String()
	case RvAggregate:
		if r.Type != nil && r.Type.Kind == TypeStruct {
			parts := make([]string, len(args))
			for i := range args {
				name := ""
				if i < len(r.Fields) {
					name = r.Fields[i]
				}
				parts[i] = name + ": " + args[i]
			}
			return r.Type.String() + " { " + strings.Join(parts, ", ") + " }"
		}
		return "[" + strings.Join(args, ", ") + "]"
	case RvCast:
		return fmt.Sprintf("%s as %s", strings.Join(args, ", "), r.Type)
	case RvFormat:
		return fmt.Sprintf("format(%q, %s)", r.Template, strings.Join(args, ", "))
	case RvIface:
		return fmt.Sprintf("iface(%s, %s)", strings.Join(args, ", "), r.VTable)
	default:
		return fmt.Sprintf("%s(%s)", r.Kind, strings.Join(args, ", "))
	}
}

// ---------------------------------------------------------------------------
// Statements and terminators
// ---------------------------------------------------------------------------

// StmtKind identifies a statement.
type StmtKind string

const (
	StmtAssign StmtKind = "assign"
	StmtNop    StmtKind = "nop"
)

// Stmt is a straight-line statement inside a block.
type Stmt struct {
	Kind  StmtKind `yaml:"kind" cbor:"kind"`
	Place *Place   `yaml:"place,omitempty" cbor:"place,omitempty"`
	Value *Rvalue  `yaml:"value,omitempty" cbor:"value,omitempty"`
}

// Assign stores rv into p.
func Assign(p Place, rv Rvalue) Stmt {
	return Stmt{Kind: StmtAssign, Place: &p, Value: &rv}
}

// Nop returns a statement that does nothing.
func Nop() Stmt {
	return Stmt{Kind: StmtNop}
}

func (s *Stmt) String() string {
	if s.Kind != StmtAssign {
		return "nop"
	}
	return fmt.Sprintf("%s = %s", s.Place, s.Value)
}

// TermKind identifies a block terminator.
type TermKind string

const (
	TermGoto        TermKind = "goto"
	TermBranch      TermKind = "branch"
	TermSwitch      TermKind = "switch"
	TermReturn      TermKind = "return"
	TermUnreachable TermKind = "unreachable"
	TermCall        TermKind = "call"
)

// SwitchCase maps one discriminant value to a target block.
type SwitchCase struct {
	Value  int64   `yaml:"value" cbor:"value"`
	Target BlockID `yaml:"target" cbor:"target"`
}

// Terminator ends a block and selects what runs next.
type Terminator struct {
	Kind TermKind `yaml:"kind" cbor:"kind"`

	// Target is the goto destination and the call continuation.
	Target BlockID `yaml:"target,omitempty" cbor:"target,omitempty"`

	// Cond is the branch condition or the switch discriminant.
	Cond *Operand `yaml:"cond,omitempty" cbor:"cond,omitempty"`
	Then BlockID  `yaml:"then,omitempty" cbor:"then,omitempty"`
	Else BlockID  `yaml:"else,omitempty" cbor:"else,omitempty"`

	Cases     []SwitchCase `yaml:"cases,omitempty" cbor:"cases,omitempty"`
	Otherwise BlockID      `yaml:"otherwise,omitempty" cbor:"otherwise,omitempty"`

	// Value is the optional returned operand.
	Value *Operand `yaml:"value,omitempty" cbor:"value,omitempty"`

	// Func names a static callee; Method names an interface method, in
	// which case Args[0] is the interface receiver.
	Func     string   `yaml:"func,omitempty" cbor:"func,omitempty"`
	Method   string   `yaml:"method,omitempty" cbor:"method,omitempty"`
	TypeArgs []*Type  `yaml:"type_args,omitempty" cbor:"type_args,omitempty"`
	Args     Operands `yaml:"args,omitempty" cbor:"args,omitempty"`
	Dest     *Place   `yaml:"dest,omitempty" cbor:"dest,omitempty"`
}

// Goto jumps unconditionally.
func Goto(target BlockID) Terminator {
	return Terminator{Kind: TermGoto, Target: target}
}

// Branch jumps to then when cond is truthy, else to els.
func Branch(cond Operand, then, els BlockID) Terminator {
	return Terminator{Kind: TermBranch, Cond: &cond, Then: then, Else: els}
}

// Switch jumps to the case matching disc, or otherwise.
func Switch(disc Operand, cases []SwitchCase, otherwise BlockID) Terminator {
	return Terminator{Kind: TermSwitch, Cond: &disc, Cases: cases, Otherwise: otherwise}
}

// Return exits the function with v.
func Return(v Operand) Terminator {
	return Terminator{Kind: TermReturn, Value: &v}
}

// ReturnVoid exits the function with null.
func ReturnVoid() Terminator {
	return Terminator{Kind: TermReturn}
}

// Unreachable marks a block that must never execute.
func Unreachable() Terminator {
	return Terminator{Kind: TermUnreachable}
}

// Call invokes fn, stores the result in dest (if any) and continues at next.
func Call(fn string, args []Operand, dest *Place, next BlockID) Terminator {
	return Terminator{Kind: TermCall, Func: fn, Args: args, Dest: dest, Target: next}
}

// CallMethod dispatches method on the interface value recv.
func CallMethod(method string, recv Operand, args []Operand, dest *Place, next BlockID) Terminator {
	return Terminator{
		Kind:   TermCall,
		Method: method,
		Args:   append([]Operand{recv}, args...),
		Dest:   dest,
		Target: next,
	}
}

// Successors lists the blocks t may transfer control to, in order.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermGoto, TermCall:
		return []BlockID{t.Target}
	case TermBranch:
		return []BlockID{t.Then, t.Else}
	case TermSwitch:
		out := make([]BlockID, 0, len(t.Cases)+1)
		for _, c := range t.Cases {
			out = append(out, c.Target)
		}
		return append(out, t.Otherwise)
	}
	return nil
}

func (t *Terminator) String() string {
	switch t.Kind {
	case TermGoto:
		return fmt.Sprintf("goto -> bb%d", t.Target)
	case TermBranch:
		return fmt.Sprintf("branch %s -> [true: bb%d, false: bb%d]", t.Cond, t.Then, t.Else)
	case TermSwitch:
		parts := make([]string, 0, len(t.Cases)+1)
		for _, c := range t.Cases {
			parts = append(parts, fmt.Sprintf("%d: bb%d", c.Value, c.Target))
		}
		parts = append(parts, fmt.Sprintf("otherwise: bb%d", t.Otherwise))
		return fmt.Sprintf("switch %s -> [%s]", t.Cond, strings.Join(parts, ", "))
	case TermReturn:
		if t.Value == nil {
			return "return"
		}
		return "return " + t.Value.String()
	case TermCall:
		args := make([]string, len(t.Args))
		for i := range t.Args {
			args[i] = t.Args[i].String()
		}
		callee := t.Func
		if t.Method != "" {
			callee = "<dyn>." + t.Method
		}
		s := fmt.Sprintf("%s(%s) -> bb%d", callee, strings.Join(args, ", "), t.Target)
		if t.Dest != nil {
			s = t.Dest.String() + " = " + s
		}
		return s
	default:
		return string(t.Kind)
	}
}

// ---------------------------------------------------------------------------
// Blocks, functions, programs
// ---------------------------------------------------------------------------

// Block is one basic block.
type Block struct {
	ID    BlockID    `yaml:"id" cbor:"id"`
	Stmts []Stmt     `yaml:"stmts,omitempty" cbor:"stmts,omitempty"`
	Term  Terminator `yaml:"term" cbor:"term"`
}

// IsForwarding reports whether b only jumps elsewhere.
func (b *Block) IsForwarding() bool {
	for _, s := range b.Stmts {
		if s.Kind != StmtNop {
			return false
		}
	}
	return b.Term.Kind == TermGoto
}

// Local is one slot of a function's local table.
type Local struct {
	Name string `yaml:"name" cbor:"name"`
	Type *Type  `yaml:"type" cbor:"type"`

	// Addressable locals have their address taken somewhere in the
	// function; they live in an arena slot for the whole activation.
	Addressable bool `yaml:"addressable,omitempty" cbor:"addressable,omitempty"`
}

// Function is a lowered function body.
type Function struct {
	Name    string    `yaml:"name" cbor:"name"`
	Params  []LocalID `yaml:"params,omitempty" cbor:"params,omitempty"`
	Returns *Type     `yaml:"returns,omitempty" cbor:"returns,omitempty"`
	Locals  []Local   `yaml:"locals,omitempty" cbor:"locals,omitempty"`
	Blocks  []*Block  `yaml:"blocks" cbor:"blocks"`

	// TypeParams is non-empty only for generic templates.
	TypeParams []string `yaml:"type_params,omitempty" cbor:"type_params,omitempty"`
}

// Block returns the block with the given id, or nil.
func (f *Function) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	b := f.Blocks[id]
	if b == nil || b.ID != id {
		return nil
	}
	return b
}

// Local returns the declaration of local id, or nil.
func (f *Function) Local(id LocalID) *Local {
	if id < 0 || int(id) >= len(f.Locals) {
		return nil
	}
	return &f.Locals[id]
}

// GenericStruct is a struct template with type parameters.
type GenericStruct struct {
	Name       string   `yaml:"name" cbor:"name"`
	TypeParams []string `yaml:"type_params" cbor:"type_params"`
	Fields     []Field  `yaml:"fields" cbor:"fields"`
}

// Program is a complete lowered module.
type Program struct {
	Name       string          `yaml:"name" cbor:"name"`
	Entry      string          `yaml:"entry,omitempty" cbor:"entry,omitempty"`
	Structs    []*StructDef    `yaml:"structs,omitempty" cbor:"structs,omitempty"`
	Interfaces []*InterfaceDef `yaml:"interfaces,omitempty" cbor:"interfaces,omitempty"`
	VTables    []*VTable       `yaml:"vtables,omitempty" cbor:"vtables,omitempty"`
	Functions  []*Function     `yaml:"functions" cbor:"functions"`

	GenericStructs []*GenericStruct `yaml:"generic_structs,omitempty" cbor:"generic_structs,omitempty"`
	GenericFuncs   []*Function      `yaml:"generic_funcs,omitempty" cbor:"generic_funcs,omitempty"`
}

// Func returns the named concrete function, or nil.
func (p *Program) Func(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Struct returns the named concrete struct, or nil.
func (p *Program) Struct(name string) *StructDef {
	for _, s := range p.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Interface returns the named interface, or nil.
func (p *Program) Interface(name string) *InterfaceDef {
	for _, i := range p.Interfaces {
		if i.Name == name {
			return i
		}
	}
	return nil
}

// VTable returns the named vtable, or nil.
func (p *Program) VTable(name string) *VTable {
	for _, v := range p.VTables {
		if v.Name == name {
			return v
		}
	}
	return nil
}
